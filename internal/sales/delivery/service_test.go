package delivery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hatvoni/insider/internal/shared"
)

type memoryRepo struct {
	shipments map[string]Shipment
	byOrder   map[string]string
	orders    map[string]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		shipments: make(map[string]Shipment),
		byOrder:   make(map[string]string),
		orders:    make(map[string]bool),
	}
}

func (r *memoryRepo) Insert(ctx context.Context, s Shipment) (Shipment, error) {
	r.shipments[s.ID] = s
	r.byOrder[s.OrderID] = s.ID
	return s, nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (*Shipment, error) {
	s, ok := r.shipments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memoryRepo) GetByOrder(ctx context.Context, orderID string) (*Shipment, error) {
	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *memoryRepo) List(ctx context.Context, status *Status, limit, offset int) ([]Shipment, int, error) {
	out := []Shipment{}
	for _, s := range r.shipments {
		if status != nil && s.Status != *status {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Update(ctx context.Context, s Shipment) (Shipment, error) {
	current, ok := r.shipments[s.ID]
	if !ok {
		return Shipment{}, ErrNotFound
	}
	s.OrderID = current.OrderID
	s.CreatedAt = current.CreatedAt
	r.shipments[s.ID] = s
	return s, nil
}

func (r *memoryRepo) OrderExists(ctx context.Context, orderID string) (bool, error) {
	return r.orders[orderID], nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestCreateStartsPending(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders["order-1"] = true
	audit := &memoryAudit{}
	svc := NewService(repo, audit)

	shipment, err := svc.Create(context.Background(), CreateInput{
		OrderID: "order-1",
		Courier: "GLS",
		ActorID: 7,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, shipment.Status)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "delivery:create", audit.logs[0].Action)
}

func TestCreateRejectsUnknownOrder(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), CreateInput{OrderID: "missing", Courier: "GLS"})
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCreateRejectsSecondShipment(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders["order-1"] = true
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateInput{OrderID: "order-1", Courier: "GLS"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{OrderID: "order-1", Courier: "DPD"})
	require.ErrorIs(t, err, ErrAlreadyTracked)
}

func TestUpdateValidatesStatus(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders["order-1"] = true
	svc := NewService(repo, nil)

	shipment, err := svc.Create(context.Background(), CreateInput{OrderID: "order-1", Courier: "GLS"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), shipment.ID, UpdateInput{Status: Status("lost")})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateKeepsCourierWhenBlank(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders["order-1"] = true
	svc := NewService(repo, nil)

	shipment, err := svc.Create(context.Background(), CreateInput{OrderID: "order-1", Courier: "GLS"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), shipment.ID, UpdateInput{
		Status:      StatusDelivered,
		EvidenceKey: "delivery-proof/order-1.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, "GLS", updated.Courier)
	require.Equal(t, StatusDelivered, updated.Status)
	require.Equal(t, "delivery-proof/order-1.jpg", updated.EvidenceKey)
}
