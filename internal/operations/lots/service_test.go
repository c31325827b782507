package lots

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hatvoni/insider/internal/ledger"
	"github.com/hatvoni/insider/internal/shared"
)

type memoryRepo struct {
	lots   map[string]Lot
	usage  map[string][]BatchUsage
	events map[string][]ledger.Event
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		lots:   make(map[string]Lot),
		usage:  make(map[string][]BatchUsage),
		events: make(map[string][]ledger.Event),
	}
}

func (r *memoryRepo) Create(ctx context.Context, lot Lot) (Lot, error) {
	lot.QuantityAvailable = lot.QuantityReceived
	lot.CreatedAt = time.Now()
	lot.UpdatedAt = lot.CreatedAt
	r.lots[lot.ID] = lot
	return lot, nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (*Lot, error) {
	lot, ok := r.lots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &lot, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Lot, int, error) {
	list := []Lot{}
	for _, lot := range r.lots {
		if filter.Kind != nil && lot.Kind != *filter.Kind {
			continue
		}
		list = append(list, lot)
	}
	return list, len(list), nil
}

func (r *memoryRepo) Receive(ctx context.Context, id string, qty decimal.Decimal) (*Lot, error) {
	lot, ok := r.lots[id]
	if !ok {
		return nil, ErrNotFound
	}
	lot.QuantityReceived = lot.QuantityReceived.Add(qty)
	lot.QuantityAvailable = lot.QuantityAvailable.Add(qty)
	r.lots[id] = lot
	return &lot, nil
}

func (r *memoryRepo) BatchUsage(ctx context.Context, lotID string) ([]BatchUsage, error) {
	return r.usage[lotID], nil
}

func (r *memoryRepo) Events(ctx context.Context, lotID string) ([]ledger.Event, error) {
	return r.events[lotID], nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func day(n int) time.Time {
	return time.Date(2026, time.March, n, 0, 0, 0, 0, time.UTC)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), CreateInput{Kind: "bogus", Name: "Flour", InitialQuantity: decimal.NewFromInt(10)})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Kind: KindRawMaterial, Name: "  ", InitialQuantity: decimal.NewFromInt(10)})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Kind: KindRawMaterial, Name: "Flour", InitialQuantity: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCreateRecordsAudit(t *testing.T) {
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	svc := NewService(repo, audit)

	lot, err := svc.Create(context.Background(), CreateInput{
		Kind:            KindRawMaterial,
		Name:            "Flour T-55",
		Unit:            "kg",
		InitialQuantity: decimal.NewFromInt(100),
		ActorID:         7,
	})
	require.NoError(t, err)
	require.True(t, lot.QuantityAvailable.Equal(decimal.NewFromInt(100)))
	require.Len(t, audit.logs, 1)
	require.Equal(t, "lots:create", audit.logs[0].Action)
	require.Equal(t, int64(7), audit.logs[0].ActorID)
}

func TestReceiveRejectsNonPositive(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.Receive(context.Background(), "missing", decimal.Zero, 1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestReceiveIncreasesBothCounters(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &memoryAudit{})

	created, err := svc.Create(context.Background(), CreateInput{
		Kind: KindRawMaterial, Name: "Sugar", Unit: "kg", InitialQuantity: decimal.NewFromInt(40),
	})
	require.NoError(t, err)

	lot, err := svc.Receive(context.Background(), created.ID, decimal.NewFromInt(10), 1)
	require.NoError(t, err)
	require.True(t, lot.QuantityReceived.Equal(decimal.NewFromInt(50)))
	require.True(t, lot.QuantityAvailable.Equal(decimal.NewFromInt(50)))
}

func TestHistoryReconstructsBalances(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), CreateInput{
		Kind: KindRawMaterial, Name: "Butter", Unit: "kg", InitialQuantity: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	repo.usage[created.ID] = []BatchUsage{
		{BatchID: "b1", BatchDate: day(1), QuantityConsumed: decimal.NewFromInt(20), Unit: "kg"},
		{BatchID: "b2", BatchDate: day(2), QuantityConsumed: decimal.NewFromInt(10), Unit: "kg"},
	}
	repo.events[created.ID] = []ledger.Event{
		{ID: "w1", Type: ledger.EventWaste, Date: day(3), CreatedAt: day(3), Quantity: decimal.NewFromInt(5), Unit: "kg"},
		{ID: "t1", Type: ledger.EventTransferOut, Date: day(4), CreatedAt: day(4), Quantity: decimal.NewFromInt(15), Unit: "kg"},
	}

	hist, err := svc.History(context.Background(), created.ID, false)
	require.NoError(t, err)
	require.True(t, hist.TotalBatchConsumption.Equal(decimal.NewFromInt(30)))
	require.Len(t, hist.Events, 2)

	// Newest first: the transfer, then the waste. Baseline is 100-30=70.
	require.Equal(t, "t1", hist.Events[0].ID)
	require.True(t, hist.Events[0].Before.Equal(decimal.NewFromInt(65)))
	require.True(t, hist.Events[0].After.Equal(decimal.NewFromInt(50)))
	require.Equal(t, "w1", hist.Events[1].ID)
	require.True(t, hist.Events[1].Before.Equal(decimal.NewFromInt(70)))
	require.True(t, hist.Events[1].After.Equal(decimal.NewFromInt(65)))
}

func TestHistoryMissingLot(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.History(context.Background(), "nope", false)
	require.ErrorIs(t, err, ErrNotFound)
}
