package processed

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hatvoni/insider/internal/shared"
)

type memoryRepo struct {
	goods map[string]Good
	sales map[string][]SaleEntry
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{goods: map[string]Good{}, sales: map[string][]SaleEntry{}}
}

func (m *memoryRepo) Create(_ context.Context, good Good) (Good, error) {
	good.QuantityOnHand = decimal.Zero
	good.CreatedAt = time.Now()
	good.UpdatedAt = good.CreatedAt
	m.goods[good.ID] = good
	return good, nil
}

func (m *memoryRepo) Update(_ context.Context, good Good) (Good, error) {
	existing, ok := m.goods[good.ID]
	if !ok {
		return Good{}, ErrNotFound
	}
	good.QuantityOnHand = existing.QuantityOnHand
	good.CreatedAt = existing.CreatedAt
	good.UpdatedAt = time.Now()
	m.goods[good.ID] = good
	return good, nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (*Good, error) {
	good, ok := m.goods[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &good, nil
}

func (m *memoryRepo) List(_ context.Context, _ string, _, _ int) ([]Good, int, error) {
	goods := make([]Good, 0, len(m.goods))
	for _, g := range m.goods {
		goods = append(goods, g)
	}
	return goods, len(goods), nil
}

func (m *memoryRepo) Adjust(_ context.Context, id string, delta decimal.Decimal) (*Good, error) {
	good, ok := m.goods[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := good.QuantityOnHand.Add(delta)
	if next.IsNegative() {
		return nil, ErrInsufficientStock
	}
	good.QuantityOnHand = next
	m.goods[id] = good
	return &good, nil
}

func (m *memoryRepo) SalesHistory(_ context.Context, goodID string) ([]SaleEntry, error) {
	return m.sales[goodID], nil
}

type memoryAudit struct {
	entries []shared.AuditLog
}

func (m *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	m.entries = append(m.entries, log)
	return nil
}

func TestCreateStartsWithZeroStock(t *testing.T) {
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	svc := NewService(repo, audit)

	good, err := svc.Create(context.Background(), GoodInput{
		Name:      "  Rozskenyér 1kg ",
		SKU:       "RK-1000",
		Unit:      "db",
		UnitPrice: decimal.NewFromInt(1450),
		ActorID:   7,
	})
	require.NoError(t, err)
	require.Equal(t, "Rozskenyér 1kg", good.Name)
	require.True(t, good.QuantityOnHand.IsZero())
	require.Len(t, audit.entries, 1)
	require.Equal(t, "processed:create", audit.entries[0].Action)
}

func TestCreateRejectsNegativePrice(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), GoodInput{
		Name:      "Vekni",
		Unit:      "db",
		UnitPrice: decimal.NewFromInt(-10),
	})
	require.Error(t, err)
}

func TestDeductGuardsStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &memoryAudit{})

	good, err := svc.Create(context.Background(), GoodInput{
		Name:      "Magvas vekni",
		Unit:      "db",
		UnitPrice: decimal.NewFromInt(980),
	})
	require.NoError(t, err)

	_, err = repo.Adjust(context.Background(), good.ID, decimal.NewFromInt(10))
	require.NoError(t, err)

	updated, err := svc.Deduct(context.Background(), good.ID, decimal.NewFromInt(4), 1)
	require.NoError(t, err)
	require.True(t, updated.QuantityOnHand.Equal(decimal.NewFromInt(6)))

	_, err = svc.Deduct(context.Background(), good.ID, decimal.NewFromInt(7), 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestDeductRejectsNonPositiveQuantity(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Deduct(context.Background(), "any", decimal.Zero, 1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSalesHistoryRequiresExistingGood(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.SalesHistory(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	good, err := svc.Create(context.Background(), GoodInput{
		Name:      "Rozskenyér",
		Unit:      "db",
		UnitPrice: decimal.NewFromInt(1450),
	})
	require.NoError(t, err)

	repo.sales[good.ID] = []SaleEntry{{OrderID: "order-1", Customer: "Minta Bolt Kft.", Quantity: decimal.NewFromInt(3)}}

	entries, err := svc.SalesHistory(context.Background(), good.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "order-1", entries[0].OrderID)
}
