package batches

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryLot struct {
	available decimal.Decimal
	unit      string
}

type memoryRepo struct {
	lots      map[string]*memoryLot
	goods     map[string]decimal.Decimal
	batches   map[string]Batch
	usage     []Usage
	lockOrder []string
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		lots:    make(map[string]*memoryLot),
		goods:   make(map[string]decimal.Decimal),
		batches: make(map[string]Batch),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id string) (*Batch, error) {
	batch, ok := r.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &batch, nil
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int) ([]Batch, int, error) {
	out := []Batch{}
	for _, b := range r.batches {
		out = append(out, b)
	}
	return out, len(out), nil
}

func (r *memoryRepo) UsageByBatch(ctx context.Context, batchID string) ([]Usage, error) {
	out := []Usage{}
	for _, u := range r.usage {
		if u.BatchID == batchID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryRepo) SetQAStatus(ctx context.Context, id string, status QAStatus) (*Batch, error) {
	batch, ok := r.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	batch.QAStatus = status
	r.batches[id] = batch
	return &batch, nil
}

func (r *memoryRepo) SetLocked(ctx context.Context, id string, locked bool) (*Batch, error) {
	batch, ok := r.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	batch.IsLocked = locked
	r.batches[id] = batch
	return &batch, nil
}

func (t *memoryTx) LotForUpdate(ctx context.Context, lotID string) (decimal.Decimal, string, error) {
	t.repo.lockOrder = append(t.repo.lockOrder, lotID)
	lot, ok := t.repo.lots[lotID]
	if !ok {
		return decimal.Zero, "", ErrLotNotFound
	}
	return lot.available, lot.unit, nil
}

func (t *memoryTx) DebitLot(ctx context.Context, lotID string, qty decimal.Decimal) error {
	lot, ok := t.repo.lots[lotID]
	if !ok {
		return ErrLotNotFound
	}
	lot.available = lot.available.Sub(qty)
	return nil
}

func (t *memoryTx) CreditProcessedGood(ctx context.Context, goodID string, qty decimal.Decimal) error {
	current, ok := t.repo.goods[goodID]
	if !ok {
		return ErrGoodNotFound
	}
	t.repo.goods[goodID] = current.Add(qty)
	return nil
}

func (t *memoryTx) InsertBatch(ctx context.Context, batch Batch) (Batch, error) {
	batch.CreatedAt = time.Now()
	batch.UpdatedAt = batch.CreatedAt
	t.repo.batches[batch.ID] = batch
	return batch, nil
}

func (t *memoryTx) InsertUsage(ctx context.Context, usage Usage) error {
	t.repo.usage = append(t.repo.usage, usage)
	return nil
}

func TestCreateConsumesLotsAndCreditsGood(t *testing.T) {
	repo := newMemoryRepo()
	repo.lots["lot-a"] = &memoryLot{available: decimal.NewFromInt(100), unit: "kg"}
	repo.lots["lot-b"] = &memoryLot{available: decimal.NewFromInt(50), unit: "kg"}
	repo.goods["good-1"] = decimal.NewFromInt(10)
	svc := NewService(repo, nil)

	batch, err := svc.Create(context.Background(), CreateInput{
		ProcessedGoodID: "good-1",
		OutputQuantity:  decimal.NewFromInt(30),
		OutputUnit:      "pcs",
		Consumption: []ConsumptionLine{
			{LotID: "lot-b", Quantity: decimal.NewFromInt(5)},
			{LotID: "lot-a", Quantity: decimal.NewFromInt(20)},
		},
		ActorID: 4,
	})
	require.NoError(t, err)
	require.Equal(t, QAPending, batch.QAStatus)
	require.False(t, batch.IsLocked)
	require.True(t, repo.lots["lot-a"].available.Equal(decimal.NewFromInt(80)))
	require.True(t, repo.lots["lot-b"].available.Equal(decimal.NewFromInt(45)))
	require.True(t, repo.goods["good-1"].Equal(decimal.NewFromInt(40)))
	require.Len(t, repo.usage, 2)
	// Locks taken in ascending lot ID order regardless of input order.
	require.Equal(t, []string{"lot-a", "lot-b"}, repo.lockOrder)
}

func TestCreateRejectsOverConsumption(t *testing.T) {
	repo := newMemoryRepo()
	repo.lots["lot-a"] = &memoryLot{available: decimal.NewFromInt(10), unit: "kg"}
	repo.goods["good-1"] = decimal.Zero
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		ProcessedGoodID: "good-1",
		OutputQuantity:  decimal.NewFromInt(1),
		OutputUnit:      "pcs",
		Consumption:     []ConsumptionLine{{LotID: "lot-a", Quantity: decimal.NewFromInt(11)}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{ProcessedGoodID: "g", OutputQuantity: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, ErrNoConsumption)

	_, err = svc.Create(ctx, CreateInput{
		ProcessedGoodID: "g",
		OutputQuantity:  decimal.Zero,
		Consumption:     []ConsumptionLine{{LotID: "a", Quantity: decimal.NewFromInt(1)}},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Create(ctx, CreateInput{
		ProcessedGoodID: "g",
		OutputQuantity:  decimal.NewFromInt(1),
		Consumption: []ConsumptionLine{
			{LotID: "a", Quantity: decimal.NewFromInt(1)},
			{LotID: "a", Quantity: decimal.NewFromInt(2)},
		},
	})
	require.ErrorIs(t, err, ErrDuplicateLot)
}

func TestSetQAStatusRejectsLockedBatch(t *testing.T) {
	repo := newMemoryRepo()
	repo.batches["b1"] = Batch{ID: "b1", QAStatus: QAPending, IsLocked: true}
	svc := NewService(repo, nil)

	_, err := svc.SetQAStatus(context.Background(), "b1", QAPassed, 1)
	require.ErrorIs(t, err, ErrLocked)
}

func TestSetQAStatusRejectsUnknownVerdict(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.SetQAStatus(context.Background(), "b1", QAStatus("maybe"), 1)
	require.ErrorIs(t, err, ErrInvalidQAStatus)
}

func TestLock(t *testing.T) {
	repo := newMemoryRepo()
	repo.batches["b1"] = Batch{ID: "b1", QAStatus: QAPassed}
	svc := NewService(repo, nil)

	batch, err := svc.Lock(context.Background(), "b1", 1)
	require.NoError(t, err)
	require.True(t, batch.IsLocked)
}
