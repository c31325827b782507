package waste

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
	lots    map[string]*memoryLot
	records []Record
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{lots: make(map[string]*memoryLot)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) ListByLot(ctx context.Context, lotID string) ([]Record, error) {
	out := []Record{}
	for _, rec := range r.records {
		if rec.LotID == lotID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int) ([]Record, int, error) {
	return r.records, len(r.records), nil
}

func (t *memoryTx) LotAvailableForUpdate(ctx context.Context, lotID string) (decimal.Decimal, string, error) {
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

func (t *memoryTx) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	rec.CreatedAt = time.Now()
	t.repo.records = append(t.repo.records, rec)
	return rec, nil
}

func TestRecordDebitsLot(t *testing.T) {
	repo := newMemoryRepo()
	repo.lots["lot-1"] = &memoryLot{available: decimal.NewFromInt(80), unit: "kg"}
	svc := NewService(repo, nil)

	rec, err := svc.Record(context.Background(), RecordInput{
		LotID:    "lot-1",
		Quantity: decimal.NewFromInt(20),
		Reason:   "spoiled",
		ActorID:  3,
	})
	require.NoError(t, err)
	require.Equal(t, "kg", rec.Unit)
	require.True(t, repo.lots["lot-1"].available.Equal(decimal.NewFromInt(60)))
	require.Len(t, repo.records, 1)
}

func TestRecordRejectsOverdraw(t *testing.T) {
	repo := newMemoryRepo()
	repo.lots["lot-1"] = &memoryLot{available: decimal.NewFromInt(10), unit: "kg"}
	svc := NewService(repo, nil)

	_, err := svc.Record(context.Background(), RecordInput{
		LotID:    "lot-1",
		Quantity: decimal.NewFromInt(11),
		Reason:   "spoiled",
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Empty(t, repo.records)
	require.True(t, repo.lots["lot-1"].available.Equal(decimal.NewFromInt(10)))
}

func TestRecordOverrideAllowsOverdraw(t *testing.T) {
	repo := newMemoryRepo()
	repo.lots["lot-1"] = &memoryLot{available: decimal.NewFromInt(10), unit: "kg"}
	svc := NewService(repo, nil)

	rec, err := svc.Record(context.Background(), RecordInput{
		LotID:    "lot-1",
		Quantity: decimal.NewFromInt(14),
		Reason:   "flood damage",
		Override: true,
		ActorID:  3,
	})
	require.NoError(t, err)
	require.True(t, rec.QuantityWasted.Equal(decimal.NewFromInt(14)))
	// Balance goes negative; the ledger reports the shortfall.
	require.True(t, repo.lots["lot-1"].available.Equal(decimal.NewFromInt(-4)))
	require.Len(t, repo.records, 1)
}

func TestRecordValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Record(context.Background(), RecordInput{LotID: "lot-1", Quantity: decimal.Zero, Reason: "x"})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Record(context.Background(), RecordInput{LotID: "lot-1", Quantity: decimal.NewFromInt(1), Reason: "  "})
	require.Error(t, err)

	_, err = svc.Record(context.Background(), RecordInput{LotID: "missing", Quantity: decimal.NewFromInt(1), Reason: "x"})
	require.ErrorIs(t, err, ErrLotNotFound)
}

func TestRecordDefaultsDate(t *testing.T) {
	repo := newMemoryRepo()
	repo.lots["lot-1"] = &memoryLot{available: decimal.NewFromInt(5), unit: "pcs"}
	svc := NewService(repo, nil)

	rec, err := svc.Record(context.Background(), RecordInput{
		LotID:    "lot-1",
		Quantity: decimal.NewFromInt(1),
		Reason:   "broken",
	})
	require.NoError(t, err)
	require.False(t, rec.WasteDate.IsZero())
}
