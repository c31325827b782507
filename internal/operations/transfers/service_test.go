package transfers

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
	records   []Record
	lockOrder []string
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
		if rec.FromLotID == lotID || rec.ToLotID == lotID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int) ([]Record, int, error) {
	return r.records, len(r.records), nil
}

func (t *memoryTx) LotForUpdate(ctx context.Context, lotID string) (decimal.Decimal, string, error) {
	t.repo.lockOrder = append(t.repo.lockOrder, lotID)
	lot, ok := t.repo.lots[lotID]
	if !ok {
		return decimal.Zero, "", ErrLotNotFound
	}
	return lot.available, lot.unit, nil
}

func (t *memoryTx) AdjustLot(ctx context.Context, lotID string, delta decimal.Decimal) error {
	lot, ok := t.repo.lots[lotID]
	if !ok {
		return ErrLotNotFound
	}
	lot.available = lot.available.Add(delta)
	return nil
}

func (t *memoryTx) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	rec.CreatedAt = time.Now()
	t.repo.records = append(t.repo.records, rec)
	return rec, nil
}

func TestTransferMovesQuantity(t *testing.T) {
	repo := newMemoryRepo()
	repo.lots["aaa"] = &memoryLot{available: decimal.NewFromInt(50), unit: "kg"}
	repo.lots["bbb"] = &memoryLot{available: decimal.NewFromInt(10), unit: "kg"}
	svc := NewService(repo, nil)

	rec, err := svc.Transfer(context.Background(), TransferInput{
		FromLotID: "aaa",
		ToLotID:   "bbb",
		Quantity:  decimal.NewFromInt(15),
		Reason:    "rebalance",
		ActorID:   2,
	})
	require.NoError(t, err)
	require.Equal(t, "kg", rec.Unit)
	require.True(t, repo.lots["aaa"].available.Equal(decimal.NewFromInt(35)))
	require.True(t, repo.lots["bbb"].available.Equal(decimal.NewFromInt(25)))
	require.Len(t, repo.records, 1)
}

func TestTransferRejectsSameLot(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.Transfer(context.Background(), TransferInput{
		FromLotID: "aaa", ToLotID: "aaa", Quantity: decimal.NewFromInt(1), Reason: "x",
	})
	require.ErrorIs(t, err, ErrSameLot)
}

func TestTransferRejectsOverdraw(t *testing.T) {
	repo := newMemoryRepo()
	repo.lots["aaa"] = &memoryLot{available: decimal.NewFromInt(5), unit: "kg"}
	repo.lots["bbb"] = &memoryLot{available: decimal.Zero, unit: "kg"}
	svc := NewService(repo, nil)

	_, err := svc.Transfer(context.Background(), TransferInput{
		FromLotID: "aaa", ToLotID: "bbb", Quantity: decimal.NewFromInt(6), Reason: "x",
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.True(t, repo.lots["aaa"].available.Equal(decimal.NewFromInt(5)))
	require.Empty(t, repo.records)
}

func TestTransferRejectsUnitMismatch(t *testing.T) {
	repo := newMemoryRepo()
	repo.lots["aaa"] = &memoryLot{available: decimal.NewFromInt(5), unit: "kg"}
	repo.lots["bbb"] = &memoryLot{available: decimal.Zero, unit: "pcs"}
	svc := NewService(repo, nil)

	_, err := svc.Transfer(context.Background(), TransferInput{
		FromLotID: "aaa", ToLotID: "bbb", Quantity: decimal.NewFromInt(1), Reason: "x",
	})
	require.ErrorIs(t, err, ErrUnitMismatch)
}

func TestTransferLocksLotsInAscendingOrder(t *testing.T) {
	repo := newMemoryRepo()
	repo.lots["aaa"] = &memoryLot{available: decimal.NewFromInt(5), unit: "kg"}
	repo.lots["bbb"] = &memoryLot{available: decimal.NewFromInt(5), unit: "kg"}
	svc := NewService(repo, nil)

	// Transfer from the higher ID to the lower one; locks must still be
	// taken lower-first.
	_, err := svc.Transfer(context.Background(), TransferInput{
		FromLotID: "bbb", ToLotID: "aaa", Quantity: decimal.NewFromInt(1), Reason: "x",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"aaa", "bbb"}, repo.lockOrder)
}
