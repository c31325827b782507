package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	orders    map[string]*Order
	items     map[string][]Item
	goods     map[string]decimal.Decimal
	customers map[string]bool
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:    make(map[string]*Order),
		items:     make(map[string][]Item),
		goods:     make(map[string]decimal.Decimal),
		customers: make(map[string]bool),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id string) (*Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *order
	out.Items = append([]Item(nil), r.items[id]...)
	return &out, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	out := []Order{}
	for _, o := range r.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (r *memoryRepo) LockExpired(ctx context.Context, completedBefore time.Time) ([]string, error) {
	ids := []string{}
	for id, o := range r.orders {
		if o.Status == StatusCompleted && !o.IsLocked && o.CompletedAt != nil && o.CompletedAt.Before(completedBefore) {
			o.IsLocked = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (t *memoryTx) OrderForUpdate(ctx context.Context, id string) (*Order, error) {
	order, ok := t.repo.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *order
	return &out, nil
}

func (t *memoryTx) InsertOrder(ctx context.Context, order Order) (Order, error) {
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	stored := order
	t.repo.orders[order.ID] = &stored
	return order, nil
}

func (t *memoryTx) UpdateHeader(ctx context.Context, id string, orderDate time.Time, notes string, total decimal.Decimal) error {
	order, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.OrderDate = orderDate
	order.Notes = notes
	order.Total = total
	return nil
}

func (t *memoryTx) ReplaceItems(ctx context.Context, orderID string, items []Item) error {
	t.repo.items[orderID] = append([]Item(nil), items...)
	return nil
}

func (t *memoryTx) ItemsByOrder(ctx context.Context, orderID string) ([]Item, error) {
	return t.repo.items[orderID], nil
}

func (t *memoryTx) SetStatus(ctx context.Context, id string, status Status, completedAt *time.Time) error {
	order, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	if completedAt != nil {
		order.CompletedAt = completedAt
	}
	return nil
}

func (t *memoryTx) SetLocked(ctx context.Context, id string, locked bool, lockedAt *time.Time) error {
	order, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.IsLocked = locked
	order.LockedAt = lockedAt
	return nil
}

func (t *memoryTx) DeductGood(ctx context.Context, goodID string, qty decimal.Decimal) error {
	onHand, ok := t.repo.goods[goodID]
	if !ok {
		return ErrGoodNotFound
	}
	if onHand.LessThan(qty) {
		return ErrInsufficientStock
	}
	t.repo.goods[goodID] = onHand.Sub(qty)
	return nil
}

func (t *memoryTx) CustomerExists(ctx context.Context, id string) (bool, error) {
	return t.repo.customers[id], nil
}

func fixture(t *testing.T) (*memoryRepo, *Service) {
	t.Helper()
	repo := newMemoryRepo()
	repo.customers["cust-1"] = true
	repo.goods["good-1"] = decimal.NewFromInt(100)
	return repo, NewService(repo, nil, 0)
}

func draftOrder(t *testing.T, svc *Service) *Order {
	t.Helper()
	order, err := svc.Create(context.Background(), CreateInput{
		CustomerID: "cust-1",
		Items: []ItemInput{
			{ProcessedGoodID: "good-1", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(250)},
		},
		ActorID: 1,
	})
	require.NoError(t, err)
	return order
}

func TestCreateComputesTotals(t *testing.T) {
	_, svc := fixture(t)
	order := draftOrder(t, svc)

	require.Equal(t, StatusDraft, order.Status)
	require.True(t, order.Total.Equal(decimal.NewFromInt(750)))
	require.Len(t, order.Items, 1)
	require.True(t, order.Items[0].LineTotal.Equal(decimal.NewFromInt(750)))
}

func TestCreateRejectsUnknownCustomer(t *testing.T) {
	_, svc := fixture(t)
	_, err := svc.Create(context.Background(), CreateInput{
		CustomerID: "ghost",
		Items:      []ItemInput{{ProcessedGoodID: "good-1", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)}},
	})
	require.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestLifecycleDraftConfirmComplete(t *testing.T) {
	repo, svc := fixture(t)
	order := draftOrder(t, svc)

	confirmed, err := svc.Confirm(context.Background(), order.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, confirmed.Status)

	completed, err := svc.Complete(context.Background(), order.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.True(t, completed.IsLocked)
	require.NotNil(t, completed.CompletedAt)
	// Stock deducted on completion.
	require.True(t, repo.goods["good-1"].Equal(decimal.NewFromInt(97)))
}

func TestCompleteRequiresConfirmed(t *testing.T) {
	_, svc := fixture(t)
	order := draftOrder(t, svc)

	_, err := svc.Complete(context.Background(), order.ID, 1)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCompleteRejectsInsufficientStock(t *testing.T) {
	repo, svc := fixture(t)
	repo.goods["good-1"] = decimal.NewFromInt(2)
	order := draftOrder(t, svc)

	_, err := svc.Confirm(context.Background(), order.ID, 1)
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), order.ID, 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestUpdateRejectsConfirmedOrder(t *testing.T) {
	_, svc := fixture(t)
	order := draftOrder(t, svc)
	_, err := svc.Confirm(context.Background(), order.ID, 1)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), order.ID, UpdateInput{
		Items: []ItemInput{{ProcessedGoodID: "good-1", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)}},
	})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUnlockWithinWindowAllowsEdit(t *testing.T) {
	_, svc := fixture(t)
	order := draftOrder(t, svc)
	_, err := svc.Confirm(context.Background(), order.ID, 1)
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), order.ID, 1)
	require.NoError(t, err)

	// Locked right after completion.
	_, err = svc.Update(context.Background(), order.ID, UpdateInput{
		Items: []ItemInput{{ProcessedGoodID: "good-1", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)}},
	})
	require.ErrorIs(t, err, ErrLocked)

	unlocked, err := svc.Unlock(context.Background(), order.ID, 1)
	require.NoError(t, err)
	require.False(t, unlocked.IsLocked)

	updated, err := svc.Update(context.Background(), order.ID, UpdateInput{
		Items: []ItemInput{{ProcessedGoodID: "good-1", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)}},
	})
	require.NoError(t, err)
	require.True(t, updated.Total.Equal(decimal.NewFromInt(200)))
}

func TestUpdateAfterUnlockResettlesStock(t *testing.T) {
	repo, svc := fixture(t)
	order := draftOrder(t, svc)
	_, err := svc.Confirm(context.Background(), order.ID, 1)
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), order.ID, 1)
	require.NoError(t, err)
	// Completion deducted the 3 ordered units.
	require.True(t, repo.goods["good-1"].Equal(decimal.NewFromInt(97)))

	_, err = svc.Unlock(context.Background(), order.ID, 1)
	require.NoError(t, err)

	// Raising the quantity deducts the difference.
	_, err = svc.Update(context.Background(), order.ID, UpdateInput{
		Items: []ItemInput{{ProcessedGoodID: "good-1", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(250)}},
	})
	require.NoError(t, err)
	require.True(t, repo.goods["good-1"].Equal(decimal.NewFromInt(95)))

	// Lowering it restocks the difference.
	_, err = svc.Update(context.Background(), order.ID, UpdateInput{
		Items: []ItemInput{{ProcessedGoodID: "good-1", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(250)}},
	})
	require.NoError(t, err)
	require.True(t, repo.goods["good-1"].Equal(decimal.NewFromInt(99)))
}

func TestUpdateAfterUnlockRejectsOverdraw(t *testing.T) {
	repo, svc := fixture(t)
	repo.goods["good-1"] = decimal.NewFromInt(4)
	order := draftOrder(t, svc)
	_, err := svc.Confirm(context.Background(), order.ID, 1)
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), order.ID, 1)
	require.NoError(t, err)
	_, err = svc.Unlock(context.Background(), order.ID, 1)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), order.ID, UpdateInput{
		Items: []ItemInput{{ProcessedGoodID: "good-1", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(250)}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestLockRequiresCompletedOrder(t *testing.T) {
	_, svc := fixture(t)
	order := draftOrder(t, svc)

	_, err := svc.Lock(context.Background(), order.ID, 1)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Confirm(context.Background(), order.ID, 1)
	require.NoError(t, err)
	_, err = svc.Lock(context.Background(), order.ID, 1)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Complete(context.Background(), order.ID, 1)
	require.NoError(t, err)
	_, err = svc.Unlock(context.Background(), order.ID, 1)
	require.NoError(t, err)

	relocked, err := svc.Lock(context.Background(), order.ID, 1)
	require.NoError(t, err)
	require.True(t, relocked.IsLocked)
}

func TestUnlockRejectedAfterWindow(t *testing.T) {
	_, svc := fixture(t)
	order := draftOrder(t, svc)
	_, err := svc.Confirm(context.Background(), order.ID, 1)
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), order.ID, 1)
	require.NoError(t, err)

	// Jump past the window.
	base := time.Now()
	svc.now = func() time.Time { return base.Add(DefaultUnlockWindow + time.Hour) }

	_, err = svc.Unlock(context.Background(), order.ID, 1)
	require.ErrorIs(t, err, ErrWindowElapsed)
}

func TestUnlockRemainingCountdown(t *testing.T) {
	_, svc := fixture(t)
	order := draftOrder(t, svc)
	_, err := svc.Confirm(context.Background(), order.ID, 1)
	require.NoError(t, err)

	// Not completed yet: no countdown.
	remaining, err := svc.UnlockRemaining(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), remaining)

	completedAt := time.Now()
	svc.now = func() time.Time { return completedAt }
	_, err = svc.Complete(context.Background(), order.ID, 1)
	require.NoError(t, err)

	svc.now = func() time.Time { return completedAt.Add(24 * time.Hour) }
	remaining, err = svc.UnlockRemaining(context.Background(), order.ID)
	require.NoError(t, err)
	require.InDelta(t, (6 * 24 * time.Hour).Seconds(), remaining.Seconds(), 1)
}

func TestConfigurableWindow(t *testing.T) {
	repo := newMemoryRepo()
	repo.customers["cust-1"] = true
	repo.goods["good-1"] = decimal.NewFromInt(10)
	svc := NewService(repo, nil, 48*time.Hour)

	order := draftOrder(t, svc)
	_, err := svc.Confirm(context.Background(), order.ID, 1)
	require.NoError(t, err)

	completedAt := time.Now()
	svc.now = func() time.Time { return completedAt }
	_, err = svc.Complete(context.Background(), order.ID, 1)
	require.NoError(t, err)

	svc.now = func() time.Time { return completedAt.Add(49 * time.Hour) }
	_, err = svc.Unlock(context.Background(), order.ID, 1)
	require.ErrorIs(t, err, ErrWindowElapsed)
}

func TestLockExpiredSweep(t *testing.T) {
	repo, svc := fixture(t)
	order := draftOrder(t, svc)
	_, err := svc.Confirm(context.Background(), order.ID, 1)
	require.NoError(t, err)

	completedAt := time.Now().Add(-DefaultUnlockWindow - time.Hour)
	svc.now = func() time.Time { return completedAt }
	_, err = svc.Complete(context.Background(), order.ID, 1)
	require.NoError(t, err)
	svc.now = time.Now

	_, err = svc.Unlock(context.Background(), order.ID, 1)
	require.ErrorIs(t, err, ErrWindowElapsed)

	// Simulate an order left unlocked past its window.
	repo.orders[order.ID].IsLocked = false

	ids, err := svc.LockExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{order.ID}, ids)
	require.True(t, repo.orders[order.ID].IsLocked)
}
