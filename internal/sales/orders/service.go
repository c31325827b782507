package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/internal/shared"
)

// DefaultUnlockWindow is how long a completed order stays unlockable.
const DefaultUnlockWindow = 7 * 24 * time.Hour

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the order lifecycle and enforces the unlock window.
type Service struct {
	repo         RepositoryPort
	audit        AuditPort
	unlockWindow time.Duration
	now          func() time.Time
}

// NewService builds Service. A non-positive unlockWindow falls back to the
// default seven days.
func NewService(repo RepositoryPort, audit AuditPort, unlockWindow time.Duration) *Service {
	if unlockWindow <= 0 {
		unlockWindow = DefaultUnlockWindow
	}
	return &Service{repo: repo, audit: audit, unlockWindow: unlockWindow, now: time.Now}
}

// ItemInput is one requested order line.
type ItemInput struct {
	ProcessedGoodID string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
}

// CreateInput describes a new draft order.
type CreateInput struct {
	CustomerID string
	OrderDate  time.Time
	Items      []ItemInput
	Notes      string
	ActorID    int64
}

// UpdateInput describes edits to a mutable order.
type UpdateInput struct {
	OrderDate time.Time
	Items     []ItemInput
	Notes     string
	ActorID   int64
}

func buildItems(orderID string, inputs []ItemInput) ([]Item, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, ErrNoItems
	}
	items := make([]Item, 0, len(inputs))
	total := decimal.Zero
	for _, in := range inputs {
		if !in.Quantity.IsPositive() {
			return nil, decimal.Zero, ErrInvalidQuantity
		}
		if in.UnitPrice.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("orders: negative unit price for good %s", in.ProcessedGoodID)
		}
		lineTotal := in.Quantity.Mul(in.UnitPrice)
		items = append(items, Item{
			OrderID:         orderID,
			ProcessedGoodID: in.ProcessedGoodID,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			LineTotal:       lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return items, total, nil
}

// Create registers a draft order with its lines.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	orderID := uuid.NewString()
	items, total, err := buildItems(orderID, input.Items)
	if err != nil {
		return nil, err
	}
	if input.OrderDate.IsZero() {
		input.OrderDate = s.now().UTC()
	}

	var created Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.CustomerExists(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrCustomerNotFound
		}
		created, err = tx.InsertOrder(ctx, Order{
			ID:         orderID,
			CustomerID: input.CustomerID,
			OrderDate:  input.OrderDate,
			Status:     StatusDraft,
			Total:      total,
			Notes:      input.Notes,
			CreatedBy:  input.ActorID,
		})
		if err != nil {
			return err
		}
		return tx.ReplaceItems(ctx, orderID, items)
	})
	if err != nil {
		return nil, err
	}
	created.Items = items

	s.recordAudit(ctx, input.ActorID, "orders:create", created.ID, map[string]any{"customer_id": created.CustomerID, "total": created.Total.String()})
	return &created, nil
}

// Update edits a mutable order: a draft, or a completed order that has been
// unlocked within its window. Confirmed and locked orders reject edits.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*Order, error) {
	items, total, err := buildItems(id, input.Items)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.OrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.ensureMutable(order); err != nil {
			return err
		}
		// Completion already deducted stock; re-settle the per-good delta so
		// the edit leaves processed-goods counters consistent.
		if order.Status == StatusCompleted {
			previous, err := tx.ItemsByOrder(ctx, id)
			if err != nil {
				return err
			}
			if err := s.settleStockDelta(ctx, tx, previous, items); err != nil {
				return err
			}
		}
		orderDate := input.OrderDate
		if orderDate.IsZero() {
			orderDate = order.OrderDate
		}
		if err := tx.UpdateHeader(ctx, id, orderDate, input.Notes, total); err != nil {
			return err
		}
		return tx.ReplaceItems(ctx, id, items)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, input.ActorID, "orders:update", id, map[string]any{"total": total.String()})
	return s.repo.Get(ctx, id)
}

// settleStockDelta moves processed-goods stock by the per-good difference
// between the old and new lines: added quantity is deducted, removed
// quantity is restocked.
func (s *Service) settleStockDelta(ctx context.Context, tx TxRepository, previous, next []Item) error {
	deltas := map[string]decimal.Decimal{}
	goodIDs := []string{}
	accumulate := func(goodID string, qty decimal.Decimal) {
		if _, ok := deltas[goodID]; !ok {
			goodIDs = append(goodIDs, goodID)
		}
		deltas[goodID] = deltas[goodID].Add(qty)
	}
	for _, item := range next {
		accumulate(item.ProcessedGoodID, item.Quantity)
	}
	for _, item := range previous {
		accumulate(item.ProcessedGoodID, item.Quantity.Neg())
	}
	for _, goodID := range goodIDs {
		delta := deltas[goodID]
		if delta.IsZero() {
			continue
		}
		if err := tx.DeductGood(ctx, goodID, delta); err != nil {
			return err
		}
	}
	return nil
}

// Confirm moves a draft order to confirmed.
func (s *Service) Confirm(ctx context.Context, id string, actorID int64) (*Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.OrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != StatusDraft {
			return fmt.Errorf("%w: %s -> confirmed", ErrInvalidTransition, order.Status)
		}
		return tx.SetStatus(ctx, id, StatusConfirmed, nil)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "orders:confirm", id, nil)
	return s.repo.Get(ctx, id)
}

// Complete fulfils a confirmed order: stock for every line is deducted, the
// order is marked completed and immediately locked, and the unlock window
// starts counting.
func (s *Service) Complete(ctx context.Context, id string, actorID int64) (*Order, error) {
	completedAt := s.now().UTC()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.OrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != StatusConfirmed {
			return fmt.Errorf("%w: %s -> completed", ErrInvalidTransition, order.Status)
		}
		items, err := tx.ItemsByOrder(ctx, id)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.DeductGood(ctx, item.ProcessedGoodID, item.Quantity); err != nil {
				return err
			}
		}
		if err := tx.SetStatus(ctx, id, StatusCompleted, &completedAt); err != nil {
			return err
		}
		return tx.SetLocked(ctx, id, true, &completedAt)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "orders:complete", id, nil)
	return s.repo.Get(ctx, id)
}

// Lock re-locks an unlocked completed order. Drafts and confirmed orders
// have no lock to reapply; Unlock could not reopen them.
func (s *Service) Lock(ctx context.Context, id string, actorID int64) (*Order, error) {
	lockedAt := s.now().UTC()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.OrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != StatusCompleted {
			return fmt.Errorf("%w: only completed orders can be locked", ErrInvalidTransition)
		}
		return tx.SetLocked(ctx, id, true, &lockedAt)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "orders:lock", id, nil)
	return s.repo.Get(ctx, id)
}

// Unlock reopens a completed order for correction. Only possible while the
// unlock window is still running; the window itself never restarts.
func (s *Service) Unlock(ctx context.Context, id string, actorID int64) (*Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.OrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != StatusCompleted || order.CompletedAt == nil {
			return fmt.Errorf("%w: only completed orders can be unlocked", ErrInvalidTransition)
		}
		if s.remaining(order) <= 0 {
			return ErrWindowElapsed
		}
		return tx.SetLocked(ctx, id, false, nil)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "orders:unlock", id, nil)
	return s.repo.Get(ctx, id)
}

// UnlockRemaining reports the authoritative countdown until the order locks
// permanently. Zero means the window has elapsed or never applied.
func (s *Service) UnlockRemaining(ctx context.Context, id string) (time.Duration, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.remaining(order), nil
}

func (s *Service) remaining(order *Order) time.Duration {
	if order.Status != StatusCompleted || order.CompletedAt == nil {
		return 0
	}
	remaining := order.CompletedAt.Add(s.unlockWindow).Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *Service) ensureMutable(order *Order) error {
	if order.IsLocked {
		return ErrLocked
	}
	switch order.Status {
	case StatusDraft:
		return nil
	case StatusCompleted:
		if s.remaining(order) <= 0 {
			return ErrWindowElapsed
		}
		return nil
	default:
		return fmt.Errorf("%w: %s orders are not editable", ErrInvalidTransition, order.Status)
	}
}

// Get fetches an order with its items.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	return s.repo.List(ctx, filter)
}

// LockExpired locks every completed order whose window has elapsed. Called
// by the cron sweep; safe to run repeatedly.
func (s *Service) LockExpired(ctx context.Context) ([]string, error) {
	cutoff := s.now().UTC().Add(-s.unlockWindow)
	ids, err := s.repo.LockExpired(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.recordAudit(ctx, 0, "orders:lock-sweep", id, nil)
	}
	return ids, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, orderID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: orderID,
		Meta:     meta,
	})
}
