package waste

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records waste against lots.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// RecordInput describes a waste entry to append. Override skips the
// availability check so wastage can be recorded even when it exceeds the
// counter; the lot balance goes negative and the ledger flags the shortfall.
type RecordInput struct {
	LotID     string
	WasteDate time.Time
	Quantity  decimal.Decimal
	Reason    string
	Notes     string
	Override  bool
	ActorID   int64
}

// Record appends a waste record and debits the lot's available quantity in
// one transaction. The lot row is locked for the duration so concurrent
// wastage cannot overdraw the lot.
func (s *Service) Record(ctx context.Context, input RecordInput) (*Record, error) {
	if !input.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, errors.New("waste: reason required")
	}
	if input.WasteDate.IsZero() {
		input.WasteDate = time.Now().UTC()
	}

	var created Record
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		available, unit, err := tx.LotAvailableForUpdate(ctx, input.LotID)
		if err != nil {
			return err
		}
		if !input.Override && available.LessThan(input.Quantity) {
			return fmt.Errorf("%w: available %s, wasting %s", ErrInsufficientStock, available, input.Quantity)
		}
		if err := tx.DebitLot(ctx, input.LotID, input.Quantity); err != nil {
			return err
		}
		created, err = tx.InsertRecord(ctx, Record{
			ID:             uuid.NewString(),
			LotID:          input.LotID,
			WasteDate:      input.WasteDate,
			QuantityWasted: input.Quantity,
			Unit:           unit,
			Reason:         strings.TrimSpace(input.Reason),
			Notes:          strings.TrimSpace(input.Notes),
			RecordedBy:     input.ActorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "waste:record",
			Entity:   "waste_record",
			EntityID: created.ID,
			Meta:     map[string]any{"lot_id": created.LotID, "qty": created.QuantityWasted.String(), "reason": created.Reason, "override": input.Override},
		})
	}
	return &created, nil
}

// ListByLot returns the waste records of one lot, newest first.
func (s *Service) ListByLot(ctx context.Context, lotID string) ([]Record, error) {
	return s.repo.ListByLot(ctx, lotID)
}

// List returns waste records across all lots, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Record, int, error) {
	return s.repo.List(ctx, limit, offset)
}
