package transfers

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

// Service moves quantity between lots.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// TransferInput describes a transfer to record.
type TransferInput struct {
	FromLotID    string
	ToLotID      string
	TransferDate time.Time
	Quantity     decimal.Decimal
	Reason       string
	Notes        string
	ActorID      int64
}

// Transfer debits the source lot and credits the destination lot atomically,
// recording the movement. Both lot rows are locked in ascending ID order so
// two opposing transfers cannot deadlock.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (*Record, error) {
	if input.FromLotID == input.ToLotID {
		return nil, ErrSameLot
	}
	if !input.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, errors.New("transfers: reason required")
	}
	if input.TransferDate.IsZero() {
		input.TransferDate = time.Now().UTC()
	}

	var created Record
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		first, second := input.FromLotID, input.ToLotID
		if second < first {
			first, second = second, first
		}

		units := make(map[string]string, 2)
		available := make(map[string]decimal.Decimal, 2)
		for _, id := range []string{first, second} {
			qty, unit, err := tx.LotForUpdate(ctx, id)
			if err != nil {
				return err
			}
			available[id] = qty
			units[id] = unit
		}

		if units[input.FromLotID] != units[input.ToLotID] {
			return fmt.Errorf("%w: %s vs %s", ErrUnitMismatch, units[input.FromLotID], units[input.ToLotID])
		}
		if available[input.FromLotID].LessThan(input.Quantity) {
			return fmt.Errorf("%w: available %s, transferring %s", ErrInsufficientStock, available[input.FromLotID], input.Quantity)
		}

		if err := tx.AdjustLot(ctx, input.FromLotID, input.Quantity.Neg()); err != nil {
			return err
		}
		if err := tx.AdjustLot(ctx, input.ToLotID, input.Quantity); err != nil {
			return err
		}

		var err error
		created, err = tx.InsertRecord(ctx, Record{
			ID:                  uuid.NewString(),
			FromLotID:           input.FromLotID,
			ToLotID:             input.ToLotID,
			TransferDate:        input.TransferDate,
			QuantityTransferred: input.Quantity,
			Unit:                units[input.FromLotID],
			Reason:              strings.TrimSpace(input.Reason),
			Notes:               strings.TrimSpace(input.Notes),
			RecordedBy:          input.ActorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "transfers:record",
			Entity:   "transfer_record",
			EntityID: created.ID,
			Meta: map[string]any{
				"from_lot_id": created.FromLotID,
				"to_lot_id":   created.ToLotID,
				"qty":         created.QuantityTransferred.String(),
			},
		})
	}
	return &created, nil
}

// ListByLot returns transfers touching the lot on either side, newest first.
func (s *Service) ListByLot(ctx context.Context, lotID string) ([]Record, error) {
	return s.repo.ListByLot(ctx, lotID)
}

// List returns transfers across all lots, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Record, int, error) {
	return s.repo.List(ctx, limit, offset)
}
