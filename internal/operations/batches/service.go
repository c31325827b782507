package batches

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service runs production batches.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ConsumptionLine is one lot debit requested for a batch.
type ConsumptionLine struct {
	LotID    string
	Quantity decimal.Decimal
}

// CreateInput describes a production batch to run.
type CreateInput struct {
	BatchDate       time.Time
	ProcessedGoodID string
	OutputQuantity  decimal.Decimal
	OutputUnit      string
	Consumption     []ConsumptionLine
	Notes           string
	ActorID         int64
}

// Create consumes the given lots and credits the output good in one
// transaction. Lots are locked in ascending ID order. Consumption is
// irreversible once committed.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Batch, error) {
	if len(input.Consumption) == 0 {
		return nil, ErrNoConsumption
	}
	if !input.OutputQuantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	seen := make(map[string]struct{}, len(input.Consumption))
	for _, line := range input.Consumption {
		if !line.Quantity.IsPositive() {
			return nil, ErrInvalidQuantity
		}
		if _, dup := seen[line.LotID]; dup {
			return nil, ErrDuplicateLot
		}
		seen[line.LotID] = struct{}{}
	}
	if input.BatchDate.IsZero() {
		input.BatchDate = time.Now().UTC()
	}

	lines := make([]ConsumptionLine, len(input.Consumption))
	copy(lines, input.Consumption)
	sort.Slice(lines, func(i, j int) bool { return lines[i].LotID < lines[j].LotID })

	var created Batch
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		units := make(map[string]string, len(lines))
		for _, line := range lines {
			available, unit, err := tx.LotForUpdate(ctx, line.LotID)
			if err != nil {
				return err
			}
			if available.LessThan(line.Quantity) {
				return fmt.Errorf("%w: lot %s available %s, consuming %s", ErrInsufficientStock, line.LotID, available, line.Quantity)
			}
			units[line.LotID] = unit
		}

		var err error
		created, err = tx.InsertBatch(ctx, Batch{
			ID:              uuid.NewString(),
			BatchDate:       input.BatchDate,
			ProcessedGoodID: input.ProcessedGoodID,
			OutputQuantity:  input.OutputQuantity,
			OutputUnit:      input.OutputUnit,
			QAStatus:        QAPending,
			Notes:           input.Notes,
			CreatedBy:       input.ActorID,
		})
		if err != nil {
			return err
		}

		for _, line := range lines {
			if err := tx.DebitLot(ctx, line.LotID, line.Quantity); err != nil {
				return err
			}
			if err := tx.InsertUsage(ctx, Usage{
				BatchID:          created.ID,
				LotID:            line.LotID,
				QuantityConsumed: line.Quantity,
				Unit:             units[line.LotID],
			}); err != nil {
				return err
			}
		}

		return tx.CreditProcessedGood(ctx, input.ProcessedGoodID, input.OutputQuantity)
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "batches:create",
			Entity:   "production_batch",
			EntityID: created.ID,
			Meta: map[string]any{
				"good_id": created.ProcessedGoodID,
				"output":  created.OutputQuantity.String(),
				"lots":    len(lines),
			},
		})
	}
	return &created, nil
}

// Get fetches a batch with its consumption lines.
func (s *Service) Get(ctx context.Context, id string) (*Batch, []Usage, error) {
	batch, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	usage, err := s.repo.UsageByBatch(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return batch, usage, nil
}

// List returns batches newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Batch, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// SetQAStatus records the QA verdict. Locked batches cannot change verdict.
func (s *Service) SetQAStatus(ctx context.Context, id string, status QAStatus, actorID int64) (*Batch, error) {
	switch status {
	case QAPending, QAPassed, QAFailed:
	default:
		return nil, ErrInvalidQAStatus
	}
	batch, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if batch.IsLocked {
		return nil, ErrLocked
	}
	updated, err := s.repo.SetQAStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "batches:qa",
			Entity:   "production_batch",
			EntityID: id,
			Meta:     map[string]any{"qa_status": string(status)},
		})
	}
	return updated, nil
}

// Lock freezes a batch after review.
func (s *Service) Lock(ctx context.Context, id string, actorID int64) (*Batch, error) {
	updated, err := s.repo.SetLocked(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "batches:lock",
			Entity:   "production_batch",
			EntityID: id,
		})
	}
	return updated, nil
}
