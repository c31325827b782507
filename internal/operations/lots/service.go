package lots

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/internal/ledger"
	"github.com/hatvoni/insider/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates lot operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput describes a new lot created on goods receipt.
type CreateInput struct {
	Kind            Kind
	Name            string
	Supplier        string
	Unit            string
	InitialQuantity decimal.Decimal
	ActorID         int64
}

// Create registers a lot with its initial received quantity.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Lot, error) {
	if input.Kind != KindRawMaterial && input.Kind != KindRecurringProduct {
		return nil, errors.New("lots: unknown lot kind")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("lots: name required")
	}
	if input.InitialQuantity.IsNegative() {
		return nil, ErrInvalidQuantity
	}

	lot := Lot{
		ID:               uuid.NewString(),
		Kind:             input.Kind,
		Name:             strings.TrimSpace(input.Name),
		Supplier:         strings.TrimSpace(input.Supplier),
		Unit:             input.Unit,
		QuantityReceived: input.InitialQuantity,
	}
	created, err := s.repo.Create(ctx, lot)
	if err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "lots:create",
			Entity:   "lot",
			EntityID: created.ID,
			Meta:     map[string]any{"kind": created.Kind, "qty": created.QuantityReceived.String()},
		})
	}
	return &created, nil
}

// Receive adds received quantity to an existing lot.
func (s *Service) Receive(ctx context.Context, id string, qty decimal.Decimal, actorID int64) (*Lot, error) {
	if !qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	lot, err := s.repo.Receive(ctx, id, qty)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "lots:receive",
			Entity:   "lot",
			EntityID: id,
			Meta:     map[string]any{"qty": qty.String()},
		})
	}
	return lot, nil
}

// Get fetches a single lot.
func (s *Service) Get(ctx context.Context, id string) (*Lot, error) {
	return s.repo.Get(ctx, id)
}

// List returns lots matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Lot, int, error) {
	return s.repo.List(ctx, filter)
}

// History bundles the reconstructed event history of a lot.
type History struct {
	Lot                   Lot                `json:"lot"`
	BatchUsage            []BatchUsage       `json:"batch_usage"`
	TotalBatchConsumption decimal.Decimal    `json:"total_batch_consumption"`
	Events                []ledger.Annotated `json:"events"`
}

// History reconstructs before/after balances for every waste and transfer
// event of the lot, newest first.
func (s *Service) History(ctx context.Context, id string, mergeBatchUsage bool) (*History, error) {
	lot, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	usage, err := s.repo.BatchUsage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load batch usage: %w", err)
	}
	events, err := s.repo.Events(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	total := decimal.Zero
	for _, u := range usage {
		total = total.Add(u.QuantityConsumed)
	}

	annotated := ledger.Reconstruct(lot.QuantityReceived, total, events, ledger.Options{MergeBatchUsage: mergeBatchUsage})
	return &History{
		Lot:                   *lot,
		BatchUsage:            usage,
		TotalBatchConsumption: total,
		Events:                annotated,
	}, nil
}
