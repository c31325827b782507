package processed

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the processed goods catalog and its stock.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// GoodInput describes a catalog entry.
type GoodInput struct {
	Name      string
	SKU       string
	Unit      string
	UnitPrice decimal.Decimal
	ActorID   int64
}

// Create adds a good to the catalog with zero stock.
func (s *Service) Create(ctx context.Context, input GoodInput) (*Good, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("processed: name required")
	}
	if input.UnitPrice.IsNegative() {
		return nil, errors.New("processed: unit price cannot be negative")
	}
	good, err := s.repo.Create(ctx, Good{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		SKU:       strings.TrimSpace(input.SKU),
		Unit:      input.Unit,
		UnitPrice: input.UnitPrice,
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "processed:create",
			Entity:   "processed_good",
			EntityID: good.ID,
			Meta:     map[string]any{"name": good.Name},
		})
	}
	return &good, nil
}

// Update edits a catalog entry. Stock is never edited directly; it moves
// through batch output and order completion.
func (s *Service) Update(ctx context.Context, id string, input GoodInput) (*Good, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("processed: name required")
	}
	good, err := s.repo.Update(ctx, Good{
		ID:        id,
		Name:      strings.TrimSpace(input.Name),
		SKU:       strings.TrimSpace(input.SKU),
		Unit:      input.Unit,
		UnitPrice: input.UnitPrice,
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "processed:update",
			Entity:   "processed_good",
			EntityID: id,
		})
	}
	return &good, nil
}

// Get fetches one good.
func (s *Service) Get(ctx context.Context, id string) (*Good, error) {
	return s.repo.Get(ctx, id)
}

// List returns goods matching the search term.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Good, int, error) {
	return s.repo.List(ctx, search, limit, offset)
}

// Deduct removes sold quantity from stock.
func (s *Service) Deduct(ctx context.Context, id string, qty decimal.Decimal, actorID int64) (*Good, error) {
	if !qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	good, err := s.repo.Adjust(ctx, id, qty.Neg())
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "processed:deduct",
			Entity:   "processed_good",
			EntityID: id,
			Meta:     map[string]any{"qty": qty.String()},
		})
	}
	return good, nil
}

// SalesHistory lists the non-draft order lines that sold this good.
func (s *Service) SalesHistory(ctx context.Context, id string) ([]SaleEntry, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.SalesHistory(ctx, id)
}
