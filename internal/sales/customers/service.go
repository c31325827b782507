package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/hatvoni/insider/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the customer register.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Input describes customer master data.
type Input struct {
	Name      string
	Email     string
	Phone     string
	Address   string
	TaxNumber string
	PhotoKey  string
	Notes     string
	ActorID   int64
}

// Create registers a new customer.
func (s *Service) Create(ctx context.Context, input Input) (*Customer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("customers: name required")
	}
	customer, err := s.repo.Create(ctx, Customer{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Address:   strings.TrimSpace(input.Address),
		TaxNumber: strings.TrimSpace(input.TaxNumber),
		PhotoKey:  input.PhotoKey,
		Notes:     strings.TrimSpace(input.Notes),
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "customers:create",
			Entity:   "customer",
			EntityID: customer.ID,
			Meta:     map[string]any{"name": customer.Name},
		})
	}
	return &customer, nil
}

// Update edits customer master data.
func (s *Service) Update(ctx context.Context, id string, input Input) (*Customer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("customers: name required")
	}
	customer, err := s.repo.Update(ctx, Customer{
		ID:        id,
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Address:   strings.TrimSpace(input.Address),
		TaxNumber: strings.TrimSpace(input.TaxNumber),
		PhotoKey:  input.PhotoKey,
		Notes:     strings.TrimSpace(input.Notes),
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "customers:update",
			Entity:   "customer",
			EntityID: id,
		})
	}
	return &customer, nil
}

// Get fetches one customer.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns customers matching the search term.
func (s *Service) List(ctx context.Context, search string, includeArchived bool, limit, offset int) ([]Customer, int, error) {
	return s.repo.List(ctx, search, includeArchived, limit, offset)
}

// Archive hides a customer from default listings without deleting history.
func (s *Service) Archive(ctx context.Context, id string, actorID int64) error {
	if err := s.repo.SetArchived(ctx, id, true); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "customers:archive",
			Entity:   "customer",
			EntityID: id,
		})
	}
	return nil
}

// Restore brings an archived customer back.
func (s *Service) Restore(ctx context.Context, id string, actorID int64) error {
	if err := s.repo.SetArchived(ctx, id, false); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "customers:restore",
			Entity:   "customer",
			EntityID: id,
		})
	}
	return nil
}
