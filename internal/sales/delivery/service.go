package delivery

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

// Service tracks third-party deliveries.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput starts tracking a shipment for an order.
type CreateInput struct {
	OrderID        string
	Courier        string
	TrackingNumber string
	Notes          string
	ActorID        int64
}

// Create registers a pending shipment for the order. One shipment per order.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Shipment, error) {
	if strings.TrimSpace(input.Courier) == "" {
		return nil, errors.New("delivery: courier required")
	}
	exists, err := s.repo.OrderExists(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrOrderNotFound
	}
	if existing, err := s.repo.GetByOrder(ctx, input.OrderID); err == nil && existing != nil {
		return nil, ErrAlreadyTracked
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	shipment, err := s.repo.Insert(ctx, Shipment{
		ID:             uuid.NewString(),
		OrderID:        input.OrderID,
		Courier:        strings.TrimSpace(input.Courier),
		TrackingNumber: strings.TrimSpace(input.TrackingNumber),
		Status:         StatusPending,
		Notes:          strings.TrimSpace(input.Notes),
		UpdatedBy:      input.ActorID,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, input.ActorID, "delivery:create", shipment.ID, map[string]any{"order_id": shipment.OrderID, "courier": shipment.Courier})
	return &shipment, nil
}

// UpdateInput edits a shipment's tracking data.
type UpdateInput struct {
	Courier        string
	TrackingNumber string
	Status         Status
	EvidenceKey    string
	Notes          string
	ActorID        int64
}

// Update changes shipment status or tracking details. Delivered and failed
// shipments may carry an evidence document reference.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*Shipment, error) {
	if !ValidStatus(input.Status) {
		return nil, ErrInvalidStatus
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	courier := strings.TrimSpace(input.Courier)
	if courier == "" {
		courier = current.Courier
	}
	updated, err := s.repo.Update(ctx, Shipment{
		ID:             id,
		Courier:        courier,
		TrackingNumber: strings.TrimSpace(input.TrackingNumber),
		Status:         input.Status,
		EvidenceKey:    input.EvidenceKey,
		Notes:          strings.TrimSpace(input.Notes),
		UpdatedBy:      input.ActorID,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, input.ActorID, "delivery:update", id, map[string]any{"status": string(input.Status)})
	return &updated, nil
}

// Get fetches one shipment.
func (s *Service) Get(ctx context.Context, id string) (*Shipment, error) {
	return s.repo.Get(ctx, id)
}

// GetByOrder fetches the shipment tracking an order.
func (s *Service) GetByOrder(ctx context.Context, orderID string) (*Shipment, error) {
	return s.repo.GetByOrder(ctx, orderID)
}

// List returns shipments, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *Status, limit, offset int) ([]Shipment, int, error) {
	return s.repo.List(ctx, status, limit, offset)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "shipment",
		EntityID: id,
		Meta:     meta,
	})
}
