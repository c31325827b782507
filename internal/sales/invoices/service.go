package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hatvoni/insider/internal/shared"
	"github.com/hatvoni/insider/report"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service issues invoices for completed orders.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// Issue creates the invoice for a completed order. Numbers follow
// INV-YYMM-SEQ where SEQ restarts each month.
func (s *Service) Issue(ctx context.Context, orderID string, actorID int64) (*Invoice, error) {
	if existing, err := s.repo.GetByOrder(ctx, orderID); err == nil && existing != nil {
		return nil, ErrAlreadyIssued
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	snap, err := s.repo.OrderSnapshot(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if snap.Status != "completed" {
		return nil, ErrOrderNotCompleted
	}

	issueDate := s.now().UTC()
	period := issueDate.Format("0601")

	// Counter and invoice row commit together: a failed insert (including a
	// concurrent issue losing the order_id race) rolls the sequence back, so
	// numbers stay gapless within the period.
	var invoice Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextSequence(ctx, period)
		if err != nil {
			return fmt.Errorf("next invoice sequence: %w", err)
		}
		invoice, err = tx.Insert(ctx, Invoice{
			ID:           uuid.NewString(),
			OrderID:      orderID,
			Number:       fmt.Sprintf("INV-%s-%04d", period, seq),
			IssueDate:    issueDate,
			CustomerID:   snap.CustomerID,
			CustomerName: snap.CustomerName,
			Currency:     "HUF",
			Total:        snap.Total,
			CreatedBy:    actorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "invoices:issue",
			Entity:   "invoice",
			EntityID: invoice.ID,
			Meta:     map[string]any{"number": invoice.Number, "order_id": orderID},
		})
	}
	return &invoice, nil
}

// Get fetches one invoice.
func (s *Service) Get(ctx context.Context, id string) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// GetByOrder fetches the invoice of an order, if any.
func (s *Service) GetByOrder(ctx context.Context, orderID string) (*Invoice, error) {
	return s.repo.GetByOrder(ctx, orderID)
}

// List returns invoices, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Invoice, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// RenderHTML produces the invoice document for PDF conversion or preview.
func (s *Service) RenderHTML(ctx context.Context, id string) (string, error) {
	invoice, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	snap, err := s.repo.OrderSnapshot(ctx, invoice.OrderID)
	if err != nil {
		return "", err
	}
	return report.RenderInvoiceHTML(report.InvoiceData{
		Number:          invoice.Number,
		IssueDate:       invoice.IssueDate,
		CustomerName:    snap.CustomerName,
		CustomerAddress: snap.CustomerAddress,
		CustomerTaxNo:   snap.CustomerTaxNo,
		Currency:        invoice.Currency,
		Lines:           snap.Lines,
		Total:           invoice.Total,
	})
}

// AttachPDF records the storage key of a rendered PDF.
func (s *Service) AttachPDF(ctx context.Context, id, key string) error {
	return s.repo.SetPDFKey(ctx, id, key)
}
