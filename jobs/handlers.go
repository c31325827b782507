package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/hatvoni/insider/internal/observability"
	"github.com/hatvoni/insider/internal/sales/invoices"
	"github.com/hatvoni/insider/internal/sales/orders"
	"github.com/hatvoni/insider/internal/shared"
	"github.com/hatvoni/insider/report"
)

const idempotencyRetention = 7 * 24 * time.Hour

// PDFStorage is the slice of the object store the renderer needs.
type PDFStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Deps collects the services the task handlers call into.
type Deps struct {
	Logger      *slog.Logger
	Invoices    *invoices.Service
	Orders      *orders.Service
	Gotenberg   *report.Client
	Storage     PDFStorage
	Idempotency *shared.IdempotencyStore
	Metrics     *observability.Metrics
}

// Handlers builds the Asynq handler set from the dependencies.
func Handlers(deps Deps) []TaskHandler {
	return []TaskHandler{
		{Type: TaskInvoicePDF, Handler: deps.handleInvoicePDF},
		{Type: TaskOrderLockSweep, Handler: deps.handleOrderLockSweep},
		{Type: TaskIdempotencyCleanup, Handler: deps.handleIdempotencyCleanup},
	}
}

func (d Deps) track(job string) *observability.JobTracker {
	if d.Metrics == nil {
		return nil
	}
	return d.Metrics.TrackJob(job)
}

// handleInvoicePDF renders the invoice HTML through Gotenberg, stores the PDF
// and attaches the object key to the invoice.
func (d Deps) handleInvoicePDF(ctx context.Context, t *asynq.Task) error {
	tracker := d.track(TaskInvoicePDF)
	var payload InvoicePDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}

	html, err := d.Invoices.RenderHTML(ctx, payload.InvoiceID)
	if err != nil {
		return tracker.End(fmt.Errorf("render invoice %s: %w", payload.InvoiceID, err))
	}
	pdf, err := d.Gotenberg.RenderHTML(ctx, html)
	if err != nil {
		return tracker.End(fmt.Errorf("gotenberg render %s: %w", payload.InvoiceID, err))
	}
	key := fmt.Sprintf("invoices/%s.pdf", payload.InvoiceID)
	if err := d.Storage.Put(ctx, key, pdf, "application/pdf"); err != nil {
		return tracker.End(fmt.Errorf("store invoice pdf %s: %w", payload.InvoiceID, err))
	}
	if err := d.Invoices.AttachPDF(ctx, payload.InvoiceID, key); err != nil {
		return tracker.End(err)
	}
	d.Logger.Info("invoice pdf stored", "invoice_id", payload.InvoiceID, "key", key)
	return tracker.End(nil)
}

// handleOrderLockSweep re-locks completed orders whose unlock window ran out.
// The service call is a single guarded UPDATE, safe to run on overlap.
func (d Deps) handleOrderLockSweep(ctx context.Context, t *asynq.Task) error {
	tracker := d.track(TaskOrderLockSweep)
	locked, err := d.Orders.LockExpired(ctx)
	if err != nil {
		return tracker.End(err)
	}
	if len(locked) > 0 {
		d.Logger.Info("order lock sweep", "locked", len(locked))
	}
	return tracker.End(nil)
}

func (d Deps) handleIdempotencyCleanup(ctx context.Context, t *asynq.Task) error {
	tracker := d.track(TaskIdempotencyCleanup)
	return tracker.End(d.Idempotency.Cleanup(ctx, idempotencyRetention))
}
