// Package jobs runs background work over Asynq: invoice PDF rendering, the
// order lock sweep and periodic maintenance.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskInvoicePDF renders an issued invoice to PDF and stores it.
	TaskInvoicePDF = "report:invoice-pdf"
	// TaskOrderLockSweep re-locks completed orders whose unlock window ran out.
	TaskOrderLockSweep = "orders:lock-sweep"
	// TaskIdempotencyCleanup prunes old idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency-cleanup"
)

// InvoicePDFPayload identifies the invoice to render.
type InvoicePDFPayload struct {
	InvoiceID string `json:"invoice_id"`
}

// NewInvoicePDFTask constructs the render task.
func NewInvoicePDFTask(payload InvoicePDFPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicePDF, data), nil
}

// NewOrderLockSweepTask constructs the periodic lock sweep task.
func NewOrderLockSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOrderLockSweep, nil)
}

// NewIdempotencyCleanupTask constructs the maintenance task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
