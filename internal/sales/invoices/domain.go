package invoices

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the billing document of one completed order. Invoices are
// immutable once issued.
type Invoice struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"order_id"`
	Number       string          `json:"number"`
	IssueDate    time.Time       `json:"issue_date"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Currency     string          `json:"currency"`
	Total        decimal.Decimal `json:"total"`
	PDFKey       string          `json:"pdf_key,omitempty"`
	CreatedBy    int64           `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
}

var (
	// ErrNotFound indicates the invoice does not exist.
	ErrNotFound = errors.New("invoices: invoice not found")
	// ErrOrderNotFound indicates the referenced order does not exist.
	ErrOrderNotFound = errors.New("invoices: order not found")
	// ErrOrderNotCompleted indicates the order has not been completed yet.
	ErrOrderNotCompleted = errors.New("invoices: order must be completed before invoicing")
	// ErrAlreadyIssued indicates the order already has an invoice.
	ErrAlreadyIssued = errors.New("invoices: order already invoiced")
	// ErrPDFNotReady indicates no PDF has been rendered yet.
	ErrPDFNotReady = errors.New("invoices: pdf not rendered yet")
)
