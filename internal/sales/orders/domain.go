package orders

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
)

// Order is a customer order. Completion locks the order and starts the
// unlock window; once the window elapses the lock is permanent.
type Order struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	OrderDate   time.Time       `json:"order_date"`
	Status      Status          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	IsLocked    bool            `json:"is_locked"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	LockedAt    *time.Time      `json:"locked_at,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Items       []Item          `json:"items,omitempty"`
}

// Item is one order line.
type Item struct {
	OrderID         string          `json:"order_id"`
	ProcessedGoodID string          `json:"processed_good_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	CustomerID string
	Status     *Status
	Limit      int
	Offset     int
}

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("orders: order not found")
	// ErrCustomerNotFound indicates the referenced customer does not exist.
	ErrCustomerNotFound = errors.New("orders: customer not found")
	// ErrGoodNotFound indicates a referenced processed good does not exist.
	ErrGoodNotFound = errors.New("orders: processed good not found")
	// ErrNoItems indicates an order without lines.
	ErrNoItems = errors.New("orders: at least one item required")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("orders: quantity must be positive")
	// ErrLocked indicates the order is locked against mutation.
	ErrLocked = errors.New("orders: order is locked")
	// ErrInvalidTransition indicates a lifecycle transition not allowed from
	// the current status.
	ErrInvalidTransition = errors.New("orders: invalid status transition")
	// ErrWindowElapsed indicates the unlock window has passed.
	ErrWindowElapsed = errors.New("orders: unlock window has elapsed")
	// ErrInsufficientStock indicates a good has less on hand than ordered.
	ErrInsufficientStock = errors.New("orders: insufficient processed good stock")
)
