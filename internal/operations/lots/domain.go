package lots

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Kind separates raw material lots from recurring product lots.
type Kind string

const (
	KindRawMaterial      Kind = "raw_material"
	KindRecurringProduct Kind = "recurring_product"
)

// Lot is a traceable batch of material with a cumulative received quantity
// and a transactionally maintained available quantity.
type Lot struct {
	ID                string          `json:"id"`
	Kind              Kind            `json:"kind"`
	Name              string          `json:"name"`
	Supplier          string          `json:"supplier,omitempty"`
	Unit              string          `json:"unit"`
	QuantityReceived  decimal.Decimal `json:"quantity_received"`
	QuantityAvailable decimal.Decimal `json:"quantity_available"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// BatchUsage is one production batch consumption row against a lot.
// Consumption is irreversible once attributed.
type BatchUsage struct {
	BatchID          string          `json:"batch_id"`
	BatchDate        time.Time       `json:"batch_date"`
	QuantityConsumed decimal.Decimal `json:"quantity_consumed"`
	Unit             string          `json:"unit"`
	IsLocked         bool            `json:"is_locked"`
	QAStatus         string          `json:"qa_status"`
}

// ListFilter narrows lot listings.
type ListFilter struct {
	Kind   *Kind
	Search string
	Limit  int
	Offset int
}

var (
	// ErrNotFound indicates the lot does not exist.
	ErrNotFound = errors.New("lots: lot not found")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("lots: quantity must be positive")
)
