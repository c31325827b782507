package waste

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one append-only waste entry against a lot. Records are never
// updated or deleted; corrections are new records.
type Record struct {
	ID             string          `json:"id"`
	LotID          string          `json:"lot_id"`
	WasteDate      time.Time       `json:"waste_date"`
	QuantityWasted decimal.Decimal `json:"quantity_wasted"`
	Unit           string          `json:"unit"`
	Reason         string          `json:"reason"`
	Notes          string          `json:"notes,omitempty"`
	RecordedBy     int64           `json:"recorded_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

var (
	// ErrLotNotFound indicates the referenced lot does not exist.
	ErrLotNotFound = errors.New("waste: lot not found")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("waste: quantity must be positive")
	// ErrInsufficientStock indicates the lot has less available than wasted.
	ErrInsufficientStock = errors.New("waste: insufficient available quantity")
)
