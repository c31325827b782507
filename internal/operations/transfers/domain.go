package transfers

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one completed transfer between two lots. Transfers are
// append-only; reversing a transfer means recording the opposite transfer.
type Record struct {
	ID                  string          `json:"id"`
	FromLotID           string          `json:"from_lot_id"`
	ToLotID             string          `json:"to_lot_id"`
	TransferDate        time.Time       `json:"transfer_date"`
	QuantityTransferred decimal.Decimal `json:"quantity_transferred"`
	Unit                string          `json:"unit"`
	Reason              string          `json:"reason"`
	Notes               string          `json:"notes,omitempty"`
	RecordedBy          int64           `json:"recorded_by"`
	CreatedAt           time.Time       `json:"created_at"`
}

var (
	// ErrLotNotFound indicates a referenced lot does not exist.
	ErrLotNotFound = errors.New("transfers: lot not found")
	// ErrSameLot indicates source and destination are the same lot.
	ErrSameLot = errors.New("transfers: source and destination must differ")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("transfers: quantity must be positive")
	// ErrInsufficientStock indicates the source lot has less available than transferred.
	ErrInsufficientStock = errors.New("transfers: insufficient available quantity in source lot")
	// ErrUnitMismatch indicates the lots are measured in different units.
	ErrUnitMismatch = errors.New("transfers: lots use different units")
)
