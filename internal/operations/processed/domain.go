package processed

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Good is a processed good produced by batches and sold through orders.
type Good struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	SKU            string          `json:"sku,omitempty"`
	Unit           string          `json:"unit"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SaleEntry is one order line that sold this good.
type SaleEntry struct {
	OrderID   string          `json:"order_id"`
	OrderDate time.Time       `json:"order_date"`
	Customer  string          `json:"customer"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

var (
	// ErrNotFound indicates the good does not exist.
	ErrNotFound = errors.New("processed: good not found")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("processed: quantity must be positive")
	// ErrInsufficientStock indicates the good has less on hand than deducted.
	ErrInsufficientStock = errors.New("processed: insufficient quantity on hand")
)
