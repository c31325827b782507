package finance

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType separates the three money flows tracked by the module.
type EntryType string

const (
	EntryContribution EntryType = "contribution"
	EntryIncome       EntryType = "income"
	EntryExpense      EntryType = "expense"
)

// Entry is one dated monetary record. Entries are append-only.
type Entry struct {
	ID          string          `json:"id"`
	Type        EntryType       `json:"type"`
	EntryDate   time.Time       `json:"entry_date"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	RecordedBy  int64           `json:"recorded_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ListFilter narrows entry listings.
type ListFilter struct {
	Type   *EntryType
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Summary aggregates entries over a date range.
type Summary struct {
	From          time.Time                  `json:"from"`
	To            time.Time                  `json:"to"`
	Contributions decimal.Decimal            `json:"contributions"`
	Income        decimal.Decimal            `json:"income"`
	Expenses      decimal.Decimal            `json:"expenses"`
	Net           decimal.Decimal            `json:"net"`
	ByCategory    map[string]decimal.Decimal `json:"by_category"`
}

var (
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("finance: amount must be positive")
	// ErrInvalidType indicates an unknown entry type.
	ErrInvalidType = errors.New("finance: invalid entry type")
	// ErrInvalidRange indicates from is after to.
	ErrInvalidRange = errors.New("finance: invalid date range")
)
