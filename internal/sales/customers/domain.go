package customers

import (
	"errors"
	"time"
)

// Customer is a buyer of processed goods.
type Customer struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	TaxNumber  string    `json:"tax_number,omitempty"`
	PhotoKey   string    `json:"photo_key,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	IsArchived bool      `json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ErrNotFound indicates the customer does not exist.
var ErrNotFound = errors.New("customers: customer not found")
