package delivery

import (
	"errors"
	"time"
)

// Status tracks a shipment handed to a third-party courier.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Shipment is the courier tracking record of one order.
type Shipment struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	Courier        string    `json:"courier"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	Status         Status    `json:"status"`
	EvidenceKey    string    `json:"evidence_key,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	UpdatedBy      int64     `json:"updated_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

var (
	// ErrNotFound indicates the shipment does not exist.
	ErrNotFound = errors.New("delivery: shipment not found")
	// ErrOrderNotFound indicates the referenced order does not exist.
	ErrOrderNotFound = errors.New("delivery: order not found")
	// ErrInvalidStatus indicates an unknown shipment status.
	ErrInvalidStatus = errors.New("delivery: invalid status")
	// ErrAlreadyTracked indicates the order already has a shipment.
	ErrAlreadyTracked = errors.New("delivery: order already has a shipment")
)

// ValidStatus reports whether s is a known shipment status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInTransit, StatusDelivered, StatusFailed:
		return true
	}
	return false
}
