package lots

// CreateRequest creates a lot on goods receipt.
type CreateRequest struct {
	Kind            string `json:"kind" validate:"required,oneof=raw_material recurring_product"`
	Name            string `json:"name" validate:"required,max=200"`
	Supplier        string `json:"supplier" validate:"max=200"`
	Unit            string `json:"unit" validate:"required,max=20"`
	InitialQuantity string `json:"initial_quantity" validate:"required"`
}

// ReceiveRequest adds quantity to an existing lot.
type ReceiveRequest struct {
	Quantity string `json:"quantity" validate:"required"`
}

// ListResponse wraps a lot listing.
type ListResponse struct {
	Lots  []Lot `json:"lots"`
	Total int   `json:"total"`
}
