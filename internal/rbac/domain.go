package rbac

import "time"

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission represents an atomic capability such as "orders.create".
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ModuleGrant gives a user access to a whole application module.
type ModuleGrant struct {
	UserID    int64     `json:"user_id"`
	Module    string    `json:"module"`
	CreatedAt time.Time `json:"created_at"`
}
