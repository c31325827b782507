package users

import (
	"errors"
	"time"
)

// User is an account that can sign in. PasswordHash never leaves the API.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrEmailTaken indicates another user already has the email.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrInactive indicates a deactivated account tried to sign in.
	ErrInactive = errors.New("users: account deactivated")
)
