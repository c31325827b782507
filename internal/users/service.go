package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hatvoni/insider/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages user accounts and credential checks.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateInput registers a new account.
type CreateInput struct {
	Email    string
	Name     string
	Password string
	ActorID  int64
}

// Create registers an active account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, input CreateInput) (*User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, errors.New("users: email required")
	}
	if len(input.Password) < 8 {
		return nil, errors.New("users: password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Insert(ctx, User{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, input.ActorID, "users:create", user.ID, map[string]any{"email": user.Email})
	return &user, nil
}

// Update changes the account's email or name.
func (s *Service) Update(ctx context.Context, id int64, email, name string, actorID int64) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, errors.New("users: email required")
	}
	user, err := s.repo.Update(ctx, User{ID: id, Email: email, Name: strings.TrimSpace(name)})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "users:update", id, nil)
	return &user, nil
}

// SetActive activates or deactivates an account. Deactivated accounts keep
// their data but cannot sign in.
func (s *Service) SetActive(ctx context.Context, id int64, active bool, actorID int64) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "users:set-active", id, map[string]any{"active": active})
	return nil
}

// SetPassword replaces the account password.
func (s *Service) SetPassword(ctx context.Context, id int64, password string, actorID int64) error {
	if len(password) < 8 {
		return errors.New("users: password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.SetPasswordHash(ctx, id, string(hash)); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "users:set-password", id, nil)
	return nil
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// List returns users with the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Authenticate verifies credentials. Wrong email and wrong password return
// the same error so the response does not reveal which one failed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactive
	}
	return user, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: fmt.Sprint(userID),
		Meta:     meta,
	})
}
