package rbac

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Service orchestrates role, permission and module access management.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
}

// DeleteRole removes a role by ID. Returns ErrNotFound if nothing was deleted.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	rows, err := s.repo.DeleteRole(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// EnsurePermission upserts a permission ensuring the description is stored.
func (s *Service) EnsurePermission(ctx context.Context, name, description string) (Permission, error) {
	return s.repo.EnsurePermission(ctx, strings.TrimSpace(name), strings.TrimSpace(description))
}

// RolePermissions lists the permissions attached to a role.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	return s.repo.ListRolePermissions(ctx, roleID)
}

// SetRolePermissions replaces permissions for a role by diffing the current
// assignments against the desired set.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	perms, err := s.repo.ListRolePermissions(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[int64]struct{}, len(perms))
	for _, p := range perms {
		existing[p.ID] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := s.repo.AttachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := s.repo.DetachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// AssignRole assigns a role to the given user.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.AssignRole(ctx, userID, roleID)
}

// RemoveRole removes a role from a user.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.RemoveRole(ctx, userID, roleID)
}

// UserRoles lists the roles assigned to a user.
func (s *Service) UserRoles(ctx context.Context, userID int64) ([]Role, error) {
	return s.repo.UserRoles(ctx, userID)
}

// EffectivePermissions returns deduplicated permission names for a user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserEffectivePermissions(ctx, userID)
}

// UserModules lists modules the user may enter.
func (s *Service) UserModules(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserModules(ctx, userID)
}

// GrantModule gives a user access to an application module.
func (s *Service) GrantModule(ctx context.Context, userID int64, module string) error {
	module = strings.TrimSpace(strings.ToLower(module))
	if module == "" {
		return errors.New("rbac: module required")
	}
	return s.repo.GrantModule(ctx, userID, module)
}

// RevokeModule withdraws a user's access to an application module.
func (s *Service) RevokeModule(ctx context.Context, userID int64, module string) error {
	return s.repo.RevokeModule(ctx, userID, strings.TrimSpace(strings.ToLower(module)))
}
