package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort abstracts RBAC persistence for the service.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	DeleteRole(ctx context.Context, id int64) (int64, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	EnsurePermission(ctx context.Context, name, description string) (Permission, error)
	ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error)
	AttachPermission(ctx context.Context, roleID, permissionID int64) error
	DetachPermission(ctx context.Context, roleID, permissionID int64) error
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	UserRoles(ctx context.Context, userID int64) ([]Role, error)
	UserEffectivePermissions(ctx context.Context, userID int64) ([]string, error)
	UserModules(ctx context.Context, userID int64) ([]string, error)
	GrantModule(ctx context.Context, userID int64, module string) error
	RevokeModule(ctx context.Context, userID int64, module string) error
}

// Repository persists roles, permissions and module grants in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE id=$1`, id)
	return scanRole(row)
}

func (r *Repository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO roles (name, description, created_at, updated_at)
VALUES ($1,$2,NOW(),NOW())
RETURNING id, name, description, created_at, updated_at`, name, description)
	return scanRole(row)
}

func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	row := r.pool.QueryRow(ctx, `UPDATE roles SET name=$2, description=$3, updated_at=NOW()
WHERE id=$1
RETURNING id, name, description, created_at, updated_at`, id, name, description)
	return scanRole(row)
}

func (r *Repository) DeleteRole(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func (r *Repository) EnsurePermission(ctx context.Context, name, description string) (Permission, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO permissions (name, description)
VALUES ($1,$2)
ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
RETURNING id, name, description`, name, description)
	var p Permission
	if err := row.Scan(&p.ID, &p.Name, &p.Description); err != nil {
		return Permission{}, err
	}
	return p, nil
}

func (r *Repository) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, p.description
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
WHERE rp.role_id = $1
ORDER BY p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func (r *Repository) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id)
VALUES ($1,$2) ON CONFLICT DO NOTHING`, roleID, permissionID)
	return err
}

func (r *Repository) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_permissions WHERE role_id=$1 AND permission_id=$2`, roleID, permissionID)
	return err
}

func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id, created_at)
VALUES ($1,$2,NOW()) ON CONFLICT DO NOTHING`, userID, roleID)
	return err
}

func (r *Repository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id=$1 AND role_id=$2`, userID, roleID)
	return err
}

func (r *Repository) UserRoles(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT r.id, r.name, r.description, r.created_at, r.updated_at
FROM roles r
JOIN user_roles ur ON ur.role_id = r.id
WHERE ur.user_id = $1
ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRoles(rows)
}

func (r *Repository) UserEffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT p.name
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
JOIN user_roles ur ON ur.role_id = rp.role_id
WHERE ur.user_id = $1
ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStrings(rows)
}

func (r *Repository) UserModules(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT module FROM module_grants WHERE user_id=$1 ORDER BY module`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStrings(rows)
}

func (r *Repository) GrantModule(ctx context.Context, userID int64, module string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO module_grants (user_id, module, created_at)
VALUES ($1,$2,NOW()) ON CONFLICT DO NOTHING`, userID, module)
	return err
}

func (r *Repository) RevokeModule(ctx context.Context, userID int64, module string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM module_grants WHERE user_id=$1 AND module=$2`, userID, module)
	return err
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

func collectRoles(rows pgx.Rows) ([]Role, error) {
	roles := []Role{}
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func collectPermissions(rows pgx.Rows) ([]Permission, error) {
	perms := []Permission{}
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
