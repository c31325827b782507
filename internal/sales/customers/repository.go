package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort abstracts customer persistence.
type RepositoryPort interface {
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, c Customer) (Customer, error)
	Get(ctx context.Context, id string) (*Customer, error)
	List(ctx context.Context, search string, includeArchived bool, limit, offset int) ([]Customer, int, error)
	SetArchived(ctx context.Context, id string, archived bool) error
}

// Repository persists customers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, name, email, phone, address, tax_number, photo_key, notes, is_archived, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, c Customer) (Customer, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO customers (id, name, email, phone, address, tax_number, photo_key, notes, is_archived, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,FALSE,NOW(),NOW())
RETURNING `+customerColumns,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.TaxNumber, c.PhotoKey, c.Notes)
	return scanCustomer(row)
}

func (r *Repository) Update(ctx context.Context, c Customer) (Customer, error) {
	row := r.pool.QueryRow(ctx, `UPDATE customers
SET name=$2, email=$3, phone=$4, address=$5, tax_number=$6, photo_key=$7, notes=$8, updated_at=NOW()
WHERE id=$1
RETURNING `+customerColumns,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.TaxNumber, c.PhotoKey, c.Notes)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return customer, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (r *Repository) List(ctx context.Context, search string, includeArchived bool, limit, offset int) ([]Customer, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	argPos := 1
	if !includeArchived {
		where += " AND is_archived = FALSE"
	}
	if search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", argPos, argPos, argPos)
		args = append(args, "%"+search+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM customers %s ORDER BY name LIMIT $%d OFFSET $%d", customerColumns, where, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	customers := []Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, customer)
	}
	return customers, total, rows.Err()
}

func (r *Repository) SetArchived(ctx context.Context, id string, archived bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET is_archived=$2, updated_at=NOW() WHERE id=$1`, id, archived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.TaxNumber, &c.PhotoKey, &c.Notes, &c.IsArchived, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Customer{}, err
	}
	return c, nil
}
