package processed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts processed goods persistence.
type RepositoryPort interface {
	Create(ctx context.Context, good Good) (Good, error)
	Update(ctx context.Context, good Good) (Good, error)
	Get(ctx context.Context, id string) (*Good, error)
	List(ctx context.Context, search string, limit, offset int) ([]Good, int, error)
	Adjust(ctx context.Context, id string, delta decimal.Decimal) (*Good, error)
	SalesHistory(ctx context.Context, goodID string) ([]SaleEntry, error)
}

// Repository persists processed goods in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const goodColumns = `id, name, sku, unit, unit_price::text, quantity_on_hand::text, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, good Good) (Good, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO processed_goods (id, name, sku, unit, unit_price, quantity_on_hand, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,0,NOW(),NOW())
RETURNING `+goodColumns,
		good.ID, good.Name, good.SKU, good.Unit, good.UnitPrice.String())
	return scanGood(row)
}

func (r *Repository) Update(ctx context.Context, good Good) (Good, error) {
	row := r.pool.QueryRow(ctx, `UPDATE processed_goods
SET name=$2, sku=$3, unit=$4, unit_price=$5, updated_at=NOW()
WHERE id=$1
RETURNING `+goodColumns,
		good.ID, good.Name, good.SKU, good.Unit, good.UnitPrice.String())
	g, err := scanGood(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Good{}, ErrNotFound
		}
		return Good{}, err
	}
	return g, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Good, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+goodColumns+` FROM processed_goods WHERE id=$1`, id)
	good, err := scanGood(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &good, nil
}

func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]Good, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	argPos := 1
	if search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR sku ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+search+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM processed_goods "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM processed_goods %s ORDER BY name LIMIT $%d OFFSET $%d", goodColumns, where, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	goods := []Good{}
	for rows.Next() {
		good, err := scanGood(rows)
		if err != nil {
			return nil, 0, err
		}
		goods = append(goods, good)
	}
	return goods, total, rows.Err()
}

// Adjust moves quantity on hand by delta, which may be negative. Deductions
// below zero are rejected by the guarded UPDATE.
func (r *Repository) Adjust(ctx context.Context, id string, delta decimal.Decimal) (*Good, error) {
	row := r.pool.QueryRow(ctx, `UPDATE processed_goods
SET quantity_on_hand = quantity_on_hand + $2::numeric, updated_at = NOW()
WHERE id=$1 AND quantity_on_hand + $2::numeric >= 0
RETURNING `+goodColumns, id, delta.String())
	good, err := scanGood(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.Get(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInsufficientStock
		}
		return nil, err
	}
	return &good, nil
}

func (r *Repository) SalesHistory(ctx context.Context, goodID string) ([]SaleEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT o.id, o.order_date, c.name, oi.quantity::text, oi.unit_price::text, oi.line_total::text
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN customers c ON c.id = o.customer_id
WHERE oi.processed_good_id = $1 AND o.status <> 'draft'
ORDER BY o.order_date DESC, o.created_at DESC`, goodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []SaleEntry{}
	for rows.Next() {
		var e SaleEntry
		var qty, price, total string
		if err := rows.Scan(&e.OrderID, &e.OrderDate, &e.Customer, &qty, &price, &total); err != nil {
			return nil, err
		}
		if e.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if e.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if e.LineTotal, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanGood(row pgx.Row) (Good, error) {
	var good Good
	var price, onHand string
	if err := row.Scan(&good.ID, &good.Name, &good.SKU, &good.Unit, &price, &onHand, &good.CreatedAt, &good.UpdatedAt); err != nil {
		return Good{}, err
	}
	var err error
	if good.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return Good{}, err
	}
	if good.QuantityOnHand, err = decimal.NewFromString(onHand); err != nil {
		return Good{}, err
	}
	return good, nil
}
