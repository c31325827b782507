package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/internal/platform/db"
)

// TxRepository exposes the mutations that must share one transaction.
type TxRepository interface {
	OrderForUpdate(ctx context.Context, id string) (*Order, error)
	InsertOrder(ctx context.Context, order Order) (Order, error)
	UpdateHeader(ctx context.Context, id string, orderDate time.Time, notes string, total decimal.Decimal) error
	ReplaceItems(ctx context.Context, orderID string, items []Item) error
	ItemsByOrder(ctx context.Context, orderID string) ([]Item, error)
	SetStatus(ctx context.Context, id string, status Status, completedAt *time.Time) error
	SetLocked(ctx context.Context, id string, locked bool, lockedAt *time.Time) error
	DeductGood(ctx context.Context, goodID string, qty decimal.Decimal) error
	CustomerExists(ctx context.Context, id string) (bool, error)
}

// RepositoryPort abstracts order persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	LockExpired(ctx context.Context, completedBefore time.Time) ([]string, error)
}

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const orderColumns = `id, customer_id, order_date, status, total::text, is_locked, completed_at, locked_at, notes, created_by, created_at, updated_at`

func (t *txRepo) OrderForUpdate(ctx context.Context, id string) (*Order, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (t *txRepo) InsertOrder(ctx context.Context, order Order) (Order, error) {
	row := t.tx.QueryRow(ctx, `INSERT INTO orders (id, customer_id, order_date, status, total, is_locked, notes, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,FALSE,$6,$7,NOW(),NOW())
RETURNING `+orderColumns,
		order.ID, order.CustomerID, order.OrderDate, string(order.Status), order.Total.String(), order.Notes, order.CreatedBy)
	return scanOrder(row)
}

func (t *txRepo) UpdateHeader(ctx context.Context, id string, orderDate time.Time, notes string, total decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders
SET order_date=$2, notes=$3, total=$4, updated_at=NOW()
WHERE id=$1`, id, orderDate, notes, total.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) ReplaceItems(ctx context.Context, orderID string, items []Item) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := t.tx.Exec(ctx, `INSERT INTO order_items (order_id, processed_good_id, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5)`,
			orderID, item.ProcessedGoodID, item.Quantity.String(), item.UnitPrice.String(), item.LineTotal.String()); err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepo) ItemsByOrder(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := t.tx.Query(ctx, `SELECT order_id, processed_good_id, quantity::text, unit_price::text, line_total::text
FROM order_items WHERE order_id=$1 ORDER BY processed_good_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (t *txRepo) SetStatus(ctx context.Context, id string, status Status, completedAt *time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders
SET status=$2, completed_at=COALESCE($3, completed_at), updated_at=NOW()
WHERE id=$1`, id, string(status), completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SetLocked(ctx context.Context, id string, locked bool, lockedAt *time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders
SET is_locked=$2, locked_at=$3, updated_at=NOW()
WHERE id=$1`, id, locked, lockedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeductGood moves quantity on hand down by qty. A negative qty restocks;
// the guard only bites when a positive deduction would overdraw.
func (t *txRepo) DeductGood(ctx context.Context, goodID string, qty decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE processed_goods
SET quantity_on_hand = quantity_on_hand - $2::numeric, updated_at = NOW()
WHERE id=$1 AND quantity_on_hand >= $2::numeric`, goodID, qty.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM processed_goods WHERE id=$1)`, goodID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrGoodNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

func (t *txRepo) CustomerExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id=$1 AND is_archived=FALSE)`, id).Scan(&exists)
	return exists, err
}

func (r *Repository) Get(ctx context.Context, id string) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT order_id, processed_good_id, quantity::text, unit_price::text, line_total::text
FROM order_items WHERE order_id=$1 ORDER BY processed_good_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	argPos := 1
	if filter.CustomerID != "" {
		where += fmt.Sprintf(" AND customer_id = $%d", argPos)
		args = append(args, filter.CustomerID)
		argPos++
	}
	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(*filter.Status))
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM orders %s ORDER BY order_date DESC, created_at DESC LIMIT $%d OFFSET $%d", orderColumns, where, argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, order)
	}
	return list, total, rows.Err()
}

// LockExpired locks every completed, unlocked order whose completion is
// older than the cutoff. Returns the affected order IDs.
func (r *Repository) LockExpired(ctx context.Context, completedBefore time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `UPDATE orders
SET is_locked=TRUE, locked_at=NOW(), updated_at=NOW()
WHERE status='completed' AND is_locked=FALSE AND completed_at < $1
RETURNING id`, completedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var order Order
	var status, total string
	if err := row.Scan(&order.ID, &order.CustomerID, &order.OrderDate, &status, &total, &order.IsLocked, &order.CompletedAt, &order.LockedAt, &order.Notes, &order.CreatedBy, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return Order{}, err
	}
	order.Status = Status(status)
	var err error
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return Order{}, err
	}
	return order, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	var qty, price, total string
	if err := row.Scan(&item.OrderID, &item.ProcessedGoodID, &qty, &price, &total); err != nil {
		return Item{}, err
	}
	var err error
	if item.Quantity, err = decimal.NewFromString(qty); err != nil {
		return Item{}, err
	}
	if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return Item{}, err
	}
	if item.LineTotal, err = decimal.NewFromString(total); err != nil {
		return Item{}, err
	}
	return item, nil
}
