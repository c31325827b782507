package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort abstracts shipment persistence.
type RepositoryPort interface {
	Insert(ctx context.Context, s Shipment) (Shipment, error)
	Get(ctx context.Context, id string) (*Shipment, error)
	GetByOrder(ctx context.Context, orderID string) (*Shipment, error)
	List(ctx context.Context, status *Status, limit, offset int) ([]Shipment, int, error)
	Update(ctx context.Context, s Shipment) (Shipment, error)
	OrderExists(ctx context.Context, orderID string) (bool, error)
}

// Repository persists shipments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const shipmentColumns = `id, order_id, courier, tracking_number, status, evidence_key, notes, updated_by, created_at, updated_at`

func (r *Repository) Insert(ctx context.Context, s Shipment) (Shipment, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO shipments (id, order_id, courier, tracking_number, status, evidence_key, notes, updated_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())
RETURNING `+shipmentColumns,
		s.ID, s.OrderID, s.Courier, s.TrackingNumber, string(s.Status), s.EvidenceKey, s.Notes, s.UpdatedBy)
	return scanShipment(row)
}

func (r *Repository) Get(ctx context.Context, id string) (*Shipment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id=$1`, id)
	s, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) GetByOrder(ctx context.Context, orderID string) (*Shipment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE order_id=$1`, orderID)
	s, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) List(ctx context.Context, status *Status, limit, offset int) ([]Shipment, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	argPos := 1
	if status != nil {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(*status))
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM shipments "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM shipments %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d", shipmentColumns, where, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	shipments := []Shipment{}
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, 0, err
		}
		shipments = append(shipments, s)
	}
	return shipments, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, s Shipment) (Shipment, error) {
	row := r.pool.QueryRow(ctx, `UPDATE shipments
SET courier=$2, tracking_number=$3, status=$4, evidence_key=$5, notes=$6, updated_by=$7, updated_at=NOW()
WHERE id=$1
RETURNING `+shipmentColumns,
		s.ID, s.Courier, s.TrackingNumber, string(s.Status), s.EvidenceKey, s.Notes, s.UpdatedBy)
	updated, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shipment{}, ErrNotFound
		}
		return Shipment{}, err
	}
	return updated, nil
}

func (r *Repository) OrderExists(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, orderID).Scan(&exists)
	return exists, err
}

func scanShipment(row pgx.Row) (Shipment, error) {
	var s Shipment
	var status string
	if err := row.Scan(&s.ID, &s.OrderID, &s.Courier, &s.TrackingNumber, &status, &s.EvidenceKey, &s.Notes, &s.UpdatedBy, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Shipment{}, err
	}
	s.Status = Status(status)
	return s, nil
}
