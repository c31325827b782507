package lots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/internal/ledger"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, lot Lot) (Lot, error)
	Get(ctx context.Context, id string) (*Lot, error)
	List(ctx context.Context, filter ListFilter) ([]Lot, int, error)
	Receive(ctx context.Context, id string, qty decimal.Decimal) (*Lot, error)
	BatchUsage(ctx context.Context, lotID string) ([]BatchUsage, error)
	Events(ctx context.Context, lotID string) ([]ledger.Event, error)
}

// Repository persists lots in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const lotColumns = `id, kind, name, supplier, unit, quantity_received::text, quantity_available::text, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, lot Lot) (Lot, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO lots (id, kind, name, supplier, unit, quantity_received, quantity_available, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$6,NOW(),NOW())
RETURNING `+lotColumns,
		lot.ID, string(lot.Kind), lot.Name, lot.Supplier, lot.Unit, lot.QuantityReceived.String())
	return scanLot(row)
}

func (r *Repository) Get(ctx context.Context, id string) (*Lot, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id=$1`, id)
	lot, err := scanLot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Lot, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	argPos := 1
	if filter.Kind != nil {
		where += fmt.Sprintf(" AND kind = $%d", argPos)
		args = append(args, string(*filter.Kind))
		argPos++
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR supplier ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM lots "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM lots %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", lotColumns, where, argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []Lot{}
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, lot)
	}
	return list, total, rows.Err()
}

// Receive adds quantity to both received and available counters.
func (r *Repository) Receive(ctx context.Context, id string, qty decimal.Decimal) (*Lot, error) {
	row := r.pool.QueryRow(ctx, `UPDATE lots
SET quantity_received = quantity_received + $2::numeric,
    quantity_available = quantity_available + $2::numeric,
    updated_at = NOW()
WHERE id=$1
RETURNING `+lotColumns, id, qty.String())
	lot, err := scanLot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

func (r *Repository) BatchUsage(ctx context.Context, lotID string) ([]BatchUsage, error) {
	rows, err := r.pool.Query(ctx, `SELECT bu.batch_id, b.batch_date, bu.quantity_consumed::text, bu.unit, b.is_locked, b.qa_status
FROM batch_usage bu
JOIN production_batches b ON b.id = bu.batch_id
WHERE bu.lot_id = $1
ORDER BY b.batch_date, bu.batch_id`, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []BatchUsage{}
	for rows.Next() {
		var u BatchUsage
		var qty string
		if err := rows.Scan(&u.BatchID, &u.BatchDate, &qty, &u.Unit, &u.IsLocked, &u.QAStatus); err != nil {
			return nil, err
		}
		if u.QuantityConsumed, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

// Events collects waste and transfer rows for a lot, tagging each transfer
// as out or in relative to the lot. Batch usage is included as dated
// batch_usage events so callers can opt into the merged timeline.
func (r *Repository) Events(ctx context.Context, lotID string) ([]ledger.Event, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, 'waste', waste_date, created_at, quantity_wasted::text, unit, reason, notes, ''
FROM waste_records WHERE lot_id = $1
UNION ALL
SELECT id,
       CASE WHEN from_lot_id = $1 THEN 'transfer_out' ELSE 'transfer_in' END,
       transfer_date, created_at, quantity_transferred::text, unit, reason, notes,
       CASE WHEN from_lot_id = $1 THEN to_lot_id ELSE from_lot_id END
FROM transfer_records WHERE from_lot_id = $1 OR to_lot_id = $1
UNION ALL
SELECT bu.batch_id, 'batch_usage', b.batch_date, b.created_at, bu.quantity_consumed::text, bu.unit, '', '', ''
FROM batch_usage bu
JOIN production_batches b ON b.id = bu.batch_id
WHERE bu.lot_id = $1`, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []ledger.Event{}
	for rows.Next() {
		var ev ledger.Event
		var typ, qty string
		var date, created time.Time
		if err := rows.Scan(&ev.ID, &typ, &date, &created, &qty, &ev.Unit, &ev.Reason, &ev.Notes, &ev.CounterpartLotID); err != nil {
			return nil, err
		}
		ev.Type = ledger.EventType(typ)
		ev.Date = date
		ev.CreatedAt = created
		if ev.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanLot(row pgx.Row) (Lot, error) {
	var lot Lot
	var kind, received, available string
	if err := row.Scan(&lot.ID, &kind, &lot.Name, &lot.Supplier, &lot.Unit, &received, &available, &lot.CreatedAt, &lot.UpdatedAt); err != nil {
		return Lot{}, err
	}
	lot.Kind = Kind(kind)
	var err error
	if lot.QuantityReceived, err = decimal.NewFromString(received); err != nil {
		return Lot{}, err
	}
	if lot.QuantityAvailable, err = decimal.NewFromString(available); err != nil {
		return Lot{}, err
	}
	return lot, nil
}
