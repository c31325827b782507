package waste

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/internal/platform/db"
)

// TxRepository exposes the mutations that must share one transaction.
type TxRepository interface {
	LotAvailableForUpdate(ctx context.Context, lotID string) (decimal.Decimal, string, error)
	DebitLot(ctx context.Context, lotID string, qty decimal.Decimal) error
	InsertRecord(ctx context.Context, rec Record) (Record, error)
}

// RepositoryPort abstracts waste persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	ListByLot(ctx context.Context, lotID string) ([]Record, error)
	List(ctx context.Context, limit, offset int) ([]Record, int, error)
}

// Repository persists waste records in PostgreSQL.
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

// LotAvailableForUpdate locks the lot row and returns its available quantity
// and unit.
func (t *txRepo) LotAvailableForUpdate(ctx context.Context, lotID string) (decimal.Decimal, string, error) {
	var raw, unit string
	err := t.tx.QueryRow(ctx, `SELECT quantity_available::text, unit FROM lots WHERE id=$1 FOR UPDATE`, lotID).Scan(&raw, &unit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, "", ErrLotNotFound
		}
		return decimal.Zero, "", err
	}
	qty, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, "", err
	}
	return qty, unit, nil
}

func (t *txRepo) DebitLot(ctx context.Context, lotID string, qty decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE lots
SET quantity_available = quantity_available - $2::numeric, updated_at = NOW()
WHERE id=$1`, lotID, qty.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return nil
}

func (t *txRepo) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	row := t.tx.QueryRow(ctx, `INSERT INTO waste_records (id, lot_id, waste_date, quantity_wasted, unit, reason, notes, recorded_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
RETURNING id, lot_id, waste_date, quantity_wasted::text, unit, reason, notes, recorded_by, created_at`,
		rec.ID, rec.LotID, rec.WasteDate, rec.QuantityWasted.String(), rec.Unit, rec.Reason, rec.Notes, rec.RecordedBy)
	return scanRecord(row)
}

func (r *Repository) ListByLot(ctx context.Context, lotID string) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, lot_id, waste_date, quantity_wasted::text, unit, reason, notes, recorded_by, created_at
FROM waste_records
WHERE lot_id=$1
ORDER BY waste_date DESC, created_at DESC`, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]Record, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM waste_records`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, lot_id, waste_date, quantity_wasted::text, unit, reason, notes, recorded_by, created_at
FROM waste_records
ORDER BY waste_date DESC, created_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	records, err := collectRecords(rows)
	return records, total, err
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var qty string
	if err := row.Scan(&rec.ID, &rec.LotID, &rec.WasteDate, &qty, &rec.Unit, &rec.Reason, &rec.Notes, &rec.RecordedBy, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	var err error
	if rec.QuantityWasted, err = decimal.NewFromString(qty); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
