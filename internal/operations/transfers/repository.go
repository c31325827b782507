package transfers

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
	LotForUpdate(ctx context.Context, lotID string) (decimal.Decimal, string, error)
	AdjustLot(ctx context.Context, lotID string, delta decimal.Decimal) error
	InsertRecord(ctx context.Context, rec Record) (Record, error)
}

// RepositoryPort abstracts transfer persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	ListByLot(ctx context.Context, lotID string) ([]Record, error)
	List(ctx context.Context, limit, offset int) ([]Record, int, error)
}

// Repository persists transfer records in PostgreSQL.
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

func (t *txRepo) LotForUpdate(ctx context.Context, lotID string) (decimal.Decimal, string, error) {
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

// AdjustLot moves available quantity by delta, which may be negative.
func (t *txRepo) AdjustLot(ctx context.Context, lotID string, delta decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE lots
SET quantity_available = quantity_available + $2::numeric, updated_at = NOW()
WHERE id=$1`, lotID, delta.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return nil
}

func (t *txRepo) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	row := t.tx.QueryRow(ctx, `INSERT INTO transfer_records (id, from_lot_id, to_lot_id, transfer_date, quantity_transferred, unit, reason, notes, recorded_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
RETURNING id, from_lot_id, to_lot_id, transfer_date, quantity_transferred::text, unit, reason, notes, recorded_by, created_at`,
		rec.ID, rec.FromLotID, rec.ToLotID, rec.TransferDate, rec.QuantityTransferred.String(), rec.Unit, rec.Reason, rec.Notes, rec.RecordedBy)
	return scanRecord(row)
}

func (r *Repository) ListByLot(ctx context.Context, lotID string) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, from_lot_id, to_lot_id, transfer_date, quantity_transferred::text, unit, reason, notes, recorded_by, created_at
FROM transfer_records
WHERE from_lot_id=$1 OR to_lot_id=$1
ORDER BY transfer_date DESC, created_at DESC`, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]Record, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transfer_records`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, from_lot_id, to_lot_id, transfer_date, quantity_transferred::text, unit, reason, notes, recorded_by, created_at
FROM transfer_records
ORDER BY transfer_date DESC, created_at DESC
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
	if err := row.Scan(&rec.ID, &rec.FromLotID, &rec.ToLotID, &rec.TransferDate, &qty, &rec.Unit, &rec.Reason, &rec.Notes, &rec.RecordedBy, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	var err error
	if rec.QuantityTransferred, err = decimal.NewFromString(qty); err != nil {
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
