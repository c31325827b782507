package batches

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
	DebitLot(ctx context.Context, lotID string, qty decimal.Decimal) error
	CreditProcessedGood(ctx context.Context, goodID string, qty decimal.Decimal) error
	InsertBatch(ctx context.Context, batch Batch) (Batch, error)
	InsertUsage(ctx context.Context, usage Usage) error
}

// RepositoryPort abstracts batch persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	Get(ctx context.Context, id string) (*Batch, error)
	List(ctx context.Context, limit, offset int) ([]Batch, int, error)
	UsageByBatch(ctx context.Context, batchID string) ([]Usage, error)
	SetQAStatus(ctx context.Context, id string, status QAStatus) (*Batch, error)
	SetLocked(ctx context.Context, id string, locked bool) (*Batch, error)
}

// Repository persists production batches in PostgreSQL.
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

func (t *txRepo) CreditProcessedGood(ctx context.Context, goodID string, qty decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE processed_goods
SET quantity_on_hand = quantity_on_hand + $2::numeric, updated_at = NOW()
WHERE id=$1`, goodID, qty.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGoodNotFound
	}
	return nil
}

const batchColumns = `id, batch_date, processed_good_id, output_quantity::text, output_unit, qa_status, is_locked, notes, created_by, created_at, updated_at`

func (t *txRepo) InsertBatch(ctx context.Context, batch Batch) (Batch, error) {
	row := t.tx.QueryRow(ctx, `INSERT INTO production_batches (id, batch_date, processed_good_id, output_quantity, output_unit, qa_status, is_locked, notes, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,FALSE,$7,$8,NOW(),NOW())
RETURNING `+batchColumns,
		batch.ID, batch.BatchDate, batch.ProcessedGoodID, batch.OutputQuantity.String(), batch.OutputUnit, string(batch.QAStatus), batch.Notes, batch.CreatedBy)
	return scanBatch(row)
}

func (t *txRepo) InsertUsage(ctx context.Context, usage Usage) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO batch_usage (batch_id, lot_id, quantity_consumed, unit)
VALUES ($1,$2,$3,$4)`, usage.BatchID, usage.LotID, usage.QuantityConsumed.String(), usage.Unit)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (*Batch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM production_batches WHERE id=$1`, id)
	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]Batch, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM production_batches`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+batchColumns+` FROM production_batches
ORDER BY batch_date DESC, created_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	batches := []Batch{}
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		batches = append(batches, batch)
	}
	return batches, total, rows.Err()
}

func (r *Repository) UsageByBatch(ctx context.Context, batchID string) ([]Usage, error) {
	rows, err := r.pool.Query(ctx, `SELECT batch_id, lot_id, quantity_consumed::text, unit
FROM batch_usage
WHERE batch_id=$1
ORDER BY lot_id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []Usage{}
	for rows.Next() {
		var u Usage
		var qty string
		if err := rows.Scan(&u.BatchID, &u.LotID, &qty, &u.Unit); err != nil {
			return nil, err
		}
		if u.QuantityConsumed, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

func (r *Repository) SetQAStatus(ctx context.Context, id string, status QAStatus) (*Batch, error) {
	row := r.pool.QueryRow(ctx, `UPDATE production_batches
SET qa_status=$2, updated_at=NOW()
WHERE id=$1
RETURNING `+batchColumns, id, string(status))
	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

func (r *Repository) SetLocked(ctx context.Context, id string, locked bool) (*Batch, error) {
	row := r.pool.QueryRow(ctx, `UPDATE production_batches
SET is_locked=$2, updated_at=NOW()
WHERE id=$1
RETURNING `+batchColumns, id, locked)
	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

func scanBatch(row pgx.Row) (Batch, error) {
	var batch Batch
	var qty, status string
	if err := row.Scan(&batch.ID, &batch.BatchDate, &batch.ProcessedGoodID, &qty, &batch.OutputUnit, &status, &batch.IsLocked, &batch.Notes, &batch.CreatedBy, &batch.CreatedAt, &batch.UpdatedAt); err != nil {
		return Batch{}, err
	}
	batch.QAStatus = QAStatus(status)
	var err error
	if batch.OutputQuantity, err = decimal.NewFromString(qty); err != nil {
		return Batch{}, err
	}
	return batch, nil
}
