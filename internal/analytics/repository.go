// Package analytics aggregates lot movements into the inventory report.
package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/report"
)

// RepositoryPort abstracts the aggregation query.
type RepositoryPort interface {
	LotAnalytics(ctx context.Context, from, to time.Time) ([]report.LotAnalytics, error)
}

// Repository aggregates lot movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LotAnalytics sums per-lot movements inside [from, to]. Received and
// available come from the lot counters; the movement columns are bounded by
// the period.
func (r *Repository) LotAnalytics(ctx context.Context, from, to time.Time) ([]report.LotAnalytics, error) {
	rows, err := r.pool.Query(ctx, `
SELECT l.name, l.kind, l.unit,
       l.quantity_received::text,
       l.quantity_available::text,
       COALESCE((SELECT SUM(bu.quantity_consumed) FROM batch_usage bu
                 JOIN production_batches b ON b.id = bu.batch_id
                 WHERE bu.lot_id = l.id AND b.batch_date BETWEEN $1 AND $2), 0)::text,
       COALESCE((SELECT SUM(w.quantity_wasted) FROM waste_records w
                 WHERE w.lot_id = l.id AND w.waste_date BETWEEN $1 AND $2), 0)::text,
       COALESCE((SELECT SUM(t.quantity_transferred) FROM transfer_records t
                 WHERE t.from_lot_id = l.id AND t.transfer_date BETWEEN $1 AND $2), 0)::text,
       COALESCE((SELECT SUM(t.quantity_transferred) FROM transfer_records t
                 WHERE t.to_lot_id = l.id AND t.transfer_date BETWEEN $1 AND $2), 0)::text
FROM lots l
ORDER BY l.name`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []report.LotAnalytics{}
	for rows.Next() {
		var a report.LotAnalytics
		var received, available, consumed, wasted, trOut, trIn string
		if err := rows.Scan(&a.LotName, &a.Kind, &a.Unit, &received, &available, &consumed, &wasted, &trOut, &trIn); err != nil {
			return nil, err
		}
		if a.Received, err = decimal.NewFromString(received); err != nil {
			return nil, err
		}
		if a.Available, err = decimal.NewFromString(available); err != nil {
			return nil, err
		}
		if a.Consumed, err = decimal.NewFromString(consumed); err != nil {
			return nil, err
		}
		if a.Wasted, err = decimal.NewFromString(wasted); err != nil {
			return nil, err
		}
		if a.TransferredOut, err = decimal.NewFromString(trOut); err != nil {
			return nil, err
		}
		if a.TransferredIn, err = decimal.NewFromString(trIn); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
