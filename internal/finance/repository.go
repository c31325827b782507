package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts finance persistence.
type RepositoryPort interface {
	Insert(ctx context.Context, entry Entry) (Entry, error)
	List(ctx context.Context, filter ListFilter) ([]Entry, int, error)
	Aggregate(ctx context.Context, from, to time.Time) (Summary, error)
}

// Repository persists finance entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, type, entry_date, amount::text, currency, category, description, recorded_by, created_at`

func (r *Repository) Insert(ctx context.Context, entry Entry) (Entry, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO finance_entries (id, type, entry_date, amount, currency, category, description, recorded_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
RETURNING `+entryColumns,
		entry.ID, string(entry.Type), entry.EntryDate, entry.Amount.String(), entry.Currency, entry.Category, entry.Description, entry.RecordedBy)
	return scanEntry(row)
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	argPos := 1
	if filter.Type != nil {
		where += fmt.Sprintf(" AND type = $%d", argPos)
		args = append(args, string(*filter.Type))
		argPos++
	}
	if filter.From != nil {
		where += fmt.Sprintf(" AND entry_date >= $%d", argPos)
		args = append(args, *filter.From)
		argPos++
	}
	if filter.To != nil {
		where += fmt.Sprintf(" AND entry_date <= $%d", argPos)
		args = append(args, *filter.To)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM finance_entries "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM finance_entries %s ORDER BY entry_date DESC, created_at DESC LIMIT $%d OFFSET $%d", entryColumns, where, argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

func (r *Repository) Aggregate(ctx context.Context, from, to time.Time) (Summary, error) {
	summary := Summary{
		From:          from,
		To:            to,
		Contributions: decimal.Zero,
		Income:        decimal.Zero,
		Expenses:      decimal.Zero,
		ByCategory:    map[string]decimal.Decimal{},
	}

	rows, err := r.pool.Query(ctx, `SELECT type, category, COALESCE(SUM(amount),0)::text
FROM finance_entries
WHERE entry_date >= $1 AND entry_date <= $2
GROUP BY type, category`, from, to)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var typ, category, raw string
		if err := rows.Scan(&typ, &category, &raw); err != nil {
			return Summary{}, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return Summary{}, err
		}
		switch EntryType(typ) {
		case EntryContribution:
			summary.Contributions = summary.Contributions.Add(amount)
		case EntryIncome:
			summary.Income = summary.Income.Add(amount)
		case EntryExpense:
			summary.Expenses = summary.Expenses.Add(amount)
		}
		key := typ + ":" + category
		summary.ByCategory[key] = summary.ByCategory[key].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	summary.Net = summary.Contributions.Add(summary.Income).Sub(summary.Expenses)
	return summary, nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var entry Entry
	var typ, amount string
	if err := row.Scan(&entry.ID, &typ, &entry.EntryDate, &amount, &entry.Currency, &entry.Category, &entry.Description, &entry.RecordedBy, &entry.CreatedAt); err != nil {
		return Entry{}, err
	}
	entry.Type = EntryType(typ)
	var err error
	if entry.Amount, err = decimal.NewFromString(amount); err != nil {
		return Entry{}, err
	}
	return entry, nil
}
