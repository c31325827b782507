package invoices

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hatvoni/insider/internal/platform/db"
	"github.com/hatvoni/insider/report"
)

// OrderSnapshot is the order data an invoice is issued from.
type OrderSnapshot struct {
	OrderID         string
	Status          string
	CustomerID      string
	CustomerName    string
	CustomerAddress string
	CustomerTaxNo   string
	Total           decimal.Decimal
	Lines           []report.InvoiceLine
}

// TxRepository exposes the mutations that must share one transaction: the
// counter advance only commits together with the invoice row, so a failed
// insert never burns a sequence number.
type TxRepository interface {
	NextSequence(ctx context.Context, period string) (int, error)
	Insert(ctx context.Context, inv Invoice) (Invoice, error)
}

// RepositoryPort abstracts invoice persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByOrder(ctx context.Context, orderID string) (*Invoice, error)
	List(ctx context.Context, limit, offset int) ([]Invoice, int, error)
	SetPDFKey(ctx context.Context, id, key string) error
	OrderSnapshot(ctx context.Context, orderID string) (*OrderSnapshot, error)
}

// Repository persists invoices in PostgreSQL.
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

// NextSequence advances the per-period invoice counter. The upserted row
// stays locked until the transaction ends, serialising concurrent issues
// within a period.
func (t *txRepo) NextSequence(ctx context.Context, period string) (int, error) {
	var seq int
	err := t.tx.QueryRow(ctx, `INSERT INTO invoice_counters (period, seq)
VALUES ($1, 1)
ON CONFLICT (period) DO UPDATE SET seq = invoice_counters.seq + 1
RETURNING seq`, period).Scan(&seq)
	return seq, err
}

const invoiceColumns = `id, order_id, number, issue_date, customer_id, customer_name, currency, total::text, pdf_key, created_by, created_at`

func (t *txRepo) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	row := t.tx.QueryRow(ctx, `INSERT INTO invoices (id, order_id, number, issue_date, customer_id, customer_name, currency, total, pdf_key, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'',$9,NOW())
RETURNING `+invoiceColumns,
		inv.ID, inv.OrderID, inv.Number, inv.IssueDate, inv.CustomerID, inv.CustomerName, inv.Currency, inv.Total.String(), inv.CreatedBy)
	invoice, err := scanInvoice(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "order_id") {
			return Invoice{}, ErrAlreadyIssued
		}
		return Invoice{}, err
	}
	return invoice, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) GetByOrder(ctx context.Context, orderID string) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id=$1`, orderID)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]Invoice, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
ORDER BY issue_date DESC, created_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func (r *Repository) SetPDFKey(ctx context.Context, id, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET pdf_key=$2 WHERE id=$1`, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// OrderSnapshot joins the order, its customer and its lines for invoicing.
func (r *Repository) OrderSnapshot(ctx context.Context, orderID string) (*OrderSnapshot, error) {
	snap := OrderSnapshot{OrderID: orderID}
	var total string
	err := r.pool.QueryRow(ctx, `SELECT o.status, o.total::text, c.id, c.name, c.address, c.tax_number
FROM orders o
JOIN customers c ON c.id = o.customer_id
WHERE o.id=$1`, orderID).Scan(&snap.Status, &total, &snap.CustomerID, &snap.CustomerName, &snap.CustomerAddress, &snap.CustomerTaxNo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if snap.Total, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT g.name, g.unit, oi.quantity::text, oi.unit_price::text, oi.line_total::text
FROM order_items oi
JOIN processed_goods g ON g.id = oi.processed_good_id
WHERE oi.order_id=$1
ORDER BY g.name`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line report.InvoiceLine
		var qty, price, lineTotal string
		if err := rows.Scan(&line.Description, &line.Unit, &qty, &price, &lineTotal); err != nil {
			return nil, err
		}
		if line.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if line.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if line.LineTotal, err = decimal.NewFromString(lineTotal); err != nil {
			return nil, err
		}
		snap.Lines = append(snap.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var total string
	if err := row.Scan(&inv.ID, &inv.OrderID, &inv.Number, &inv.IssueDate, &inv.CustomerID, &inv.CustomerName, &inv.Currency, &total, &inv.PDFKey, &inv.CreatedBy, &inv.CreatedAt); err != nil {
		return Invoice{}, err
	}
	var err error
	if inv.Total, err = decimal.NewFromString(total); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}
