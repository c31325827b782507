package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hatvoni/insider/report"
)

type memoryRepo struct {
	sequences map[string]int
	invoices  map[string]Invoice
	byOrder   map[string]string
	snapshots map[string]*OrderSnapshot
	insertErr error
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		sequences: make(map[string]int),
		invoices:  make(map[string]Invoice),
		byOrder:   make(map[string]string),
		snapshots: make(map[string]*OrderSnapshot),
	}
}

// WithTx restores the counters when fn fails, matching the rollback the
// real repository gets from the database.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[string]int, len(r.sequences))
	for k, v := range r.sequences {
		snapshot[k] = v
	}
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.sequences = snapshot
		return err
	}
	return nil
}

func (t *memoryTx) NextSequence(ctx context.Context, period string) (int, error) {
	t.repo.sequences[period]++
	return t.repo.sequences[period], nil
}

func (t *memoryTx) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	if t.repo.insertErr != nil {
		return Invoice{}, t.repo.insertErr
	}
	if _, ok := t.repo.byOrder[inv.OrderID]; ok {
		return Invoice{}, ErrAlreadyIssued
	}
	inv.CreatedAt = time.Now()
	t.repo.invoices[inv.ID] = inv
	t.repo.byOrder[inv.OrderID] = inv.ID
	return inv, nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (*Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &inv, nil
}

func (r *memoryRepo) GetByOrder(ctx context.Context, orderID string) (*Invoice, error) {
	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int) ([]Invoice, int, error) {
	out := []Invoice{}
	for _, inv := range r.invoices {
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (r *memoryRepo) SetPDFKey(ctx context.Context, id, key string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.PDFKey = key
	r.invoices[id] = inv
	return nil
}

func (r *memoryRepo) OrderSnapshot(ctx context.Context, orderID string) (*OrderSnapshot, error) {
	snap, ok := r.snapshots[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return snap, nil
}

func completedSnapshot() *OrderSnapshot {
	return &OrderSnapshot{
		Status:       "completed",
		CustomerID:   "cust-1",
		CustomerName: "Minta Bolt Kft.",
		Total:        decimal.NewFromInt(4800),
		Lines: []report.InvoiceLine{
			{Description: "Rye bread", Quantity: decimal.NewFromInt(4), Unit: "pcs", UnitPrice: decimal.NewFromInt(1200), LineTotal: decimal.NewFromInt(4800)},
		},
	}
}

func TestIssueNumbersPerMonth(t *testing.T) {
	repo := newMemoryRepo()
	repo.snapshots["order-1"] = completedSnapshot()
	repo.snapshots["order-2"] = completedSnapshot()
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2026, time.August, 5, 10, 0, 0, 0, time.UTC) }

	first, err := svc.Issue(context.Background(), "order-1", 1)
	require.NoError(t, err)
	require.Equal(t, "INV-2608-0001", first.Number)

	second, err := svc.Issue(context.Background(), "order-2", 1)
	require.NoError(t, err)
	require.Equal(t, "INV-2608-0002", second.Number)
}

func TestIssueSequenceRestartsEachMonth(t *testing.T) {
	repo := newMemoryRepo()
	repo.snapshots["order-1"] = completedSnapshot()
	repo.snapshots["order-2"] = completedSnapshot()
	svc := NewService(repo, nil)

	svc.now = func() time.Time { return time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC) }
	first, err := svc.Issue(context.Background(), "order-1", 1)
	require.NoError(t, err)
	require.Equal(t, "INV-2608-0001", first.Number)

	svc.now = func() time.Time { return time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC) }
	second, err := svc.Issue(context.Background(), "order-2", 1)
	require.NoError(t, err)
	require.Equal(t, "INV-2609-0001", second.Number)
}

func TestIssueRejectsDuplicate(t *testing.T) {
	repo := newMemoryRepo()
	repo.snapshots["order-1"] = completedSnapshot()
	svc := NewService(repo, nil)

	_, err := svc.Issue(context.Background(), "order-1", 1)
	require.NoError(t, err)
	_, err = svc.Issue(context.Background(), "order-1", 1)
	require.ErrorIs(t, err, ErrAlreadyIssued)
}

func TestIssueFailedInsertKeepsSequenceGapless(t *testing.T) {
	repo := newMemoryRepo()
	repo.snapshots["order-1"] = completedSnapshot()
	repo.snapshots["order-2"] = completedSnapshot()
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2026, time.August, 5, 10, 0, 0, 0, time.UTC) }

	// A concurrent issue winning the order_id race surfaces as ErrAlreadyIssued
	// from the insert; the counter advance must roll back with it.
	repo.insertErr = ErrAlreadyIssued
	_, err := svc.Issue(context.Background(), "order-1", 1)
	require.ErrorIs(t, err, ErrAlreadyIssued)

	repo.insertErr = nil
	invoice, err := svc.Issue(context.Background(), "order-2", 1)
	require.NoError(t, err)
	require.Equal(t, "INV-2608-0001", invoice.Number)
}

func TestIssueRequiresCompletedOrder(t *testing.T) {
	repo := newMemoryRepo()
	snap := completedSnapshot()
	snap.Status = "confirmed"
	repo.snapshots["order-1"] = snap
	svc := NewService(repo, nil)

	_, err := svc.Issue(context.Background(), "order-1", 1)
	require.ErrorIs(t, err, ErrOrderNotCompleted)
}

func TestRenderHTMLContainsInvoiceData(t *testing.T) {
	repo := newMemoryRepo()
	repo.snapshots["order-1"] = completedSnapshot()
	svc := NewService(repo, nil)

	invoice, err := svc.Issue(context.Background(), "order-1", 1)
	require.NoError(t, err)

	html, err := svc.RenderHTML(context.Background(), invoice.ID)
	require.NoError(t, err)
	require.Contains(t, html, invoice.Number)
	require.Contains(t, html, "Minta Bolt Kft.")
	require.Contains(t, html, "Rye bread")
}
