package finance

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	entries    []Entry
	aggregates int
}

func (r *memoryRepo) Insert(ctx context.Context, entry Entry) (Entry, error) {
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	out := []Entry{}
	for _, e := range r.entries {
		if filter.Type != nil && e.Type != *filter.Type {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Aggregate(ctx context.Context, from, to time.Time) (Summary, error) {
	r.aggregates++
	summary := Summary{
		From:          from,
		To:            to,
		Contributions: decimal.Zero,
		Income:        decimal.Zero,
		Expenses:      decimal.Zero,
		ByCategory:    map[string]decimal.Decimal{},
	}
	for _, e := range r.entries {
		if e.EntryDate.Before(from) || e.EntryDate.After(to) {
			continue
		}
		switch e.Type {
		case EntryContribution:
			summary.Contributions = summary.Contributions.Add(e.Amount)
		case EntryIncome:
			summary.Income = summary.Income.Add(e.Amount)
		case EntryExpense:
			summary.Expenses = summary.Expenses.Add(e.Amount)
		}
	}
	summary.Net = summary.Contributions.Add(summary.Income).Sub(summary.Expenses)
	return summary, nil
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestRecordValidation(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil, nil)
	ctx := context.Background()

	_, err := svc.Record(ctx, RecordInput{Type: "dividend", Amount: decimal.NewFromInt(1), Category: "x"})
	require.ErrorIs(t, err, ErrInvalidType)

	_, err = svc.Record(ctx, RecordInput{Type: EntryIncome, Amount: decimal.Zero, Category: "x"})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Record(ctx, RecordInput{Type: EntryIncome, Amount: decimal.NewFromInt(1), Category: " "})
	require.Error(t, err)
}

func TestRecordDefaults(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil, nil)

	entry, err := svc.Record(context.Background(), RecordInput{
		Type:     EntryExpense,
		Amount:   decimal.NewFromInt(500),
		Category: "packaging",
	})
	require.NoError(t, err)
	require.Equal(t, "HUF", entry.Currency)
	require.False(t, entry.EntryDate.IsZero())
}

func TestSummaryTotals(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	day := time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.Record(ctx, RecordInput{Type: EntryContribution, EntryDate: day, Amount: decimal.NewFromInt(1000), Category: "capital"})
	require.NoError(t, err)
	_, err = svc.Record(ctx, RecordInput{Type: EntryIncome, EntryDate: day, Amount: decimal.NewFromInt(300), Category: "sales"})
	require.NoError(t, err)
	_, err = svc.Record(ctx, RecordInput{Type: EntryExpense, EntryDate: day, Amount: decimal.NewFromInt(450), Category: "rent"})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.True(t, summary.Contributions.Equal(decimal.NewFromInt(1000)))
	require.True(t, summary.Income.Equal(decimal.NewFromInt(300)))
	require.True(t, summary.Expenses.Equal(decimal.NewFromInt(450)))
	require.True(t, summary.Net.Equal(decimal.NewFromInt(850)))
}

func TestSummaryRejectsInvertedRange(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil, nil)
	now := time.Now()
	_, err := svc.Summary(context.Background(), now, now.AddDate(0, 0, -1))
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestSummaryUsesCache(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil, testRedis(t))
	ctx := context.Background()
	from := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	_, err := svc.Summary(ctx, from, to)
	require.NoError(t, err)
	_, err = svc.Summary(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, 1, repo.aggregates)
}

func TestRecordInvalidatesSummaryCache(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil, testRedis(t))
	ctx := context.Background()
	from := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	_, err := svc.Summary(ctx, from, to)
	require.NoError(t, err)

	_, err = svc.Record(ctx, RecordInput{
		Type: EntryIncome, EntryDate: from.AddDate(0, 0, 3),
		Amount: decimal.NewFromInt(200), Category: "sales",
	})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, from, to)
	require.NoError(t, err)
	require.True(t, summary.Income.Equal(decimal.NewFromInt(200)))
	require.Equal(t, 2, repo.aggregates)
}
