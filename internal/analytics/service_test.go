package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hatvoni/insider/report"
)

type memoryRepo struct {
	lots     []report.LotAnalytics
	lastFrom time.Time
	lastTo   time.Time
}

func (r *memoryRepo) LotAnalytics(ctx context.Context, from, to time.Time) ([]report.LotAnalytics, error) {
	r.lastFrom = from
	r.lastTo = to
	return r.lots, nil
}

func TestInventoryReportDefaultsPeriod(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo)
	now := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	data, err := svc.InventoryReport(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, now, data.To)
	require.Equal(t, now.AddDate(0, 0, -30), data.From)
	require.Equal(t, now, data.GeneratedAt)
	require.Equal(t, repo.lastFrom, data.From)
	require.Equal(t, repo.lastTo, data.To)
}

func TestInventoryReportHTMLIncludesRows(t *testing.T) {
	repo := &memoryRepo{lots: []report.LotAnalytics{{
		LotName:        "Rye flour 2026-08",
		Kind:           "raw_material",
		Unit:           "kg",
		Received:       decimal.NewFromInt(500),
		Consumed:       decimal.NewFromInt(320),
		Wasted:         decimal.NewFromInt(25),
		TransferredOut: decimal.NewFromInt(40),
		TransferredIn:  decimal.NewFromInt(10),
		Available:      decimal.NewFromInt(125),
	}}}
	svc := NewService(repo)

	html, err := svc.InventoryReportHTML(context.Background(), time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Contains(t, html, "Rye flour 2026-08")
	require.Contains(t, html, "5%")
}
