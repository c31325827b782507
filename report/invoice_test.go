package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRenderInvoiceHTML(t *testing.T) {
	html, err := RenderInvoiceHTML(InvoiceData{
		Number:       "INV-2608-0007",
		IssueDate:    time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC),
		CustomerName: "Kovács és Társa Kft.",
		Currency:     "HUF",
		Lines: []InvoiceLine{
			{Description: "Sourdough loaf", Quantity: decimal.NewFromInt(12), Unit: "pcs", UnitPrice: decimal.NewFromInt(1200), LineTotal: decimal.NewFromInt(14400)},
		},
		Total: decimal.NewFromInt(14400),
	})
	require.NoError(t, err)
	require.Contains(t, html, "INV-2608-0007")
	require.Contains(t, html, "Kovács és Társa Kft.")
	require.Contains(t, html, "Sourdough loaf")
	require.Contains(t, html, "2026-08-20")
}

func TestWastePercent(t *testing.T) {
	row := LotAnalytics{Received: decimal.NewFromInt(200), Wasted: decimal.NewFromInt(25)}
	require.True(t, row.WastePercent().Equal(decimal.RequireFromString("12.5")))

	empty := LotAnalytics{}
	require.True(t, empty.WastePercent().IsZero())
}

func TestRenderInventoryHTML(t *testing.T) {
	html, err := RenderInventoryHTML(InventoryReportData{
		GeneratedAt: time.Now(),
		From:        time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC),
		Lots: []LotAnalytics{
			{LotName: "Flour T-55", Unit: "kg", Received: decimal.NewFromInt(100), Wasted: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)
	require.True(t, strings.Contains(html, "Flour T-55"))
	require.True(t, strings.Contains(html, "5%"))
}
