package report

import (
	"bytes"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
)

// LotAnalytics aggregates the movements of one lot for the report.
type LotAnalytics struct {
	LotName        string
	Kind           string
	Unit           string
	Received       decimal.Decimal
	Consumed       decimal.Decimal
	Wasted         decimal.Decimal
	TransferredOut decimal.Decimal
	TransferredIn  decimal.Decimal
	Available      decimal.Decimal
}

// WastePercent reports wasted quantity as a percentage of received, rounded
// to one decimal place. Zero received yields zero.
func (a LotAnalytics) WastePercent() decimal.Decimal {
	if a.Received.IsZero() {
		return decimal.Zero
	}
	return a.Wasted.Div(a.Received).Mul(decimal.NewFromInt(100)).Round(1)
}

// InventoryReportData carries the analytics rows of one report run.
type InventoryReportData struct {
	GeneratedAt time.Time
	From        time.Time
	To          time.Time
	Lots        []LotAnalytics
}

var inventoryTemplate = template.Must(template.New("inventory").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Inventory analytics</title>
<style>
body { font-family: sans-serif; margin: 2.5rem; color: #1a1a1a; }
h1 { font-size: 1.4rem; }
table { width: 100%; border-collapse: collapse; margin-top: 1.5rem; font-size: 0.85rem; }
th, td { border-bottom: 1px solid #ccc; padding: 0.4rem; text-align: right; }
th:first-child, td:first-child { text-align: left; }
</style>
</head>
<body>
<h1>Inventory analytics</h1>
<p>Period: {{.From.Format "2006-01-02"}} to {{.To.Format "2006-01-02"}} (generated {{.GeneratedAt.Format "2006-01-02 15:04"}})</p>
<table>
<thead>
<tr><th>Lot</th><th>Unit</th><th>Received</th><th>Consumed</th><th>Wasted</th><th>Waste %</th><th>Out</th><th>In</th><th>Available</th></tr>
</thead>
<tbody>
{{range .Lots}}
<tr>
<td>{{.LotName}}</td>
<td>{{.Unit}}</td>
<td>{{.Received}}</td>
<td>{{.Consumed}}</td>
<td>{{.Wasted}}</td>
<td>{{.WastePercent}}%</td>
<td>{{.TransferredOut}}</td>
<td>{{.TransferredIn}}</td>
<td>{{.Available}}</td>
</tr>
{{end}}
</tbody>
</table>
</body>
</html>`))

// RenderInventoryHTML renders the inventory analytics document.
func RenderInventoryHTML(data InventoryReportData) (string, error) {
	var buf bytes.Buffer
	if err := inventoryTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
