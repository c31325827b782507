package report

import (
	"bytes"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// InvoiceLine is one rendered invoice row.
type InvoiceLine struct {
	Description string
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// InvoiceData carries everything the invoice template needs.
type InvoiceData struct {
	Number          string
	IssueDate       time.Time
	CustomerName    string
	CustomerAddress string
	CustomerTaxNo   string
	Currency        string
	Lines           []InvoiceLine
	Total           decimal.Decimal
}

var invoicePrinter = message.NewPrinter(language.Hungarian)

// formatMoney renders an amount with Hungarian digit grouping.
func formatMoney(amount decimal.Decimal, currency string) string {
	return invoicePrinter.Sprintf("%.2f %s", amount.InexactFloat64(), currency)
}

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": formatMoney,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Number}}</title>
<style>
body { font-family: sans-serif; margin: 2.5rem; color: #1a1a1a; }
h1 { font-size: 1.4rem; }
table { width: 100%; border-collapse: collapse; margin-top: 1.5rem; }
th, td { border-bottom: 1px solid #ccc; padding: 0.5rem; text-align: left; }
td.amount, th.amount { text-align: right; }
tfoot td { font-weight: bold; border-bottom: none; }
.meta { margin-top: 1rem; color: #444; }
</style>
</head>
<body>
<h1>Invoice {{.Number}}</h1>
<div class="meta">
<p>Issue date: {{.IssueDate.Format "2006-01-02"}}</p>
<p>Customer: {{.CustomerName}}{{if .CustomerAddress}}<br>{{.CustomerAddress}}{{end}}{{if .CustomerTaxNo}}<br>Tax no: {{.CustomerTaxNo}}{{end}}</p>
</div>
<table>
<thead>
<tr><th>Item</th><th class="amount">Quantity</th><th class="amount">Unit price</th><th class="amount">Total</th></tr>
</thead>
<tbody>
{{range .Lines}}
<tr>
<td>{{.Description}}</td>
<td class="amount">{{.Quantity}} {{.Unit}}</td>
<td class="amount">{{money .UnitPrice $.Currency}}</td>
<td class="amount">{{money .LineTotal $.Currency}}</td>
</tr>
{{end}}
</tbody>
<tfoot>
<tr><td colspan="3">Total</td><td class="amount">{{money .Total .Currency}}</td></tr>
</tfoot>
</table>
</body>
</html>`))

// RenderInvoiceHTML renders the invoice document.
func RenderInvoiceHTML(data InvoiceData) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
