package pdf

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/beanvault/storefront-backend/pkg/enums"
	"github.com/beanvault/storefront-backend/pkg/types"
)

// ReceiptLine is one purchased item on the receipt.
type ReceiptLine struct {
	Description string
	Quantity    int64
	AmountCents int64
}

// ReceiptData is everything the rendered receipt shows. Rendering is a pure
// function of this value; nothing else is read.
type ReceiptData struct {
	InvoiceNumber string
	BrandName     string
	SupportEmail  string
	CustomerName  string
	CustomerEmail string
	Currency      enums.Currency
	TotalCents    int64
	Lines         []ReceiptLine
	PaidAt        time.Time
}

// Renderer produces a PDF receipt for a paid invoice.
type Renderer interface {
	RenderReceipt(ctx context.Context, data ReceiptData) ([]byte, error)
}

var receiptFuncs = template.FuncMap{
	"money": func(cents int64, currency enums.Currency) string {
		return types.FormatAmountCents(cents, currency)
	},
	"longDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("January 2, 2006")
	},
}

var receiptTmpl = template.Must(template.New("receipt").Funcs(receiptFuncs).Parse(receiptHTML))

// BuildReceiptHTML renders the receipt template into a full HTML document.
func BuildReceiptHTML(data ReceiptData) (string, error) {
	if strings.TrimSpace(data.InvoiceNumber) == "" {
		return "", fmt.Errorf("invoice number is required")
	}
	if data.BrandName == "" {
		data.BrandName = "BeanVault"
	}

	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute receipt template: %w", err)
	}
	return buf.String(), nil
}

const receiptHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; color: #2b2118; margin: 48px; }
  .brand { font-size: 26px; font-weight: bold; letter-spacing: 1px; }
  .meta { margin-top: 24px; color: #6b5d4f; font-size: 13px; }
  table { width: 100%; border-collapse: collapse; margin-top: 32px; }
  th { text-align: left; font-size: 12px; text-transform: uppercase; color: #6b5d4f;
       border-bottom: 2px solid #2b2118; padding: 8px 4px; }
  th.amount, td.amount { text-align: right; }
  td { padding: 10px 4px; border-bottom: 1px solid #e4ddd3; font-size: 14px; }
  .total td { border-bottom: none; border-top: 2px solid #2b2118; font-weight: bold; font-size: 16px; }
  .footer { margin-top: 48px; font-size: 12px; color: #6b5d4f; }
</style>
</head>
<body>
  <div class="brand">{{.BrandName}}</div>
  <div class="meta">
    Receipt {{.InvoiceNumber}}{{if not .PaidAt.IsZero}} &middot; Paid {{longDate .PaidAt}}{{end}}<br>
    {{if .CustomerName}}{{.CustomerName}}<br>{{end}}
    {{if .CustomerEmail}}{{.CustomerEmail}}{{end}}
  </div>
  <table>
    <tr><th>Item</th><th>Qty</th><th class="amount">Amount</th></tr>
    {{range .Lines}}
    <tr>
      <td>{{.Description}}</td>
      <td>{{.Quantity}}</td>
      <td class="amount">{{money .AmountCents $.Currency}}</td>
    </tr>
    {{end}}
    <tr class="total">
      <td>Total</td>
      <td></td>
      <td class="amount">{{money .TotalCents .Currency}}</td>
    </tr>
  </table>
  <div class="footer">
    Thanks for buying your coffee from {{.BrandName}}.{{if .SupportEmail}} Questions? Write to {{.SupportEmail}}.{{end}}
  </div>
</body>
</html>
`
