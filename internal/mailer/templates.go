package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/beanvault/storefront-backend/pkg/enums"
	"github.com/beanvault/storefront-backend/pkg/types"
)

// EmailLine is one purchased item as shown in an email body.
type EmailLine struct {
	Description string
	Quantity    int64
	AmountCents int64
}

// SumLineTotals adds up the line totals. Every amount a reader sees comes
// from this sum; no template recomputes a total from unit prices.
func SumLineTotals(lines []EmailLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.AmountCents
	}
	return total
}

type templateData struct {
	Brand         string
	SupportEmail  string
	Name          string
	CustomerEmail string
	Reference     string
	InvoiceNumber string
	Plan          string
	Subscription  bool
	Currency      enums.Currency
	Lines         []EmailLine
	TotalCents    int64
	PaidAt        time.Time
	ShippingAddr  string
}

var emailFuncs = template.FuncMap{
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

// Every email shares one shell; each template only supplies the "body" block.
const shellHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="margin:0;background:#f4efe8;font-family:Helvetica,Arial,sans-serif;color:#2b2118;">
  <div style="max-width:560px;margin:0 auto;padding:32px 24px;">
    <div style="font-size:22px;font-weight:bold;letter-spacing:1px;padding-bottom:16px;">{{.Brand}}</div>
    <div style="background:#ffffff;border-radius:8px;padding:24px;">
{{template "body" .}}
    </div>
    <div style="padding-top:16px;font-size:12px;color:#6b5d4f;">
      {{.Brand}}{{if .SupportEmail}} &middot; <a href="mailto:{{.SupportEmail}}" style="color:#6b5d4f;">{{.SupportEmail}}</a>{{end}}
    </div>
  </div>
</body>
</html>
{{define "items"}}
    <table style="width:100%;border-collapse:collapse;margin:16px 0;">
      <tr>
        <th style="text-align:left;font-size:12px;color:#6b5d4f;border-bottom:1px solid #2b2118;padding:6px 4px;">Item</th>
        <th style="text-align:left;font-size:12px;color:#6b5d4f;border-bottom:1px solid #2b2118;padding:6px 4px;">Qty</th>
        <th style="text-align:right;font-size:12px;color:#6b5d4f;border-bottom:1px solid #2b2118;padding:6px 4px;">Amount</th>
      </tr>
      {{range .Lines}}
      <tr>
        <td style="padding:8px 4px;border-bottom:1px solid #e4ddd3;">{{.Description}}</td>
        <td style="padding:8px 4px;border-bottom:1px solid #e4ddd3;">{{.Quantity}}</td>
        <td style="padding:8px 4px;border-bottom:1px solid #e4ddd3;text-align:right;">{{money .AmountCents $.Currency}}</td>
      </tr>
      {{end}}
      <tr>
        <td style="padding:10px 4px;font-weight:bold;">Total</td>
        <td></td>
        <td style="padding:10px 4px;font-weight:bold;text-align:right;">{{money .TotalCents .Currency}}</td>
      </tr>
    </table>
{{end}}`

const confirmationBody = `{{define "body"}}
      <h2 style="margin-top:0;">Order confirmed</h2>
      <p>{{if .Name}}Hi {{.Name}},{{else}}Hi,{{end}}</p>
      {{if .Subscription}}
      <p>Welcome to the {{if .Plan}}{{.Plan}} {{end}}subscription. Your first delivery is on its way soon.</p>
      {{else}}
      <p>Thanks for your order. We are getting your coffee ready.</p>
      {{end}}
      {{if .Reference}}<p style="font-size:13px;color:#6b5d4f;">Order reference: {{.Reference}}</p>{{end}}
{{template "items" .}}
      <p>We will let you know as soon as it ships.</p>
{{end}}`

const combinedBody = `{{define "body"}}
      <h2 style="margin-top:0;">Thanks for your payment</h2>
      <p>{{if .Name}}Hi {{.Name}},{{else}}Hi,{{end}}</p>
      <p>We received your payment{{if not .PaidAt.IsZero}} on {{longDate .PaidAt}}{{end}}. Your receipt is attached as a PDF.</p>
      {{if .InvoiceNumber}}<p style="font-size:13px;color:#6b5d4f;">Receipt number: {{.InvoiceNumber}}</p>{{end}}
{{template "items" .}}
{{end}}`

const cancellationBody = `{{define "body"}}
      <h2 style="margin-top:0;">Subscription canceled</h2>
      <p>{{if .Name}}Hi {{.Name}},{{else}}Hi,{{end}}</p>
      <p>Your {{if .Plan}}{{.Plan}} {{end}}subscription has been canceled and you will not be charged again.</p>
      <p>Already paid deliveries still arrive as planned. We would love to brew for you again some day.</p>
{{end}}`

const adminOrderBody = `{{define "body"}}
      <h2 style="margin-top:0;">New order</h2>
      <p><strong>{{if .Name}}{{.Name}}{{else}}Unknown customer{{end}}</strong>{{if .CustomerEmail}} &lt;{{.CustomerEmail}}&gt;{{end}}</p>
      {{if .Subscription}}<p>Subscription checkout{{if .Plan}}: {{.Plan}}{{end}}</p>{{end}}
      {{if .Reference}}<p style="font-size:13px;color:#6b5d4f;">Session: {{.Reference}}</p>{{end}}
      {{if .ShippingAddr}}<p style="font-size:13px;color:#6b5d4f;">Ships to: {{.ShippingAddr}}</p>{{end}}
{{template "items" .}}
{{end}}`

const adminCancellationBody = `{{define "body"}}
      <h2 style="margin-top:0;">Subscription canceled</h2>
      <p><strong>{{if .Name}}{{.Name}}{{else}}Unknown customer{{end}}</strong>{{if .CustomerEmail}} &lt;{{.CustomerEmail}}&gt;{{end}}</p>
      {{if .Plan}}<p>Plan: {{.Plan}}</p>{{end}}
      {{if .Reference}}<p style="font-size:13px;color:#6b5d4f;">Customer: {{.Reference}}</p>{{end}}
{{end}}`

func mustEmailTemplate(name, body string) *template.Template {
	t := template.Must(template.New(name).Funcs(emailFuncs).Parse(shellHTML))
	template.Must(t.Parse(body))
	return t
}

var (
	confirmationTmpl      = mustEmailTemplate("order_confirmation", confirmationBody)
	combinedTmpl          = mustEmailTemplate("combined_receipt", combinedBody)
	cancellationTmpl      = mustEmailTemplate("cancellation", cancellationBody)
	adminOrderTmpl        = mustEmailTemplate("admin_order", adminOrderBody)
	adminCancellationTmpl = mustEmailTemplate("admin_cancellation", adminCancellationBody)
)

func renderEmail(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, t.Name(), data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
