package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/beanvault/storefront-backend/pkg/config"
	"github.com/beanvault/storefront-backend/pkg/enums"
	pkgerrors "github.com/beanvault/storefront-backend/pkg/errors"
	"github.com/beanvault/storefront-backend/pkg/logger"
	"github.com/beanvault/storefront-backend/pkg/mail"
	"github.com/beanvault/storefront-backend/pkg/metrics"
	"github.com/beanvault/storefront-backend/pkg/pdf"
	"github.com/beanvault/storefront-backend/pkg/types"
)

// Template names, also used as the metrics label for sends.
const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateCombinedReceipt   = "combined_receipt"
	TemplateCancellation      = "cancellation"
	TemplateAdminOrder        = "admin_order"
	TemplateAdminCancellation = "admin_cancellation"
)

// OrderEmailInput describes a completed checkout for the confirmation and
// admin alert templates.
type OrderEmailInput struct {
	ToEmail      string
	ToName       string
	Reference    string
	Mode         enums.CheckoutMode
	Plan         string
	Currency     enums.Currency
	Lines        []EmailLine
	ShippingAddr string
}

// ReceiptEmailInput describes a paid invoice for the combined
// confirmation+receipt template.
type ReceiptEmailInput struct {
	ToEmail       string
	ToName        string
	InvoiceNumber string
	Currency      enums.Currency
	Lines         []EmailLine
	PaidAt        time.Time
	InvoicePDFURL string
}

// CancellationEmailInput describes a canceled subscription. CustomerID is
// shown in the administrator copy only.
type CancellationEmailInput struct {
	ToEmail    string
	ToName     string
	Plan       string
	CustomerID string
}

// Service composes and sends every email this system produces. Senders and
// renderers are swapped out in tests; the templates and the totals shown in
// them are fixed here.
type Service interface {
	SendOrderConfirmation(ctx context.Context, input OrderEmailInput) error
	SendCombinedReceipt(ctx context.Context, input ReceiptEmailInput) error
	SendCancellationPair(ctx context.Context, input CancellationEmailInput) error
	SendAdminOrderAlert(ctx context.Context, input OrderEmailInput) error
}

// ServiceParams configures the mailer service.
type ServiceParams struct {
	Sender   mail.Sender
	Renderer pdf.Renderer
	Fetcher  DocumentFetcher
	Config   config.MailConfig
	Metrics  *metrics.PipelineMetrics
	Logger   *logger.Logger
}

type service struct {
	sender   mail.Sender
	renderer pdf.Renderer
	fetcher  DocumentFetcher
	cfg      config.MailConfig
	metrics  *metrics.PipelineMetrics
	logg     *logger.Logger
}

// NewService builds the mailer. Renderer may be nil when receipt generation
// is disabled; the combined template then goes out without the generated PDF.
func NewService(params ServiceParams) (Service, error) {
	if params.Sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(params.Config.AdminEmail) == "" {
		return nil, fmt.Errorf("admin email required")
	}
	fetcher := params.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(0)
	}
	return &service{
		sender:   params.Sender,
		renderer: params.Renderer,
		fetcher:  fetcher,
		cfg:      params.Config,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) SendOrderConfirmation(ctx context.Context, input OrderEmailInput) error {
	if strings.TrimSpace(input.ToEmail) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
	}

	data := s.baseData(input.ToName)
	data.Reference = input.Reference
	data.Plan = input.Plan
	data.Subscription = input.Mode == enums.CheckoutModeSubscription
	data.Currency = input.Currency
	data.Lines = input.Lines
	data.TotalCents = SumLineTotals(input.Lines)

	html, err := renderEmail(confirmationTmpl, data)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render confirmation email")
	}

	return s.send(ctx, TemplateOrderConfirmation, mail.Message{
		ToEmail: input.ToEmail,
		ToName:  input.ToName,
		Subject: fmt.Sprintf("Your %s order is confirmed", s.cfg.BrandName),
		HTML:    html,
		BCC:     s.customerBCC(),
	})
}

func (s *service) SendCombinedReceipt(ctx context.Context, input ReceiptEmailInput) error {
	if strings.TrimSpace(input.ToEmail) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
	}

	data := s.baseData(input.ToName)
	data.InvoiceNumber = input.InvoiceNumber
	data.Currency = input.Currency
	data.Lines = input.Lines
	data.TotalCents = SumLineTotals(input.Lines)
	data.PaidAt = input.PaidAt

	html, err := renderEmail(combinedTmpl, data)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render receipt email")
	}

	return s.send(ctx, TemplateCombinedReceipt, mail.Message{
		ToEmail:     input.ToEmail,
		ToName:      input.ToName,
		Subject:     fmt.Sprintf("Your receipt from %s", s.cfg.BrandName),
		HTML:        html,
		BCC:         s.customerBCC(),
		Attachments: s.receiptAttachments(ctx, input, data.TotalCents),
	})
}

// receiptAttachments assembles the PDFs for a combined email. Both documents
// are best-effort: a render or fetch failure is logged and the email still
// goes out, because a receipt mail without attachments beats no mail at all.
func (s *service) receiptAttachments(ctx context.Context, input ReceiptEmailInput, totalCents int64) []mail.Attachment {
	var attachments []mail.Attachment

	if s.renderer != nil {
		receiptLines := make([]pdf.ReceiptLine, 0, len(input.Lines))
		for _, line := range input.Lines {
			receiptLines = append(receiptLines, pdf.ReceiptLine{
				Description: line.Description,
				Quantity:    line.Quantity,
				AmountCents: line.AmountCents,
			})
		}
		doc, err := s.renderer.RenderReceipt(ctx, pdf.ReceiptData{
			InvoiceNumber: input.InvoiceNumber,
			BrandName:     s.cfg.BrandName,
			SupportEmail:  s.cfg.SupportEmail,
			CustomerName:  input.ToName,
			CustomerEmail: input.ToEmail,
			Currency:      input.Currency,
			TotalCents:    totalCents,
			Lines:         receiptLines,
			PaidAt:        input.PaidAt,
		})
		if err != nil {
			s.logg.Error(s.logg.WithInvoiceID(ctx, input.InvoiceNumber), "receipt render failed; sending without it", err)
		} else {
			attachments = append(attachments, mail.Attachment{
				Filename:    fmt.Sprintf("receipt-%s.pdf", input.InvoiceNumber),
				ContentType: "application/pdf",
				Data:        doc,
			})
		}
	}

	if s.cfg.AttachStripeInvoice && input.InvoicePDFURL != "" {
		doc, err := s.fetcher.Fetch(ctx, input.InvoicePDFURL)
		if err != nil {
			s.logg.Error(s.logg.WithInvoiceID(ctx, input.InvoiceNumber), "invoice document fetch failed; sending without it", err)
		} else {
			attachments = append(attachments, mail.Attachment{
				Filename:    fmt.Sprintf("invoice-%s.pdf", input.InvoiceNumber),
				ContentType: "application/pdf",
				Data:        doc,
			})
		}
	}

	return attachments
}

// SendCancellationPair sends the goodbye email to the customer and the notice
// to the administrator. Either send failing does not stop the other.
func (s *service) SendCancellationPair(ctx context.Context, input CancellationEmailInput) error {
	var errs error

	if strings.TrimSpace(input.ToEmail) != "" {
		data := s.baseData(input.ToName)
		data.Plan = input.Plan

		html, err := renderEmail(cancellationTmpl, data)
		if err != nil {
			errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render cancellation email"))
		} else {
			errs = multierr.Append(errs, s.send(ctx, TemplateCancellation, mail.Message{
				ToEmail: input.ToEmail,
				ToName:  input.ToName,
				Subject: fmt.Sprintf("Your %s subscription has been canceled", s.cfg.BrandName),
				HTML:    html,
				BCC:     s.customerBCC(),
			}))
		}
	} else {
		s.logg.Warn(s.logg.WithCustomerID(ctx, input.CustomerID), "no customer email on file for cancellation notice")
	}

	adminData := s.baseData(input.ToName)
	adminData.Plan = input.Plan
	adminData.CustomerEmail = input.ToEmail
	adminData.Reference = input.CustomerID

	adminHTML, err := renderEmail(adminCancellationTmpl, adminData)
	if err != nil {
		return multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render admin cancellation email"))
	}
	errs = multierr.Append(errs, s.send(ctx, TemplateAdminCancellation, mail.Message{
		ToEmail: s.cfg.AdminEmail,
		Subject: fmt.Sprintf("%s subscription canceled", s.cfg.BrandName),
		HTML:    adminHTML,
	}))
	return errs
}

func (s *service) SendAdminOrderAlert(ctx context.Context, input OrderEmailInput) error {
	data := s.baseData(input.ToName)
	data.CustomerEmail = input.ToEmail
	data.Reference = input.Reference
	data.Plan = input.Plan
	data.Subscription = input.Mode == enums.CheckoutModeSubscription
	data.Currency = input.Currency
	data.Lines = input.Lines
	data.TotalCents = SumLineTotals(input.Lines)
	data.ShippingAddr = input.ShippingAddr

	html, err := renderEmail(adminOrderTmpl, data)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render admin order email")
	}

	return s.send(ctx, TemplateAdminOrder, mail.Message{
		ToEmail: s.cfg.AdminEmail,
		Subject: fmt.Sprintf("New order %s", types.FormatAmountCents(data.TotalCents, input.Currency)),
		HTML:    html,
	})
}

func (s *service) send(ctx context.Context, tmpl string, msg mail.Message) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"template": tmpl,
		"to":       msg.ToEmail,
	})
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.IncEmailFailed(tmpl)
		s.logg.Error(logCtx, "email send failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("send %s email", tmpl))
	}
	s.metrics.IncEmailSent(tmpl)
	s.logg.Info(logCtx, "email sent")
	return nil
}

func (s *service) baseData(name string) templateData {
	return templateData{
		Brand:        s.cfg.BrandName,
		SupportEmail: s.cfg.SupportEmail,
		Name:         name,
	}
}

func (s *service) customerBCC() []string {
	if !s.cfg.BCCAdmin {
		return nil
	}
	return []string{s.cfg.AdminEmail}
}
