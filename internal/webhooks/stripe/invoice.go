package stripewebhook

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stripe/stripe-go/v84"

	"github.com/beanvault/storefront-backend/internal/ledger"
	"github.com/beanvault/storefront-backend/internal/mailer"
	pkgerrors "github.com/beanvault/storefront-backend/pkg/errors"
)

var errInvoicePDFNotReady = errors.New("invoice document not ready")

// handleInvoicePaid sends the combined confirmation+receipt for a paid
// invoice. Invoices are the most duplicate-prone event (payment_succeeded and
// redeliveries arrive under distinct event IDs) so the invoice-level claim is
// taken before anything else.
func (s *Service) handleInvoicePaid(ctx context.Context, event *stripe.Event) error {
	inv, err := decodeInvoicePayload(event.Data.Raw)
	if err != nil {
		return err
	}
	if inv.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice id missing")
	}

	ctx = s.logg.WithInvoiceID(ctx, inv.ID)
	eventType := string(event.Type)

	result, claimErr := s.ledger.ClaimInvoice(ctx, inv.ID)
	switch result {
	case ledger.ClaimDuplicate:
		s.metrics.IncDuplicate(eventType)
		s.logg.Info(ctx, "invoice already mailed; acknowledging")
		return nil
	case ledger.ClaimUnavailable:
		s.metrics.IncLedgerUnavailable("invoice")
		s.logg.Error(ctx, "invoice claim unavailable; proceeding without dedup", claimErr)
	}

	if !s.mailCfg.CombineOrderReceipt {
		// Confirmations already went out at checkout time; paid invoices
		// produce no customer mail in this configuration.
		s.logg.Debug(ctx, "combined receipts disabled; nothing to send")
		return nil
	}

	identity := identityFromInvoice(inv)
	if identity.Email == "" && inv.Customer != "" {
		if cust, err := s.processor.GetCustomer(ctx, inv.Customer); err != nil {
			s.logg.Warn(ctx, "customer lookup failed while resolving invoice contact")
		} else {
			identity = identity.merge(identityFromCustomer(cust))
		}
	}
	if identity.Email == "" {
		s.logg.Warn(ctx, "no customer email for invoice; skipping receipt mail")
		return nil
	}

	pdfURL := inv.InvoicePDF
	if pdfURL == "" && s.mailCfg.AttachStripeInvoice {
		pdfURL = s.pollInvoicePDF(ctx, inv.ID)
	}

	number := inv.Number
	if number == "" {
		number = inv.ID
	}

	var paidAt time.Time
	if ts := inv.paidAtUnix(); ts > 0 {
		paidAt = time.Unix(ts, 0).UTC()
	}

	return s.mailer.SendCombinedReceipt(ctx, mailer.ReceiptEmailInput{
		ToEmail:       identity.Email,
		ToName:        identity.Name,
		InvoiceNumber: number,
		Currency:      s.currencyOrRaw(ctx, inv.Currency),
		Lines:         emailLinesFromInvoice(inv),
		PaidAt:        paidAt,
		InvoicePDFURL: pdfURL,
	})
}

// pollInvoicePDF re-fetches the invoice until the processor has rendered its
// document. The document lags the payment event by a few seconds; after the
// configured attempts the mail goes out without it.
func (s *Service) pollInvoicePDF(ctx context.Context, invoiceID string) string {
	delay := s.mailCfg.InvoicePDFPollDelay
	if delay <= 0 {
		delay = time.Second
	}
	retries := s.mailCfg.InvoicePDFPollRetries
	if retries < 0 {
		retries = 0
	}

	var url string
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewConstant(delay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fetched, err := s.processor.GetInvoice(ctx, invoiceID)
		if err != nil {
			return retry.RetryableError(err)
		}
		if fetched == nil || fetched.InvoicePDF == "" {
			return retry.RetryableError(errInvoicePDFNotReady)
		}
		url = fetched.InvoicePDF
		return nil
	})
	if err != nil {
		s.logg.Warn(ctx, "invoice document never became available; sending without it")
		return ""
	}
	return url
}

func emailLinesFromInvoice(inv *invoicePayload) []mailer.EmailLine {
	lines := make([]mailer.EmailLine, 0, len(inv.Lines.Data))
	for _, line := range inv.Lines.Data {
		lines = append(lines, mailer.EmailLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			AmountCents: line.Amount,
		})
	}
	return lines
}
