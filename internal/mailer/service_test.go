package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/beanvault/storefront-backend/pkg/config"
	"github.com/beanvault/storefront-backend/pkg/enums"
	"github.com/beanvault/storefront-backend/pkg/logger"
	"github.com/beanvault/storefront-backend/pkg/mail"
	"github.com/beanvault/storefront-backend/pkg/pdf"
)

type fakeSender struct {
	sent   []mail.Message
	sendFn func(ctx context.Context, msg mail.Message) error
}

func (f *fakeSender) Send(ctx context.Context, msg mail.Message) error {
	if f.sendFn != nil {
		if err := f.sendFn(ctx, msg); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeRenderer struct {
	doc []byte
	err error
}

func (f *fakeRenderer) RenderReceipt(ctx context.Context, data pdf.ReceiptData) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.doc != nil {
		return f.doc, nil
	}
	return []byte("%PDF-fake"), nil
}

type fakeFetcher struct {
	doc  []byte
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func testMailConfig() config.MailConfig {
	return config.MailConfig{
		AdminEmail:   "owner@beanvault.coffee",
		BrandName:    "BeanVault",
		SupportEmail: "support@beanvault.coffee",
	}
}

func newTestService(t *testing.T, sender *fakeSender, cfg config.MailConfig, renderer pdf.Renderer, fetcher DocumentFetcher) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Sender:   sender,
		Renderer: renderer,
		Fetcher:  fetcher,
		Config:   cfg,
		Logger:   logger.New(logger.Options{ServiceName: "mailer-test"}),
	})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc
}

func twoLines() []EmailLine {
	return []EmailLine{
		{Description: "House Blend 250g", Quantity: 2, AmountCents: 2400},
		{Description: "Single Origin Kenya 250g", Quantity: 1, AmountCents: 2200},
	}
}

func TestSendOrderConfirmation(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, sender, testMailConfig(), nil, nil)

	err := svc.SendOrderConfirmation(context.Background(), OrderEmailInput{
		ToEmail:   "anna@example.com",
		ToName:    "Anna Petrova",
		Reference: "cs_123",
		Mode:      enums.CheckoutModePayment,
		Currency:  enums.CurrencyEUR,
		Lines:     twoLines(),
	})
	if err != nil {
		t.Fatalf("SendOrderConfirmation error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.sent))
	}

	msg := sender.sent[0]
	if msg.ToEmail != "anna@example.com" {
		t.Errorf("unexpected recipient %q", msg.ToEmail)
	}
	if msg.Subject != "Your BeanVault order is confirmed" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if len(msg.BCC) != 0 {
		t.Errorf("bcc disabled but got %v", msg.BCC)
	}
	// The shown total is the sum of the line totals.
	if !strings.Contains(msg.HTML, "€46.00") {
		t.Error("expected summed total €46.00 in body")
	}
	for _, want := range []string{"Anna Petrova", "House Blend 250g", "cs_123", "€24.00", "€22.00"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestSendOrderConfirmationRequiresEmail(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, sender, testMailConfig(), nil, nil)

	if err := svc.SendOrderConfirmation(context.Background(), OrderEmailInput{}); err == nil {
		t.Fatal("expected error for missing recipient")
	}
	if len(sender.sent) != 0 {
		t.Fatal("nothing should be sent without a recipient")
	}
}

func TestSendOrderConfirmationBCCAdmin(t *testing.T) {
	cfg := testMailConfig()
	cfg.BCCAdmin = true
	sender := &fakeSender{}
	svc := newTestService(t, sender, cfg, nil, nil)

	err := svc.SendOrderConfirmation(context.Background(), OrderEmailInput{
		ToEmail:  "anna@example.com",
		Currency: enums.CurrencyEUR,
		Lines:    twoLines(),
	})
	if err != nil {
		t.Fatalf("SendOrderConfirmation error: %v", err)
	}
	if len(sender.sent) != 1 || len(sender.sent[0].BCC) != 1 || sender.sent[0].BCC[0] != "owner@beanvault.coffee" {
		t.Fatalf("expected admin bcc, got %+v", sender.sent)
	}
}

func TestSendCombinedReceiptAttachesGeneratedPDF(t *testing.T) {
	sender := &fakeSender{}
	renderer := &fakeRenderer{doc: []byte("%PDF-receipt")}
	svc := newTestService(t, sender, testMailConfig(), renderer, nil)

	err := svc.SendCombinedReceipt(context.Background(), ReceiptEmailInput{
		ToEmail:       "anna@example.com",
		ToName:        "Anna Petrova",
		InvoiceNumber: "INV-0042",
		Currency:      enums.CurrencyEUR,
		Lines:         twoLines(),
		PaidAt:        time.Date(2025, time.July, 4, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("SendCombinedReceipt error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.sent))
	}

	msg := sender.sent[0]
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Filename != "receipt-INV-0042.pdf" || att.ContentType != "application/pdf" {
		t.Errorf("unexpected attachment %q %q", att.Filename, att.ContentType)
	}
	if string(att.Data) != "%PDF-receipt" {
		t.Error("attachment should carry the rendered document")
	}
	if !strings.Contains(msg.HTML, "INV-0042") || !strings.Contains(msg.HTML, "€46.00") {
		t.Error("body should show the receipt number and summed total")
	}
}

func TestSendCombinedReceiptSurvivesRenderFailure(t *testing.T) {
	sender := &fakeSender{}
	renderer := &fakeRenderer{err: errors.New("chrome crashed")}
	svc := newTestService(t, sender, testMailConfig(), renderer, nil)

	err := svc.SendCombinedReceipt(context.Background(), ReceiptEmailInput{
		ToEmail:       "anna@example.com",
		InvoiceNumber: "INV-0043",
		Currency:      enums.CurrencyEUR,
		Lines:         twoLines(),
	})
	if err != nil {
		t.Fatalf("render failure must not block the send: %v", err)
	}
	if len(sender.sent) != 1 || len(sender.sent[0].Attachments) != 0 {
		t.Fatalf("expected 1 message without attachments, got %+v", sender.sent)
	}
}

func TestSendCombinedReceiptFetchesInvoiceDocument(t *testing.T) {
	cfg := testMailConfig()
	cfg.AttachStripeInvoice = true
	sender := &fakeSender{}
	fetcher := &fakeFetcher{doc: []byte("%PDF-invoice")}
	svc := newTestService(t, sender, cfg, &fakeRenderer{}, fetcher)

	err := svc.SendCombinedReceipt(context.Background(), ReceiptEmailInput{
		ToEmail:       "anna@example.com",
		InvoiceNumber: "INV-0044",
		Currency:      enums.CurrencyEUR,
		Lines:         twoLines(),
		InvoicePDFURL: "https://pay.example.com/invoice.pdf",
	})
	if err != nil {
		t.Fatalf("SendCombinedReceipt error: %v", err)
	}
	if len(fetcher.urls) != 1 || fetcher.urls[0] != "https://pay.example.com/invoice.pdf" {
		t.Fatalf("expected one fetch of the invoice url, got %v", fetcher.urls)
	}
	if len(sender.sent) != 1 || len(sender.sent[0].Attachments) != 2 {
		t.Fatalf("expected receipt plus invoice attachments, got %+v", sender.sent)
	}
	if sender.sent[0].Attachments[1].Filename != "invoice-INV-0044.pdf" {
		t.Errorf("unexpected invoice filename %q", sender.sent[0].Attachments[1].Filename)
	}
}

func TestSendCombinedReceiptSkipsInvoiceWhenFlagOff(t *testing.T) {
	sender := &fakeSender{}
	fetcher := &fakeFetcher{doc: []byte("%PDF-invoice")}
	svc := newTestService(t, sender, testMailConfig(), &fakeRenderer{}, fetcher)

	err := svc.SendCombinedReceipt(context.Background(), ReceiptEmailInput{
		ToEmail:       "anna@example.com",
		InvoiceNumber: "INV-0045",
		Currency:      enums.CurrencyEUR,
		Lines:         twoLines(),
		InvoicePDFURL: "https://pay.example.com/invoice.pdf",
	})
	if err != nil {
		t.Fatalf("SendCombinedReceipt error: %v", err)
	}
	if len(fetcher.urls) != 0 {
		t.Fatal("invoice document must not be fetched when the flag is off")
	}
	if len(sender.sent[0].Attachments) != 1 {
		t.Fatalf("expected only the generated receipt, got %d attachments", len(sender.sent[0].Attachments))
	}
}

func TestSendCombinedReceiptSurvivesFetchFailure(t *testing.T) {
	cfg := testMailConfig()
	cfg.AttachStripeInvoice = true
	sender := &fakeSender{}
	fetcher := &fakeFetcher{err: errors.New("504 from processor")}
	svc := newTestService(t, sender, cfg, &fakeRenderer{}, fetcher)

	err := svc.SendCombinedReceipt(context.Background(), ReceiptEmailInput{
		ToEmail:       "anna@example.com",
		InvoiceNumber: "INV-0046",
		Currency:      enums.CurrencyEUR,
		Lines:         twoLines(),
		InvoicePDFURL: "https://pay.example.com/invoice.pdf",
	})
	if err != nil {
		t.Fatalf("fetch failure must not block the send: %v", err)
	}
	if len(sender.sent) != 1 || len(sender.sent[0].Attachments) != 1 {
		t.Fatalf("expected message with only the generated receipt, got %+v", sender.sent)
	}
}

func TestSendCancellationPair(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, sender, testMailConfig(), nil, nil)

	err := svc.SendCancellationPair(context.Background(), CancellationEmailInput{
		ToEmail:    "anna@example.com",
		ToName:     "Anna Petrova",
		Plan:       "roasters-club-monthly",
		CustomerID: "cus_123",
	})
	if err != nil {
		t.Fatalf("SendCancellationPair error: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected customer and admin mails, got %d", len(sender.sent))
	}
	if sender.sent[0].ToEmail != "anna@example.com" {
		t.Errorf("first mail should go to the customer, got %q", sender.sent[0].ToEmail)
	}
	if sender.sent[1].ToEmail != "owner@beanvault.coffee" {
		t.Errorf("second mail should go to the admin, got %q", sender.sent[1].ToEmail)
	}
	if !strings.Contains(sender.sent[0].HTML, "roasters-club-monthly") {
		t.Error("customer mail should name the plan")
	}
	if !strings.Contains(sender.sent[1].HTML, "cus_123") {
		t.Error("admin mail should name the customer id")
	}
}

func TestSendCancellationPairWithoutCustomerEmail(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, sender, testMailConfig(), nil, nil)

	err := svc.SendCancellationPair(context.Background(), CancellationEmailInput{
		CustomerID: "cus_456",
	})
	if err != nil {
		t.Fatalf("SendCancellationPair error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].ToEmail != "owner@beanvault.coffee" {
		t.Fatalf("expected only the admin mail, got %+v", sender.sent)
	}
}

func TestSendCancellationPairCustomerFailureStillMailsAdmin(t *testing.T) {
	sendErr := errors.New("provider down")
	sender := &fakeSender{
		sendFn: func(ctx context.Context, msg mail.Message) error {
			if msg.ToEmail == "anna@example.com" {
				return sendErr
			}
			return nil
		},
	}
	svc := newTestService(t, sender, testMailConfig(), nil, nil)

	err := svc.SendCancellationPair(context.Background(), CancellationEmailInput{
		ToEmail:    "anna@example.com",
		CustomerID: "cus_789",
	})
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected customer send error to surface, got %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].ToEmail != "owner@beanvault.coffee" {
		t.Fatalf("admin mail should still go out, got %+v", sender.sent)
	}
}

func TestSendAdminOrderAlert(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(t, sender, testMailConfig(), nil, nil)

	err := svc.SendAdminOrderAlert(context.Background(), OrderEmailInput{
		ToEmail:      "anna@example.com",
		ToName:       "Anna Petrova",
		Reference:    "cs_admin_1",
		Mode:         enums.CheckoutModeSubscription,
		Plan:         "roasters-club-monthly",
		Currency:     enums.CurrencyEUR,
		Lines:        twoLines(),
		ShippingAddr: "Bergmannstr. 5, 10961 Berlin, DE",
	})
	if err != nil {
		t.Fatalf("SendAdminOrderAlert error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.sent))
	}

	msg := sender.sent[0]
	if msg.ToEmail != "owner@beanvault.coffee" {
		t.Errorf("admin alert must go to the admin address, got %q", msg.ToEmail)
	}
	if !strings.Contains(msg.Subject, "€46.00") {
		t.Errorf("subject should carry the order total, got %q", msg.Subject)
	}
	for _, want := range []string{"Anna Petrova", "anna@example.com", "cs_admin_1", "Bergmannstr. 5", "roasters-club-monthly"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestNewServiceValidation(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "mailer-test"})

	if _, err := NewService(ServiceParams{Logger: logg, Config: testMailConfig()}); err == nil {
		t.Fatal("expected error for missing sender")
	}
	if _, err := NewService(ServiceParams{Sender: &fakeSender{}, Config: testMailConfig()}); err == nil {
		t.Fatal("expected error for missing logger")
	}
	if _, err := NewService(ServiceParams{Sender: &fakeSender{}, Logger: logg}); err == nil {
		t.Fatal("expected error for missing admin email")
	}
}
