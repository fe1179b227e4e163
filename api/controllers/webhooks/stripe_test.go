package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/beanvault/storefront-backend/internal/ledger"
)

func TestStripeWebhook_VerifiedEventClaimedAndDispatched(t *testing.T) {
	payload, header := buildSignedEvent(t, "evt_100")
	service := &fakeEventService{}
	claims := &fakeEventLedger{result: ledger.ClaimAccepted}
	handler := StripeWebhook(service, &fakeSigningClient{secret: "whsec_test"}, claims, nil, nil)

	rec := postWebhook(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected handler called once, got %d", service.calls)
	}
	if service.lastID != "evt_100" {
		t.Fatalf("expected evt_100 dispatched, got %q", service.lastID)
	}
	if len(claims.claims) != 1 {
		t.Fatalf("expected one ledger claim, got %d", len(claims.claims))
	}
	if claims.claims[0].id != "evt_100" || claims.claims[0].eventType != "checkout.session.completed" {
		t.Fatalf("unexpected claim: %+v", claims.claims[0])
	}
}

func TestStripeWebhook_InvalidSignatureRejected(t *testing.T) {
	payload, _ := buildSignedEvent(t, "evt_101")
	service := &fakeEventService{}
	claims := &fakeEventLedger{result: ledger.ClaimAccepted}
	handler := StripeWebhook(service, &fakeSigningClient{secret: "whsec_test"}, claims, nil, nil)

	rec := postWebhook(handler, payload, "t=1,v1=deadbeef")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatal("handler must not run for an unverified delivery")
	}
	if len(claims.claims) != 0 {
		t.Fatal("unverified delivery must not touch the ledger")
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "SIGNATURE_INVALID" {
		t.Fatalf("expected SIGNATURE_INVALID, got %q", body.Error.Code)
	}
	if body.Error.Message != "signature verification failed" {
		t.Fatalf("signature failures must not leak detail, got %q", body.Error.Message)
	}
}

func TestStripeWebhook_MissingSignatureRejected(t *testing.T) {
	payload, _ := buildSignedEvent(t, "evt_102")
	service := &fakeEventService{}
	claims := &fakeEventLedger{result: ledger.ClaimAccepted}
	handler := StripeWebhook(service, &fakeSigningClient{secret: "whsec_test"}, claims, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", rec.Code)
	}
	if len(claims.claims) != 0 {
		t.Fatal("unverified delivery must not touch the ledger")
	}
}

func TestStripeWebhook_DuplicateAcknowledgedWithoutDispatch(t *testing.T) {
	payload, header := buildSignedEvent(t, "evt_103")
	service := &fakeEventService{}
	claims := &fakeEventLedger{result: ledger.ClaimDuplicate}
	handler := StripeWebhook(service, &fakeSigningClient{secret: "whsec_test"}, claims, nil, nil)

	rec := postWebhook(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 0 {
		t.Fatalf("duplicate must not be dispatched, call count %d", service.calls)
	}
}

func TestStripeWebhook_LedgerOutageFailsOpen(t *testing.T) {
	payload, header := buildSignedEvent(t, "evt_104")
	service := &fakeEventService{}
	claims := &fakeEventLedger{result: ledger.ClaimUnavailable, err: errors.New("connection refused")}
	handler := StripeWebhook(service, &fakeSigningClient{secret: "whsec_test"}, claims, nil, nil)

	rec := postWebhook(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on ledger outage, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("ledger outage must fail open into the handler, call count %d", service.calls)
	}
}

func TestStripeWebhook_HandlerErrorStillAcknowledged(t *testing.T) {
	payload, header := buildSignedEvent(t, "evt_105")
	service := &fakeEventService{err: errors.New("db down")}
	claims := &fakeEventLedger{result: ledger.ClaimAccepted}
	handler := StripeWebhook(service, &fakeSigningClient{secret: "whsec_test"}, claims, nil, nil)

	rec := postWebhook(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("handler errors must not trigger redelivery, got %d", rec.Code)
	}
}

func postWebhook(handler http.HandlerFunc, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func buildSignedEvent(t *testing.T, eventID string) ([]byte, string) {
	t.Helper()

	session := map[string]any{
		"id":             "cs_test_1",
		"mode":           "payment",
		"payment_status": "paid",
		"customer_email": "anna@example.com",
		"amount_total":   4600,
		"currency":       "eur",
	}
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}

	event := &stripe.Event{
		ID:         eventID,
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data: &stripe.EventData{
			Raw: raw,
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	header := buildStripeSignatureHeader(payload, "whsec_test", time.Now().Unix())
	return payload, header
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type fakeEventService struct {
	calls  int
	lastID string
	err    error
}

func (f *fakeEventService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	f.calls++
	f.lastID = event.ID
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

type claimedEvent struct {
	id        string
	eventType string
}

type fakeEventLedger struct {
	result ledger.ClaimResult
	err    error
	claims []claimedEvent
}

func (f *fakeEventLedger) ClaimEvent(ctx context.Context, eventID, eventType string) (ledger.ClaimResult, error) {
	f.claims = append(f.claims, claimedEvent{id: eventID, eventType: eventType})
	return f.result, f.err
}
