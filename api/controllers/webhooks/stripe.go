package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/beanvault/storefront-backend/api/responses"
	"github.com/beanvault/storefront-backend/internal/ledger"
	pkgerrors "github.com/beanvault/storefront-backend/pkg/errors"
	"github.com/beanvault/storefront-backend/pkg/logger"
	"github.com/beanvault/storefront-backend/pkg/metrics"
)

// StripeEventService consumes verified webhook events.
type StripeEventService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type signingSecretProvider interface {
	SigningSecret() string
}

type eventLedger interface {
	ClaimEvent(ctx context.Context, eventID, eventType string) (ledger.ClaimResult, error)
}

// StripeWebhook receives Stripe event deliveries: verify the signature against
// the raw body, claim the event ID in the dedup ledger, then dispatch. Only a
// signature failure earns a 400; every verified delivery is acknowledged with
// 200, including handler errors, so Stripe stops redelivering.
func StripeWebhook(svc StripeEventService, client signingSecretProvider, claims eventLedger, m *metrics.PipelineMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}
		if claims == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dedup ledger unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "verify signature"))
			return
		}

		eventType := string(event.Type)
		if logg != nil {
			ctx = logg.WithEventType(logg.WithEventID(ctx, event.ID), eventType)
		}
		m.IncReceived(eventType)

		switch result, claimErr := claims.ClaimEvent(ctx, event.ID, eventType); result {
		case ledger.ClaimDuplicate:
			m.IncDuplicate(eventType)
			if logg != nil {
				logg.Info(ctx, "event already processed, acknowledging")
			}
			responses.WriteSuccess(w, nil)
			return
		case ledger.ClaimUnavailable:
			m.IncLedgerUnavailable("event")
			if logg != nil {
				logg.Error(ctx, "dedup ledger unavailable, processing anyway", claimErr)
			}
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			m.IncHandlerFailure(eventType)
			if logg != nil {
				logg.Error(ctx, "event handler failed, acknowledging to stop redelivery", err)
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("stripe event %s processed", event.ID))
		}
		responses.WriteSuccess(w, nil)
	}
}
