package controllers

import (
	"net/http"

	"github.com/beanvault/storefront-backend/api/responses"
	"github.com/beanvault/storefront-backend/api/validators"
	"github.com/beanvault/storefront-backend/internal/billing"
	"github.com/beanvault/storefront-backend/pkg/enums"
	pkgerrors "github.com/beanvault/storefront-backend/pkg/errors"
	"github.com/beanvault/storefront-backend/pkg/logger"
)

// CreateCheckoutSession starts a Stripe-hosted checkout for a catalog SKU and
// returns the URL the storefront redirects the shopper to.
func CreateCheckoutSession(svc *billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		var payload checkoutSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode := enums.CheckoutModePayment
		if payload.Mode != "" {
			parsed, err := enums.ParseCheckoutMode(payload.Mode)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout mode"))
				return
			}
			mode = parsed
		}

		sess, err := svc.StartCheckout(r.Context(), billing.CheckoutInput{
			SKU:           payload.SKU,
			Quantity:      payload.Quantity,
			Mode:          mode,
			CustomerEmail: payload.CustomerEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutSessionResponse{
			SessionID: sess.ID,
			URL:       sess.URL,
		})
	}
}

type checkoutSessionRequest struct {
	SKU           string `json:"sku" validate:"required"`
	Quantity      int64  `json:"quantity" validate:"omitempty,min=1"`
	Mode          string `json:"mode" validate:"omitempty,oneof=payment subscription"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
}

type checkoutSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}
