package controllers

import (
	"net/http"

	"github.com/beanvault/storefront-backend/api/responses"
	"github.com/beanvault/storefront-backend/internal/billing"
	pkgerrors "github.com/beanvault/storefront-backend/pkg/errors"
	"github.com/beanvault/storefront-backend/pkg/logger"
)

// BillingPortalLink sends the shopper to a Stripe-hosted billing portal
// session. The optional return query parameter overrides where the portal
// sends them back to.
func BillingPortalLink(svc *billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		customerID := r.URL.Query().Get("customer_id")
		if customerID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id query parameter is required"))
			return
		}

		url, err := svc.PortalLink(r.Context(), customerID, r.URL.Query().Get("return"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}
