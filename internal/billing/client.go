package billing

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	portalsession "github.com/stripe/stripe-go/v84/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"

	pkgstripe "github.com/beanvault/storefront-backend/pkg/stripe"
)

type sessionClient struct{}

// NewSessionClient adapts the shared Stripe client to the hosted-session
// surface the billing service needs. Returns nil when Stripe is not
// configured.
func NewSessionClient(api *pkgstripe.Client) SessionClient {
	if api == nil {
		return nil
	}
	return &sessionClient{}
}

func (c *sessionClient) NewPortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	params.Context = ctx
	return portalsession.New(params)
}

func (c *sessionClient) NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return checkoutsession.New(params)
}
