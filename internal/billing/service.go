package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/beanvault/storefront-backend/pkg/config"
	"github.com/beanvault/storefront-backend/pkg/enums"
	pkgerrors "github.com/beanvault/storefront-backend/pkg/errors"
	"github.com/beanvault/storefront-backend/pkg/logger"
)

// SessionClient creates Stripe-hosted sessions.
type SessionClient interface {
	NewPortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Client   SessionClient
	Checkout config.CheckoutConfig
	Logger   *logger.Logger
}

// Service hands the storefront over to Stripe-hosted surfaces: the billing
// portal for self-service subscription management and checkout sessions for
// new purchases.
type Service struct {
	client   SessionClient
	checkout config.CheckoutConfig
	logg     *logger.Logger
}

// NewService builds a billing service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing session client is required")
	}
	return &Service{
		client:   params.Client,
		checkout: params.Checkout,
		logg:     params.Logger,
	}, nil
}

// PortalLink creates a billing portal session for the customer and returns the
// hosted URL. An empty return URL falls back to the configured default.
func (s *Service) PortalLink(ctx context.Context, customerID, returnURL string) (string, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "customer_id is required")
	}

	params := &stripe.BillingPortalSessionParams{
		Customer: stripe.String(customerID),
	}
	if returnURL = strings.TrimSpace(returnURL); returnURL == "" {
		returnURL = s.checkout.PortalReturnURL
	}
	if returnURL != "" {
		params.ReturnURL = stripe.String(returnURL)
	}

	if s.logg != nil {
		ctx = s.logg.WithCustomerID(ctx, customerID)
	}

	sess, err := s.client.NewPortalSession(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create billing portal session")
	}
	if sess == nil || sess.URL == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "billing portal session has no url")
	}

	if s.logg != nil {
		s.logg.Info(ctx, "billing portal session created")
	}
	return sess.URL, nil
}

// CheckoutInput describes a hosted checkout request from the storefront.
type CheckoutInput struct {
	SKU           string
	Quantity      int64
	Mode          enums.CheckoutMode
	CustomerEmail string
}

// CheckoutSession is the subset of the hosted session the storefront needs to
// redirect the shopper.
type CheckoutSession struct {
	ID  string
	URL string
}

// StartCheckout resolves the SKU against the configured price table and
// creates a hosted checkout session for it.
func (s *Service) StartCheckout(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	priceID, ok := s.checkout.PriceFor(in.SKU)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown sku %q", in.SKU)).
			WithDetails(map[string]string{"sku": in.SKU})
	}

	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	mode := in.Mode
	if !mode.IsValid() {
		mode = enums.CheckoutModePayment
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(quantity),
			},
		},
		SuccessURL: stripe.String(s.checkout.SuccessURL),
		CancelURL:  stripe.String(s.checkout.CancelURL),
	}
	if email := strings.TrimSpace(in.CustomerEmail); email != "" {
		params.CustomerEmail = stripe.String(email)
	}

	sess, err := s.client.NewCheckoutSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	if sess == nil || sess.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout session has no url")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithSessionID(ctx, sess.ID), fmt.Sprintf("checkout session created for sku %s", in.SKU))
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
