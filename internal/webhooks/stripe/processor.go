package stripewebhook

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/invoice"
	"github.com/stripe/stripe-go/v84/subscription"

	pkgstripe "github.com/beanvault/storefront-backend/pkg/stripe"
)

// ProcessorClient exposes the subset of payment-processor reads the webhook
// handlers need. Webhook payloads are treated as notifications; anything
// authoritative (line items, customer contact, invoice documents) is fetched
// through this interface so tests can swap it out.
type ProcessorClient interface {
	SessionLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error)
	GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	GetInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error)
}

type processorClientWrapper struct{}

// NewProcessorClient wraps the configured Stripe client behind ProcessorClient.
func NewProcessorClient(api *pkgstripe.Client) ProcessorClient {
	if api == nil {
		return nil
	}
	return &processorClientWrapper{}
}

func (w *processorClientWrapper) SessionLineItems(ctx context.Context, sessionID string) ([]*stripe.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx

	var items []*stripe.LineItem
	iter := session.ListLineItems(params)
	for iter.Next() {
		items = append(items, iter.LineItem())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (w *processorClientWrapper) GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	return customer.Get(customerID, params)
}

func (w *processorClientWrapper) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return subscription.Get(subscriptionID, params)
}

func (w *processorClientWrapper) GetInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx
	return invoice.Get(invoiceID, params)
}
