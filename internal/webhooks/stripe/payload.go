package stripewebhook

import (
	"encoding/json"

	pkgerrors "github.com/beanvault/storefront-backend/pkg/errors"
)

// Event payloads are decoded into local structs instead of the SDK's full
// object types. Webhook JSON follows the account's API version, not the SDK's,
// so we pin down only the fields this pipeline reads and tolerate everything
// else shifting shape.

type address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	State      string `json:"state"`
	Country    string `json:"country"`
}

// partyDetails covers both customer_details and shipping blocks.
type partyDetails struct {
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Phone   string   `json:"phone"`
	Address *address `json:"address"`
}

type collectedInformation struct {
	ShippingDetails *partyDetails `json:"shipping_details"`
}

type checkoutSession struct {
	ID                   string                `json:"id"`
	Mode                 string                `json:"mode"`
	Created              int64                 `json:"created"`
	Customer             string                `json:"customer"`
	Subscription         string                `json:"subscription"`
	AmountTotal          int64                 `json:"amount_total"`
	Currency             string                `json:"currency"`
	PaymentStatus        string                `json:"payment_status"`
	CustomerEmail        string                `json:"customer_email"`
	CustomerDetails      *partyDetails         `json:"customer_details"`
	ShippingDetails      *partyDetails         `json:"shipping_details"`
	CollectedInformation *collectedInformation `json:"collected_information"`
	Metadata             map[string]string     `json:"metadata"`
}

// shipping returns the shipping block regardless of which API version shape
// delivered it. Newer payloads nest it under collected_information.
func (s *checkoutSession) shipping() *partyDetails {
	if s.CollectedInformation != nil && s.CollectedInformation.ShippingDetails != nil {
		return s.CollectedInformation.ShippingDetails
	}
	return s.ShippingDetails
}

func (s *checkoutSession) billing() *partyDetails {
	return s.CustomerDetails
}

type invoiceLine struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

type invoiceLines struct {
	Data []invoiceLine `json:"data"`
}

type statusTransitions struct {
	PaidAt int64 `json:"paid_at"`
}

type subscriptionDetails struct {
	Subscription string `json:"subscription"`
}

type invoiceParent struct {
	SubscriptionDetails *subscriptionDetails `json:"subscription_details"`
}

type invoicePayload struct {
	ID                string             `json:"id"`
	Number            string             `json:"number"`
	Customer          string             `json:"customer"`
	CustomerName      string             `json:"customer_name"`
	CustomerEmail     string             `json:"customer_email"`
	CustomerPhone     string             `json:"customer_phone"`
	CustomerAddress   *address           `json:"customer_address"`
	CustomerShipping  *partyDetails      `json:"customer_shipping"`
	Subscription      string             `json:"subscription"`
	Parent            *invoiceParent     `json:"parent"`
	Total             int64              `json:"total"`
	AmountPaid        int64              `json:"amount_paid"`
	Currency          string             `json:"currency"`
	InvoicePDF        string             `json:"invoice_pdf"`
	HostedInvoiceURL  string             `json:"hosted_invoice_url"`
	StatusTransitions *statusTransitions `json:"status_transitions"`
	Lines             invoiceLines       `json:"lines"`
}

// subscriptionID works across API versions: older payloads carry a top-level
// subscription field, newer ones nest it under parent.subscription_details.
func (i *invoicePayload) subscriptionID() string {
	if i.Subscription != "" {
		return i.Subscription
	}
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil {
		return i.Parent.SubscriptionDetails.Subscription
	}
	return ""
}

func (i *invoicePayload) paidAtUnix() int64 {
	if i.StatusTransitions == nil {
		return 0
	}
	return i.StatusTransitions.PaidAt
}

type subscriptionItemPrice struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	LookupKey string `json:"lookup_key"`
	Product   string `json:"product"`
}

type subscriptionItem struct {
	Price subscriptionItemPrice `json:"price"`
}

type subscriptionItems struct {
	Data []subscriptionItem `json:"data"`
}

type subscriptionPayload struct {
	ID                string            `json:"id"`
	Customer          string            `json:"customer"`
	Status            string            `json:"status"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	Items             subscriptionItems `json:"items"`
	Metadata          map[string]string `json:"metadata"`
}

// planName picks the most human-readable identifier the price carries.
func (p *subscriptionPayload) planName() string {
	if len(p.Items.Data) == 0 {
		return ""
	}
	price := p.Items.Data[0].Price
	if price.Nickname != "" {
		return price.Nickname
	}
	if price.LookupKey != "" {
		return price.LookupKey
	}
	return price.ID
}

func decodeCheckoutSession(raw json.RawMessage) (*checkoutSession, error) {
	var session checkoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	return &session, nil
}

func decodeInvoicePayload(raw json.RawMessage) (*invoicePayload, error) {
	var inv invoicePayload
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode invoice")
	}
	return &inv, nil
}

func decodeSubscriptionPayload(raw json.RawMessage) (*subscriptionPayload, error) {
	var sub subscriptionPayload
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription")
	}
	return &sub, nil
}
