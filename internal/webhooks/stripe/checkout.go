package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/beanvault/storefront-backend/internal/mailer"
	"github.com/beanvault/storefront-backend/pkg/db/models"
	"github.com/beanvault/storefront-backend/pkg/enums"
	pkgerrors "github.com/beanvault/storefront-backend/pkg/errors"
)

// handleCheckoutCompleted persists the order snapshot, records the subscriber
// for subscription checkouts, and sends the admin alert plus whichever
// customer mail the combine flag calls for. Replays are harmless: the order
// upsert converges on the same row and duplicate deliveries never reach this
// handler anyway.
func (s *Service) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	session, err := decodeCheckoutSession(event.Data.Raw)
	if err != nil {
		return err
	}
	if session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}

	ctx = s.logg.WithSessionID(ctx, session.ID)

	mode, err := enums.ParseCheckoutMode(session.Mode)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("unrecognized checkout mode %q; treating as one-off payment", session.Mode))
		mode = enums.CheckoutModePayment
	}

	identity := identityFromSession(session)
	if identity.Email == "" && session.Customer != "" {
		if cust, err := s.processor.GetCustomer(ctx, session.Customer); err != nil {
			s.logg.Warn(ctx, "customer lookup failed while resolving contact details")
		} else {
			identity = identity.merge(identityFromCustomer(cust))
		}
	}

	// The session payload does not carry line items; they come from the API.
	lineItems, err := s.processor.SessionLineItems(ctx, session.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list session line items")
	}

	order := s.orderFromSession(ctx, session, identity, mode)
	items := orderItemsFromSession(session, lineItems, order.Currency)
	if err := s.orders.SaveCheckout(ctx, order, items); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	var errs error
	var plan string
	if mode == enums.CheckoutModeSubscription {
		sub := s.subscriberFromCheckout(ctx, session, identity)
		plan = sub.Plan
		if err := s.subscribers.Upsert(ctx, sub); err != nil {
			errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist subscriber"))
		}
	}

	input := mailer.OrderEmailInput{
		ToEmail:      identity.Email,
		ToName:       identity.Name,
		Reference:    session.ID,
		Mode:         mode,
		Plan:         plan,
		Currency:     order.Currency,
		Lines:        emailLinesFromLineItems(lineItems),
		ShippingAddr: identity.formattedAddress(),
	}

	if err := s.mailer.SendAdminOrderAlert(ctx, input); err != nil {
		errs = multierr.Append(errs, err)
	}

	switch {
	case identity.Email == "":
		s.logg.Warn(ctx, "no customer email on session; skipping customer notification")
	case mode == enums.CheckoutModeSubscription && s.mailCfg.CombineOrderReceipt:
		// The first invoice.payment_succeeded sends the combined mail.
		s.logg.Info(ctx, "customer mail deferred to first paid invoice")
	case mode != enums.CheckoutModeSubscription && s.mailCfg.CombineOrderReceipt:
		// One-off purchases never produce an invoice event, so the combined
		// confirmation+receipt goes out right here.
		receipt := mailer.ReceiptEmailInput{
			ToEmail:       identity.Email,
			ToName:        identity.Name,
			InvoiceNumber: session.ID,
			Currency:      order.Currency,
			Lines:         input.Lines,
			PaidAt:        paidAtFromSession(session),
		}
		if err := s.mailer.SendCombinedReceipt(ctx, receipt); err != nil {
			errs = multierr.Append(errs, err)
		}
	default:
		if err := s.mailer.SendOrderConfirmation(ctx, input); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (s *Service) orderFromSession(ctx context.Context, session *checkoutSession, identity customerIdentity, mode enums.CheckoutMode) *models.Order {
	status, err := enums.ParsePaymentStatus(session.PaymentStatus)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("unrecognized payment status %q; storing as unpaid", session.PaymentStatus))
		status = enums.PaymentStatusUnpaid
	}

	order := &models.Order{
		SessionID:  session.ID,
		Email:      identity.Email,
		Name:       identity.Name,
		Phone:      identity.Phone,
		Mode:       mode,
		Status:     status,
		TotalCents: session.AmountTotal,
		Currency:   s.currencyOrRaw(ctx, session.Currency),
	}
	if len(session.Metadata) > 0 {
		order.Metadata, _ = json.Marshal(session.Metadata)
	}
	if ship := session.shipping(); ship != nil {
		order.Shipping, _ = json.Marshal(ship)
	}
	if bill := session.billing(); bill != nil {
		order.CustomerDetails, _ = json.Marshal(bill)
	}
	return order
}

func orderItemsFromSession(session *checkoutSession, lineItems []*stripe.LineItem, fallback enums.Currency) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lineItems))
	for _, li := range lineItems {
		if li == nil {
			continue
		}
		item := models.OrderItem{
			SessionID:        session.ID,
			Description:      li.Description,
			Quantity:         li.Quantity,
			AmountTotalCents: li.AmountTotal,
			Currency:         fallback,
		}
		if cur, err := enums.ParseCurrency(string(li.Currency)); err == nil {
			item.Currency = cur
		}
		if li.Price != nil {
			item.PriceID = li.Price.ID
			item.UnitAmountCents = li.Price.UnitAmount
			if li.Price.Product != nil {
				item.ProductID = li.Price.Product.ID
			}
		}
		if raw, err := json.Marshal(li); err == nil {
			item.Raw = raw
		}
		items = append(items, item)
	}
	return items
}

// subscriberFromCheckout builds the subscriber row for a subscription
// checkout. The subscription object is fetched for its plan and live status;
// if that fetch fails we still store the contact snapshot we have.
func (s *Service) subscriberFromCheckout(ctx context.Context, session *checkoutSession, identity customerIdentity) *models.Subscriber {
	sub := &models.Subscriber{
		CustomerID:     session.Customer,
		SubscriptionID: session.Subscription,
		Email:          identity.Email,
		Name:           identity.Name,
		Phone:          identity.Phone,
		Status:         enums.SubscriptionStatusActive,
		Address:        identity.street(),
		City:           identity.City,
		Postal:         identity.Postal,
		Country:        identity.Country,
	}
	if len(session.Metadata) > 0 {
		sub.Meta, _ = json.Marshal(session.Metadata)
	}

	if session.Subscription == "" {
		return sub
	}
	fetched, err := s.processor.GetSubscription(ctx, session.Subscription)
	if err != nil {
		s.logg.Warn(ctx, "subscription fetch failed; storing checkout snapshot only")
		return sub
	}
	sub.Plan = planFromSubscription(fetched)
	if status, err := enums.ParseSubscriptionStatus(string(fetched.Status)); err == nil {
		sub.Status = status
	}
	return sub
}

func planFromSubscription(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	price := sub.Items.Data[0].Price
	if price == nil {
		return ""
	}
	if price.Nickname != "" {
		return price.Nickname
	}
	if price.LookupKey != "" {
		return price.LookupKey
	}
	return price.ID
}

func emailLinesFromLineItems(lineItems []*stripe.LineItem) []mailer.EmailLine {
	lines := make([]mailer.EmailLine, 0, len(lineItems))
	for _, li := range lineItems {
		if li == nil {
			continue
		}
		lines = append(lines, mailer.EmailLine{
			Description: li.Description,
			Quantity:    li.Quantity,
			AmountCents: li.AmountTotal,
		})
	}
	return lines
}

func paidAtFromSession(session *checkoutSession) time.Time {
	if session.Created == 0 {
		return time.Time{}
	}
	return time.Unix(session.Created, 0).UTC()
}

// currencyOrRaw parses the processor currency and falls back to the raw
// lowercase code rather than guessing a supported one.
func (s *Service) currencyOrRaw(ctx context.Context, raw string) enums.Currency {
	cur, err := enums.ParseCurrency(raw)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("unsupported currency %q on event; storing as-is", raw))
		return enums.Currency(strings.ToLower(strings.TrimSpace(raw)))
	}
	return cur
}
