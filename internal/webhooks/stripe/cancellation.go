package stripewebhook

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/beanvault/storefront-backend/internal/ledger"
	"github.com/beanvault/storefront-backend/internal/mailer"
	"github.com/beanvault/storefront-backend/pkg/db/models"
	"github.com/beanvault/storefront-backend/pkg/enums"
	pkgerrors "github.com/beanvault/storefront-backend/pkg/errors"
)

// Cancellations arrive in two shapes, sometimes both for the same
// subscription: a subscription.deleted event and a subscription.updated event
// whose status flipped to canceled. Both converge on reconcileCancellation,
// which is safe to run any number of times and sends the mail pair exactly
// once thanks to the subscription-level claim.

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	sub, err := decodeSubscriptionPayload(event.Data.Raw)
	if err != nil {
		return err
	}
	if sub.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing")
	}
	return s.reconcileCancellation(ctx, string(event.Type), sub)
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, event *stripe.Event) error {
	sub, err := decodeSubscriptionPayload(event.Data.Raw)
	if err != nil {
		return err
	}
	if sub.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing")
	}

	canceled := string(enums.SubscriptionStatusCanceled)
	if sub.Status == canceled || previousStatus(event) == canceled {
		return s.reconcileCancellation(ctx, string(event.Type), sub)
	}
	return s.syncSubscriberStatus(ctx, sub)
}

// previousStatus digs the prior status out of the update event's diff.
func previousStatus(event *stripe.Event) string {
	if event.Data == nil || event.Data.PreviousAttributes == nil {
		return ""
	}
	if status, ok := event.Data.PreviousAttributes["status"].(string); ok {
		return status
	}
	return ""
}

// syncSubscriberStatus keeps the stored subscriber row current on routine
// subscription updates (past_due, paused and friends). The merge-style upsert
// means empty payload fields never erase stored contact details.
func (s *Service) syncSubscriberStatus(ctx context.Context, sub *subscriptionPayload) error {
	if sub.Customer == "" {
		s.logg.Warn(ctx, "subscription update without customer; nothing to sync")
		return nil
	}
	ctx = s.logg.WithCustomerID(ctx, sub.Customer)

	record := &models.Subscriber{
		CustomerID:     sub.Customer,
		SubscriptionID: sub.ID,
		Plan:           sub.planName(),
	}
	if status, err := enums.ParseSubscriptionStatus(sub.Status); err == nil {
		record.Status = status
	} else if sub.Status != "" {
		s.logg.Warn(ctx, fmt.Sprintf("unrecognized subscription status %q; keeping stored status", sub.Status))
	}

	if err := s.subscribers.Upsert(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync subscriber")
	}
	s.logg.Info(ctx, "subscriber status synced")
	return nil
}

func (s *Service) reconcileCancellation(ctx context.Context, eventType string, sub *subscriptionPayload) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"subscription_id": sub.ID,
		"customer_id":     sub.Customer,
	})

	// Status write comes first and is unconditional: repeating it is
	// harmless, and a mail failure later must not leave the row active.
	touched, err := s.subscribers.MarkCanceled(ctx, sub.ID, sub.Customer)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark subscriber canceled")
	}
	if touched == 0 {
		s.logg.Warn(ctx, "cancellation for unknown subscriber; sending mails anyway")
	}

	result, claimErr := s.ledger.ClaimCancellation(ctx, sub.ID)
	switch result {
	case ledger.ClaimDuplicate:
		s.metrics.IncDuplicate(eventType)
		s.logg.Info(ctx, "cancellation mails already sent; acknowledging")
		return nil
	case ledger.ClaimUnavailable:
		s.metrics.IncLedgerUnavailable("cancellation")
		s.logg.Error(ctx, "cancellation claim unavailable; proceeding without dedup", claimErr)
	}

	identity, plan := s.cancellationContact(ctx, sub)

	return s.mailer.SendCancellationPair(ctx, mailer.CancellationEmailInput{
		ToEmail:    identity.Email,
		ToName:     identity.Name,
		Plan:       plan,
		CustomerID: sub.Customer,
	})
}

// cancellationContact resolves who to notify. Deleted payloads are sparse, so
// the customer object is consulted first and the stored subscriber row fills
// whatever is still missing.
func (s *Service) cancellationContact(ctx context.Context, sub *subscriptionPayload) (customerIdentity, string) {
	var identity customerIdentity
	plan := sub.planName()

	if sub.Customer != "" {
		if cust, err := s.processor.GetCustomer(ctx, sub.Customer); err != nil {
			s.logg.Warn(ctx, "customer lookup failed for cancellation mail")
		} else {
			identity = identityFromCustomer(cust)
		}
	}

	if (identity.Email == "" || plan == "") && sub.Customer != "" {
		if stored, err := s.subscribers.FindByCustomerID(ctx, sub.Customer); err == nil && stored != nil {
			if identity.Email == "" {
				identity.Email = stored.Email
			}
			if identity.Name == "" {
				identity.Name = stored.Name
			}
			if plan == "" {
				plan = stored.Plan
			}
		}
	}
	return identity, plan
}
