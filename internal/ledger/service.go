package ledger

import (
	"context"
	"fmt"
)

// ClaimResult reports the outcome of a dedup claim.
type ClaimResult int

const (
	// ClaimAccepted means this caller won the marker and must perform the
	// side effect.
	ClaimAccepted ClaimResult = iota
	// ClaimDuplicate means an earlier caller already holds the marker.
	ClaimDuplicate
	// ClaimUnavailable means the ledger could not answer. The marker was not
	// durably recorded; callers decide whether to proceed anyway.
	ClaimUnavailable
)

func (c ClaimResult) String() string {
	switch c {
	case ClaimAccepted:
		return "accepted"
	case ClaimDuplicate:
		return "duplicate"
	case ClaimUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Service hands out at-most-one claims over webhook side effects. Each claim
// is keyed on a different identity: events on the delivery's event ID,
// receipt mails on the invoice ID, cancellation mails on the subscription ID.
type Service interface {
	ClaimEvent(ctx context.Context, eventID, eventType string) (ClaimResult, error)
	ClaimInvoice(ctx context.Context, invoiceID string) (ClaimResult, error)
	ClaimCancellation(ctx context.Context, subscriptionID string) (ClaimResult, error)
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ClaimEvent(ctx context.Context, eventID, eventType string) (ClaimResult, error) {
	if eventID == "" {
		return ClaimUnavailable, fmt.Errorf("event id is required")
	}
	return toResult(s.repo.InsertProcessedEvent(ctx, eventID, eventType))
}

func (s *service) ClaimInvoice(ctx context.Context, invoiceID string) (ClaimResult, error) {
	if invoiceID == "" {
		return ClaimUnavailable, fmt.Errorf("invoice id is required")
	}
	return toResult(s.repo.InsertMailedInvoice(ctx, invoiceID))
}

func (s *service) ClaimCancellation(ctx context.Context, subscriptionID string) (ClaimResult, error) {
	if subscriptionID == "" {
		return ClaimUnavailable, fmt.Errorf("subscription id is required")
	}
	return toResult(s.repo.InsertCanceledSubscription(ctx, subscriptionID))
}

func toResult(inserted bool, err error) (ClaimResult, error) {
	if err != nil {
		return ClaimUnavailable, err
	}
	if !inserted {
		return ClaimDuplicate, nil
	}
	return ClaimAccepted, nil
}
