package orders

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/beanvault/storefront-backend/pkg/db/models"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service persists the outcome of a completed checkout.
type Service interface {
	SaveCheckout(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.Order, []models.OrderItem, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// SaveCheckout upserts the order row and its line items in one transaction.
// Safe to call any number of times with the same session snapshot.
func (s *service) SaveCheckout(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if order.SessionID == "" {
		return fmt.Errorf("order session id is required")
	}
	for i := range items {
		if items[i].SessionID == "" {
			items[i].SessionID = order.SessionID
		}
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpsertOrder(ctx, order); err != nil {
			return fmt.Errorf("upsert order %s: %w", order.SessionID, err)
		}
		if err := repo.InsertItems(ctx, items); err != nil {
			return fmt.Errorf("insert order items for %s: %w", order.SessionID, err)
		}
		return nil
	})
}

func (s *service) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, []models.OrderItem, error) {
	if sessionID == "" {
		return nil, nil, fmt.Errorf("session id is required")
	}
	order, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.repo.FindItemsBySessionID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}
