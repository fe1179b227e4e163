package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/beanvault/storefront-backend/pkg/db/models"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertOrder(ctx context.Context, order *models.Order) error
	InsertItems(ctx context.Context, items []models.OrderItem) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	FindItemsBySessionID(ctx context.Context, sessionID string) ([]models.OrderItem, error)
}
