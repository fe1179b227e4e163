package orders

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beanvault/storefront-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// UpsertOrder writes the order keyed by session_id. A replayed delivery
// carries the same snapshot, so the conflict path simply overwrites every
// mutable column with identical values.
func (r *repository) UpsertOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"email", "name", "phone", "mode", "status", "total_cents",
				"currency", "metadata", "shipping", "customer_details", "updated_at",
			}),
		}).
		Create(order).Error
}

// InsertItems appends line items, silently dropping rows the full-line unique
// index already holds. A replay inserts nothing; a retry after a partial
// failure inserts only what is missing.
func (r *repository) InsertItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&items).Error
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindItemsBySessionID(ctx context.Context, sessionID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("description ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
