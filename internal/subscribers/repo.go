package subscribers

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beanvault/storefront-backend/pkg/db/models"
	"github.com/beanvault/storefront-backend/pkg/enums"
)

// Repository persists subscribers keyed by processor customer ID.
//
// Events about one customer arrive in no particular order and carry partial
// snapshots, so Upsert merges column by column: an empty incoming value never
// blanks out a value already on file.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, sub *models.Subscriber) error
	MarkCanceled(ctx context.Context, subscriptionID, customerID string) (int64, error)
	FindByCustomerID(ctx context.Context, customerID string) (*models.Subscriber, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a subscribers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// mergeColumns are the columns Upsert merges on conflict. Each keeps the
// stored value whenever the incoming one is empty.
var mergeColumns = []string{
	"subscription_id", "email", "name", "phone", "plan", "status",
	"address", "city", "postal", "country",
}

func (r *repository) Upsert(ctx context.Context, sub *models.Subscriber) error {
	if sub == nil {
		return fmt.Errorf("subscriber is required")
	}
	if sub.CustomerID == "" {
		return fmt.Errorf("subscriber customer id is required")
	}

	assignments := make(map[string]interface{}, len(mergeColumns)+2)
	for _, col := range mergeColumns {
		assignments[col] = gorm.Expr(
			fmt.Sprintf("COALESCE(NULLIF(excluded.%s, ''), subscribers.%s)", col, col),
		)
	}
	assignments["meta"] = gorm.Expr("COALESCE(excluded.meta, subscribers.meta)")
	assignments["updated_at"] = gorm.Expr("excluded.updated_at")

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(sub).Error
}

// MarkCanceled flips the subscriber's status to canceled. It matches on
// subscription ID first and falls back to the customer ID, since cancellation
// events do not always carry both. Returns the number of rows touched; zero
// means no subscriber was on file.
func (r *repository) MarkCanceled(ctx context.Context, subscriptionID, customerID string) (int64, error) {
	if subscriptionID == "" && customerID == "" {
		return 0, fmt.Errorf("subscription id or customer id is required")
	}

	if subscriptionID != "" {
		res := r.db.WithContext(ctx).
			Model(&models.Subscriber{}).
			Where("subscription_id = ?", subscriptionID).
			Update("status", enums.SubscriptionStatusCanceled)
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected > 0 || customerID == "" {
			return res.RowsAffected, nil
		}
	}

	res := r.db.WithContext(ctx).
		Model(&models.Subscriber{}).
		Where("customer_id = ?", customerID).
		Update("status", enums.SubscriptionStatusCanceled)
	return res.RowsAffected, res.Error
}

func (r *repository) FindByCustomerID(ctx context.Context, customerID string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
