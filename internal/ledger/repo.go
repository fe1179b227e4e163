package ledger

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beanvault/storefront-backend/pkg/db/models"
)

// Repository persists the durable markers that keep webhook side effects
// single-shot: one row per processed event, per mailed invoice, and per
// announced cancellation. Concurrent inserts race freely; the primary key
// decides the winner.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertProcessedEvent(ctx context.Context, eventID, eventType string) (bool, error)
	InsertMailedInvoice(ctx context.Context, invoiceID string) (bool, error)
	InsertCanceledSubscription(ctx context.Context, subscriptionID string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// InsertProcessedEvent records the marker for a delivered event. It returns
// true when this call inserted the row and false when an earlier delivery
// already holds it.
func (r *repository) InsertProcessedEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ProcessedEvent{EventID: eventID, EventType: eventType})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// InsertMailedInvoice records that the receipt mail for an invoice went out.
// Deliveries of distinct events carrying the same invoice collapse onto this
// one row.
func (r *repository) InsertMailedInvoice(ctx context.Context, invoiceID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.MailedInvoice{InvoiceID: invoiceID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// InsertCanceledSubscription records that the cancellation mails for a
// subscription went out, regardless of which event shape announced it.
func (r *repository) InsertCanceledSubscription(ctx context.Context, subscriptionID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CanceledSubscription{SubscriptionID: subscriptionID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
