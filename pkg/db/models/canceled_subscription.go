package models

import "time"

// CanceledSubscription marks a subscription whose cancellation emails went
// out. The processor can emit both a delete event and an update-to-canceled
// event for one real cancellation; claiming this marker keeps the pair of
// goodbye emails to a single send.
type CanceledSubscription struct {
	SubscriptionID string    `gorm:"column:subscription_id;primaryKey"`
	CanceledAt     time.Time `gorm:"column:canceled_at;autoCreateTime"`
}
