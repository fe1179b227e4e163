package models

import "time"

// ProcessedEvent marks a webhook event whose side effects already ran. The
// unique insert is the claim itself; existence of a row is the sole source of
// truth for "already handled".
type ProcessedEvent struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type;not null;default:''"`
	ProcessedAt time.Time `gorm:"column:processed_at;autoCreateTime"`
}
