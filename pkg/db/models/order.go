package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/beanvault/storefront-backend/pkg/enums"
)

// Order persists one completed checkout session. Upserts are keyed by
// session_id and overwrite every column: a session only ever completes once,
// so the latest delivery always carries the authoritative snapshot.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID       string              `gorm:"column:session_id;not null;unique"`
	Email           string              `gorm:"column:email;not null"`
	Name            string              `gorm:"column:name;not null;default:''"`
	Phone           string              `gorm:"column:phone;not null;default:''"`
	Mode            enums.CheckoutMode  `gorm:"column:mode;not null;default:'payment'"`
	Status          enums.PaymentStatus `gorm:"column:status;not null;default:'unpaid'"`
	TotalCents      int64               `gorm:"column:total_cents;not null"`
	Currency        enums.Currency      `gorm:"column:currency;not null"`
	Metadata        json.RawMessage     `gorm:"column:metadata;type:jsonb"`
	Shipping        json.RawMessage     `gorm:"column:shipping;type:jsonb"`
	CustomerDetails json.RawMessage     `gorm:"column:customer_details;type:jsonb"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
