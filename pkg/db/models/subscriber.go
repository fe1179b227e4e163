package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/beanvault/storefront-backend/pkg/enums"
)

// Subscriber persists the customer behind a recurring coffee subscription,
// keyed by the processor customer ID. Partial event payloads must never blank
// out contact details we already hold, so upserts merge column by column.
type Subscriber struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     string                   `gorm:"column:customer_id;not null;unique"`
	SubscriptionID string                   `gorm:"column:subscription_id;not null;default:''"`
	Email          string                   `gorm:"column:email;not null;default:''"`
	Name           string                   `gorm:"column:name;not null;default:''"`
	Phone          string                   `gorm:"column:phone;not null;default:''"`
	Plan           string                   `gorm:"column:plan;not null;default:''"`
	Status         enums.SubscriptionStatus `gorm:"column:status;not null;default:'active'"`
	Address        string                   `gorm:"column:address;not null;default:''"`
	City           string                   `gorm:"column:city;not null;default:''"`
	Postal         string                   `gorm:"column:postal;not null;default:''"`
	Country        string                   `gorm:"column:country;not null;default:''"`
	Meta           json.RawMessage          `gorm:"column:meta;type:jsonb"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
