package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/beanvault/storefront-backend/pkg/enums"
)

// OrderItem snapshots one line of a checkout session. Lines have no natural
// key of their own, so the uq_order_items_line index spans every value column
// and redelivered inserts of the same line are dropped silently.
type OrderItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID        string          `gorm:"column:session_id;not null;index;uniqueIndex:uq_order_items_line"`
	Description      string          `gorm:"column:description;not null;uniqueIndex:uq_order_items_line"`
	ProductID        string          `gorm:"column:product_id;not null;default:''"`
	PriceID          string          `gorm:"column:price_id;not null;default:'';uniqueIndex:uq_order_items_line"`
	Quantity         int64           `gorm:"column:quantity;not null;uniqueIndex:uq_order_items_line"`
	UnitAmountCents  int64           `gorm:"column:unit_amount_cents;not null;uniqueIndex:uq_order_items_line"`
	AmountTotalCents int64           `gorm:"column:amount_total_cents;not null;uniqueIndex:uq_order_items_line"`
	Currency         enums.Currency  `gorm:"column:currency;not null"`
	Raw              json.RawMessage `gorm:"column:raw;type:jsonb"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
