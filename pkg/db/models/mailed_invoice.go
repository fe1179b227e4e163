package models

import "time"

// MailedInvoice marks an invoice whose receipt email went out. Keyed by the
// invoice ID rather than the outer event ID because the processor can wrap
// redeliveries of the same invoice in fresh event envelopes.
type MailedInvoice struct {
	InvoiceID string    `gorm:"column:invoice_id;primaryKey"`
	SentAt    time.Time `gorm:"column:sent_at;autoCreateTime"`
}
