package types

import (
	"github.com/shopspring/decimal"

	"github.com/beanvault/storefront-backend/pkg/enums"
)

// FormatAmountCents renders a minor-unit amount for customer-facing copy,
// e.g. 4600 in EUR becomes "€46.00". Amounts always come from the processor's
// line items; nothing in the storefront recomputes them.
func FormatAmountCents(cents int64, currency enums.Currency) string {
	amount := decimal.New(cents, -2)
	return currency.Symbol() + amount.StringFixed(2)
}
