package enums

import "fmt"

// CheckoutMode distinguishes one-off purchases from subscription-initiating sessions.
type CheckoutMode string

const (
	CheckoutModePayment      CheckoutMode = "payment"
	CheckoutModeSubscription CheckoutMode = "subscription"
	CheckoutModeSetup        CheckoutMode = "setup"
)

var validCheckoutModes = []CheckoutMode{
	CheckoutModePayment,
	CheckoutModeSubscription,
	CheckoutModeSetup,
}

// String implements fmt.Stringer.
func (m CheckoutMode) String() string {
	return string(m)
}

// IsValid reports whether the mode is recognized.
func (m CheckoutMode) IsValid() bool {
	for _, candidate := range validCheckoutModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseCheckoutMode converts raw input into a CheckoutMode.
func ParseCheckoutMode(value string) (CheckoutMode, error) {
	for _, candidate := range validCheckoutModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout mode %q", value)
}
