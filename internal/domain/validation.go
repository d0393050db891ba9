package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Rules holds the configurable validation limits and allow-lists applied to
// every charge request. All checks are pure predicates: invalid input is a
// normal false result, never an error.
type Rules struct {
	MaxAmount      decimal.Decimal     // Upper bound for a single charge
	Currencies     map[string]struct{} // Allow-listed ISO 4217 codes
	PaymentMethods map[string]struct{} // Allow-listed payment method tags
}

// DefaultMaxAmount is the charge ceiling used when no override is configured.
const DefaultMaxAmount = 1_000_000

// DefaultCurrencies is the default currency allow-list.
var DefaultCurrencies = []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD"}

// DefaultPaymentMethods is the default payment method allow-list.
var DefaultPaymentMethods = []string{"card", "bank_transfer", "paypal", "apple_pay", "google_pay"}

// DefaultRules returns the validation rules with default limits.
func DefaultRules() Rules {
	return NewRules(decimal.NewFromInt(DefaultMaxAmount), DefaultCurrencies, DefaultPaymentMethods)
}

// NewRules builds Rules from a max amount and allow-list slices.
func NewRules(maxAmount decimal.Decimal, currencies, methods []string) Rules {
	r := Rules{
		MaxAmount:      maxAmount,
		Currencies:     make(map[string]struct{}, len(currencies)),
		PaymentMethods: make(map[string]struct{}, len(methods)),
	}
	for _, c := range currencies {
		r.Currencies[c] = struct{}{}
	}
	for _, m := range methods {
		r.PaymentMethods[m] = struct{}{}
	}
	return r
}

// ValidAmount reports whether value is a finite, non-negative amount not
// exceeding MaxAmount. Zero is valid to support zero-value test charges.
// The non-finite check must come first: decimal conversion is undefined
// for NaN and infinities.
func (r Rules) ValidAmount(value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	if value < 0 {
		return false
	}
	return !decimal.NewFromFloat(value).GreaterThan(r.MaxAmount)
}

// ValidCurrency reports whether code is allow-listed. Comparison is
// case-sensitive: "usd" is not a valid code.
func (r Rules) ValidCurrency(code string) bool {
	_, ok := r.Currencies[code]
	return ok
}

// ValidPaymentMethod reports whether method is allow-listed.
func (r Rules) ValidPaymentMethod(method string) bool {
	_, ok := r.PaymentMethods[method]
	return ok
}
