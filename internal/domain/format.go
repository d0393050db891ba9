package domain

import "github.com/shopspring/decimal"

// currencySymbols maps well-known currency codes to their display symbols.
// Codes without a symbol fall back to the code itself.
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// FormatAmount formats a monetary amount for display, e.g. "$100.00" or
// "CAD 25.50". Display-only: the wire format always carries raw numbers.
func FormatAmount(amount decimal.Decimal, currency string) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		return currency + " " + amount.StringFixed(2)
	}
	return symbol + amount.StringFixed(2)
}
