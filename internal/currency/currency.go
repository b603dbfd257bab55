package currency

import (
	"context"
	"strings"
)

// Conversion is the result of converting an amount between currencies.
type Conversion struct {
	OriginalAmount   float64 `json:"original_amount"`
	OriginalCurrency string  `json:"original_currency"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	Rate             float64 `json:"rate"`
}

// RateSource provides exchange rates between two ISO 4217 currency codes.
type RateSource interface {
	GetRate(ctx context.Context, from, to string) (float64, error)
}

// IsValidCode reports whether code looks like an ISO 4217 currency code.
func IsValidCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Normalize upper-cases and trims a currency code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
