// Package types provides common type aliases and utilities.
package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// currencyPrecision maps ISO currency codes to their minor-unit exponent.
// Currencies not listed default to 2 decimal places.
var currencyPrecision = map[string]int32{
	"MXN": 2,
	"USD": 2,
	"EUR": 2,
	"JPY": 0,
}

// CurrencyPrecision returns the number of decimal places for a currency.
func CurrencyPrecision(currency string) int32 {
	if p, ok := currencyPrecision[strings.ToUpper(currency)]; ok {
		return p
	}
	return 2
}

// RoundCurrency rounds a Money value to the precision of the given currency
// using half-up rounding. All amounts that leave the ledger core are rounded
// this way exactly once.
func RoundCurrency(m Money, currency string) Money {
	return m.Round(CurrencyPrecision(currency))
}

// SumMoney adds a sequence of Money values without precision loss.
func SumMoney(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
