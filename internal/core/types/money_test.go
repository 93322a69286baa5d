package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrencyPrecision(t *testing.T) {
	assert.Equal(t, int32(2), CurrencyPrecision("MXN"))
	assert.Equal(t, int32(2), CurrencyPrecision("usd"))
	assert.Equal(t, int32(0), CurrencyPrecision("JPY"))
	// Unknown currencies fall back to 2 decimals.
	assert.Equal(t, int32(2), CurrencyPrecision("XYZ"))
}

func TestRoundCurrency(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		currency string
		want     string
	}{
		{"half up", "10.005", "MXN", "10.01"},
		{"down", "10.004", "MXN", "10"},
		{"already exact", "10.01", "MXN", "10.01"},
		{"zero decimals", "100.5", "JPY", "101"},
		{"negative half up", "-10.005", "MXN", "-10.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundCurrency(MustMoney(tt.in), tt.currency)
			assert.True(t, got.Equal(MustMoney(tt.want)),
				"want %s, got %s", tt.want, got)
		})
	}
}

func TestSumMoneyExact(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3, never 0.30000000000000004.
	sum := SumMoney(MustMoney("0.1"), MustMoney("0.2"))
	assert.True(t, sum.Equal(MustMoney("0.3")))

	sum = SumMoney(MustMoney("630.0063"), MustMoney("50.0005"), MustMoney("320.0032"))
	assert.True(t, sum.Equal(MustMoney("1000.01")))
}
