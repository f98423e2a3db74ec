package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testRules() SymbolRules {
	return SymbolRules{
		TickSize:    decimal.RequireFromString("0.01"),
		StepSize:    decimal.RequireFromString("0.01"),
		MinQty:      decimal.RequireFromString("0.01"),
		MinNotional: decimal.RequireFromString("10"),
	}
}

func TestQuantizePrice(t *testing.T) {
	rules := testRules()

	tests := []struct {
		raw  string
		want string
	}{
		{"100.004", "100"},
		{"100.005", "100.01"}, // half rounds up
		{"100.006", "100.01"},
		{"100.01", "100.01"},
		{"100", "100"},
	}
	for _, tt := range tests {
		got := rules.QuantizePrice(decimal.RequireFromString(tt.raw))
		require.True(t, got.Equal(decimal.RequireFromString(tt.want)),
			"QuantizePrice(%s) = %s, want %s", tt.raw, got, tt.want)
	}
}

func TestQuantizeQuantityFloors(t *testing.T) {
	rules := testRules()

	// flooring is mandatory: rounding up would overdraw the balance
	got := rules.QuantizeQuantity(decimal.RequireFromString("0.123456"))
	require.True(t, got.Equal(decimal.RequireFromString("0.12")), "got %s", got)

	got = rules.QuantizeQuantity(decimal.RequireFromString("0.129999"))
	require.True(t, got.Equal(decimal.RequireFromString("0.12")), "got %s", got)
}

func TestValidateOrder(t *testing.T) {
	rules := testRules()
	price := decimal.NewFromInt(100)

	require.NoError(t, rules.ValidateOrder(price, decimal.RequireFromString("0.5")))

	err := rules.ValidateOrder(price, decimal.Zero)
	require.ErrorIs(t, err, ErrOrderTooSmall)

	// below min qty
	err = rules.ValidateOrder(price, decimal.RequireFromString("0.001"))
	require.ErrorIs(t, err, ErrOrderTooSmall)

	// qty fine but notional 100*0.05 = 5 < 10
	err = rules.ValidateOrder(price, decimal.RequireFromString("0.05"))
	require.ErrorIs(t, err, ErrOrderTooSmall)
}

func TestQuantizeWithoutRules(t *testing.T) {
	var rules SymbolRules

	raw := decimal.RequireFromString("123.456789")
	require.True(t, rules.QuantizePrice(raw).Equal(raw))
	require.True(t, rules.QuantizeQuantity(raw).Equal(raw))
}
