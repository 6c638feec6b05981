package tokens

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleContext() Context {
	return Context{
		BranchName: "Main",
		ListRef:    "S-100",
		Date:       "01/02/2026 10:00",
		Cashier:    "amal",
		Customer:   "walk-in",
		Subtotal:   Money(decimal.RequireFromString("12.5")),
		Discount:   Money(decimal.Zero),
		GrandTotal: Money(decimal.RequireFromString("12.5")),
	}
}

func TestSubstituteAllTokens(t *testing.T) {
	text := strings.Join(Tokens(), "|") + "|{{foo}}"
	got := Substitute(text, sampleContext())
	require.Equal(t, "S-100|01/02/2026 10:00|amal|walk-in|Main|12.50|0.00|12.50|{{foo}}", got)
}

func TestSubstituteRepeatedAndAdjacent(t *testing.T) {
	got := Substitute("{{list_ref}}{{list_ref}} {{ list_ref }} {{", sampleContext())
	require.Equal(t, "S-100S-100 {{ list_ref }} {{", got)
}

func TestSubstituteDoesNotRescanValues(t *testing.T) {
	ctx := Context{Customer: "{{branch_name}}", BranchName: "X"}
	require.Equal(t, "{{branch_name}}/X", Substitute("{{customer}}/{{branch_name}}", ctx))
}

func TestMissingNumbersFormatZero(t *testing.T) {
	got := Substitute("{{subtotal}} {{discount}} {{grand_total}} [{{cashier}}]", Context{})
	require.Equal(t, "0.00 0.00 0.00 []", got)
}

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "12.50", FormatMoney(Money(decimal.RequireFromString("12.5"))))
	require.Equal(t, "0.00", FormatMoney(nil))
	require.Equal(t, "3.33", FormatMoney(Money(decimal.NewFromInt(10).Div(decimal.NewFromInt(3)))))
}

func TestKnown(t *testing.T) {
	require.True(t, Known(GrandTotal))
	require.False(t, Known("{{total}}"))
	require.Len(t, Tokens(), 8)
}
