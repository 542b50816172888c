package common

import (
	"math/big"
	"testing"
)

func TestFormatRawAmountWithDecimals(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals uint8
		want     string
	}{
		{"simple fraction", "1500000", 6, "1.5"},
		{"leading zero fraction", "26000", 6, "0.026"},
		{"whole number", "3000000", 6, "3"},
		{"sub one", "1", 9, "0.000000001"},
		{"zero", "0", 6, "0"},
		{"zero decimals", "1500000", 0, "1500000"},
		{"trailing zeros trimmed", "1200000000", 9, "1.2"},
		{"negative", "-1500000", 6, "-1.5"},
		{"non numeric passthrough", "abc", 6, "abc"},
		{"empty passthrough", "", 6, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatRawAmountWithDecimals(tt.raw, tt.decimals)
			if got != tt.want {
				t.Errorf("FormatRawAmountWithDecimals(%q, %d) = %q, want %q", tt.raw, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestAddAmounts(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"both numeric", "1000", "500", "1500"},
		{"second not numeric", "1000", "n/a", "1000"},
		{"first not numeric", "n/a", "500", "n/a"},
		{"large values", "18446744073709551615", "1", "18446744073709551616"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddAmounts(tt.a, tt.b); got != tt.want {
				t.Errorf("AddAmounts(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestApplyTransferFee(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		feeBps uint16
		want   string
	}{
		{"one percent", "1000000", 100, "990000"},
		{"rounds down", "999", 100, "990"},
		{"zero bps unchanged", "1000000", 0, "1000000"},
		{"over max unchanged", "1000000", 10001, "1000000"},
		{"full fee", "1000000", 10000, "0"},
		{"invalid unchanged", "abc", 100, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyTransferFee(tt.amount, tt.feeBps); got != tt.want {
				t.Errorf("ApplyTransferFee(%q, %d) = %q, want %q", tt.amount, tt.feeBps, got, tt.want)
			}
		})
	}
}

// The fee-adjusted amount must never exceed the input for any valid bps.
func TestApplyTransferFeeMonotonic(t *testing.T) {
	amount := "123456789"
	base, _ := new(big.Int).SetString(amount, 10)
	for _, bps := range []uint16{1, 30, 100, 2500, 9999, 10000} {
		out, ok := new(big.Int).SetString(ApplyTransferFee(amount, bps), 10)
		if !ok {
			t.Fatalf("bps %d produced non-numeric output", bps)
		}
		if out.Cmp(base) > 0 {
			t.Errorf("bps %d: adjusted %s exceeds input %s", bps, out, base)
		}
		if out.Sign() < 0 {
			t.Errorf("bps %d: adjusted amount went negative", bps)
		}
	}
}
