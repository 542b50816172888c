package common

import (
	"math/big"
	"strings"
)

// FormatRawAmountWithDecimals renders a base-unit integer string as a decimal
// display string: ("1500000", 6) -> "1.5", ("26000", 6) -> "0.026". The
// conversion is pure string manipulation; no floats are involved. Inputs that
// are not decimal integers are returned unchanged.
func FormatRawAmountWithDecimals(raw string, decimals uint8) string {
	if raw == "" {
		return raw
	}
	if _, ok := new(big.Int).SetString(raw, 10); !ok {
		return raw
	}
	neg := strings.HasPrefix(raw, "-")
	digits := strings.TrimPrefix(raw, "-")
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
	}
	if decimals == 0 {
		if neg {
			return "-" + digits
		}
		return digits
	}

	d := int(decimals)
	if len(digits) <= d {
		digits = strings.Repeat("0", d-len(digits)+1) + digits
	}
	cut := len(digits) - d
	whole, frac := digits[:cut], digits[cut:]
	frac = strings.TrimRight(frac, "0")

	out := whole
	if frac != "" {
		out = whole + "." + frac
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

// AddAmounts sums two base-unit integer strings. When either operand is not
// numeric the first addend is returned as-is rather than failing; provider
// fee fields are not guaranteed well-formed.
func AddAmounts(a, b string) string {
	x, okA := new(big.Int).SetString(a, 10)
	y, okB := new(big.Int).SetString(b, 10)
	if !okA || !okB {
		return a
	}
	return new(big.Int).Add(x, y).String()
}

// ApplyTransferFee reduces a base-unit amount by feeBps basis points,
// rounding down. Used to quote what actually arrives after a Token-2022
// transfer fee. Invalid amounts are returned unchanged.
func ApplyTransferFee(amount string, feeBps uint16) string {
	if feeBps == 0 || feeBps > 10000 {
		return amount
	}
	x, ok := new(big.Int).SetString(amount, 10)
	if !ok || x.Sign() <= 0 {
		return amount
	}
	fee := new(big.Int).Mul(x, big.NewInt(int64(feeBps)))
	fee.Div(fee, big.NewInt(10000))
	return new(big.Int).Sub(x, fee).String()
}
