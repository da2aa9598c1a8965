package minisafe

import (
	"math/big"
	"strings"
)

// ParseUnits converts a decimal amount string to *big.Int in base units.
// For example, "1.5" with 18 decimals becomes 1500000000000000000.
// Fractional digits beyond decimals are accepted only when they are zeros.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || decimals < 0 {
		return nil, ErrInvalidAmount
	}

	negative := strings.HasPrefix(amount, "-")
	if negative {
		amount = amount[1:]
	}

	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" && frac == "" {
		return nil, ErrInvalidAmount
	}
	if !isDigits(whole) || !isDigits(frac) {
		return nil, ErrInvalidAmount
	}

	if len(frac) > decimals {
		if strings.Trim(frac[decimals:], "0") != "" {
			return nil, ErrInvalidAmount
		}
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		return new(big.Int), nil
	}

	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	if negative {
		value.Neg(value)
	}
	return value, nil
}

// FormatUnits converts a *big.Int in base units to a decimal string.
// The result always has a fractional part with trailing zeros trimmed,
// so 10^18 with 18 decimals becomes "1.0" and 1234 with 0 decimals becomes "1234.0".
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0.0"
	}
	if decimals < 0 {
		decimals = 0
	}

	sign := ""
	digits := value.String()
	if value.Sign() < 0 {
		sign = "-"
		digits = digits[1:]
	}

	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}

	whole := digits[:len(digits)-decimals]
	frac := strings.TrimRight(digits[len(digits)-decimals:], "0")
	if frac == "" {
		frac = "0"
	}
	return sign + whole + "." + frac
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
