package money

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNonFiniteAmount = errors.New("amount is not finite")
)

// Epsilon is the settlement tolerance: residuals at or below one cent are
// treated as zero and never emitted as settling transfers.
var Epsilon = decimal.New(1, -2)

// ParseAmount parses a user-supplied amount string into a decimal rounded to
// two places. Amounts with more than two decimal places are rejected rather
// than silently rounded, since the caller typed them.
func ParseAmount(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.Exponent() < -2 {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// FromFloat converts a float amount, rejecting NaN and infinities at the
// boundary so the settlement engine never sees a non-finite value.
func FromFloat(value float64) (decimal.Decimal, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return decimal.Zero, ErrNonFiniteAmount
	}
	return decimal.NewFromFloat(value).Round(2), nil
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// IsNegligible reports whether an amount is within the settlement epsilon of
// zero.
func IsNegligible(amount decimal.Decimal) bool {
	return amount.Abs().LessThanOrEqual(Epsilon)
}

func Format(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
