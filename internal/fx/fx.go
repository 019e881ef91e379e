// Package fx converts foreign-currency amounts into the base currency using
// a transaction-scoped exchange rate. Conversion is a pure function; rates
// are supplied by the source document, never looked up here.
package fx

import (
	"errors"

	"github.com/shopspring/decimal"
)

// BasePrecision is the number of decimal places carried by base-currency
// amounts. Every converted amount is rounded to this precision before it
// becomes postable.
const BasePrecision = 2

var (
	ErrInvalidRate   = errors.New("exchange rate must be > 0 for a foreign-currency amount")
	ErrNegativeInput = errors.New("amount must be >= 0")
)

// Convert returns amount * rate rounded to base-currency precision.
// A zero amount converts to zero regardless of rate; a nonzero amount
// requires a positive rate.
func Convert(amount, rate decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrNegativeInput
	}
	if amount.IsZero() {
		return decimal.Zero, nil
	}
	if rate.Sign() <= 0 {
		return decimal.Zero, ErrInvalidRate
	}
	return amount.Mul(rate).Round(BasePrecision), nil
}
