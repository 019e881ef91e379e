package landedcost

import (
	"fmt"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/fx"
)

// ChargeType discriminates the two charge variants.
type ChargeType string

const (
	ChargePercentage ChargeType = "percentage"
	ChargeFixed      ChargeType = "fixed"
)

// Charge is an import cost component: either a percentage of the converted
// base price or a fixed base-currency amount. The zero value is a fixed
// charge of zero.
type Charge struct {
	typ   ChargeType
	value decimal.Decimal
}

// Percentage builds a percentage-of-base charge (value in percent).
func Percentage(value decimal.Decimal) Charge {
	return Charge{typ: ChargePercentage, value: value}
}

// Fixed builds a fixed-amount charge in the base currency.
func Fixed(amount decimal.Decimal) Charge {
	return Charge{typ: ChargeFixed, value: amount}
}

// ParseCharge rebuilds a Charge from its persisted (type, value) pair.
func ParseCharge(typ string, value decimal.Decimal) (Charge, error) {
	switch ChargeType(typ) {
	case ChargePercentage:
		return Percentage(value), nil
	case ChargeFixed, "":
		return Fixed(value), nil
	}
	return Charge{}, fmt.Errorf("unknown charge type %q", typ)
}

// Type returns the variant tag.
func (c Charge) Type() ChargeType {
	if c.typ == "" {
		return ChargeFixed
	}
	return c.typ
}

// Value returns the raw percentage or fixed amount.
func (c Charge) Value() decimal.Decimal { return c.value }

// AmountOn resolves the charge against the converted base price, rounded to
// base-currency precision.
func (c Charge) AmountOn(base decimal.Decimal) decimal.Decimal {
	if c.Type() == ChargePercentage {
		return base.Mul(c.value).Div(decimal.NewFromInt(100)).Round(fx.BasePrecision)
	}
	return c.value.Round(fx.BasePrecision)
}
