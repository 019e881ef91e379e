// Package tax derives monthly Input/Output PPN (Indonesian value-added tax)
// figures from invoice events. Recognition is strictly by invoice date;
// payment status never moves a document between periods.
package tax

import (
	"time"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/fx"
)

// RatePercent is the statutory PPN rate.
var RatePercent = decimal.NewFromInt(11)

// Kind separates creditable input tax from collected output tax.
type Kind string

const (
	KindInput  Kind = "input"  // import/purchase invoices
	KindOutput Kind = "output" // sales invoices
)

// Document is one tax-relevant invoice: its kind, invoice date and taxable
// base amount in the base currency.
type Document struct {
	Kind Kind            `json:"kind"`
	Date time.Time       `json:"date"`
	Base decimal.Decimal `json:"base"`
}

// PPN returns the tax amount for the document, rounded per document as it
// would appear on the tax invoice.
func (d Document) PPN() decimal.Decimal {
	return d.Base.Mul(RatePercent).Div(decimal.NewFromInt(100)).Round(fx.BasePrecision)
}

// Summary is the monthly PPN position.
type Summary struct {
	Year        int             `json:"year"`
	Month       time.Month      `json:"month"`
	InputBase   decimal.Decimal `json:"input_base"`
	OutputBase  decimal.Decimal `json:"output_base"`
	InputPPN    decimal.Decimal `json:"input_ppn"`
	OutputPPN   decimal.Decimal `json:"output_ppn"`
	// NetPayable is output minus input. Negative means refundable or
	// carried forward.
	NetPayable decimal.Decimal `json:"net_payable"`
}

// Summarize folds the documents dated within (year, month) into the monthly
// position. Documents outside the month are ignored, so callers may pass an
// unfiltered history.
func Summarize(year int, month time.Month, docs []Document) Summary {
	s := Summary{
		Year: year, Month: month,
		InputBase: decimal.Zero, OutputBase: decimal.Zero,
		InputPPN: decimal.Zero, OutputPPN: decimal.Zero,
	}
	for _, d := range docs {
		if d.Date.Year() != year || d.Date.Month() != month {
			continue
		}
		switch d.Kind {
		case KindInput:
			s.InputBase = s.InputBase.Add(d.Base)
			s.InputPPN = s.InputPPN.Add(d.PPN())
		case KindOutput:
			s.OutputBase = s.OutputBase.Add(d.Base)
			s.OutputPPN = s.OutputPPN.Add(d.PPN())
		}
	}
	s.NetPayable = s.OutputPPN.Sub(s.InputPPN)
	return s
}
