package tax

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSummarizeMonthly(t *testing.T) {
	docs := []Document{
		{Kind: KindInput, Date: day(2024, time.March, 5), Base: dec("100000000")},
		{Kind: KindOutput, Date: day(2024, time.March, 20), Base: dec("50000000")},
		// Outside the month: ignored.
		{Kind: KindOutput, Date: day(2024, time.April, 1), Base: dec("999999")},
	}

	s := Summarize(2024, time.March, docs)
	assert.True(t, s.InputPPN.Equal(dec("11000000")), "input %s", s.InputPPN)
	assert.True(t, s.OutputPPN.Equal(dec("5500000")), "output %s", s.OutputPPN)
	assert.True(t, s.NetPayable.Equal(dec("-5500000")), "net %s", s.NetPayable)
}

func TestSummarizeEmptyMonth(t *testing.T) {
	s := Summarize(2024, time.May, nil)
	assert.True(t, s.InputPPN.IsZero())
	assert.True(t, s.OutputPPN.IsZero())
	assert.True(t, s.NetPayable.IsZero())
}

func TestDocumentPPNRoundsPerInvoice(t *testing.T) {
	d := Document{Kind: KindOutput, Date: day(2024, time.March, 1), Base: dec("101")}
	assert.Equal(t, "11.11", d.PPN().StringFixed(2))
}
