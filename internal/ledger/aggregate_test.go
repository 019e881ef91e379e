package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmaledger.org/internal/journal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func line(seq uint64, date time.Time, debit, credit string) journal.LedgerLine {
	return journal.LedgerLine{
		EntryID:  "e",
		Sequence: seq,
		Date:     date,
		Debit:    dec(debit),
		Credit:   dec(credit),
	}
}

func TestAggregateCustomerStatement(t *testing.T) {
	// Opening 0, invoice debit 5,000,000, receipt credit 3,000,000.
	lines := []journal.LedgerLine{
		line(1, day(2024, time.March, 5), "5000000", "0"),
		line(2, day(2024, time.March, 20), "0", "3000000"),
	}

	rows := Aggregate(lines, decimal.Zero)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Balance.Equal(dec("5000000")))
	assert.True(t, rows[1].Balance.Equal(dec("2000000")))
	assert.Equal(t, SideDebit, rows[1].Side)
}

func TestAggregateSortsByDateThenSequence(t *testing.T) {
	lines := []journal.LedgerLine{
		line(9, day(2024, time.March, 10), "0", "400"),
		line(3, day(2024, time.March, 1), "100", "0"),
		line(7, day(2024, time.March, 10), "1000", "0"),
	}

	rows := Aggregate(lines, decimal.Zero)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].Balance.Equal(dec("100")))
	assert.True(t, rows[1].Balance.Equal(dec("1100")))
	assert.True(t, rows[2].Balance.Equal(dec("700")))
}

func TestAggregateCreditBalanceSide(t *testing.T) {
	lines := []journal.LedgerLine{
		line(1, day(2024, time.March, 5), "0", "750000"),
	}
	rows := Aggregate(lines, decimal.Zero)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Balance.Equal(dec("-750000")))
	assert.Equal(t, SideCredit, rows[0].Side)
}

func TestAggregateOpeningBalanceComposes(t *testing.T) {
	before := []journal.LedgerLine{
		line(1, day(2024, time.February, 1), "300", "0"),
		line(2, day(2024, time.February, 15), "0", "100"),
	}
	inRange := []journal.LedgerLine{
		line(3, day(2024, time.March, 1), "50", "0"),
	}

	opening := OpeningBalance(before)
	assert.True(t, opening.Equal(dec("200")))

	rows := Aggregate(inRange, opening)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Balance.Equal(dec("250")))

	// Splitting at any point equals aggregating the whole history.
	all := Aggregate(append(append([]journal.LedgerLine{}, before...), inRange...), decimal.Zero)
	assert.True(t, all[len(all)-1].Balance.Equal(rows[0].Balance))
}

func TestAggregateIsIdempotent(t *testing.T) {
	lines := []journal.LedgerLine{
		line(2, day(2024, time.March, 2), "0", "40"),
		line(1, day(2024, time.March, 1), "100", "0"),
	}
	first := Aggregate(lines, decimal.Zero)
	second := Aggregate(lines, decimal.Zero)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, first[i].Balance.Equal(second[i].Balance))
		assert.Equal(t, first[i].EntryID, second[i].EntryID)
	}
	// Input order untouched.
	assert.Equal(t, uint64(2), lines[0].Sequence)
}

func TestAggregateFinalBalanceProperty(t *testing.T) {
	lines := []journal.LedgerLine{
		line(1, day(2024, time.March, 1), "100", "0"),
		line(2, day(2024, time.March, 2), "0", "30"),
		line(3, day(2024, time.March, 3), "45", "0"),
		line(4, day(2024, time.March, 4), "0", "15"),
	}
	opening := dec("10")
	rows := Aggregate(lines, opening)

	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for _, l := range lines {
		totalDebit = totalDebit.Add(l.Debit)
		totalCredit = totalCredit.Add(l.Credit)
	}
	expect := opening.Add(totalDebit).Sub(totalCredit)
	assert.True(t, rows[len(rows)-1].Balance.Equal(expect))
}

func TestAggregateEmpty(t *testing.T) {
	rows := Aggregate(nil, decimal.Zero)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
