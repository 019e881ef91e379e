// Package ledger replays posted journal lines for an account or party into a
// running-balance statement. Aggregation is pure and range-composable: it
// never touches the store, so the same input always yields the same output.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/journal"
)

// Side is the display classification of a running balance.
type Side string

const (
	SideDebit  Side = "Dr"
	SideCredit Side = "Cr"
)

// SideOf labels a balance by its sign, not by the account's normal balance
// side, so customer and supplier statements read symmetrically.
func SideOf(balance decimal.Decimal) Side {
	if balance.Sign() < 0 {
		return SideCredit
	}
	return SideDebit
}

// Entry is one statement row: the posted line plus the balance after it.
type Entry struct {
	EntryID    string             `json:"entry_id"`
	Date       string             `json:"date"`
	SourceType journal.SourceType `json:"source_type"`
	SourceID   string             `json:"source_id"`
	Debit      decimal.Decimal    `json:"debit"`
	Credit     decimal.Decimal    `json:"credit"`
	Balance    decimal.Decimal    `json:"balance"`
	Side       Side               `json:"side"`
	Memo       string             `json:"memo,omitempty"`
}

const dateLayout = "2006-01-02"

// Aggregate folds lines in (date, posting order) into statement rows,
// starting from openingBalance. Positive balances are debit balances.
func Aggregate(lines []journal.LedgerLine, openingBalance decimal.Decimal) []Entry {
	sorted := make([]journal.LedgerLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Sequence < sorted[j].Sequence
	})

	out := make([]Entry, 0, len(sorted))
	balance := openingBalance
	for _, l := range sorted {
		balance = balance.Add(l.Debit).Sub(l.Credit)
		out = append(out, Entry{
			EntryID:    l.EntryID,
			Date:       l.Date.Format(dateLayout),
			SourceType: l.SourceType,
			SourceID:   l.SourceID,
			Debit:      l.Debit,
			Credit:     l.Credit,
			Balance:    balance,
			Side:       SideOf(balance),
			Memo:       l.Memo,
		})
	}
	return out
}

// OpeningBalance folds lines into a single net figure. Callers pass the
// lines strictly before a statement range to seed Aggregate.
func OpeningBalance(lines []journal.LedgerLine) decimal.Decimal {
	balance := decimal.Zero
	for _, l := range lines {
		balance = balance.Add(l.Debit).Sub(l.Credit)
	}
	return balance
}
