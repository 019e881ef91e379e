// Package journal maps business source documents to balanced double-entry
// journal records and persists them atomically. Entries are append-only:
// corrections are posted as reversing entries, never edits.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/coa"
	"farmaledger.org/internal/ids"
	"farmaledger.org/internal/obs"
)

// Engine is the transaction-to-entry mapper.
type Engine struct {
	store    Store
	accounts coa.Registry
	parties  PartyRegistry
	refs     ChartRefs
}

// NewEngine wires the engine. parties may be nil, in which case party
// references on lines are not checked for existence. A zero refs falls back
// to the seeded chart.
func NewEngine(store Store, accounts coa.Registry, parties PartyRegistry, refs ChartRefs) *Engine {
	if refs == (ChartRefs{}) {
		refs = DefaultChartRefs()
	}
	return &Engine{store: store, accounts: accounts, parties: parties, refs: refs}
}

// Post derives the journal lines for doc, verifies the balance invariant and
// persists the entry all-or-nothing. An idempotency key makes retried posts
// return the originally recorded entry instead of double-posting.
func (en *Engine) Post(ctx context.Context, doc SourceDocument, idemKey string) (Entry, error) {
	if doc.DocumentDate().IsZero() {
		obs.CountPostingFailure("validation")
		return Entry{}, &ValidationError{Line: -1, Reason: "document date is required"}
	}

	lines, err := doc.buildLines(ctx, en.accounts, en.refs)
	if err != nil {
		obs.CountPostingFailure(failureReason(err))
		return Entry{}, err
	}

	if en.parties != nil {
		for i, line := range lines {
			if line.PartyID == "" {
				continue
			}
			if _, err := en.parties.Party(ctx, line.PartyID); err != nil {
				if errors.Is(err, ErrPartyNotFound) {
					obs.CountPostingFailure("validation")
					return Entry{}, &ValidationError{Line: i, Reason: "unknown party " + line.PartyID}
				}
				return Entry{}, err
			}
		}
	}

	e := Entry{
		ID:             ids.New(),
		Date:           doc.DocumentDate(),
		SourceType:     doc.SourceType(),
		SourceID:       doc.SourceID(),
		IdempotencyKey: idemKey,
		Lines:          lines,
	}
	if err := validateEntry(ctx, e, en.accounts); err != nil {
		obs.CountPostingFailure(failureReason(err))
		return Entry{}, err
	}

	saved, err := en.store.SaveEntry(ctx, e, doc.taxDocument())
	if err != nil {
		obs.CountPostingFailure("store")
		return Entry{}, err
	}
	obs.CountPosting(string(saved.SourceType))
	return saved, nil
}

// Reverse posts a correcting entry with debits and credits swapped,
// referencing the original entry. The original is never mutated.
func (en *Engine) Reverse(ctx context.Context, entryID string, date time.Time) (Entry, error) {
	orig, err := en.store.Entry(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if date.IsZero() {
		date = orig.Date
	}

	lines := make([]Line, len(orig.Lines))
	for i, l := range orig.Lines {
		lines[i] = Line{
			AccountID: l.AccountID,
			PartyID:   l.PartyID,
			Debit:     l.Credit,
			Credit:    l.Debit,
			Memo:      l.Memo,
		}
	}

	rev := Entry{
		ID:         ids.New(),
		Date:       date,
		SourceType: SourceReversal,
		SourceID:   orig.ID,
		Lines:      lines,
	}
	if err := validateEntry(ctx, rev, en.accounts); err != nil {
		obs.CountPostingFailure(failureReason(err))
		return Entry{}, err
	}

	saved, err := en.store.SaveEntry(ctx, rev, nil)
	if err != nil {
		obs.CountPostingFailure("store")
		return Entry{}, err
	}
	obs.CountPosting(string(SourceReversal))
	return saved, nil
}

// Totals returns the debit and credit sums of an entry's lines.
func Totals(e Entry) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

func failureReason(err error) string {
	var uerr *UnbalancedEntryError
	if errors.As(err, &uerr) {
		return "unbalanced"
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return "validation"
	}
	return "store"
}
