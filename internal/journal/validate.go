package journal

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/coa"
	"farmaledger.org/internal/fx"
)

// AccountGetter looks up accounts by id during validation.
// coa.Registry satisfies it.
type AccountGetter interface {
	Get(ctx context.Context, id string) (coa.Account, error)
}

var hundred = decimal.NewFromInt(100)

// exactCents reports whether v carries no more than base-currency precision.
func exactCents(v decimal.Decimal) bool {
	scaled := v.Mul(hundred)
	return scaled.Equal(scaled.Floor())
}

// validateEntry enforces the posting invariants: at least two lines, exactly
// one nonzero side per line at base-currency precision, every line against a
// postable account, and total debits equal to total credits.
func validateEntry(ctx context.Context, e Entry, accounts AccountGetter) error {
	if len(e.Lines) < 2 {
		return &ValidationError{Line: -1, Reason: "entry requires at least two lines"}
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, line := range e.Lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return &ValidationError{Line: i, Reason: "amounts must be >= 0"}
		}
		hasDebit := !line.Debit.IsZero()
		hasCredit := !line.Credit.IsZero()
		if hasDebit == hasCredit {
			return &ValidationError{Line: i, Reason: "line must carry exactly one of debit or credit"}
		}
		if !exactCents(line.Debit) || !exactCents(line.Credit) {
			return &ValidationError{Line: i, Reason: "amount exceeds " + strconv.Itoa(fx.BasePrecision) + " decimal places"}
		}

		acc, err := accounts.Get(ctx, line.AccountID)
		if errors.Is(err, coa.ErrNotFound) {
			return &ValidationError{Line: i, Reason: "unknown account " + line.AccountID}
		}
		if err != nil {
			return err
		}
		if acc.IsHeader {
			return &ValidationError{Line: i, Reason: "account " + acc.Code + " is a header and cannot be posted to"}
		}
		if !acc.IsActive {
			return &ValidationError{Line: i, Reason: "account " + acc.Code + " is inactive"}
		}

		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}

	if !totalDebit.Equal(totalCredit) {
		return &UnbalancedEntryError{
			SourceType: e.SourceType,
			SourceID:   e.SourceID,
			Debit:      totalDebit,
			Credit:     totalCredit,
		}
	}
	return nil
}
