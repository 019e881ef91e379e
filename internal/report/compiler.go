// Package report compiles trial balance, profit & loss, balance sheet and
// monthly tax views from posted journal history. Every view is derived from
// one trial-balance snapshot; cross-check failures halt delivery instead of
// returning a misleading number.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/coa"
	"farmaledger.org/internal/journal"
	"farmaledger.org/internal/obs"
	"farmaledger.org/internal/tax"
)

// IntegrityMismatchError reports a failed report cross-check. This signals an
// upstream posting bug, never a display problem.
type IntegrityMismatchError struct {
	Report   string
	Equation string
	Left     decimal.Decimal
	Right    decimal.Decimal
}

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("%s integrity mismatch: %s (%s != %s)",
		e.Report, e.Equation, e.Left.StringFixed(2), e.Right.StringFixed(2))
}

// AccountBalanceRow is one trial balance row, keyed by account code.
type AccountBalanceRow struct {
	AccountID   string          `json:"-"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        coa.Type        `json:"account_type"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	// Net is debit minus credit; positive means a debit balance.
	Net decimal.Decimal `json:"net"`
}

// TrialBalance lists debit/credit totals for every postable account with
// activity in the range.
type TrialBalance struct {
	Start       time.Time           `json:"start_date"`
	End         time.Time           `json:"end_date"`
	Rows        []AccountBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
}

// ProfitAndLoss summarizes revenue against expense over a range.
type ProfitAndLoss struct {
	Start     time.Time       `json:"start_date"`
	End       time.Time       `json:"end_date"`
	Revenue   decimal.Decimal `json:"revenue"`
	Expense   decimal.Decimal `json:"expense"`
	NetIncome decimal.Decimal `json:"net_income"`
}

// BalanceSheet states the accounting equation as of a date. Net income is
// recomputed from the same snapshot, not posted to equity.
type BalanceSheet struct {
	AsOf         time.Time           `json:"as_of"`
	AssetRows    []AccountBalanceRow `json:"assets"`
	Assets       decimal.Decimal     `json:"total_assets"`
	ContraAssets decimal.Decimal     `json:"contra_assets"`
	Liabilities  decimal.Decimal     `json:"total_liabilities"`
	Equity       decimal.Decimal     `json:"total_equity"`
	NetIncome    decimal.Decimal     `json:"net_income"`
}

// BuildTrialBalance folds range lines into per-account totals. Pure.
// Returns IntegrityMismatchError when total debits and credits diverge,
// which can only happen if an unbalanced entry reached the store.
func BuildTrialBalance(accounts []coa.Account, lines []journal.LedgerLine, start, end time.Time) (TrialBalance, error) {
	byID := make(map[string]coa.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	type totals struct{ debit, credit decimal.Decimal }
	acc := make(map[string]*totals)
	for _, l := range lines {
		t, ok := acc[l.AccountID]
		if !ok {
			t = &totals{debit: decimal.Zero, credit: decimal.Zero}
			acc[l.AccountID] = t
		}
		t.debit = t.debit.Add(l.Debit)
		t.credit = t.credit.Add(l.Credit)
	}

	tb := TrialBalance{
		Start: start, End: end,
		Rows:        []AccountBalanceRow{},
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for id, t := range acc {
		a, ok := byID[id]
		if !ok {
			// A line referencing an unknown account is the same class of
			// bug as an unbalanced book.
			obs.CountReportIntegrityFailure("trial_balance")
			return TrialBalance{}, &IntegrityMismatchError{
				Report:   "trial balance",
				Equation: "line account " + id + " missing from chart",
				Left:     t.debit,
				Right:    t.credit,
			}
		}
		tb.Rows = append(tb.Rows, AccountBalanceRow{
			AccountID:   a.ID,
			Code:        a.Code,
			Name:        a.Name,
			Type:        a.Type,
			TotalDebit:  t.debit,
			TotalCredit: t.credit,
			Net:         t.debit.Sub(t.credit),
		})
		tb.TotalDebit = tb.TotalDebit.Add(t.debit)
		tb.TotalCredit = tb.TotalCredit.Add(t.credit)
	}
	sort.Slice(tb.Rows, func(i, j int) bool { return tb.Rows[i].Code < tb.Rows[j].Code })

	if !tb.TotalDebit.Equal(tb.TotalCredit) {
		obs.CountReportIntegrityFailure("trial_balance")
		return TrialBalance{}, &IntegrityMismatchError{
			Report:   "trial balance",
			Equation: "sum(debit) = sum(credit)",
			Left:     tb.TotalDebit,
			Right:    tb.TotalCredit,
		}
	}
	return tb, nil
}

// BuildProfitAndLoss derives revenue, expense and net income from a trial
// balance snapshot.
func BuildProfitAndLoss(tb TrialBalance) ProfitAndLoss {
	pl := ProfitAndLoss{
		Start: tb.Start, End: tb.End,
		Revenue: decimal.Zero, Expense: decimal.Zero,
	}
	for _, row := range tb.Rows {
		switch row.Type {
		case coa.TypeRevenue:
			pl.Revenue = pl.Revenue.Add(row.Net.Abs())
		case coa.TypeExpense:
			pl.Expense = pl.Expense.Add(row.Net.Abs())
		}
	}
	pl.NetIncome = pl.Revenue.Sub(pl.Expense)
	return pl
}

// BuildBalanceSheet derives the accounting equation from a trial balance
// snapshot covering all history up to asOf. The equation
// assets - contra assets = liabilities + equity + net income must hold;
// a mismatch is a data-integrity error.
func BuildBalanceSheet(tb TrialBalance, asOf time.Time) (BalanceSheet, error) {
	bs := BalanceSheet{
		AsOf:         asOf,
		AssetRows:    []AccountBalanceRow{},
		Assets:       decimal.Zero,
		ContraAssets: decimal.Zero,
		Liabilities:  decimal.Zero,
		Equity:       decimal.Zero,
	}
	for _, row := range tb.Rows {
		switch row.Type {
		case coa.TypeAsset:
			bs.AssetRows = append(bs.AssetRows, row)
			bs.Assets = bs.Assets.Add(row.Net)
		case coa.TypeContra:
			// Contra assets carry credit balances; store them positive.
			bs.ContraAssets = bs.ContraAssets.Add(row.Net.Neg())
		case coa.TypeLiability:
			bs.Liabilities = bs.Liabilities.Add(row.Net.Neg())
		case coa.TypeEquity:
			bs.Equity = bs.Equity.Add(row.Net.Neg())
		}
	}
	bs.NetIncome = BuildProfitAndLoss(tb).NetIncome

	left := bs.Assets.Sub(bs.ContraAssets)
	right := bs.Liabilities.Add(bs.Equity).Add(bs.NetIncome)
	if !left.Equal(right) {
		obs.CountReportIntegrityFailure("balance_sheet")
		return BalanceSheet{}, &IntegrityMismatchError{
			Report:   "balance sheet",
			Equation: "assets - contra = liabilities + equity + net income",
			Left:     left,
			Right:    right,
		}
	}
	return bs, nil
}

// Compiler binds the pure builders to the journal store and chart registry.
type Compiler struct {
	store    journal.Store
	accounts coa.Registry
}

// NewCompiler wires a report compiler.
func NewCompiler(store journal.Store, accounts coa.Registry) *Compiler {
	return &Compiler{store: store, accounts: accounts}
}

func (c *Compiler) snapshot(ctx context.Context, start, end time.Time) (TrialBalance, error) {
	accounts, err := c.accounts.Accounts(ctx)
	if err != nil {
		return TrialBalance{}, err
	}
	lines, err := c.store.LinesInRange(ctx, start, end)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(accounts, lines, start, end)
}

// TrialBalance compiles the debit/credit totals over an inclusive range.
func (c *Compiler) TrialBalance(ctx context.Context, start, end time.Time) (TrialBalance, error) {
	return c.snapshot(ctx, start, end)
}

// ProfitAndLoss compiles the P&L over an inclusive range.
func (c *Compiler) ProfitAndLoss(ctx context.Context, start, end time.Time) (ProfitAndLoss, error) {
	tb, err := c.snapshot(ctx, start, end)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return BuildProfitAndLoss(tb), nil
}

// BalanceSheet compiles the statement of position as of a date, folding all
// history up to and including asOf.
func (c *Compiler) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	tb, err := c.snapshot(ctx, time.Time{}, asOf)
	if err != nil {
		return BalanceSheet{}, err
	}
	return BuildBalanceSheet(tb, asOf)
}

// TaxSummary compiles the monthly PPN position from recorded tax documents.
func (c *Compiler) TaxSummary(ctx context.Context, year int, month time.Month) (tax.Summary, error) {
	docs, err := c.store.TaxDocuments(ctx, year, month)
	if err != nil {
		return tax.Summary{}, err
	}
	return tax.Summarize(year, month, docs), nil
}
