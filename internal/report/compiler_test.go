package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmaledger.org/internal/coa"
	"farmaledger.org/internal/journal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedRegistry(t *testing.T) *coa.InMemory {
	t.Helper()
	r := coa.NewInMemory(nil)
	ctx := context.Background()
	specs := []coa.Spec{
		{Code: "1121", Name: "Bank BCA", Type: coa.TypeAsset, NormalBalance: coa.SideDebit},
		{Code: "1130", Name: "Accounts Receivable", Type: coa.TypeAsset, NormalBalance: coa.SideDebit},
		{Code: "1140", Name: "Inventory", Type: coa.TypeAsset, NormalBalance: coa.SideDebit},
		{Code: "2110", Name: "Accounts Payable", Type: coa.TypeLiability, NormalBalance: coa.SideCredit},
		{Code: "3110", Name: "Owner Capital", Type: coa.TypeEquity, NormalBalance: coa.SideCredit},
		{Code: "4110", Name: "Sales", Type: coa.TypeRevenue, NormalBalance: coa.SideCredit},
		{Code: "6110", Name: "Office Expense", Type: coa.TypeExpense, NormalBalance: coa.SideDebit},
	}
	for _, spec := range specs {
		if _, err := r.CreateAccount(ctx, spec); err != nil {
			t.Fatalf("seed %s: %v", spec.Code, err)
		}
	}
	return r
}

// postScenario books one sales invoice, one receipt and one expense purchase
// in March 2024.
func postScenario(t *testing.T, en *journal.Engine) {
	t.Helper()
	ctx := context.Background()

	_, err := en.Post(ctx, journal.SalesInvoice{
		ID: "SI-1", Date: day(2024, time.March, 5), Subtotal: dec("5000000"),
	}, "")
	require.NoError(t, err)

	_, err = en.Post(ctx, journal.ReceiptVoucher{
		ID: "RV-1", Date: day(2024, time.March, 10), BankAccountCode: "1121", Amount: dec("3000000"),
	}, "")
	require.NoError(t, err)

	_, err = en.Post(ctx, journal.PurchaseInvoice{
		ID: "PI-1", Date: day(2024, time.March, 15),
		ItemType: journal.ItemExpense, ExpenseAccountCode: "6110", Amount: dec("1000000"),
	}, "")
	require.NoError(t, err)
}

func newCompiler(t *testing.T) (*Compiler, *journal.Engine) {
	t.Helper()
	store := journal.NewInMemory()
	registry := seedRegistry(t)
	en := journal.NewEngine(store, registry, nil, journal.ChartRefs{})
	return NewCompiler(store, registry), en
}

func TestTrialBalanceBalances(t *testing.T) {
	c, en := newCompiler(t)
	postScenario(t, en)

	tb, err := c.TrialBalance(context.Background(), day(2024, time.March, 1), day(2024, time.March, 31))
	require.NoError(t, err)

	assert.True(t, tb.TotalDebit.Equal(tb.TotalCredit))
	assert.True(t, tb.TotalDebit.Equal(dec("9000000")), "total %s", tb.TotalDebit)

	// Rows keyed and ordered by code.
	codes := make([]string, len(tb.Rows))
	for i, row := range tb.Rows {
		codes[i] = row.Code
	}
	assert.Equal(t, []string{"1121", "1130", "2110", "4110", "6110"}, codes)
}

func TestTrialBalanceEmptyRange(t *testing.T) {
	c, en := newCompiler(t)
	postScenario(t, en)

	tb, err := c.TrialBalance(context.Background(), day(2030, time.January, 1), day(2030, time.January, 31))
	require.NoError(t, err)
	assert.Empty(t, tb.Rows)
	assert.NotNil(t, tb.Rows)
	assert.True(t, tb.TotalDebit.IsZero())
	assert.True(t, tb.TotalCredit.IsZero())
}

func TestBuildTrialBalanceSurfacesUnbalancedHistory(t *testing.T) {
	registry := seedRegistry(t)
	accounts, err := registry.Accounts(context.Background())
	require.NoError(t, err)
	bank := accounts[0]

	// A lone debit can only exist if a posting bug bypassed validation.
	lines := []journal.LedgerLine{
		{EntryID: "bad", Sequence: 1, Date: day(2024, time.March, 1), AccountID: bank.ID, Debit: dec("100"), Credit: decimal.Zero},
	}
	_, err = BuildTrialBalance(accounts, lines, day(2024, time.March, 1), day(2024, time.March, 31))
	var ierr *IntegrityMismatchError
	require.ErrorAs(t, err, &ierr)
	assert.True(t, ierr.Left.Equal(dec("100")))
	assert.True(t, ierr.Right.IsZero())
}

func TestProfitAndLoss(t *testing.T) {
	c, en := newCompiler(t)
	postScenario(t, en)

	pl, err := c.ProfitAndLoss(context.Background(), day(2024, time.March, 1), day(2024, time.March, 31))
	require.NoError(t, err)
	assert.True(t, pl.Revenue.Equal(dec("5000000")))
	assert.True(t, pl.Expense.Equal(dec("1000000")))
	assert.True(t, pl.NetIncome.Equal(dec("4000000")))
}

func TestBalanceSheetEquationHolds(t *testing.T) {
	c, en := newCompiler(t)
	postScenario(t, en)

	bs, err := c.BalanceSheet(context.Background(), day(2024, time.March, 31))
	require.NoError(t, err)

	// Assets: bank 3,000,000 + receivable 2,000,000.
	assert.True(t, bs.Assets.Equal(dec("5000000")), "assets %s", bs.Assets)
	assert.True(t, bs.Liabilities.Equal(dec("1000000")))
	assert.True(t, bs.Equity.IsZero())
	assert.True(t, bs.NetIncome.Equal(dec("4000000")))

	left := bs.Assets.Sub(bs.ContraAssets)
	right := bs.Liabilities.Add(bs.Equity).Add(bs.NetIncome)
	assert.True(t, left.Equal(right))
}

func TestBuildBalanceSheetRejectsMistypedRow(t *testing.T) {
	tb := TrialBalance{
		Rows: []AccountBalanceRow{
			{Code: "1121", Type: coa.TypeAsset, TotalDebit: dec("100"), TotalCredit: decimal.Zero, Net: dec("100")},
			// A row whose type escaped classification throws the equation off.
			{Code: "9999", Type: "", TotalDebit: decimal.Zero, TotalCredit: dec("100"), Net: dec("-100")},
		},
		TotalDebit:  dec("100"),
		TotalCredit: dec("100"),
	}
	_, err := BuildBalanceSheet(tb, day(2024, time.March, 31))
	var ierr *IntegrityMismatchError
	require.ErrorAs(t, err, &ierr)
}

func TestTaxSummaryFromPostings(t *testing.T) {
	c, en := newCompiler(t)
	ctx := context.Background()

	_, err := en.Post(ctx, journal.PurchaseInvoice{
		ID: "PI-IMP", Date: day(2024, time.March, 3),
		ItemType: journal.ItemInventory, Amount: dec("100000000"), Imported: true,
	}, "")
	require.NoError(t, err)

	_, err = en.Post(ctx, journal.SalesInvoice{
		ID: "SI-2", Date: day(2024, time.March, 18), Subtotal: dec("50000000"),
	}, "")
	require.NoError(t, err)

	s, err := c.TaxSummary(ctx, 2024, time.March)
	require.NoError(t, err)
	assert.True(t, s.InputPPN.Equal(dec("11000000")))
	assert.True(t, s.OutputPPN.Equal(dec("5500000")))
	assert.True(t, s.NetPayable.Equal(dec("-5500000")))
}
