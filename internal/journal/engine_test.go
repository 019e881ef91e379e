package journal

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmaledger.org/internal/coa"
	"farmaledger.org/internal/landedcost"
	"farmaledger.org/internal/tax"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedRegistry builds a registry matching DefaultChartRefs plus a bank, an
// expense account and a header.
func seedRegistry(t *testing.T) *coa.InMemory {
	t.Helper()
	r := coa.NewInMemory(nil)
	ctx := context.Background()
	specs := []coa.Spec{
		{Code: "1100", Name: "Current Assets", Type: coa.TypeAsset, IsHeader: true, NormalBalance: coa.SideDebit},
		{Code: "1121", Name: "Bank BCA", Type: coa.TypeAsset, NormalBalance: coa.SideDebit},
		{Code: "1122", Name: "Bank Mandiri", Type: coa.TypeAsset, NormalBalance: coa.SideDebit},
		{Code: "1130", Name: "Accounts Receivable", Type: coa.TypeAsset, NormalBalance: coa.SideDebit},
		{Code: "1140", Name: "Inventory", Type: coa.TypeAsset, NormalBalance: coa.SideDebit},
		{Code: "2110", Name: "Accounts Payable", Type: coa.TypeLiability, NormalBalance: coa.SideCredit},
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

func newTestEngine(t *testing.T) (*Engine, *InMemory, *coa.InMemory) {
	t.Helper()
	store := NewInMemory()
	registry := seedRegistry(t)
	return NewEngine(store, registry, store, ChartRefs{}), store, registry
}

func accountID(t *testing.T, r *coa.InMemory, code string) string {
	t.Helper()
	acc, err := r.Resolve(context.Background(), code)
	require.NoError(t, err)
	return acc.ID
}

func TestPostPurchaseInvoiceInventory(t *testing.T) {
	en, store, registry := newTestEngine(t)
	ctx := context.Background()

	supplier, err := store.CreateParty(ctx, Party{Name: "PT Kimia Sejahtera", Kind: PartySupplier})
	require.NoError(t, err)

	e, err := en.Post(ctx, PurchaseInvoice{
		ID: "PI-001", Date: day(2024, time.March, 5), PartyID: supplier.ID,
		ItemType: ItemInventory, Amount: dec("16250000"),
	}, "")
	require.NoError(t, err)

	require.Len(t, e.Lines, 2)
	assert.Equal(t, accountID(t, registry, "1140"), e.Lines[0].AccountID)
	assert.True(t, e.Lines[0].Debit.Equal(dec("16250000")))
	assert.Equal(t, accountID(t, registry, "2110"), e.Lines[1].AccountID)
	assert.True(t, e.Lines[1].Credit.Equal(dec("16250000")))
	assert.Equal(t, supplier.ID, e.Lines[1].PartyID)

	debit, credit := Totals(e)
	assert.True(t, debit.Equal(credit))
	assert.Equal(t, SourcePurchaseInvoice, e.SourceType)
	assert.Equal(t, "PI-001", e.SourceID)
	assert.NotZero(t, e.Sequence)
}

func TestPostPurchaseInvoiceExpense(t *testing.T) {
	en, _, registry := newTestEngine(t)
	ctx := context.Background()

	e, err := en.Post(ctx, PurchaseInvoice{
		ID: "PI-002", Date: day(2024, time.March, 6),
		ItemType: ItemExpense, ExpenseAccountCode: "6110", Amount: dec("250000"),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, accountID(t, registry, "6110"), e.Lines[0].AccountID)

	_, err = en.Post(ctx, PurchaseInvoice{
		ID: "PI-003", Date: day(2024, time.March, 6),
		ItemType: ItemExpense, Amount: dec("250000"),
	}, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestPostRecordsTaxDocuments(t *testing.T) {
	en, store, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := en.Post(ctx, PurchaseInvoice{
		ID: "PI-010", Date: day(2024, time.March, 5),
		ItemType: ItemInventory, Amount: dec("100000000"), Imported: true,
	}, "")
	require.NoError(t, err)

	_, err = en.Post(ctx, SalesInvoice{
		ID: "SI-001", Date: day(2024, time.March, 20), Subtotal: dec("50000000"),
	}, "")
	require.NoError(t, err)

	docs, err := store.TaxDocuments(ctx, 2024, time.March)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	s := tax.Summarize(2024, time.March, docs)
	assert.True(t, s.InputPPN.Equal(dec("11000000")))
	assert.True(t, s.OutputPPN.Equal(dec("5500000")))
	assert.True(t, s.NetPayable.Equal(dec("-5500000")))
}

func TestPostUnbalancedManualEntryWritesNothing(t *testing.T) {
	en, store, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := en.Post(ctx, ManualEntry{
		ID: "ME-001", Date: day(2024, time.March, 7),
		Lines: []ManualLine{
			{AccountCode: "1121", Debit: dec("100"), Credit: decimal.Zero},
			{AccountCode: "4110", Debit: decimal.Zero, Credit: dec("90")},
		},
	}, "")
	var uerr *UnbalancedEntryError
	require.ErrorAs(t, err, &uerr)
	assert.True(t, uerr.Debit.Equal(dec("100")))
	assert.True(t, uerr.Credit.Equal(dec("90")))

	entries, _, err := store.ListEntries(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPostRejectsZeroZeroLine(t *testing.T) {
	en, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := en.Post(ctx, ManualEntry{
		ID: "ME-002", Date: day(2024, time.March, 7),
		Lines: []ManualLine{
			{AccountCode: "1121", Debit: decimal.Zero, Credit: decimal.Zero},
			{AccountCode: "4110", Credit: decimal.Zero},
		},
	}, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestPostRejectsHeaderAccount(t *testing.T) {
	en, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := en.Post(ctx, ManualEntry{
		ID: "ME-003", Date: day(2024, time.March, 7),
		Lines: []ManualLine{
			{AccountCode: "1100", Debit: dec("100")},
			{AccountCode: "4110", Credit: dec("100")},
		},
	}, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestPostRejectsInactiveAccount(t *testing.T) {
	en, _, registry := newTestEngine(t)
	ctx := context.Background()

	acc, err := registry.Resolve(ctx, "6110")
	require.NoError(t, err)
	_, err = registry.Deactivate(ctx, acc.ID)
	require.NoError(t, err)

	_, err = en.Post(ctx, PurchaseInvoice{
		ID: "PI-020", Date: day(2024, time.March, 8),
		ItemType: ItemExpense, ExpenseAccountCode: "6110", Amount: dec("100"),
	}, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestPostRejectsUnknownParty(t *testing.T) {
	en, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := en.Post(ctx, SalesInvoice{
		ID: "SI-010", Date: day(2024, time.March, 8), PartyID: "ghost", Subtotal: dec("100"),
	}, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestPostIdempotency(t *testing.T) {
	en, _, _ := newTestEngine(t)
	ctx := context.Background()

	doc := FundTransfer{
		ID: "FT-001", Date: day(2024, time.March, 9),
		FromCode: "1121", ToCode: "1122", Amount: dec("1000000"),
	}
	first, err := en.Post(ctx, doc, "key-1")
	require.NoError(t, err)
	second, err := en.Post(ctx, doc, "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Sequence, second.Sequence)
}

func TestPostBatchCapitalization(t *testing.T) {
	en, _, registry := newTestEngine(t)
	ctx := context.Background()

	bd, err := landedcost.Compute(landedcost.Batch{
		ID:           "B-1",
		ImportPrice:  dec("1000"),
		ExchangeRate: dec("15000"),
		DutyPercent:  dec("5"),
		Freight:      landedcost.Fixed(dec("500000")),
	})
	require.NoError(t, err)

	e, err := en.Post(ctx, BatchCapitalization{
		ID: "BC-001", Date: day(2024, time.March, 10), BatchID: "B-1", Cost: bd,
	}, "")
	require.NoError(t, err)

	require.Len(t, e.Lines, 2)
	assert.Equal(t, accountID(t, registry, "1140"), e.Lines[0].AccountID)
	assert.True(t, e.Lines[0].Debit.Equal(dec("16250000")))
	assert.True(t, e.Lines[1].Credit.Equal(dec("16250000")))
}

func TestReverseSwapsSides(t *testing.T) {
	en, store, _ := newTestEngine(t)
	ctx := context.Background()

	orig, err := en.Post(ctx, SalesInvoice{
		ID: "SI-020", Date: day(2024, time.March, 11), Subtotal: dec("5000000"),
	}, "")
	require.NoError(t, err)

	rev, err := en.Reverse(ctx, orig.ID, day(2024, time.March, 12))
	require.NoError(t, err)
	assert.Equal(t, SourceReversal, rev.SourceType)
	assert.Equal(t, orig.ID, rev.SourceID)
	require.Len(t, rev.Lines, 2)
	assert.True(t, rev.Lines[0].Credit.Equal(orig.Lines[0].Debit))
	assert.True(t, rev.Lines[1].Debit.Equal(orig.Lines[1].Credit))

	// Original untouched.
	got, err := store.Entry(ctx, orig.ID)
	require.NoError(t, err)
	assert.True(t, got.Lines[0].Debit.Equal(dec("5000000")))
}

func TestFundTransferRequiresDistinctAccounts(t *testing.T) {
	en, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := en.Post(ctx, FundTransfer{
		ID: "FT-002", Date: day(2024, time.March, 9),
		FromCode: "1121", ToCode: "1121", Amount: dec("100"),
	}, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
