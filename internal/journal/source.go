package journal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/coa"
	"farmaledger.org/internal/landedcost"
	"farmaledger.org/internal/tax"
)

// AccountResolver resolves account codes during line derivation.
// coa.Registry satisfies it.
type AccountResolver interface {
	Resolve(ctx context.Context, code string) (coa.Account, error)
}

// ChartRefs names the well-known accounts the document mappings post to.
// Codes must match the seeded chart of accounts.
type ChartRefs struct {
	Inventory          string
	AccountsReceivable string
	AccountsPayable    string
	Sales              string
}

// DefaultChartRefs matches the seed migration.
func DefaultChartRefs() ChartRefs {
	return ChartRefs{
		Inventory:          "1140",
		AccountsReceivable: "1130",
		AccountsPayable:    "2110",
		Sales:              "4110",
	}
}

// SourceDocument is the closed set of business documents the engine can map
// to journal lines. Each variant derives its lines through a pure mapping.
type SourceDocument interface {
	SourceType() SourceType
	SourceID() string
	DocumentDate() time.Time
	buildLines(ctx context.Context, accounts AccountResolver, refs ChartRefs) ([]Line, error)
	taxDocument() *tax.Document
}

func resolvePostable(ctx context.Context, accounts AccountResolver, code string) (coa.Account, error) {
	acc, err := accounts.Resolve(ctx, code)
	if errors.Is(err, coa.ErrNotFound) {
		return coa.Account{}, &ValidationError{Line: -1, Reason: "unknown account code " + code}
	}
	if err != nil {
		return coa.Account{}, err
	}
	if !acc.Postable() {
		return coa.Account{}, &ValidationError{Line: -1, Reason: "account " + code + " is not postable"}
	}
	return acc, nil
}

func requirePositive(amount decimal.Decimal, what string) error {
	if amount.Sign() <= 0 {
		return &ValidationError{Line: -1, Reason: what + " must be > 0"}
	}
	return nil
}

func debitLine(acc coa.Account, partyID string, amount decimal.Decimal, memo string) Line {
	return Line{AccountID: acc.ID, PartyID: partyID, Debit: amount, Credit: decimal.Zero, Memo: memo}
}

func creditLine(acc coa.Account, partyID string, amount decimal.Decimal, memo string) Line {
	return Line{AccountID: acc.ID, PartyID: partyID, Debit: decimal.Zero, Credit: amount, Memo: memo}
}

// ItemType selects the debit side of a purchase invoice.
type ItemType string

const (
	ItemInventory ItemType = "inventory"
	ItemExpense   ItemType = "expense"
)

// PurchaseInvoice records goods or services bought on credit from a supplier.
type PurchaseInvoice struct {
	ID                 string
	Date               time.Time
	PartyID            string
	ItemType           ItemType
	ExpenseAccountCode string // required when ItemType == ItemExpense
	Amount             decimal.Decimal
	Imported           bool // import purchase, subject to input PPN
	Memo               string
}

func (d PurchaseInvoice) SourceType() SourceType  { return SourcePurchaseInvoice }
func (d PurchaseInvoice) SourceID() string        { return d.ID }
func (d PurchaseInvoice) DocumentDate() time.Time { return d.Date }

func (d PurchaseInvoice) buildLines(ctx context.Context, accounts AccountResolver, refs ChartRefs) ([]Line, error) {
	if err := requirePositive(d.Amount, "invoice amount"); err != nil {
		return nil, err
	}
	debitCode := refs.Inventory
	switch d.ItemType {
	case ItemInventory:
	case ItemExpense:
		if d.ExpenseAccountCode == "" {
			return nil, &ValidationError{Line: -1, Reason: "expense purchase requires an expense account"}
		}
		debitCode = d.ExpenseAccountCode
	default:
		return nil, &ValidationError{Line: -1, Reason: "unknown item type"}
	}
	debitAcc, err := resolvePostable(ctx, accounts, debitCode)
	if err != nil {
		return nil, err
	}
	ap, err := resolvePostable(ctx, accounts, refs.AccountsPayable)
	if err != nil {
		return nil, err
	}
	return []Line{
		debitLine(debitAcc, "", d.Amount, d.Memo),
		creditLine(ap, d.PartyID, d.Amount, d.Memo),
	}, nil
}

func (d PurchaseInvoice) taxDocument() *tax.Document {
	if !d.Imported {
		return nil
	}
	return &tax.Document{Kind: tax.KindInput, Date: d.Date, Base: d.Amount}
}

// SalesInvoice records a credit sale to a customer.
type SalesInvoice struct {
	ID       string
	Date     time.Time
	PartyID  string
	Subtotal decimal.Decimal
	Memo     string
}

func (d SalesInvoice) SourceType() SourceType  { return SourceSalesInvoice }
func (d SalesInvoice) SourceID() string        { return d.ID }
func (d SalesInvoice) DocumentDate() time.Time { return d.Date }

func (d SalesInvoice) buildLines(ctx context.Context, accounts AccountResolver, refs ChartRefs) ([]Line, error) {
	if err := requirePositive(d.Subtotal, "invoice subtotal"); err != nil {
		return nil, err
	}
	ar, err := resolvePostable(ctx, accounts, refs.AccountsReceivable)
	if err != nil {
		return nil, err
	}
	sales, err := resolvePostable(ctx, accounts, refs.Sales)
	if err != nil {
		return nil, err
	}
	return []Line{
		debitLine(ar, d.PartyID, d.Subtotal, d.Memo),
		creditLine(sales, "", d.Subtotal, d.Memo),
	}, nil
}

func (d SalesInvoice) taxDocument() *tax.Document {
	return &tax.Document{Kind: tax.KindOutput, Date: d.Date, Base: d.Subtotal}
}

// ReceiptVoucher records money received from a customer against receivables.
type ReceiptVoucher struct {
	ID              string
	Date            time.Time
	PartyID         string
	BankAccountCode string
	Amount          decimal.Decimal
	Memo            string
}

func (d ReceiptVoucher) SourceType() SourceType  { return SourceReceiptVoucher }
func (d ReceiptVoucher) SourceID() string        { return d.ID }
func (d ReceiptVoucher) DocumentDate() time.Time { return d.Date }

func (d ReceiptVoucher) buildLines(ctx context.Context, accounts AccountResolver, refs ChartRefs) ([]Line, error) {
	if err := requirePositive(d.Amount, "receipt amount"); err != nil {
		return nil, err
	}
	bank, err := resolvePostable(ctx, accounts, d.BankAccountCode)
	if err != nil {
		return nil, err
	}
	ar, err := resolvePostable(ctx, accounts, refs.AccountsReceivable)
	if err != nil {
		return nil, err
	}
	return []Line{
		debitLine(bank, "", d.Amount, d.Memo),
		creditLine(ar, d.PartyID, d.Amount, d.Memo),
	}, nil
}

func (d ReceiptVoucher) taxDocument() *tax.Document { return nil }

// PaymentVoucher records money paid to a supplier against payables.
type PaymentVoucher struct {
	ID              string
	Date            time.Time
	PartyID         string
	BankAccountCode string
	Amount          decimal.Decimal
	Memo            string
}

func (d PaymentVoucher) SourceType() SourceType  { return SourcePaymentVoucher }
func (d PaymentVoucher) SourceID() string        { return d.ID }
func (d PaymentVoucher) DocumentDate() time.Time { return d.Date }

func (d PaymentVoucher) buildLines(ctx context.Context, accounts AccountResolver, refs ChartRefs) ([]Line, error) {
	if err := requirePositive(d.Amount, "payment amount"); err != nil {
		return nil, err
	}
	ap, err := resolvePostable(ctx, accounts, refs.AccountsPayable)
	if err != nil {
		return nil, err
	}
	bank, err := resolvePostable(ctx, accounts, d.BankAccountCode)
	if err != nil {
		return nil, err
	}
	return []Line{
		debitLine(ap, d.PartyID, d.Amount, d.Memo),
		creditLine(bank, "", d.Amount, d.Memo),
	}, nil
}

func (d PaymentVoucher) taxDocument() *tax.Document { return nil }

// BatchCapitalization capitalizes an allocated landed cost into inventory.
type BatchCapitalization struct {
	ID      string
	Date    time.Time
	PartyID string
	BatchID string
	Cost    landedcost.Breakdown
	Memo    string
}

func (d BatchCapitalization) SourceType() SourceType  { return SourceBatchCapitalization }
func (d BatchCapitalization) SourceID() string        { return d.ID }
func (d BatchCapitalization) DocumentDate() time.Time { return d.Date }

func (d BatchCapitalization) buildLines(ctx context.Context, accounts AccountResolver, refs ChartRefs) ([]Line, error) {
	if err := requirePositive(d.Cost.Total, "landed cost total"); err != nil {
		return nil, err
	}
	inv, err := resolvePostable(ctx, accounts, refs.Inventory)
	if err != nil {
		return nil, err
	}
	ap, err := resolvePostable(ctx, accounts, refs.AccountsPayable)
	if err != nil {
		return nil, err
	}
	memo := d.Memo
	if memo == "" {
		memo = "landed cost batch " + d.BatchID
	}
	return []Line{
		debitLine(inv, "", d.Cost.Total, memo),
		creditLine(ap, d.PartyID, d.Cost.Total, memo),
	}, nil
}

func (d BatchCapitalization) taxDocument() *tax.Document { return nil }

// FundTransfer moves money between two bank/cash accounts.
type FundTransfer struct {
	ID       string
	Date     time.Time
	FromCode string
	ToCode   string
	Amount   decimal.Decimal
	Memo     string
}

func (d FundTransfer) SourceType() SourceType  { return SourceFundTransfer }
func (d FundTransfer) SourceID() string        { return d.ID }
func (d FundTransfer) DocumentDate() time.Time { return d.Date }

func (d FundTransfer) buildLines(ctx context.Context, accounts AccountResolver, refs ChartRefs) ([]Line, error) {
	if err := requirePositive(d.Amount, "transfer amount"); err != nil {
		return nil, err
	}
	if d.FromCode == d.ToCode {
		return nil, &ValidationError{Line: -1, Reason: "transfer accounts must differ"}
	}
	to, err := resolvePostable(ctx, accounts, d.ToCode)
	if err != nil {
		return nil, err
	}
	from, err := resolvePostable(ctx, accounts, d.FromCode)
	if err != nil {
		return nil, err
	}
	return []Line{
		debitLine(to, "", d.Amount, d.Memo),
		creditLine(from, "", d.Amount, d.Memo),
	}, nil
}

func (d FundTransfer) taxDocument() *tax.Document { return nil }

// ManualLine is one row of a manual entry, addressed by account code.
type ManualLine struct {
	AccountCode string          `json:"account_code"`
	PartyID     string          `json:"party_id,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Memo        string          `json:"memo,omitempty"`
}

// ManualEntry posts caller-supplied lines, subject to the same validation as
// every other source document.
type ManualEntry struct {
	ID    string
	Date  time.Time
	Memo  string
	Lines []ManualLine
}

func (d ManualEntry) SourceType() SourceType  { return SourceManualEntry }
func (d ManualEntry) SourceID() string        { return d.ID }
func (d ManualEntry) DocumentDate() time.Time { return d.Date }

func (d ManualEntry) buildLines(ctx context.Context, accounts AccountResolver, refs ChartRefs) ([]Line, error) {
	out := make([]Line, 0, len(d.Lines))
	for i, ml := range d.Lines {
		acc, err := resolvePostable(ctx, accounts, ml.AccountCode)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				verr.Line = i
			}
			return nil, err
		}
		memo := ml.Memo
		if memo == "" {
			memo = d.Memo
		}
		out = append(out, Line{
			AccountID: acc.ID,
			PartyID:   ml.PartyID,
			Debit:     ml.Debit,
			Credit:    ml.Credit,
			Memo:      memo,
		})
	}
	return out, nil
}

func (d ManualEntry) taxDocument() *tax.Document { return nil }
