package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/tax"
)

// SourceType identifies the business document a journal entry was derived from.
type SourceType string

const (
	SourcePurchaseInvoice     SourceType = "purchase_invoice"
	SourceSalesInvoice        SourceType = "sales_invoice"
	SourceReceiptVoucher      SourceType = "receipt_voucher"
	SourcePaymentVoucher      SourceType = "payment_voucher"
	SourceBatchCapitalization SourceType = "batch_capitalization"
	SourceFundTransfer        SourceType = "fund_transfer"
	SourceManualEntry         SourceType = "manual_entry"
	SourceReversal            SourceType = "reversal"
)

// Line is one side of a double entry. Exactly one of Debit/Credit is nonzero.
type Line struct {
	AccountID string          `json:"account_id"`
	PartyID   string          `json:"party_id,omitempty"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo,omitempty"`
}

// Entry is a posted, balanced journal entry. Entries are append-only;
// corrections are posted as reversals, never edits.
type Entry struct {
	ID             string     `json:"id"`
	Date           time.Time  `json:"date"`
	SourceType     SourceType `json:"source_type"`
	SourceID       string     `json:"source_id"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	Sequence       uint64     `json:"sequence"`
	CreatedAt      time.Time  `json:"created_at"`
	Lines          []Line     `json:"lines"`
}

// LedgerLine is a posted line joined with its entry header, the unit the
// read side (ledger aggregation, reports) consumes.
type LedgerLine struct {
	EntryID    string          `json:"entry_id"`
	Sequence   uint64          `json:"sequence"`
	Date       time.Time       `json:"date"`
	SourceType SourceType      `json:"source_type"`
	SourceID   string          `json:"source_id"`
	AccountID  string          `json:"account_id"`
	PartyID    string          `json:"party_id,omitempty"`
	Debit      decimal.Decimal `json:"debit"`
	Credit     decimal.Decimal `json:"credit"`
	Memo       string          `json:"memo,omitempty"`
}

// Party is a customer or supplier tracked in the subledger. Parties are
// referenced by journal lines but are never postable accounts themselves.
type Party struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      PartyKind `json:"kind"`
	TaxID     string    `json:"tax_id,omitempty"`
	IsPKP     bool      `json:"is_pkp"`
	Currency  string    `json:"currency,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PartyKind separates customers from suppliers.
type PartyKind string

const (
	PartyCustomer PartyKind = "customer"
	PartySupplier PartyKind = "supplier"
)

var (
	ErrNotFound      = errors.New("journal entry not found")
	ErrPartyNotFound = errors.New("party not found")
)

// ValidationError reports malformed posting input. Line is the zero-based
// offending line index, or -1 when the whole document is at fault.
type ValidationError struct {
	Line   int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("invalid journal line %d: %s", e.Line, e.Reason)
	}
	return "invalid journal input: " + e.Reason
}

// UnbalancedEntryError reports derived lines whose debits and credits do not
// sum equally. The posting is rejected in full.
type UnbalancedEntryError struct {
	SourceType SourceType
	SourceID   string
	Debit      decimal.Decimal
	Credit     decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced entry for %s %s: debits %s != credits %s",
		e.SourceType, e.SourceID, e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

// Store persists journal entries. SaveEntry is all-or-nothing: the entry,
// its lines and the optional tax document land together or not at all.
type Store interface {
	SaveEntry(ctx context.Context, e Entry, taxDoc *tax.Document) (Entry, error)
	Entry(ctx context.Context, id string) (Entry, error)
	ListEntries(ctx context.Context, limit int, afterSeq uint64) ([]Entry, uint64, error)
	LinesByAccount(ctx context.Context, accountID string, from, to time.Time) ([]LedgerLine, error)
	LinesByParty(ctx context.Context, partyID string, from, to time.Time) ([]LedgerLine, error)
	LinesInRange(ctx context.Context, from, to time.Time) ([]LedgerLine, error)
	TaxDocuments(ctx context.Context, year int, month time.Month) ([]tax.Document, error)
	HasPostings(ctx context.Context, accountID string) (bool, error)
}

// PartyRegistry persists customers and suppliers.
type PartyRegistry interface {
	CreateParty(ctx context.Context, p Party) (Party, error)
	Party(ctx context.Context, id string) (Party, error)
	Parties(ctx context.Context) ([]Party, error)
}

// inRange reports whether d falls inside the inclusive [from, to] window.
// A zero bound is open.
func inRange(d, from, to time.Time) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}
