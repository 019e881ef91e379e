package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/audit"
	"farmaledger.org/internal/journal"
	"farmaledger.org/internal/landedcost"
)

type purchaseInvoicePayload struct {
	PartyID            string          `json:"party_id"`
	ItemType           string          `json:"item_type"`
	ExpenseAccountCode string          `json:"expense_account_code"`
	Amount             decimal.Decimal `json:"amount"`
	Imported           bool            `json:"imported"`
	Memo               string          `json:"memo"`
}

type salesInvoicePayload struct {
	PartyID  string          `json:"party_id"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Memo     string          `json:"memo"`
}

type voucherPayload struct {
	PartyID         string          `json:"party_id"`
	BankAccountCode string          `json:"bank_account_code"`
	Amount          decimal.Decimal `json:"amount"`
	Memo            string          `json:"memo"`
}

type capitalizationPayload struct {
	PartyID string `json:"party_id"`
	BatchID string `json:"batch_id"`
	Memo    string `json:"memo"`
}

type fundTransferPayload struct {
	FromCode string          `json:"from_code"`
	ToCode   string          `json:"to_code"`
	Amount   decimal.Decimal `json:"amount"`
	Memo     string          `json:"memo"`
}

type manualEntryPayload struct {
	Memo  string               `json:"memo"`
	Lines []journal.ManualLine `json:"lines"`
}

// postEntryRequest is the tagged union over the supported source documents.
// Exactly the payload named by source_type must be present.
type postEntryRequest struct {
	SourceType     string `json:"source_type"`
	SourceID       string `json:"source_id"`
	Date           string `json:"date"`
	IdempotencyKey string `json:"idempotency_key"`

	PurchaseInvoice     *purchaseInvoicePayload `json:"purchase_invoice,omitempty"`
	SalesInvoice        *salesInvoicePayload    `json:"sales_invoice,omitempty"`
	ReceiptVoucher      *voucherPayload         `json:"receipt_voucher,omitempty"`
	PaymentVoucher      *voucherPayload         `json:"payment_voucher,omitempty"`
	BatchCapitalization *capitalizationPayload  `json:"batch_capitalization,omitempty"`
	FundTransfer        *fundTransferPayload    `json:"fund_transfer,omitempty"`
	ManualEntry         *manualEntryPayload     `json:"manual_entry,omitempty"`
}

type listEntriesResponse struct {
	Items     []journal.Entry `json:"items"`
	NextAfter uint64          `json:"next_after"`
	AsOf      time.Time       `json:"as_of"`
}

func (a *API) handleEntriesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listEntries(w, r)
	case http.MethodPost:
		a.postEntry(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEntryResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/journal/entries/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/reverse"); ok {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.reverseEntry(w, r, id)
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	e, err := a.entries.Entry(r.Context(), path)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *API) postEntry(w http.ResponseWriter, r *http.Request) {
	var req postEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	idem := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if req.IdempotencyKey != "" {
		bodyKey := strings.TrimSpace(req.IdempotencyKey)
		if idem == "" {
			idem = bodyKey
		} else if idem != bodyKey {
			writeError(w, r, http.StatusBadRequest, "Idempotency-Key header and body value must match")
			return
		}
	}
	if len(idem) > 128 {
		writeError(w, r, http.StatusBadRequest, "Idempotency-Key too long")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if strings.TrimSpace(req.SourceID) == "" {
		writeError(w, r, http.StatusBadRequest, "source_id is required")
		return
	}

	doc, err := a.buildDocument(r, req, date)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	start := time.Now().UTC()
	e, err := a.engine.Post(r.Context(), doc, idem)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	if idem != "" {
		w.Header().Set("Idempotency-Key", idem)
	}

	event := "journal.post"
	if idem != "" && !e.CreatedAt.After(start) && !e.CreatedAt.IsZero() {
		event = "journal.post.idempotent_replay"
	}
	_ = audit.LogEvent(r.Context(), event, map[string]any{
		"entry_id":    e.ID,
		"source_type": string(e.SourceType),
		"source_id":   e.SourceID,
		"sequence":    strconv.FormatUint(e.Sequence, 10),
	})

	w.Header().Set("Location", "/v1/journal/entries/"+e.ID)
	writeJSON(w, http.StatusCreated, e)
}

// buildDocument selects the document variant named by source_type.
func (a *API) buildDocument(r *http.Request, req postEntryRequest, date time.Time) (journal.SourceDocument, error) {
	badReq := func(reason string) error {
		return &journal.ValidationError{Line: -1, Reason: reason}
	}
	switch journal.SourceType(req.SourceType) {
	case journal.SourcePurchaseInvoice:
		p := req.PurchaseInvoice
		if p == nil {
			return nil, badReq("purchase_invoice payload is required")
		}
		return journal.PurchaseInvoice{
			ID: req.SourceID, Date: date, PartyID: p.PartyID,
			ItemType: journal.ItemType(p.ItemType), ExpenseAccountCode: p.ExpenseAccountCode,
			Amount: p.Amount, Imported: p.Imported, Memo: p.Memo,
		}, nil
	case journal.SourceSalesInvoice:
		p := req.SalesInvoice
		if p == nil {
			return nil, badReq("sales_invoice payload is required")
		}
		return journal.SalesInvoice{
			ID: req.SourceID, Date: date, PartyID: p.PartyID,
			Subtotal: p.Subtotal, Memo: p.Memo,
		}, nil
	case journal.SourceReceiptVoucher:
		p := req.ReceiptVoucher
		if p == nil {
			return nil, badReq("receipt_voucher payload is required")
		}
		return journal.ReceiptVoucher{
			ID: req.SourceID, Date: date, PartyID: p.PartyID,
			BankAccountCode: p.BankAccountCode, Amount: p.Amount, Memo: p.Memo,
		}, nil
	case journal.SourcePaymentVoucher:
		p := req.PaymentVoucher
		if p == nil {
			return nil, badReq("payment_voucher payload is required")
		}
		return journal.PaymentVoucher{
			ID: req.SourceID, Date: date, PartyID: p.PartyID,
			BankAccountCode: p.BankAccountCode, Amount: p.Amount, Memo: p.Memo,
		}, nil
	case journal.SourceBatchCapitalization:
		p := req.BatchCapitalization
		if p == nil {
			return nil, badReq("batch_capitalization payload is required")
		}
		b, err := a.batches.Batch(r.Context(), p.BatchID)
		if err != nil {
			return nil, err
		}
		cost, err := landedcost.Compute(b)
		if err != nil {
			return nil, err
		}
		return journal.BatchCapitalization{
			ID: req.SourceID, Date: date, PartyID: p.PartyID,
			BatchID: b.ID, Cost: cost, Memo: p.Memo,
		}, nil
	case journal.SourceFundTransfer:
		p := req.FundTransfer
		if p == nil {
			return nil, badReq("fund_transfer payload is required")
		}
		return journal.FundTransfer{
			ID: req.SourceID, Date: date,
			FromCode: p.FromCode, ToCode: p.ToCode, Amount: p.Amount, Memo: p.Memo,
		}, nil
	case journal.SourceManualEntry:
		p := req.ManualEntry
		if p == nil {
			return nil, badReq("manual_entry payload is required")
		}
		return journal.ManualEntry{
			ID: req.SourceID, Date: date, Memo: p.Memo, Lines: p.Lines,
		}, nil
	}
	return nil, badReq("unknown source type " + req.SourceType)
}

func (a *API) reverseEntry(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Date string `json:"date"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	var date time.Time
	if req.Date != "" {
		var err error
		date, err = parseDate(req.Date)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	rev, err := a.engine.Reverse(r.Context(), id, date)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "journal.reverse", map[string]any{
		"entry_id":    rev.ID,
		"reverses_id": id,
	})

	w.Header().Set("Location", "/v1/journal/entries/"+rev.ID)
	writeJSON(w, http.StatusCreated, rev)
}

func (a *API) listEntries(w http.ResponseWriter, r *http.Request) {
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	afterParam := strings.TrimSpace(r.URL.Query().Get("after"))
	var after uint64
	if afterParam != "" {
		v, err := strconv.ParseUint(afterParam, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		after = v
	}

	items, next, err := a.entries.ListEntries(r.Context(), limit, after)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, listEntriesResponse{
		Items:     items,
		NextAfter: next,
		AsOf:      time.Now().UTC(),
	})
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit must be between 1 and 1000")
	}
	return val, nil
}

const dateLayout = "2006-01-02"

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("date is required")
	}
	if d, err := time.Parse(dateLayout, raw); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, raw)
}
