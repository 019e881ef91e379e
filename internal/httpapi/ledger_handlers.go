package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/journal"
	"farmaledger.org/internal/ledger"
)

type ledgerResponse struct {
	AccountCode    string          `json:"account_code,omitempty"`
	PartyID        string          `json:"party_id,omitempty"`
	From           string          `json:"from,omitempty"`
	To             string          `json:"to,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Rows           []ledger.Entry  `json:"rows"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	ClosingSide    ledger.Side     `json:"closing_side"`
	AsOf           time.Time       `json:"as_of"`
}

// handleLedger serves running-balance statements for one account or one
// party. The opening balance folds everything posted before the range.
func (a *API) handleLedger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	q := r.URL.Query()
	accountCode := strings.TrimSpace(q.Get("account"))
	partyID := strings.TrimSpace(q.Get("party"))
	if (accountCode == "") == (partyID == "") {
		writeError(w, r, http.StatusBadRequest, "exactly one of account or party is required")
		return
	}

	var from, to time.Time
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = d
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		to = d
	}

	fetch := func(lo, hi time.Time) ([]journal.LedgerLine, error) {
		if partyID != "" {
			return a.entries.LinesByParty(r.Context(), partyID, lo, hi)
		}
		acc, err := a.accounts.Resolve(r.Context(), accountCode)
		if err != nil {
			return nil, err
		}
		return a.entries.LinesByAccount(r.Context(), acc.ID, lo, hi)
	}

	opening := decimal.Zero
	if !from.IsZero() {
		prior, err := fetch(time.Time{}, from.Add(-time.Nanosecond))
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		opening = ledger.OpeningBalance(prior)
	}

	lines, err := fetch(from, to)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	rows := ledger.Aggregate(lines, opening)
	closing := opening
	if len(rows) > 0 {
		closing = rows[len(rows)-1].Balance
	}

	resp := ledgerResponse{
		AccountCode:    accountCode,
		PartyID:        partyID,
		OpeningBalance: opening,
		Rows:           rows,
		ClosingBalance: closing,
		ClosingSide:    ledger.SideOf(closing),
		AsOf:           time.Now().UTC(),
	}
	if !from.IsZero() {
		resp.From = from.Format(dateLayout)
	}
	if !to.IsZero() {
		resp.To = to.Format(dateLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}
