package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

func (a *API) reportRange(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return from, to, false
		}
		from = d
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return from, to, false
		}
		to = d
	}
	return from, to, true
}

func (a *API) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	from, to, ok := a.reportRange(w, r)
	if !ok {
		return
	}
	tb, err := a.reports.TrialBalance(r.Context(), from, to)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tb)
}

func (a *API) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	from, to, ok := a.reportRange(w, r)
	if !ok {
		return
	}
	pl, err := a.reports.ProfitAndLoss(r.Context(), from, to)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (a *API) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	asOf := time.Now().UTC()
	if raw := strings.TrimSpace(r.URL.Query().Get("as_of")); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = d
	}
	bs, err := a.reports.BalanceSheet(r.Context(), asOf)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bs)
}

func (a *API) handleTaxSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	q := r.URL.Query()
	year, err := strconv.Atoi(strings.TrimSpace(q.Get("year")))
	if err != nil || year < 2000 || year > 2200 {
		writeError(w, r, http.StatusBadRequest, "year is required")
		return
	}
	month, err := strconv.Atoi(strings.TrimSpace(q.Get("month")))
	if err != nil || month < 1 || month > 12 {
		writeError(w, r, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}
	s, err := a.reports.TaxSummary(r.Context(), year, time.Month(month))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
