package httpapi

import (
	"net/http"
	"strings"

	"farmaledger.org/internal/audit"
	"farmaledger.org/internal/journal"
)

type createPartyRequest struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	TaxID    string `json:"tax_id"`
	IsPKP    bool   `json:"is_pkp"`
	Currency string `json:"currency"`
}

func (a *API) handlePartiesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listParties(w, r)
	case http.MethodPost:
		a.createParty(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePartyResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/parties/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, err := a.parties.Party(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) listParties(w http.ResponseWriter, r *http.Request) {
	items, err := a.parties.Parties(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) createParty(w http.ResponseWriter, r *http.Request) {
	var req createPartyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p, err := a.parties.CreateParty(r.Context(), journal.Party{
		Name:     strings.TrimSpace(req.Name),
		Kind:     journal.PartyKind(req.Kind),
		TaxID:    strings.TrimSpace(req.TaxID),
		IsPKP:    req.IsPKP,
		Currency: strings.ToUpper(strings.TrimSpace(req.Currency)),
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "party.create", map[string]any{
		"party_id": p.ID,
		"kind":     string(p.Kind),
	})

	w.Header().Set("Location", "/v1/parties/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}
