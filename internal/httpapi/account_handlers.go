package httpapi

import (
	"net/http"
	"strings"

	"farmaledger.org/internal/audit"
	"farmaledger.org/internal/coa"
)

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listAccounts(w, r)
	case http.MethodPost:
		a.createAccount(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if code, ok := strings.CutSuffix(path, "/deactivate"); ok {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.deactivateAccount(w, r, code)
		return
	}
	if code, ok := strings.CutSuffix(path, "/children"); ok {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listChildren(w, r, code)
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getAccount(w, r, path)
	case http.MethodPatch:
		a.updateAccount(w, r, path)
	case http.MethodDelete:
		a.deleteAccount(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.accounts.Accounts(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": accounts})
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	var spec coa.Spec
	if err := decodeJSON(w, r, &spec); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acc, err := a.accounts.CreateAccount(r.Context(), spec)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "coa.account.create", map[string]any{
		"account_id": acc.ID,
		"code":       acc.Code,
		"type":       string(acc.Type),
	})

	w.Header().Set("Location", "/v1/accounts/"+acc.Code)
	writeJSON(w, http.StatusCreated, acc)
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request, code string) {
	acc, err := a.accounts.Resolve(r.Context(), code)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (a *API) listChildren(w http.ResponseWriter, r *http.Request, code string) {
	parent, err := a.accounts.Resolve(r.Context(), code)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	kids, err := a.accounts.Children(r.Context(), parent.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": kids})
}

func (a *API) updateAccount(w http.ResponseWriter, r *http.Request, code string) {
	var patch coa.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := a.accounts.Resolve(r.Context(), code)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	updated, err := a.accounts.UpdateAccount(r.Context(), acc.ID, patch)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deactivateAccount(w http.ResponseWriter, r *http.Request, code string) {
	acc, err := a.accounts.Resolve(r.Context(), code)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	updated, err := a.accounts.Deactivate(r.Context(), acc.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "coa.account.deactivate", map[string]any{
		"account_id": updated.ID,
		"code":       updated.Code,
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteAccount(w http.ResponseWriter, r *http.Request, code string) {
	acc, err := a.accounts.Resolve(r.Context(), code)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if err := a.accounts.Delete(r.Context(), acc.ID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "coa.account.delete", map[string]any{
		"account_id": acc.ID,
		"code":       acc.Code,
	})
	w.WriteHeader(http.StatusNoContent)
}
