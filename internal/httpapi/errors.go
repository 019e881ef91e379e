package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"farmaledger.org/internal/coa"
	"farmaledger.org/internal/journal"
	"farmaledger.org/internal/landedcost"
	"farmaledger.org/internal/report"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleDomainError maps typed domain errors onto HTTP status codes. Anything
// unrecognized is a 500 with a generic body; the details stay in the logs.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		jverr *journal.ValidationError
		cverr *coa.ValidationError
		uerr  *journal.UnbalancedEntryError
		lerr  *landedcost.LockedCostError
		serr  *landedcost.InsufficientStockError
		rerr  *coa.ReferentialIntegrityError
		xerr  *landedcost.InvalidRateError
		ierr  *report.IntegrityMismatchError
	)
	switch {
	case errors.As(err, &jverr), errors.As(err, &cverr), errors.As(err, &xerr):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &uerr):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &lerr), errors.As(err, &serr), errors.As(err, &rerr):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, coa.ErrNotFound),
		errors.Is(err, journal.ErrNotFound),
		errors.Is(err, journal.ErrPartyNotFound),
		errors.Is(err, landedcost.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &ierr):
		// Deliberately not masked: the caller must know the report was
		// withheld rather than receive silently wrong figures.
		writeError(w, r, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
