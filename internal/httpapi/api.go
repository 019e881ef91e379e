// Package httpapi exposes the ledger core over HTTP/JSON.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"farmaledger.org/internal/coa"
	"farmaledger.org/internal/journal"
	"farmaledger.org/internal/landedcost"
	"farmaledger.org/internal/obs"
	"farmaledger.org/internal/report"
)

// ReadyProbe pings the backing database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries the domain services the API serves.
type Deps struct {
	Engine   *journal.Engine
	Entries  journal.Store
	Accounts coa.Registry
	Parties  journal.PartyRegistry
	Batches  landedcost.Store
	Reports  *report.Compiler
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	engine   *journal.Engine
	entries  journal.Store
	accounts coa.Registry
	parties  journal.PartyRegistry
	batches  landedcost.Store
	reports  *report.Compiler

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, deps Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		engine:     deps.Engine,
		entries:    deps.Entries,
		accounts:   deps.Accounts,
		parties:    deps.Parties,
		batches:    deps.Batches,
		reports:    deps.Reports,
		rateBurst:  50,
		ratePerSec: 25,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// chart of accounts
	a.mux.HandleFunc("/v1/accounts", a.handleAccountsCollection)
	a.mux.HandleFunc("/v1/accounts/", a.handleAccountResource)

	// parties
	a.mux.HandleFunc("/v1/parties", a.handlePartiesCollection)
	a.mux.HandleFunc("/v1/parties/", a.handlePartyResource)

	// journal
	a.mux.HandleFunc("/v1/journal/entries", a.handleEntriesCollection)
	a.mux.HandleFunc("/v1/journal/entries/", a.handleEntryResource)

	// ledger statements
	a.mux.HandleFunc("/v1/ledger", a.handleLedger)

	// reports
	a.mux.HandleFunc("/v1/reports/trial-balance", a.handleTrialBalance)
	a.mux.HandleFunc("/v1/reports/profit-loss", a.handleProfitLoss)
	a.mux.HandleFunc("/v1/reports/balance-sheet", a.handleBalanceSheet)
	a.mux.HandleFunc("/v1/reports/tax-summary", a.handleTaxSummary)

	// import batches
	a.mux.HandleFunc("/v1/batches", a.handleBatchesCollection)
	a.mux.HandleFunc("/v1/batches/", a.handleBatchResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler wraps the mux with the full middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return h
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "farmaledger-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "farmaledger-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
