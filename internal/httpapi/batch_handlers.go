package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/audit"
	"farmaledger.org/internal/journal"
	"farmaledger.org/internal/landedcost"
)

type chargePayload struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

func (p chargePayload) charge() (landedcost.Charge, error) {
	c, err := landedcost.ParseCharge(p.Type, p.Value)
	if err != nil {
		return landedcost.Charge{}, &journal.ValidationError{Line: -1, Reason: err.Error()}
	}
	return c, nil
}

type createBatchRequest struct {
	ImportPrice  decimal.Decimal `json:"import_price_usd"`
	Currency     string          `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	DutyPercent  decimal.Decimal `json:"duty_percent"`
	Freight      chargePayload   `json:"freight"`
	Other        chargePayload   `json:"other"`
	Quantity     int64           `json:"quantity"`
}

type setChargesRequest struct {
	DutyPercent decimal.Decimal `json:"duty_percent"`
	Freight     chargePayload   `json:"freight"`
	Other       chargePayload   `json:"other"`
}

type setQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

// batchView flattens the charge variants for JSON.
type batchView struct {
	ID              string          `json:"id"`
	ImportPrice     decimal.Decimal `json:"import_price_usd"`
	Currency        string          `json:"currency"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	DutyPercent     decimal.Decimal `json:"duty_percent"`
	Freight         chargePayload   `json:"freight"`
	Other           chargePayload   `json:"other"`
	Quantity        int64           `json:"quantity"`
	SoldQuantity    int64           `json:"sold_quantity"`
	CostLocked      bool            `json:"cost_locked"`
	FinalLandedCost decimal.Decimal `json:"final_landed_cost"`
	CreatedAt       time.Time       `json:"created_at"`
}

func viewOf(b landedcost.Batch) batchView {
	return batchView{
		ID:           b.ID,
		ImportPrice:  b.ImportPrice,
		Currency:     b.Currency,
		ExchangeRate: b.ExchangeRate,
		DutyPercent:  b.DutyPercent,
		Freight:      chargePayload{Type: string(b.Freight.Type()), Value: b.Freight.Value()},
		Other:        chargePayload{Type: string(b.Other.Type()), Value: b.Other.Value()},
		Quantity:     b.Quantity, SoldQuantity: b.SoldQuantity,
		CostLocked: b.CostLocked, FinalLandedCost: b.FinalLandedCost,
		CreatedAt: b.CreatedAt,
	}
}

func (a *API) handleBatchesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createBatch(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleBatchResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/batches/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/allocate"); ok {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.allocateBatch(w, r, id)
		return
	}
	if id, ok := strings.CutSuffix(path, "/lock"); ok {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.lockBatch(w, r, id)
		return
	}
	if id, ok := strings.CutSuffix(path, "/charges"); ok {
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.setBatchCharges(w, r, id)
		return
	}
	if id, ok := strings.CutSuffix(path, "/quantity"); ok {
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.setBatchQuantity(w, r, id)
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

	b, err := a.batches.Batch(r.Context(), path)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(b))
}

func (a *API) createBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	freight, err := req.Freight.charge()
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	other, err := req.Other.charge()
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if req.ImportPrice.IsNegative() {
		writeError(w, r, http.StatusBadRequest, "import_price_usd must be >= 0")
		return
	}
	if req.Quantity < 0 {
		writeError(w, r, http.StatusBadRequest, "quantity must be >= 0")
		return
	}

	b, err := a.batches.CreateBatch(r.Context(), landedcost.Batch{
		ImportPrice:  req.ImportPrice,
		Currency:     strings.ToUpper(strings.TrimSpace(req.Currency)),
		ExchangeRate: req.ExchangeRate,
		DutyPercent:  req.DutyPercent,
		Freight:      freight,
		Other:        other,
		Quantity:     req.Quantity,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "batch.create", map[string]any{
		"batch_id": b.ID,
		"quantity": b.Quantity,
	})

	w.Header().Set("Location", "/v1/batches/"+b.ID)
	writeJSON(w, http.StatusCreated, viewOf(b))
}

func (a *API) allocateBatch(w http.ResponseWriter, r *http.Request, id string) {
	b, bd, err := a.batches.Allocate(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "batch.allocate", map[string]any{
		"batch_id": b.ID,
		"total":    bd.Total.StringFixed(2),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"batch":     viewOf(b),
		"breakdown": bd,
	})
}

func (a *API) lockBatch(w http.ResponseWriter, r *http.Request, id string) {
	b, err := a.batches.Lock(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "batch.lock", map[string]any{
		"batch_id": b.ID,
	})
	writeJSON(w, http.StatusOK, viewOf(b))
}

func (a *API) setBatchCharges(w http.ResponseWriter, r *http.Request, id string) {
	var req setChargesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	freight, err := req.Freight.charge()
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	other, err := req.Other.charge()
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	b, err := a.batches.SetCharges(r.Context(), id, req.DutyPercent, freight, other)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(b))
}

func (a *API) setBatchQuantity(w http.ResponseWriter, r *http.Request, id string) {
	var req setQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	b, err := a.batches.SetQuantity(r.Context(), id, req.Quantity)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(b))
}
