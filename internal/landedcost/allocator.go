// Package landedcost computes the total landed cost of an imported inventory
// batch from its purchase price and import charge components, and guards the
// cost lock that makes the allocation immutable once downstream valuation
// depends on it.
package landedcost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"farmaledger.org/internal/fx"
	"farmaledger.org/internal/ids"
)

// Batch carries the cost inputs and lock state of an imported inventory batch.
type Batch struct {
	ID           string          `json:"id"`
	ImportPrice  decimal.Decimal `json:"import_price_usd"`
	Currency     string          `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	// Duty is always a percentage of the converted base price by policy;
	// only its rate is configurable.
	DutyPercent  decimal.Decimal `json:"duty_percent"`
	Freight      Charge          `json:"-"`
	Other        Charge          `json:"-"`
	Quantity     int64           `json:"quantity"`
	SoldQuantity int64           `json:"sold_quantity"`
	CostLocked   bool            `json:"cost_locked"`

	FinalLandedCost decimal.Decimal `json:"final_landed_cost"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Breakdown is the result of a landed cost allocation.
type Breakdown struct {
	BasePrice decimal.Decimal `json:"base_price"`
	Duty      decimal.Decimal `json:"duty"`
	Freight   decimal.Decimal `json:"freight"`
	Other     decimal.Decimal `json:"other"`
	Total     decimal.Decimal `json:"total"`
}

// ErrNotFound is returned when a batch id does not resolve.
var ErrNotFound = errors.New("batch not found")

// InvalidRateError reports a foreign-currency batch with a non-positive
// exchange rate.
type InvalidRateError struct {
	BatchID string
	Rate    decimal.Decimal
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("batch %s: exchange rate %s must be > 0", e.BatchID, e.Rate)
}

// LockedCostError reports a mutation attempt against a cost-locked batch.
type LockedCostError struct {
	BatchID string
}

func (e *LockedCostError) Error() string {
	return fmt.Sprintf("batch %s: landed cost is locked", e.BatchID)
}

// InsufficientStockError reports a quantity reduction below what sales have
// already consumed.
type InsufficientStockError struct {
	BatchID   string
	Requested int64
	Sold      int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("batch %s: requested quantity %d is below already-sold %d", e.BatchID, e.Requested, e.Sold)
}

// Compute derives the landed cost breakdown for a batch without touching its
// stored state. Pure; callers persist via Store.Allocate.
func Compute(b Batch) (Breakdown, error) {
	base, err := fx.Convert(b.ImportPrice, b.ExchangeRate)
	if err != nil {
		return Breakdown{}, &InvalidRateError{BatchID: b.ID, Rate: b.ExchangeRate}
	}
	duty := Percentage(b.DutyPercent).AmountOn(base)
	freight := b.Freight.AmountOn(base)
	other := b.Other.AmountOn(base)
	return Breakdown{
		BasePrice: base,
		Duty:      duty,
		Freight:   freight,
		Other:     other,
		Total:     base.Add(duty).Add(freight).Add(other),
	}, nil
}

// Store persists batches and serializes cost-lock transitions.
type Store interface {
	CreateBatch(ctx context.Context, b Batch) (Batch, error)
	Batch(ctx context.Context, id string) (Batch, error)
	// Allocate recomputes and stores final_landed_cost. Fails with
	// LockedCostError once the batch is locked.
	Allocate(ctx context.Context, id string) (Batch, Breakdown, error)
	// Lock freezes the allocated cost. Idempotent: locking a locked batch
	// is a no-op returning the current state.
	Lock(ctx context.Context, id string) (Batch, error)
	// SetCharges replaces the charge inputs of an unlocked batch.
	SetCharges(ctx context.Context, id string, dutyPercent decimal.Decimal, freight, other Charge) (Batch, error)
	// SetQuantity adjusts the import quantity, refusing to go below the
	// already-sold quantity.
	SetQuantity(ctx context.Context, id string, quantity int64) (Batch, error)
}

// InMemory implements Store with in-process concurrency safety. The mutex
// doubles as the check-then-set guard on cost_locked.
type InMemory struct {
	mu      sync.Mutex
	batches map[string]*Batch
}

// NewInMemory creates an empty batch store.
func NewInMemory() *InMemory {
	return &InMemory{batches: make(map[string]*Batch)}
}

func (s *InMemory) CreateBatch(ctx context.Context, b Batch) (Batch, error) {
	if b.ImportPrice.IsNegative() {
		return Batch{}, errors.New("import price must be >= 0")
	}
	if b.Quantity < 0 {
		return Batch{}, errors.New("quantity must be >= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = ids.New()
	}
	b.CostLocked = false
	b.FinalLandedCost = decimal.Zero
	b.CreatedAt = time.Now().UTC()
	s.batches[b.ID] = &b
	return b, nil
}

func (s *InMemory) Batch(ctx context.Context, id string) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return Batch{}, ErrNotFound
	}
	return *b, nil
}

func (s *InMemory) Allocate(ctx context.Context, id string) (Batch, Breakdown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return Batch{}, Breakdown{}, ErrNotFound
	}
	if b.CostLocked {
		return Batch{}, Breakdown{}, &LockedCostError{BatchID: id}
	}
	bd, err := Compute(*b)
	if err != nil {
		return Batch{}, Breakdown{}, err
	}
	b.FinalLandedCost = bd.Total
	return *b, bd, nil
}

func (s *InMemory) Lock(ctx context.Context, id string) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return Batch{}, ErrNotFound
	}
	if b.CostLocked {
		return *b, nil
	}
	b.CostLocked = true
	return *b, nil
}

func (s *InMemory) SetCharges(ctx context.Context, id string, dutyPercent decimal.Decimal, freight, other Charge) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return Batch{}, ErrNotFound
	}
	if b.CostLocked {
		return Batch{}, &LockedCostError{BatchID: id}
	}
	b.DutyPercent = dutyPercent
	b.Freight = freight
	b.Other = other
	return *b, nil
}

func (s *InMemory) SetQuantity(ctx context.Context, id string, quantity int64) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return Batch{}, ErrNotFound
	}
	if quantity < b.SoldQuantity {
		return Batch{}, &InsufficientStockError{BatchID: id, Requested: quantity, Sold: b.SoldQuantity}
	}
	b.Quantity = quantity
	return *b, nil
}
