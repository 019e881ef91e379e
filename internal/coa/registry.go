package coa

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"farmaledger.org/internal/ids"
)

// Registry owns the chart of accounts.
type Registry interface {
	CreateAccount(ctx context.Context, spec Spec) (Account, error)
	UpdateAccount(ctx context.Context, id string, patch Patch) (Account, error)
	Deactivate(ctx context.Context, id string) (Account, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Account, error)
	Resolve(ctx context.Context, code string) (Account, error)
	Children(ctx context.Context, parentID string) ([]Account, error)
	Accounts(ctx context.Context) ([]Account, error)
}

// PostingChecker tells the registry whether posted journal lines reference an
// account. Wired to the journal store; deletion is refused while any exist.
type PostingChecker interface {
	HasPostings(ctx context.Context, accountID string) (bool, error)
}

// InMemory implements Registry with in-process concurrency safety.
type InMemory struct {
	mu       sync.RWMutex
	byID     map[string]*Account
	byCode   map[string]string // code -> id
	children map[string][]Account
	postings PostingChecker
}

// NewInMemory creates an empty registry. checker may be nil, in which case
// Delete never reports a referential conflict.
func NewInMemory(checker PostingChecker) *InMemory {
	return &InMemory{
		byID:     make(map[string]*Account),
		byCode:   make(map[string]string),
		children: make(map[string][]Account),
		postings: checker,
	}
}

// ValidateSpec checks the structural rules every Registry implementation
// enforces before creating an account.
func ValidateSpec(spec Spec) error {
	if strings.TrimSpace(spec.Code) == "" {
		return &ValidationError{Field: "code", Reason: "code is required"}
	}
	if strings.TrimSpace(spec.Name) == "" {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}
	if !spec.Type.Valid() {
		return &ValidationError{Field: "account_type", Reason: "unknown account type"}
	}
	if !spec.NormalBalance.Valid() {
		return &ValidationError{Field: "normal_balance", Reason: "normal balance side is required"}
	}
	return nil
}

func (r *InMemory) CreateAccount(ctx context.Context, spec Spec) (Account, error) {
	if err := ValidateSpec(spec); err != nil {
		return Account{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[spec.Code]; exists {
		return Account{}, &ValidationError{Field: "code", Reason: "code already in use: " + spec.Code}
	}
	if spec.ParentID != "" {
		parent, ok := r.byID[spec.ParentID]
		if !ok {
			return Account{}, &ValidationError{Field: "parent_id", Reason: "parent account does not exist"}
		}
		if !parent.IsHeader {
			return Account{}, &ValidationError{Field: "parent_id", Reason: "parent must be a header account"}
		}
	}

	acc := Account{
		ID:            ids.New(),
		Code:          spec.Code,
		Name:          spec.Name,
		NameLocal:     spec.NameLocal,
		Type:          spec.Type,
		Group:         spec.Group,
		ParentID:      spec.ParentID,
		IsHeader:      spec.IsHeader,
		NormalBalance: spec.NormalBalance,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}
	r.byID[acc.ID] = &acc
	r.byCode[acc.Code] = acc.ID
	r.invalidateSubtrees()
	return acc, nil
}

func (r *InMemory) UpdateAccount(ctx context.Context, id string, patch Patch) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return Account{}, &ValidationError{Field: "name", Reason: "name is required"}
		}
		acc.Name = *patch.Name
	}
	if patch.NameLocal != nil {
		acc.NameLocal = *patch.NameLocal
	}
	if patch.Group != nil {
		acc.Group = *patch.Group
	}
	r.invalidateSubtrees()
	return *acc, nil
}

func (r *InMemory) Deactivate(ctx context.Context, id string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	acc.IsActive = false
	r.invalidateSubtrees()
	return *acc, nil
}

// Delete removes an account that has never been posted to. Accounts with
// history must be deactivated instead.
func (r *InMemory) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	acc, ok := r.byID[id]
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	if r.postings != nil {
		posted, err := r.postings.HasPostings(ctx, id)
		if err != nil {
			return err
		}
		if posted {
			return &ReferentialIntegrityError{AccountID: acc.ID, Code: acc.Code}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byCode, acc.Code)
	delete(r.byID, id)
	r.invalidateSubtrees()
	return nil
}

func (r *InMemory) Get(ctx context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *acc, nil
}

func (r *InMemory) Resolve(ctx context.Context, code string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[code]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *r.byID[id], nil
}

// Children lists direct children of a header account sorted by code.
// Results are cached until the next registry mutation.
func (r *InMemory) Children(ctx context.Context, parentID string) ([]Account, error) {
	r.mu.RLock()
	if cached, ok := r.children[parentID]; ok {
		out := make([]Account, len(cached))
		copy(out, cached)
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[parentID]; !ok {
		return nil, ErrNotFound
	}
	kids := []Account{}
	for _, acc := range r.byID {
		if acc.ParentID == parentID {
			kids = append(kids, *acc)
		}
	}
	sort.Slice(kids, func(i, j int) bool { return kids[i].Code < kids[j].Code })
	r.children[parentID] = kids

	out := make([]Account, len(kids))
	copy(out, kids)
	return out, nil
}

// Accounts lists every account sorted by code.
func (r *InMemory) Accounts(ctx context.Context) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Account{}
	for _, acc := range r.byID {
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// invalidateSubtrees drops all cached child listings. Callers hold r.mu.
func (r *InMemory) invalidateSubtrees() {
	r.children = make(map[string][]Account)
}
