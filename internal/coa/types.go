package coa

import (
	"errors"
	"fmt"
	"time"
)

// Type classifies an account for reporting.
type Type string

const (
	TypeAsset     Type = "asset"
	TypeLiability Type = "liability"
	TypeEquity    Type = "equity"
	TypeRevenue   Type = "revenue"
	TypeExpense   Type = "expense"
	TypeContra    Type = "contra"
)

// Valid reports whether t is one of the known account types.
func (t Type) Valid() bool {
	switch t {
	case TypeAsset, TypeLiability, TypeEquity, TypeRevenue, TypeExpense, TypeContra:
		return true
	}
	return false
}

// Side is the normal balance side of an account.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Valid reports whether s is a known balance side.
func (s Side) Valid() bool { return s == SideDebit || s == SideCredit }

// Account is a node in the chart of accounts. Header accounts group children
// and are never posted to directly.
type Account struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	NameLocal     string    `json:"name_local,omitempty"`
	Type          Type      `json:"account_type"`
	Group         string    `json:"account_group,omitempty"`
	ParentID      string    `json:"parent_id,omitempty"`
	IsHeader      bool      `json:"is_header"`
	NormalBalance Side      `json:"normal_balance"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// Postable reports whether journal lines may reference this account.
func (a Account) Postable() bool { return !a.IsHeader && a.IsActive }

// Spec describes a new account.
type Spec struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	NameLocal     string `json:"name_local"`
	Type          Type   `json:"account_type"`
	Group         string `json:"account_group"`
	ParentID      string `json:"parent_id"`
	IsHeader      bool   `json:"is_header"`
	NormalBalance Side   `json:"normal_balance"`
}

// Patch carries the mutable account fields. Code, type and balance side are
// fixed at creation so historical entries keep their meaning.
type Patch struct {
	Name      *string `json:"name"`
	NameLocal *string `json:"name_local"`
	Group     *string `json:"account_group"`
}

// ErrNotFound is returned when an account id or code does not resolve.
var ErrNotFound = errors.New("account not found")

// ValidationError reports malformed or missing account input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid account %s: %s", e.Field, e.Reason)
}

// ReferentialIntegrityError reports an attempt to delete an account that
// posted journal lines still reference.
type ReferentialIntegrityError struct {
	AccountID string
	Code      string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("account %s (%s) has posted journal lines; deactivate it instead", e.Code, e.AccountID)
}
