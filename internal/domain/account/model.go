// Package account provides the canonical account registry. The registry owns
// the atomic-apply contract through which every balance change flows.
package account

import (
	"time"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
)

// Kind classifies an account for balance policy purposes.
type Kind string

const (
	// KindVault holds physical cash or bank money; balance must stay >= 0.
	KindVault Kind = "vault"
	// KindOperational is a working account; balance must stay >= 0.
	KindOperational Kind = "operational"
	// KindReceivablePool tracks money owed to us; may go negative.
	KindReceivablePool Kind = "receivable-pool"
)

// AllowsNegative reports whether the non-negative balance policy applies.
func (k Kind) AllowsNegative() bool {
	return k == KindReceivablePool
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindVault, KindOperational, KindReceivablePool:
		return true
	}
	return false
}

// Account represents one vault/bank tracked by the system.
// The cached Balance always equals the sum of all ledger movements for the
// account since creation; it is mutated only through the registry's
// atomic-apply path.
type Account struct {
	ID       id.ID  `db:"id" json:"id"`
	Code     string `db:"code" json:"code"`
	Name     string `db:"name" json:"name"`
	Currency string `db:"currency" json:"currency"`
	Kind     Kind   `db:"kind" json:"kind"`

	Balance types.Money `db:"balance" json:"balance"`

	// Version supports optimistic concurrency control on balance updates.
	Version int64 `db:"version" json:"version"`

	// Archived accounts are kept forever for the audit trail; they reject
	// new movements but remain readable.
	Archived bool `db:"archived" json:"archived"`

	// ClosedThrough is the period end of the account's latest corte.
	// Movements dated at or before it are rejected: they would fall outside
	// every reconciliation period.
	ClosedThrough time.Time `db:"closed_through" json:"closedThrough"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewAccount creates an account with a zero balance.
func NewAccount(code, name, currency string, kind Kind) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:        id.New(),
		Code:      code,
		Name:      name,
		Currency:  currency,
		Kind:      kind,
		Balance:   types.Zero(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks account invariants.
func (a *Account) Validate() error {
	if a.Code == "" {
		return apperror.NewValidation("account code is required")
	}
	if a.Name == "" {
		return apperror.NewValidation("account name is required")
	}
	if a.Currency == "" {
		return apperror.NewValidation("account currency is required")
	}
	if !a.Kind.Valid() {
		return apperror.NewValidation("unknown account kind: " + string(a.Kind))
	}
	return nil
}
