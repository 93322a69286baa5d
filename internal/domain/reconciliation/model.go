// Package reconciliation produces periodic cortes: snapshots comparing an
// account's computed balance against an externally counted actual balance.
package reconciliation

import (
	"context"
	"time"

	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
)

// Corte is one periodic audit of an account. Immutable once created.
//
// The next corte's opening balance equals this corte's actual balance, so a
// discrepancy is carried forward transparently rather than silently
// absorbed.
type Corte struct {
	ID        id.ID `db:"id" json:"id"`
	AccountID id.ID `db:"account_id" json:"accountId"`

	PeriodStart time.Time `db:"period_start" json:"periodStart"`
	PeriodEnd   time.Time `db:"period_end" json:"periodEnd"`

	OpeningBalance types.Money `db:"opening_balance" json:"openingBalance"`
	TotalCredits   types.Money `db:"total_credits" json:"totalCredits"`
	TotalDebits    types.Money `db:"total_debits" json:"totalDebits"`

	// ComputedBalance is always opening + credits - debits; derived, never
	// manually set.
	ComputedBalance types.Money `db:"computed_balance" json:"computedBalance"`

	// ActualBalance is the externally supplied count (cash count or bank
	// statement value).
	ActualBalance types.Money `db:"actual_balance" json:"actualBalance"`

	// Discrepancy = actual - computed. Non-zero does not block the corte;
	// it is surfaced so the caller can alert. Correcting it requires a
	// human-reviewed adjusting movement, never an edit.
	Discrepancy types.Money `db:"discrepancy" json:"discrepancy"`

	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// HasDiscrepancy reports whether actual and computed balances differ.
func (c *Corte) HasDiscrepancy() bool {
	return !c.Discrepancy.IsZero()
}

// Repository defines storage operations for cortes.
type Repository interface {
	// Create inserts a corte. One corte per (accountID, periodEnd).
	Create(ctx context.Context, corte *Corte) error

	// Get returns a corte by id.
	Get(ctx context.Context, corteID id.ID) (*Corte, error)

	// Latest returns the most recent corte for an account by period end, or
	// nil when the account has never been reconciled.
	Latest(ctx context.Context, accountID id.ID) (*Corte, error)

	// ListByAccount returns cortes for an account, newest first.
	ListByAccount(ctx context.Context, accountID id.ID, limit int) ([]Corte, error)
}
