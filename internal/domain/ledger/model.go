// Package ledger provides the append-only movement ledger.
// Movements are the source of truth for every account balance: a balance is
// never changed except by appending a movement.
package ledger

import (
	"time"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
)

// Direction defines whether a movement increases or decreases the balance.
type Direction string

const (
	// DirectionCredit increases the account balance
	DirectionCredit Direction = "credit"
	// DirectionDebit decreases the account balance
	DirectionDebit Direction = "debit"
)

// SourceType identifies the kind of operation that produced a movement.
type SourceType string

const (
	SourceDistribution SourceType = "distribution"
	SourceTransfer     SourceType = "transfer"
	SourceExpense      SourceType = "expense"
	SourceIncome       SourceType = "income"
	SourceAdjustment   SourceType = "adjustment"
)

// Movement is one atomic credit or debit against a single account.
// Movements are immutable: corrections are new offsetting movements, never
// edits or deletes.
type Movement struct {
	// ID is caller-supplied (or derived from the owning batch/transfer id)
	// and doubles as the idempotency key.
	ID        id.ID       `db:"id" json:"id"`
	AccountID id.ID       `db:"account_id" json:"accountId"`
	Direction Direction   `db:"direction" json:"direction"`
	Amount    types.Money `db:"amount" json:"amount"`

	// OccurredAt is the business timestamp used for ordering and period sums.
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`

	Concept    string     `db:"concept" json:"concept"`
	SourceType SourceType `db:"source_type" json:"sourceType"`

	// SourceRef links back to the originating operation (sale id,
	// distribution batch id, transfer id). Optional.
	SourceRef string `db:"source_ref" json:"sourceRef,omitempty"`

	// BatchID groups movements that must be applied atomically.
	BatchID id.ID `db:"batch_id" json:"batchId,omitempty"`

	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Signed returns the amount with sign applied by direction.
// Credit = positive, debit = negative.
func (m *Movement) Signed() types.Money {
	if m.Direction == DirectionDebit {
		return m.Amount.Neg()
	}
	return m.Amount
}

// Validate checks movement invariants.
func (m *Movement) Validate() error {
	if id.IsNil(m.ID) {
		return apperror.NewValidation("movement id is required")
	}
	if id.IsNil(m.AccountID) {
		return apperror.NewValidation("movement account id is required")
	}
	if m.Direction != DirectionCredit && m.Direction != DirectionDebit {
		return apperror.NewValidation("movement direction must be credit or debit")
	}
	if !m.Amount.IsPositive() {
		return apperror.NewValidation("movement amount must be positive")
	}
	if m.OccurredAt.IsZero() {
		return apperror.NewValidation("movement occurred_at is required")
	}
	return nil
}

// Turnover represents credit/debit totals for an account over a period.
type Turnover struct {
	Credits types.Money `json:"credits"`
	Debits  types.Money `json:"debits"`
}

// Net returns credits minus debits.
func (t Turnover) Net() types.Money {
	return t.Credits.Sub(t.Debits)
}
