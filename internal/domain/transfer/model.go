// Package transfer moves funds between two accounts as an atomic
// debit/credit movement pair.
package transfer

import (
	"context"
	"time"

	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
)

// Status tracks the outcome of a transfer.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	// StatusRejectedInsufficientFunds: the origin could not cover the amount.
	// No movements were written.
	StatusRejectedInsufficientFunds Status = "rejected-insufficient-funds"
)

// Transfer is a paired debit/credit between two accounts. It materializes as
// exactly one debit movement on origin and one credit movement on
// destination, both referencing the transfer id, or neither.
type Transfer struct {
	ID              id.ID       `db:"id" json:"id"`
	OriginAccountID id.ID       `db:"origin_account_id" json:"originAccountId"`
	DestAccountID   id.ID       `db:"dest_account_id" json:"destAccountId"`
	Amount          types.Money `db:"amount" json:"amount"`

	// ExchangeRate is set only for cross-currency transfers. The rate is
	// captured here at transfer time and never looked up again;
	// reconciliation always uses the recorded ConvertedAmount.
	ExchangeRate    *types.Money `db:"exchange_rate" json:"exchangeRate,omitempty"`
	ConvertedAmount types.Money  `db:"converted_amount" json:"convertedAmount"`

	Concept   string    `db:"concept" json:"concept"`
	Status    Status    `db:"status" json:"status"`
	CreatedBy string    `db:"created_by" json:"createdBy"`
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Repository defines storage operations for completed transfers.
type Repository interface {
	// Create inserts a transfer record. Inserting an id that already exists
	// is a no-op (retry safety).
	Create(ctx context.Context, t *Transfer) error

	// Get returns a transfer by id.
	Get(ctx context.Context, transferID id.ID) (*Transfer, error)

	// ListByAccount returns transfers where the account is origin or
	// destination, newest first.
	ListByAccount(ctx context.Context, accountID id.ID, limit int) ([]Transfer, error)
}
