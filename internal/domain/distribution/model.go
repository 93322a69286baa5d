// Package distribution splits inbound payments across accounts by fixed
// percentages and commits the resulting movements atomically.
package distribution

import (
	"context"
	"time"

	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
)

// Status tracks the lifecycle of a distribution batch.
type Status string

const (
	// StatusPending: batch created, movements not yet durably written.
	StatusPending Status = "pending"
	// StatusCommitted: every constituent movement is durably written.
	StatusCommitted Status = "committed"
	// StatusFailed: the atomic apply failed; the entire batch is void and no
	// partial commit is visible anywhere.
	StatusFailed Status = "failed"
)

// Split is one computed share of a distribution batch.
type Split struct {
	AccountID id.ID       `db:"account_id" json:"accountId"`
	Percent   types.Money `db:"percent" json:"percent"`
	Amount    types.Money `db:"amount" json:"amount"`
}

// Batch groups the movements produced by splitting one inbound payment.
// Invariant: the split amounts sum to SourceAmount exactly; the last split
// absorbs any rounding remainder.
type Batch struct {
	ID           id.ID       `db:"id" json:"id"`
	SourceAmount types.Money `db:"source_amount" json:"sourceAmount"`
	Currency     string      `db:"currency" json:"currency"`
	SourceRef    string      `db:"source_ref" json:"sourceRef,omitempty"`
	Splits       []Split     `db:"-" json:"splits"`
	Status       Status      `db:"status" json:"status"`
	CreatedBy    string      `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
}

// Repository defines storage operations for distribution batches.
type Repository interface {
	// Create inserts a pending batch with its splits. Inserting an id that
	// already exists is a no-op (retry with the same batch id is safe).
	Create(ctx context.Context, batch *Batch) error

	// UpdateStatus transitions the batch status.
	UpdateStatus(ctx context.Context, batchID id.ID, status Status) error

	// Get returns a batch with its splits.
	Get(ctx context.Context, batchID id.ID) (*Batch, error)
}
