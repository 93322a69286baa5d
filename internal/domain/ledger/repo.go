package ledger

import (
	"context"
	"time"

	"flowvault/internal/core/id"
)

// HistoryFilter narrows and pages movement history queries.
type HistoryFilter struct {
	Since      *time.Time
	SourceType *SourceType
	Limit      int
	Offset     int
}

// Repository defines operations for the movement ledger.
// The ledger is append-only: there is no update or delete.
type Repository interface {
	// Append inserts movements. Movements whose id already exists are
	// skipped silently (idempotency guard); callers that need to know which
	// ids were already applied use ExistingIDs first.
	Append(ctx context.Context, movements []Movement) error

	// ExistingIDs reports which of the given movement ids are already
	// present in the ledger.
	ExistingIDs(ctx context.Context, ids []id.ID) (map[id.ID]bool, error)

	// HistoryFor returns movements for an account ordered by
	// (occurred_at, id) ascending. The id tie-break keeps same-millisecond
	// movements in a stable order.
	HistoryFor(ctx context.Context, accountID id.ID, filter HistoryFilter) ([]Movement, error)

	// SumBetween sums credits and debits for an account over the interval
	// (after, until]. Summation is decimal, never float.
	SumBetween(ctx context.Context, accountID id.ID, after, until time.Time) (Turnover, error)
}
