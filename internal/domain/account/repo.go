package account

import (
	"context"
	"time"

	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
)

// Repository defines storage operations for accounts.
type Repository interface {
	// Create inserts a new account. Duplicate codes fail.
	Create(ctx context.Context, acc *Account) error

	// Get returns the account by id, or a NOT_FOUND error.
	Get(ctx context.Context, accountID id.ID) (*Account, error)

	// GetByCode returns the account by its stable code.
	GetByCode(ctx context.Context, code string) (*Account, error)

	// List returns all accounts, optionally including archived ones,
	// ordered by code.
	List(ctx context.Context, includeArchived bool) ([]Account, error)

	// UpdateBalance sets the account balance conditionally on the expected
	// version and bumps the version. Returns a CONCURRENT_MODIFICATION error
	// when another writer changed the account first.
	UpdateBalance(ctx context.Context, accountID id.ID, balance types.Money, expectedVersion int64) error

	// Archive soft-archives the account. Never hard-deletes.
	Archive(ctx context.Context, accountID id.ID) error

	// SetClosedThrough advances the account's closed-period boundary to the
	// latest corte's period end.
	SetClosedThrough(ctx context.Context, accountID id.ID, periodEnd time.Time) error
}
