package memory

import (
	"context"
	"sort"
	"time"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
	"flowvault/internal/domain/account"
)

// AccountRepo implements account.Repository over the in-memory store.
type AccountRepo struct {
	store *Store
}

// NewAccountRepo creates an account repository.
func NewAccountRepo(store *Store) *AccountRepo {
	return &AccountRepo{store: store}
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, acc *account.Account) error {
	defer r.store.enter(ctx)()

	if _, exists := r.store.accounts[acc.ID]; exists {
		return apperror.NewDuplicate("account", "id", acc.ID.String())
	}
	if _, exists := r.store.accountCodes[acc.Code]; exists {
		return apperror.NewDuplicate("account", "code", acc.Code)
	}
	r.store.accounts[acc.ID] = *acc
	r.store.accountCodes[acc.Code] = acc.ID
	return nil
}

// Get returns an account copy by id.
func (r *AccountRepo) Get(ctx context.Context, accountID id.ID) (*account.Account, error) {
	defer r.store.enter(ctx)()

	acc, ok := r.store.accounts[accountID]
	if !ok {
		return nil, apperror.NewNotFound("account", accountID)
	}
	return &acc, nil
}

// GetByCode returns an account copy by code.
func (r *AccountRepo) GetByCode(ctx context.Context, code string) (*account.Account, error) {
	defer r.store.enter(ctx)()

	accountID, ok := r.store.accountCodes[code]
	if !ok {
		return nil, apperror.NewNotFound("account", code)
	}
	acc := r.store.accounts[accountID]
	return &acc, nil
}

// List returns accounts ordered by code.
func (r *AccountRepo) List(ctx context.Context, includeArchived bool) ([]account.Account, error) {
	defer r.store.enter(ctx)()

	out := make([]account.Account, 0, len(r.store.accounts))
	for _, acc := range r.store.accounts {
		if acc.Archived && !includeArchived {
			continue
		}
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// UpdateBalance sets the balance conditionally on the expected version.
func (r *AccountRepo) UpdateBalance(ctx context.Context, accountID id.ID, balance types.Money, expectedVersion int64) error {
	defer r.store.enter(ctx)()

	acc, ok := r.store.accounts[accountID]
	if !ok {
		return apperror.NewNotFound("account", accountID)
	}
	if acc.Version != expectedVersion {
		return apperror.NewConcurrentModification("account", accountID)
	}
	acc.Balance = balance
	acc.Version++
	acc.UpdatedAt = time.Now().UTC()
	r.store.accounts[accountID] = acc
	return nil
}

// SetClosedThrough advances the closed-period boundary.
func (r *AccountRepo) SetClosedThrough(ctx context.Context, accountID id.ID, periodEnd time.Time) error {
	defer r.store.enter(ctx)()

	acc, ok := r.store.accounts[accountID]
	if !ok {
		return apperror.NewNotFound("account", accountID)
	}
	acc.ClosedThrough = periodEnd
	acc.UpdatedAt = time.Now().UTC()
	r.store.accounts[accountID] = acc
	return nil
}

// Archive soft-archives the account.
func (r *AccountRepo) Archive(ctx context.Context, accountID id.ID) error {
	defer r.store.enter(ctx)()

	acc, ok := r.store.accounts[accountID]
	if !ok {
		return apperror.NewNotFound("account", accountID)
	}
	acc.Archived = true
	acc.UpdatedAt = time.Now().UTC()
	r.store.accounts[accountID] = acc
	return nil
}
