package memory

import (
	"context"
	"sort"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/domain/transfer"
)

// TransferRepo implements transfer.Repository over the in-memory store.
type TransferRepo struct {
	store *Store
}

// NewTransferRepo creates a transfer repository.
func NewTransferRepo(store *Store) *TransferRepo {
	return &TransferRepo{store: store}
}

// Create inserts a transfer; an existing id is a no-op.
func (r *TransferRepo) Create(ctx context.Context, t *transfer.Transfer) error {
	defer r.store.enter(ctx)()

	if _, exists := r.store.transfers[t.ID]; exists {
		return nil
	}
	r.store.transfers[t.ID] = *t
	return nil
}

// Get returns a transfer by id.
func (r *TransferRepo) Get(ctx context.Context, transferID id.ID) (*transfer.Transfer, error) {
	defer r.store.enter(ctx)()

	t, exists := r.store.transfers[transferID]
	if !exists {
		return nil, apperror.NewNotFound("transfer", transferID.String())
	}
	out := t
	return &out, nil
}

// ListByAccount returns transfers touching an account, newest first.
func (r *TransferRepo) ListByAccount(ctx context.Context, accountID id.ID, limit int) ([]transfer.Transfer, error) {
	defer r.store.enter(ctx)()

	matched := make([]transfer.Transfer, 0)
	for _, t := range r.store.transfers {
		if t.OriginAccountID == accountID || t.DestAccountID == accountID {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].OccurredAt.After(matched[j].OccurredAt)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
