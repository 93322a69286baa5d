package memory

import (
	"context"
	"time"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/domain/distribution"
)

// BatchRepo implements distribution.Repository over the in-memory store.
type BatchRepo struct {
	store *Store
}

// NewBatchRepo creates a distribution batch repository.
func NewBatchRepo(store *Store) *BatchRepo {
	return &BatchRepo{store: store}
}

// Create inserts a batch; an existing id is a no-op.
func (r *BatchRepo) Create(ctx context.Context, batch *distribution.Batch) error {
	defer r.store.enter(ctx)()

	if _, exists := r.store.batches[batch.ID]; exists {
		return nil
	}
	stored := *batch
	stored.Splits = append([]distribution.Split(nil), batch.Splits...)
	r.store.batches[batch.ID] = stored
	return nil
}

// UpdateStatus transitions a batch status.
func (r *BatchRepo) UpdateStatus(ctx context.Context, batchID id.ID, status distribution.Status) error {
	defer r.store.enter(ctx)()

	batch, exists := r.store.batches[batchID]
	if !exists {
		return apperror.NewNotFound("distribution batch", batchID.String())
	}
	batch.Status = status
	batch.UpdatedAt = time.Now().UTC()
	r.store.batches[batchID] = batch
	return nil
}

// Get returns a batch with its splits.
func (r *BatchRepo) Get(ctx context.Context, batchID id.ID) (*distribution.Batch, error) {
	defer r.store.enter(ctx)()

	batch, exists := r.store.batches[batchID]
	if !exists {
		return nil, apperror.NewNotFound("distribution batch", batchID.String())
	}
	out := batch
	out.Splits = append([]distribution.Split(nil), batch.Splits...)
	return &out, nil
}
