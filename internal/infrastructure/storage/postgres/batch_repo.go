package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/domain/distribution"
)

const (
	batchesTable = "distribution_batches"
	splitsTable  = "distribution_splits"
)

// Compile-time check.
var _ distribution.Repository = (*BatchRepo)(nil)

// BatchRepo implements distribution.Repository on PostgreSQL.
type BatchRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewBatchRepo creates a new distribution batch repository.
func NewBatchRepo(txm *TxManager) *BatchRepo {
	return &BatchRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a pending batch with its splits. An existing batch id is a
// no-op so a retried distribution does not fail here.
func (r *BatchRepo) Create(ctx context.Context, batch *distribution.Batch) error {
	q := r.builder.Insert(batchesTable).
		Columns("id", "source_amount", "currency", "source_ref", "status", "created_by", "created_at", "updated_at").
		Values(batch.ID, batch.SourceAmount, batch.Currency, batch.SourceRef, batch.Status, batch.CreatedBy, batch.CreatedAt, batch.UpdatedAt).
		Suffix("ON CONFLICT (id) DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Batch already stored with its splits.
		return nil
	}

	if len(batch.Splits) == 0 {
		return nil
	}

	sq := r.builder.Insert(splitsTable).
		Columns("batch_id", "position", "account_id", "percent", "amount")
	for i, s := range batch.Splits {
		sq = sq.Values(batch.ID, i, s.AccountID, s.Percent, s.Amount)
	}

	sql, args, err = sq.ToSql()
	if err != nil {
		return fmt.Errorf("build splits insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert splits: %w", err)
	}

	return nil
}

// UpdateStatus transitions the batch status.
func (r *BatchRepo) UpdateStatus(ctx context.Context, batchID id.ID, status distribution.Status) error {
	q := r.builder.Update(batchesTable).
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("distribution batch", batchID.String())
	}

	return nil
}

// Get returns a batch with its splits in position order.
func (r *BatchRepo) Get(ctx context.Context, batchID id.ID) (*distribution.Batch, error) {
	q := r.builder.Select("id", "source_amount", "currency", "source_ref", "status", "created_by", "created_at", "updated_at").
		From(batchesTable).
		Where(squirrel.Eq{"id": batchID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batch distribution.Batch
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &batch, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("distribution batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}

	sq := r.builder.Select("account_id", "percent", "amount").
		From(splitsTable).
		Where(squirrel.Eq{"batch_id": batchID}).
		OrderBy("position")

	sql, args, err = sq.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build splits query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &batch.Splits, sql, args...); err != nil {
		return nil, fmt.Errorf("select splits: %w", err)
	}

	return &batch, nil
}
