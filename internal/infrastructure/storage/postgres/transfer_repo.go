package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/domain/transfer"
)

const transfersTable = "transfers"

// Compile-time check.
var _ transfer.Repository = (*TransferRepo)(nil)

// TransferRepo implements transfer.Repository on PostgreSQL.
type TransferRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewTransferRepo creates a new transfer repository.
func NewTransferRepo(txm *TxManager) *TransferRepo {
	return &TransferRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var transferColumns = []string{
	"id", "origin_account_id", "dest_account_id", "amount",
	"exchange_rate", "converted_amount", "concept", "status",
	"created_by", "occurred_at", "created_at",
}

// Create inserts a transfer record; an existing id is a no-op.
func (r *TransferRepo) Create(ctx context.Context, t *transfer.Transfer) error {
	q := r.builder.Insert(transfersTable).
		Columns(transferColumns...).
		Values(
			t.ID, t.OriginAccountID, t.DestAccountID, t.Amount,
			t.ExchangeRate, t.ConvertedAmount, t.Concept, t.Status,
			t.CreatedBy, t.OccurredAt, t.CreatedAt,
		).
		Suffix("ON CONFLICT (id) DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}

	return nil
}

// Get returns a transfer by id.
func (r *TransferRepo) Get(ctx context.Context, transferID id.ID) (*transfer.Transfer, error) {
	q := r.builder.Select(transferColumns...).
		From(transfersTable).
		Where(squirrel.Eq{"id": transferID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t transfer.Transfer
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transfer", transferID.String())
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}

	return &t, nil
}

// ListByAccount returns transfers where the account is origin or
// destination, newest first.
func (r *TransferRepo) ListByAccount(ctx context.Context, accountID id.ID, limit int) ([]transfer.Transfer, error) {
	q := r.builder.Select(transferColumns...).
		From(transfersTable).
		Where(squirrel.Or{
			squirrel.Eq{"origin_account_id": accountID},
			squirrel.Eq{"dest_account_id": accountID},
		}).
		OrderBy("occurred_at DESC", "id DESC")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var transfers []transfer.Transfer
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &transfers, sql, args...); err != nil {
		return nil, fmt.Errorf("select transfers: %w", err)
	}

	return transfers, nil
}
