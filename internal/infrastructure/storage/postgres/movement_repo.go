package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
	"flowvault/internal/domain/ledger"
)

const movementsTable = "movements"

// Compile-time check.
var _ ledger.Repository = (*MovementRepo)(nil)

// MovementRepo implements ledger.Repository on PostgreSQL. The table is
// append-only; there are no update or delete paths.
type MovementRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txm *TxManager) *MovementRepo {
	return &MovementRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var movementColumns = []string{
	"id", "account_id", "direction", "amount", "occurred_at",
	"concept", "source_type", "source_ref", "batch_id",
	"created_by", "created_at",
}

// Append inserts movements. ON CONFLICT DO NOTHING makes a retry with the
// same deterministic ids skip rows already written.
func (r *MovementRepo) Append(ctx context.Context, movements []ledger.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(
			m.ID, m.AccountID, m.Direction, m.Amount, m.OccurredAt,
			m.Concept, m.SourceType, m.SourceRef, m.BatchID,
			m.CreatedBy, m.CreatedAt,
		)
	}
	q = q.Suffix("ON CONFLICT (id) DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}

	return nil
}

// ExistingIDs reports which of the given movement ids are already present.
func (r *MovementRepo) ExistingIDs(ctx context.Context, ids []id.ID) (map[id.ID]bool, error) {
	out := make(map[id.ID]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q := r.builder.Select("id").
		From(movementsTable).
		Where(squirrel.Eq{"id": ids})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var found []id.ID
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &found, sql, args...); err != nil {
		return nil, fmt.Errorf("select existing ids: %w", err)
	}

	for _, mid := range found {
		out[mid] = true
	}
	return out, nil
}

// HistoryFor returns movements for an account ordered by (occurred_at, id)
// ascending.
func (r *MovementRepo) HistoryFor(ctx context.Context, accountID id.ID, filter ledger.HistoryFilter) ([]ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("occurred_at", "id")

	if filter.Since != nil {
		q = q.Where(squirrel.GtOrEq{"occurred_at": *filter.Since})
	}
	if filter.SourceType != nil {
		q = q.Where(squirrel.Eq{"source_type": *filter.SourceType})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []ledger.Movement
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// SumBetween sums credits and debits for an account over (after, until].
func (r *MovementRepo) SumBetween(ctx context.Context, accountID id.ID, after, until time.Time) (ledger.Turnover, error) {
	sql := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE direction = 'credit'), 0) AS credits,
			COALESCE(SUM(amount) FILTER (WHERE direction = 'debit'), 0) AS debits
		FROM movements
		WHERE account_id = $1 AND occurred_at > $2 AND occurred_at <= $3
	`

	var row struct {
		Credits types.Money `db:"credits"`
		Debits  types.Money `db:"debits"`
	}
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, accountID, after, until); err != nil {
		return ledger.Turnover{}, fmt.Errorf("sum movements: %w", err)
	}

	return ledger.Turnover{Credits: row.Credits, Debits: row.Debits}, nil
}
