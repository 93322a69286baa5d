package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/domain/reconciliation"
)

const cortesTable = "cortes"

// Compile-time check.
var _ reconciliation.Repository = (*CorteRepo)(nil)

// CorteRepo implements reconciliation.Repository on PostgreSQL.
type CorteRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewCorteRepo creates a new corte repository.
func NewCorteRepo(txm *TxManager) *CorteRepo {
	return &CorteRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var corteColumns = []string{
	"id", "account_id", "period_start", "period_end",
	"opening_balance", "total_credits", "total_debits",
	"computed_balance", "actual_balance", "discrepancy",
	"notes", "created_by", "created_at",
}

// Create inserts a corte. The (account_id, period_end) unique index rejects
// a second corte for the same period.
func (r *CorteRepo) Create(ctx context.Context, corte *reconciliation.Corte) error {
	q := r.builder.Insert(cortesTable).
		Columns(corteColumns...).
		Values(
			corte.ID, corte.AccountID, corte.PeriodStart, corte.PeriodEnd,
			corte.OpeningBalance, corte.TotalCredits, corte.TotalDebits,
			corte.ComputedBalance, corte.ActualBalance, corte.Discrepancy,
			corte.Notes, corte.CreatedBy, corte.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("corte", "period_end", corte.PeriodEnd.UTC().Format("2006-01-02T15:04:05Z07:00"))
		}
		return fmt.Errorf("insert corte: %w", err)
	}

	return nil
}

// Get returns a corte by id.
func (r *CorteRepo) Get(ctx context.Context, corteID id.ID) (*reconciliation.Corte, error) {
	q := r.builder.Select(corteColumns...).
		From(cortesTable).
		Where(squirrel.Eq{"id": corteID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var corte reconciliation.Corte
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &corte, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("corte", corteID.String())
		}
		return nil, fmt.Errorf("get corte: %w", err)
	}

	return &corte, nil
}

// Latest returns the newest corte for an account by period end, or nil when
// the account has never been reconciled.
func (r *CorteRepo) Latest(ctx context.Context, accountID id.ID) (*reconciliation.Corte, error) {
	q := r.builder.Select(corteColumns...).
		From(cortesTable).
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("period_end DESC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var corte reconciliation.Corte
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &corte, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest corte: %w", err)
	}

	return &corte, nil
}

// ListByAccount returns cortes for an account, newest first.
func (r *CorteRepo) ListByAccount(ctx context.Context, accountID id.ID, limit int) ([]reconciliation.Corte, error) {
	q := r.builder.Select(corteColumns...).
		From(cortesTable).
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("period_end DESC")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var cortes []reconciliation.Corte
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &cortes, sql, args...); err != nil {
		return nil, fmt.Errorf("select cortes: %w", err)
	}

	return cortes, nil
}
