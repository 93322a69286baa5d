package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
	"flowvault/internal/domain/account"
)

const accountsTable = "accounts"

// Compile-time check.
var _ account.Repository = (*AccountRepo)(nil)

// AccountRepo implements account.Repository on PostgreSQL.
type AccountRepo struct {
	txm     *TxManager
	builder squirrel.StatementBuilderType
}

// NewAccountRepo creates a new account repository.
func NewAccountRepo(txm *TxManager) *AccountRepo {
	return &AccountRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var accountColumns = []string{
	"id", "code", "name", "currency", "kind",
	"balance", "version", "archived", "closed_through", "created_at", "updated_at",
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, acc *account.Account) error {
	q := r.builder.Insert(accountsTable).
		Columns(accountColumns...).
		Values(
			acc.ID, acc.Code, acc.Name, acc.Currency, acc.Kind,
			acc.Balance, acc.Version, acc.Archived, acc.ClosedThrough, acc.CreatedAt, acc.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("account", "code", acc.Code)
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// Get returns an account by id.
func (r *AccountRepo) Get(ctx context.Context, accountID id.ID) (*account.Account, error) {
	q := r.builder.Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"id": accountID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var acc account.Account
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &acc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("account", accountID.String())
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &acc, nil
}

// GetByCode returns an account by its stable code.
func (r *AccountRepo) GetByCode(ctx context.Context, code string) (*account.Account, error) {
	q := r.builder.Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"code": code}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var acc account.Account
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &acc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("account", code)
		}
		return nil, fmt.Errorf("get account by code: %w", err)
	}

	return &acc, nil
}

// List returns accounts ordered by code.
func (r *AccountRepo) List(ctx context.Context, includeArchived bool) ([]account.Account, error) {
	q := r.builder.Select(accountColumns...).
		From(accountsTable).
		OrderBy("code")

	if !includeArchived {
		q = q.Where(squirrel.Eq{"archived": false})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var accounts []account.Account
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &accounts, sql, args...); err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}

	return accounts, nil
}

// UpdateBalance writes the new cached balance, conditioned on the expected
// version. A zero-row update means someone else committed first.
func (r *AccountRepo) UpdateBalance(ctx context.Context, accountID id.ID, balance types.Money, expectedVersion int64) error {
	q := r.builder.Update(accountsTable).
		Set("balance", balance).
		Set("version", expectedVersion+1).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{
			"id":      accountID,
			"version": expectedVersion,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("account", accountID.String())
	}

	return nil
}

// SetClosedThrough advances the closed-period boundary to the latest
// corte's period end.
func (r *AccountRepo) SetClosedThrough(ctx context.Context, accountID id.ID, periodEnd time.Time) error {
	q := r.builder.Update(accountsTable).
		Set("closed_through", periodEnd).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": accountID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set closed_through: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("account", accountID.String())
	}

	return nil
}

// Archive marks an account as archived. Archived accounts reject new
// movements but keep their history.
func (r *AccountRepo) Archive(ctx context.Context, accountID id.ID) error {
	q := r.builder.Update(accountsTable).
		Set("archived", true).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": accountID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("archive account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("account", accountID.String())
	}

	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
