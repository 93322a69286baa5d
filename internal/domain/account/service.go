package account

import (
	"context"
	"fmt"
	"time"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/core/tx"
	"flowvault/internal/core/types"
	"flowvault/internal/domain/ledger"
	"flowvault/internal/obs"
	"flowvault/pkg/logger"
)

// DefaultMaxApplyAttempts bounds optimistic-concurrency retries before the
// registry gives up with CONTENTION_EXCEEDED.
const DefaultMaxApplyAttempts = 5

// Registry provides business operations for accounts and owns the
// atomic-apply contract: every balance change in the system goes through
// ApplyMovements, which writes the movements and the balance deltas in one
// transaction.
type Registry struct {
	accounts  Repository
	movements ledger.Repository
	txManager tx.Manager
	gates     *Gates

	maxAttempts int
}

// NewRegistry creates a new account registry.
func NewRegistry(accounts Repository, movements ledger.Repository, txManager tx.Manager, gates *Gates) *Registry {
	return &Registry{
		accounts:    accounts,
		movements:   movements,
		txManager:   txManager,
		gates:       gates,
		maxAttempts: DefaultMaxApplyAttempts,
	}
}

// Get returns an account by id.
func (r *Registry) Get(ctx context.Context, accountID id.ID) (*Account, error) {
	return r.accounts.Get(ctx, accountID)
}

// GetByCode returns an account by its stable code.
func (r *Registry) GetByCode(ctx context.Context, code string) (*Account, error) {
	return r.accounts.GetByCode(ctx, code)
}

// List returns all accounts ordered by code.
func (r *Registry) List(ctx context.Context, includeArchived bool) ([]Account, error) {
	return r.accounts.List(ctx, includeArchived)
}

// CreateAccount registers a new account. Accounts are created at system
// setup, not in the hot path.
func (r *Registry) CreateAccount(ctx context.Context, acc *Account) error {
	if err := acc.Validate(); err != nil {
		return err
	}
	if err := r.accounts.Create(ctx, acc); err != nil {
		return err
	}
	logger.Info(ctx, "account created", "id", acc.ID, "code", acc.Code, "kind", acc.Kind)
	return nil
}

// Archive soft-archives an account. The movement history stays intact.
func (r *Registry) Archive(ctx context.Context, accountID id.ID) error {
	if err := r.accounts.Archive(ctx, accountID); err != nil {
		return err
	}
	logger.Info(ctx, "account archived", "id", accountID)
	return nil
}

// ApplyMovements atomically validates and applies movements that may span
// multiple accounts. All-or-nothing: either every balance is updated and
// every movement persisted, or none are.
//
// Movements whose id was already applied are skipped (idempotent retry
// safety); re-applying a fully-seen batch is a no-op success. Debits on
// accounts whose kind forbids negative balances fail the whole unit with
// INSUFFICIENT_FUNDS, and movements dated inside an already-reconciled
// period fail it with PERIOD_CLOSED.
//
// The optional within functions run inside the same transaction after the
// movements are written; callers use them to persist their own records
// (transfer rows, batch status) atomically with the apply.
func (r *Registry) ApplyMovements(ctx context.Context, movements []ledger.Movement, within ...func(ctx context.Context) error) error {
	if len(movements) == 0 {
		return nil
	}
	for i := range movements {
		if err := movements[i].Validate(); err != nil {
			return err
		}
	}

	accountIDs := make([]id.ID, 0, len(movements))
	for i := range movements {
		accountIDs = append(accountIDs, movements[i].AccountID)
	}

	// Shared gate: blocks while a reconciliation for any involved account is
	// in its CLOSING window, so the movement lands in the next period.
	release := r.gates.AcquireShared(accountIDs)
	defer release()

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		var applied int
		err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			var txErr error
			applied, txErr = r.applyOnce(ctx, movements, within)
			return txErr
		})
		if err == nil {
			if applied == 0 {
				obs.BatchesTotal.WithLabelValues("noop").Inc()
				return nil
			}
			for i := range movements {
				obs.MovementsApplied.WithLabelValues(string(movements[i].SourceType)).Inc()
			}
			obs.BatchesTotal.WithLabelValues("committed").Inc()
			logger.Info(ctx, "movements applied", "count", applied)
			return nil
		}
		if !apperror.IsConcurrentModification(err) {
			obs.BatchesTotal.WithLabelValues("failed").Inc()
			return err
		}
		lastErr = err
		obs.ContentionRetries.Inc()
		logger.Warn(ctx, "atomic apply conflicted, retrying",
			"attempt", attempt,
			"movements", len(movements),
		)
	}

	obs.BatchesTotal.WithLabelValues("failed").Inc()
	return apperror.NewContentionExceeded(r.maxAttempts).WithCause(lastErr)
}

// applyOnce is a single optimistic attempt, executed inside a transaction.
// Returns the number of movements actually written (0 for an idempotent
// no-op replay).
func (r *Registry) applyOnce(ctx context.Context, movements []ledger.Movement, within []func(ctx context.Context) error) (int, error) {
	ids := make([]id.ID, 0, len(movements))
	for i := range movements {
		ids = append(ids, movements[i].ID)
	}
	seen, err := r.movements.ExistingIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("check existing movements: %w", err)
	}

	fresh := make([]ledger.Movement, 0, len(movements))
	for i := range movements {
		if !seen[movements[i].ID] {
			fresh = append(fresh, movements[i])
		}
	}
	if len(fresh) == 0 {
		// Whole unit already applied; retries are safe no-ops.
		for _, fn := range within {
			if err := fn(ctx); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}
	if len(fresh) != len(movements) {
		// A unit is applied as a whole or not at all, so a partial overlap
		// means two different units reused a movement id.
		return 0, apperror.NewConflict("movement id reused across atomic units")
	}

	// Aggregate deltas per account, then load and check each once.
	deltas := make(map[id.ID]types.Money)
	order := make([]id.ID, 0)
	for i := range fresh {
		m := &fresh[i]
		if _, ok := deltas[m.AccountID]; !ok {
			order = append(order, m.AccountID)
		}
		deltas[m.AccountID] = deltas[m.AccountID].Add(m.Signed())
	}

	updated := make(map[id.ID]*Account, len(order))
	for _, accID := range order {
		acc, err := r.accounts.Get(ctx, accID)
		if err != nil {
			return 0, err
		}
		if acc.Archived {
			return 0, apperror.NewAccountArchived(acc.ID.String())
		}
		next := acc.Balance.Add(deltas[accID])
		if next.IsNegative() && !acc.Kind.AllowsNegative() {
			return 0, apperror.NewInsufficientFunds(
				acc.ID.String(),
				deltas[accID].Neg().String(),
				acc.Balance.String(),
			)
		}
		acc.Balance = next
		updated[accID] = acc
	}

	// A movement dated at or before the account's latest corte would fall
	// outside every reconciliation period and show up as a phantom
	// discrepancy in all subsequent cortes.
	for i := range fresh {
		m := &fresh[i]
		closed := updated[m.AccountID].ClosedThrough
		if !m.OccurredAt.After(closed) {
			return 0, apperror.NewPeriodClosed(
				m.AccountID.String(),
				m.OccurredAt.Format(time.RFC3339Nano),
				closed.Format(time.RFC3339Nano),
			)
		}
	}

	if err := r.movements.Append(ctx, fresh); err != nil {
		return 0, fmt.Errorf("append movements: %w", err)
	}
	for _, accID := range order {
		acc := updated[accID]
		if err := r.accounts.UpdateBalance(ctx, acc.ID, acc.Balance, acc.Version); err != nil {
			return 0, err
		}
	}

	for _, fn := range within {
		if err := fn(ctx); err != nil {
			return 0, err
		}
	}

	return len(fresh), nil
}

// ExpenseInput describes a single outflow posting.
type ExpenseInput struct {
	// MovementID is the caller-supplied idempotency key. Generated when nil.
	MovementID id.ID
	AccountID  id.ID
	Amount     types.Money
	Concept    string
	Category   string
	OccurredAt time.Time
	CreatedBy  string
}

// PostExpense records a single debit movement. Subject to the non-negative
// balance policy of the account kind.
func (r *Registry) PostExpense(ctx context.Context, in ExpenseInput) (*ledger.Movement, error) {
	m, err := r.buildSingle(in.MovementID, in.AccountID, ledger.DirectionDebit, in.Amount,
		in.Concept, ledger.SourceExpense, in.Category, in.OccurredAt, in.CreatedBy)
	if err != nil {
		return nil, err
	}
	if err := r.ApplyMovements(ctx, []ledger.Movement{*m}); err != nil {
		return nil, err
	}
	return m, nil
}

// IncomeInput describes a single inflow posting.
type IncomeInput struct {
	MovementID id.ID
	AccountID  id.ID
	Amount     types.Money
	Concept    string
	Source     string
	OccurredAt time.Time
	CreatedBy  string
}

// PostIncome records a single credit movement. Pure credits never fail for
// insufficient funds.
func (r *Registry) PostIncome(ctx context.Context, in IncomeInput) (*ledger.Movement, error) {
	m, err := r.buildSingle(in.MovementID, in.AccountID, ledger.DirectionCredit, in.Amount,
		in.Concept, ledger.SourceIncome, in.Source, in.OccurredAt, in.CreatedBy)
	if err != nil {
		return nil, err
	}
	if err := r.ApplyMovements(ctx, []ledger.Movement{*m}); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Registry) buildSingle(
	movementID, accountID id.ID,
	direction ledger.Direction,
	amount types.Money,
	concept string,
	sourceType ledger.SourceType,
	sourceRef string,
	occurredAt time.Time,
	createdBy string,
) (*ledger.Movement, error) {
	if id.IsNil(movementID) {
		movementID = id.New()
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	m := &ledger.Movement{
		ID:         movementID,
		AccountID:  accountID,
		Direction:  direction,
		Amount:     amount,
		OccurredAt: occurredAt,
		Concept:    concept,
		SourceType: sourceType,
		SourceRef:  sourceRef,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
