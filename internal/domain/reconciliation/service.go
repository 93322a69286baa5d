package reconciliation

import (
	"context"
	"fmt"
	"time"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/core/tx"
	"flowvault/internal/core/types"
	"flowvault/internal/domain/account"
	"flowvault/internal/domain/ledger"
	"flowvault/internal/obs"
	"flowvault/pkg/logger"
)

// Service performs periodic reconciliation (corte) of accounts.
//
// While a corte is being computed the account's exclusive gate is held
// (CLOSING state): concurrent movement submissions for the account block
// until the corte is recorded and then land in the next period. A movement
// can therefore never be counted in two periods or dropped between them.
type Service struct {
	accounts  account.Repository
	ledger    ledger.Repository
	cortes    Repository
	txManager tx.Manager
	gates     *account.Gates
}

// NewService creates a reconciliation service. The gate set must be the same
// instance the account registry uses.
func NewService(accounts account.Repository, led ledger.Repository, cortes Repository, txManager tx.Manager, gates *account.Gates) *Service {
	return &Service{
		accounts:  accounts,
		ledger:    led,
		cortes:    cortes,
		txManager: txManager,
		gates:     gates,
	}
}

// Input describes one reconciliation request.
type Input struct {
	AccountID id.ID
	PeriodEnd time.Time

	// ActualBalance is the externally supplied count for the period end.
	ActualBalance types.Money

	Notes     string
	CreatedBy string
}

// Reconcile sums the account's movements since the previous corte, compares
// the computed balance with the supplied actual balance, and records the
// corte. A non-zero discrepancy is a successful result, distinguishable via
// Corte.HasDiscrepancy, never an error.
func (s *Service) Reconcile(ctx context.Context, in Input) (*Corte, error) {
	if id.IsNil(in.AccountID) {
		return nil, apperror.NewValidation("account id is required")
	}
	if in.PeriodEnd.IsZero() {
		return nil, apperror.NewValidation("period end is required")
	}
	if in.PeriodEnd.After(time.Now().UTC()) {
		return nil, apperror.NewValidation("period end cannot be in the future")
	}

	// CLOSING window: movements for this account block here.
	release := s.gates.AcquireExclusive(in.AccountID)
	defer release()

	acc, err := s.accounts.Get(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}

	prior, err := s.cortes.Latest(ctx, in.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load prior corte: %w", err)
	}

	periodStart := acc.CreatedAt
	opening := types.Zero()
	if prior != nil {
		periodStart = prior.PeriodEnd
		// Carry-forward: the new period opens at what was actually counted,
		// not at what the ledger computed.
		opening = prior.ActualBalance
	}
	if !in.PeriodEnd.After(periodStart) {
		return nil, apperror.NewValidation("period end must be after the previous corte")
	}

	turnover, err := s.ledger.SumBetween(ctx, in.AccountID, periodStart, in.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("sum period movements: %w", err)
	}

	computed := opening.Add(turnover.Credits).Sub(turnover.Debits)
	discrepancy := in.ActualBalance.Sub(computed)

	corte := &Corte{
		ID:              id.New(),
		AccountID:       in.AccountID,
		PeriodStart:     periodStart,
		PeriodEnd:       in.PeriodEnd,
		OpeningBalance:  opening,
		TotalCredits:    turnover.Credits,
		TotalDebits:     turnover.Debits,
		ComputedBalance: computed,
		ActualBalance:   in.ActualBalance,
		Discrepancy:     discrepancy,
		Notes:           in.Notes,
		CreatedBy:       in.CreatedBy,
		CreatedAt:       time.Now().UTC(),
	}
	// The corte row and the account's closed-period boundary commit together:
	// once the period is recorded, no movement can be dated inside it.
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.cortes.Create(ctx, corte); err != nil {
			return fmt.Errorf("create corte: %w", err)
		}
		return s.accounts.SetClosedThrough(ctx, in.AccountID, in.PeriodEnd)
	})
	if err != nil {
		return nil, err
	}

	obs.CortesTotal.Inc()
	if corte.HasDiscrepancy() {
		obs.CorteDiscrepancies.Inc()
		logger.Warn(ctx, "corte recorded with discrepancy",
			"corte_id", corte.ID,
			"account", acc.Code,
			"computed", computed,
			"actual", in.ActualBalance,
			"discrepancy", discrepancy,
		)
	} else {
		logger.Info(ctx, "corte recorded",
			"corte_id", corte.ID,
			"account", acc.Code,
			"balance", computed,
		)
	}
	return corte, nil
}

// Get returns a corte by id.
func (s *Service) Get(ctx context.Context, corteID id.ID) (*Corte, error) {
	return s.cortes.Get(ctx, corteID)
}

// History returns recent cortes for an account, newest first.
func (s *Service) History(ctx context.Context, accountID id.ID, limit int) ([]Corte, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.cortes.ListByAccount(ctx, accountID, limit)
}
