package ledger

import (
	"context"
	"fmt"
	"time"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
)

// Service provides the read side of the movement ledger. Writes go through
// the account registry's atomic-apply path so that balances and movements
// can never diverge.
type Service struct {
	repo Repository
}

// NewService creates a new ledger read service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// HistoryFor returns the movement history of an account, oldest first.
func (s *Service) HistoryFor(ctx context.Context, accountID id.ID, filter HistoryFilter) ([]Movement, error) {
	if id.IsNil(accountID) {
		return nil, apperror.NewValidation("account id is required")
	}
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 200
	}
	movements, err := s.repo.HistoryFor(ctx, accountID, filter)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", accountID, err)
	}
	return movements, nil
}

// SumSince sums credits and debits for an account over (after, until].
// Used by reconciliation to compute the expected closing balance.
func (s *Service) SumSince(ctx context.Context, accountID id.ID, after, until time.Time) (Turnover, error) {
	if id.IsNil(accountID) {
		return Turnover{}, apperror.NewValidation("account id is required")
	}
	if !until.After(after) {
		return Turnover{}, apperror.NewValidation("period end must be after period start")
	}
	t, err := s.repo.SumBetween(ctx, accountID, after, until)
	if err != nil {
		return Turnover{}, fmt.Errorf("sum since: %w", err)
	}
	return t, nil
}
