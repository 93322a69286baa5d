// Package projection derives account balances from movement history and
// verifies them against the registry's maintained running totals.
package projection

import (
	"context"
	"fmt"

	"flowvault/internal/core/id"
	"flowvault/internal/core/tx"
	"flowvault/internal/core/types"
	"flowvault/internal/domain/account"
	"flowvault/internal/domain/ledger"
)

// Projector exposes the two balance paths: the fast cached total and the
// full fold over history. The two must agree at all times; Verify asserts it.
type Projector struct {
	accounts  account.Repository
	movements ledger.Repository
	txManager tx.ReadOnlyManager
}

// NewProjector creates a balance projector.
func NewProjector(accounts account.Repository, movements ledger.Repository, txManager tx.ReadOnlyManager) *Projector {
	return &Projector{accounts: accounts, movements: movements, txManager: txManager}
}

// CurrentBalance reads the registry's maintained running total (fast path).
func (p *Projector) CurrentBalance(ctx context.Context, accountID id.ID) (types.Money, error) {
	acc, err := p.accounts.Get(ctx, accountID)
	if err != nil {
		return types.Money{}, err
	}
	return acc.Balance, nil
}

// Recompute folds the full movement history of the account from creation.
// The fold pages through history inside one read-only snapshot transaction,
// so movements appended mid-fold cannot skew the result. O(history).
func (p *Projector) Recompute(ctx context.Context, accountID id.ID) (types.Money, error) {
	balance := types.Zero()
	err := p.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		const page = 500
		offset := 0
		for {
			movements, err := p.movements.HistoryFor(ctx, accountID, ledger.HistoryFilter{
				Limit:  page,
				Offset: offset,
			})
			if err != nil {
				return fmt.Errorf("fold history: %w", err)
			}
			for i := range movements {
				balance = balance.Add(movements[i].Signed())
			}
			if len(movements) < page {
				return nil
			}
			offset += page
		}
	})
	if err != nil {
		return types.Money{}, err
	}
	return balance, nil
}

// Drift reports the comparison of the two balance paths for one account.
type Drift struct {
	AccountID  id.ID
	Cached     types.Money
	Recomputed types.Money
}

// InSync reports whether cached and recomputed balances agree.
func (d Drift) InSync() bool {
	return d.Cached.Equal(d.Recomputed)
}

// Verify recomputes the balance and compares it with the cached total. Both
// reads share one snapshot so a concurrent apply cannot fake a drift.
func (p *Projector) Verify(ctx context.Context, accountID id.ID) (Drift, error) {
	var drift Drift
	err := p.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		cached, err := p.CurrentBalance(ctx, accountID)
		if err != nil {
			return err
		}
		recomputed, err := p.Recompute(ctx, accountID)
		if err != nil {
			return err
		}
		drift = Drift{AccountID: accountID, Cached: cached, Recomputed: recomputed}
		return nil
	})
	if err != nil {
		return Drift{}, err
	}
	return drift, nil
}
