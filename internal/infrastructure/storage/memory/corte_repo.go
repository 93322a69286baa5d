package memory

import (
	"context"
	"sort"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/domain/reconciliation"
)

// CorteRepo implements reconciliation.Repository over the in-memory store.
type CorteRepo struct {
	store *Store
}

// NewCorteRepo creates a corte repository.
func NewCorteRepo(store *Store) *CorteRepo {
	return &CorteRepo{store: store}
}

// Create inserts a corte. A second corte for the same account and period end
// is rejected.
func (r *CorteRepo) Create(ctx context.Context, corte *reconciliation.Corte) error {
	defer r.store.enter(ctx)()

	if _, exists := r.store.cortes[corte.ID]; exists {
		return apperror.NewDuplicate("corte", "id", corte.ID.String())
	}
	for _, existing := range r.store.cortes {
		if existing.AccountID == corte.AccountID && existing.PeriodEnd.Equal(corte.PeriodEnd) {
			return apperror.NewDuplicate("corte", "period_end", corte.PeriodEnd.Format("2006-01-02T15:04:05Z07:00"))
		}
	}
	r.store.cortes[corte.ID] = *corte
	return nil
}

// Get returns a corte by id.
func (r *CorteRepo) Get(ctx context.Context, corteID id.ID) (*reconciliation.Corte, error) {
	defer r.store.enter(ctx)()

	c, exists := r.store.cortes[corteID]
	if !exists {
		return nil, apperror.NewNotFound("corte", corteID.String())
	}
	out := c
	return &out, nil
}

// Latest returns the newest corte for an account by period end, or nil when
// the account has never been reconciled.
func (r *CorteRepo) Latest(ctx context.Context, accountID id.ID) (*reconciliation.Corte, error) {
	defer r.store.enter(ctx)()

	var latest *reconciliation.Corte
	for _, c := range r.store.cortes {
		if c.AccountID != accountID {
			continue
		}
		if latest == nil || c.PeriodEnd.After(latest.PeriodEnd) {
			cc := c
			latest = &cc
		}
	}
	return latest, nil
}

// ListByAccount returns cortes for an account, newest first.
func (r *CorteRepo) ListByAccount(ctx context.Context, accountID id.ID, limit int) ([]reconciliation.Corte, error) {
	defer r.store.enter(ctx)()

	matched := make([]reconciliation.Corte, 0)
	for _, c := range r.store.cortes {
		if c.AccountID == accountID {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].PeriodEnd.After(matched[j].PeriodEnd)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
