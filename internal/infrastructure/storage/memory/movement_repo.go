package memory

import (
	"context"
	"sort"
	"time"

	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
	"flowvault/internal/domain/ledger"
)

// MovementRepo implements ledger.Repository over the in-memory store.
type MovementRepo struct {
	store *Store
}

// NewMovementRepo creates a movement repository.
func NewMovementRepo(store *Store) *MovementRepo {
	return &MovementRepo{store: store}
}

// Append inserts movements; already-present ids are skipped.
func (r *MovementRepo) Append(ctx context.Context, movements []ledger.Movement) error {
	defer r.store.enter(ctx)()

	for _, m := range movements {
		if _, exists := r.store.movements[m.ID]; exists {
			continue
		}
		if r.store.AppendHook != nil {
			if err := r.store.AppendHook(m); err != nil {
				return err
			}
		}
		r.store.movements[m.ID] = m
		r.store.movementOrder = append(r.store.movementOrder, m.ID)
	}
	return nil
}

// ExistingIDs reports which movement ids are already present.
func (r *MovementRepo) ExistingIDs(ctx context.Context, ids []id.ID) (map[id.ID]bool, error) {
	defer r.store.enter(ctx)()

	out := make(map[id.ID]bool, len(ids))
	for _, mid := range ids {
		if _, exists := r.store.movements[mid]; exists {
			out[mid] = true
		}
	}
	return out, nil
}

// HistoryFor returns movements for an account ordered by (occurred_at, id)
// ascending.
func (r *MovementRepo) HistoryFor(ctx context.Context, accountID id.ID, filter ledger.HistoryFilter) ([]ledger.Movement, error) {
	defer r.store.enter(ctx)()

	matched := make([]ledger.Movement, 0)
	for _, mid := range r.store.movementOrder {
		m := r.store.movements[mid]
		if m.AccountID != accountID {
			continue
		}
		if filter.Since != nil && m.OccurredAt.Before(*filter.Since) {
			continue
		}
		if filter.SourceType != nil && m.SourceType != *filter.SourceType {
			continue
		}
		matched = append(matched, m)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].OccurredAt.Before(matched[j].OccurredAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []ledger.Movement{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// SumBetween sums credits and debits over (after, until].
func (r *MovementRepo) SumBetween(ctx context.Context, accountID id.ID, after, until time.Time) (ledger.Turnover, error) {
	defer r.store.enter(ctx)()

	t := ledger.Turnover{Credits: types.Zero(), Debits: types.Zero()}
	for _, m := range r.store.movements {
		if m.AccountID != accountID {
			continue
		}
		if !m.OccurredAt.After(after) || m.OccurredAt.After(until) {
			continue
		}
		if m.Direction == ledger.DirectionCredit {
			t.Credits = t.Credits.Add(m.Amount)
		} else {
			t.Debits = t.Debits.Add(m.Amount)
		}
	}
	return t, nil
}
