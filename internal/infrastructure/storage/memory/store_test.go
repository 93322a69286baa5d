package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
	"flowvault/internal/domain/account"
	"flowvault/internal/domain/ledger"
)

func testMovement(accountID id.ID, amount string, at time.Time) ledger.Movement {
	return ledger.Movement{
		ID:         id.New(),
		AccountID:  accountID,
		Direction:  ledger.DirectionCredit,
		Amount:     types.MustMoney(amount),
		OccurredAt: at,
		Concept:    "test",
		SourceType: ledger.SourceIncome,
		CreatedBy:  "tester",
		CreatedAt:  at,
	}
}

func TestTransactionRollbackRestoresState(t *testing.T) {
	store := NewStore()
	accounts := NewAccountRepo(store)
	movements := NewMovementRepo(store)
	txm := NewTxManager(store)
	ctx := context.Background()

	acc := account.NewAccount("azteca", "Azteca", "MXN", account.KindOperational)
	require.NoError(t, accounts.Create(ctx, acc))

	boom := errors.New("boom")
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := movements.Append(ctx, []ledger.Movement{
			testMovement(acc.ID, "100", time.Now().UTC()),
		}); err != nil {
			return err
		}
		if err := accounts.UpdateBalance(ctx, acc.ID, types.MustMoney("100"), acc.Version); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Every write inside the failed transaction is gone.
	stored, err := accounts.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.IsZero())
	assert.Equal(t, acc.Version, stored.Version)

	history, err := movements.HistoryFor(ctx, acc.ID, ledger.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTransactionCommitKeepsWrites(t *testing.T) {
	store := NewStore()
	accounts := NewAccountRepo(store)
	movements := NewMovementRepo(store)
	txm := NewTxManager(store)
	ctx := context.Background()

	acc := account.NewAccount("azteca", "Azteca", "MXN", account.KindOperational)
	require.NoError(t, accounts.Create(ctx, acc))

	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// Nested call joins the ambient transaction instead of deadlocking on
		// the store mutex.
		return txm.RunInTransaction(ctx, func(ctx context.Context) error {
			return movements.Append(ctx, []ledger.Movement{
				testMovement(acc.ID, "42", time.Now().UTC()),
			})
		})
	})
	require.NoError(t, err)

	history, err := movements.HistoryFor(ctx, acc.ID, ledger.HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestHistoryForOrderingAndPaging(t *testing.T) {
	store := NewStore()
	movements := NewMovementRepo(store)
	ctx := context.Background()

	accID := id.New()
	base := time.Now().UTC().Add(-time.Hour)

	// Insert out of chronological order.
	third := testMovement(accID, "3", base.Add(3*time.Minute))
	first := testMovement(accID, "1", base.Add(1*time.Minute))
	second := testMovement(accID, "2", base.Add(2*time.Minute))
	require.NoError(t, movements.Append(ctx, []ledger.Movement{third, first, second}))

	all, err := movements.HistoryFor(ctx, accID, ledger.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
	assert.Equal(t, third.ID, all[2].ID)

	page, err := movements.HistoryFor(ctx, accID, ledger.HistoryFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)

	since := base.Add(2 * time.Minute)
	recent, err := movements.HistoryFor(ctx, accID, ledger.HistoryFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestSumBetweenBoundaries(t *testing.T) {
	store := NewStore()
	movements := NewMovementRepo(store)
	ctx := context.Background()

	accID := id.New()
	cut := time.Now().UTC().Add(-time.Hour)

	atCut := testMovement(accID, "10", cut)
	after := testMovement(accID, "20", cut.Add(time.Minute))
	atEnd := testMovement(accID, "30", cut.Add(2*time.Minute))
	beyond := testMovement(accID, "40", cut.Add(3*time.Minute))
	require.NoError(t, movements.Append(ctx, []ledger.Movement{atCut, after, atEnd, beyond}))

	// Open at the start, closed at the end: a movement stamped exactly at the
	// previous cut belongs to the previous period.
	turnover, err := movements.SumBetween(ctx, accID, cut, cut.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, turnover.Credits.Equal(types.MustMoney("50")))
	assert.True(t, turnover.Debits.IsZero())
}

func TestUpdateBalanceVersionCheck(t *testing.T) {
	store := NewStore()
	accounts := NewAccountRepo(store)
	ctx := context.Background()

	acc := account.NewAccount("azteca", "Azteca", "MXN", account.KindOperational)
	require.NoError(t, accounts.Create(ctx, acc))

	require.NoError(t, accounts.UpdateBalance(ctx, acc.ID, types.MustMoney("10"), 1))

	// Stale version loses.
	err := accounts.UpdateBalance(ctx, acc.ID, types.MustMoney("20"), 1)
	require.Error(t, err)

	stored, err := accounts.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(types.MustMoney("10")))
	assert.Equal(t, int64(2), stored.Version)
}
