package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/id"
	"flowvault/internal/core/types"
	"flowvault/internal/domain/account"
	"flowvault/internal/domain/ledger"
	"flowvault/internal/infrastructure/storage/memory"
)

type regEnv struct {
	store    *memory.Store
	registry *account.Registry
	ledger   *memory.MovementRepo
}

func newRegEnv(t *testing.T) *regEnv {
	t.Helper()
	store := memory.NewStore()
	movements := memory.NewMovementRepo(store)
	registry := account.NewRegistry(
		memory.NewAccountRepo(store),
		movements,
		memory.NewTxManager(store),
		account.NewGates(),
	)
	return &regEnv{store: store, registry: registry, ledger: movements}
}

func (e *regEnv) newAccount(t *testing.T, code string, kind account.Kind) *account.Account {
	t.Helper()
	acc := account.NewAccount(code, code, "MXN", kind)
	require.NoError(t, e.registry.CreateAccount(context.Background(), acc))
	return acc
}

func (e *regEnv) fund(t *testing.T, acc *account.Account, amount string) {
	t.Helper()
	_, err := e.registry.PostIncome(context.Background(), account.IncomeInput{
		AccountID: acc.ID,
		Amount:    types.MustMoney(amount),
		Concept:   "initial funding",
		CreatedBy: "tester",
	})
	require.NoError(t, err)
}

func (e *regEnv) balance(t *testing.T, accID id.ID) types.Money {
	t.Helper()
	acc, err := e.registry.Get(context.Background(), accID)
	require.NoError(t, err)
	return acc.Balance
}

func TestPostIncomeAndExpense(t *testing.T) {
	env := newRegEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "azteca", account.KindOperational)

	env.fund(t, acc, "500")
	assert.True(t, env.balance(t, acc.ID).Equal(types.MustMoney("500")))

	m, err := env.registry.PostExpense(ctx, account.ExpenseInput{
		AccountID: acc.ID,
		Amount:    types.MustMoney("120.50"),
		Concept:   "gasolina",
		Category:  "combustible",
		CreatedBy: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.DirectionDebit, m.Direction)

	assert.True(t, env.balance(t, acc.ID).Equal(types.MustMoney("379.50")))
}

func TestExpenseInsufficientFunds(t *testing.T) {
	env := newRegEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "azteca", account.KindOperational)
	env.fund(t, acc, "100")

	_, err := env.registry.PostExpense(ctx, account.ExpenseInput{
		AccountID: acc.ID,
		Amount:    types.MustMoney("100.01"),
		Concept:   "too much",
		CreatedBy: "tester",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientFunds(err))

	// Nothing persisted.
	assert.True(t, env.balance(t, acc.ID).Equal(types.MustMoney("100")))
	history, err := env.ledger.HistoryFor(ctx, acc.ID, ledger.HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestReceivablePoolMayGoNegative(t *testing.T) {
	env := newRegEnv(t)
	ctx := context.Background()
	pool := env.newAccount(t, "profit", account.KindReceivablePool)

	_, err := env.registry.PostExpense(ctx, account.ExpenseInput{
		AccountID: pool.ID,
		Amount:    types.MustMoney("250"),
		Concept:   "credit sale",
		CreatedBy: "tester",
	})
	require.NoError(t, err)
	assert.True(t, env.balance(t, pool.ID).Equal(types.MustMoney("-250")))
}

func TestApplyMovementsIdempotentReplay(t *testing.T) {
	env := newRegEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "azteca", account.KindOperational)

	m := ledger.Movement{
		ID:         id.New(),
		AccountID:  acc.ID,
		Direction:  ledger.DirectionCredit,
		Amount:     types.MustMoney("75"),
		OccurredAt: time.Now().UTC(),
		Concept:    "venta",
		SourceType: ledger.SourceIncome,
		CreatedBy:  "tester",
		CreatedAt:  time.Now().UTC(),
	}

	require.NoError(t, env.registry.ApplyMovements(ctx, []ledger.Movement{m}))
	// Replay of the same movement id is a silent no-op.
	require.NoError(t, env.registry.ApplyMovements(ctx, []ledger.Movement{m}))

	assert.True(t, env.balance(t, acc.ID).Equal(types.MustMoney("75")))
	history, err := env.ledger.HistoryFor(ctx, acc.ID, ledger.HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestApplyMovementsPartialOverlapRejected(t *testing.T) {
	env := newRegEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "azteca", account.KindOperational)

	first := ledger.Movement{
		ID:         id.New(),
		AccountID:  acc.ID,
		Direction:  ledger.DirectionCredit,
		Amount:     types.MustMoney("10"),
		OccurredAt: time.Now().UTC(),
		Concept:    "a",
		SourceType: ledger.SourceIncome,
		CreatedBy:  "tester",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, env.registry.ApplyMovements(ctx, []ledger.Movement{first}))

	second := first
	second.Concept = "b"
	other := first
	other.ID = id.New()
	other.Concept = "c"

	// A unit mixing one already-applied id with a fresh one is a conflict,
	// not a partial apply.
	err := env.registry.ApplyMovements(ctx, []ledger.Movement{second, other})
	require.Error(t, err)
	assert.True(t, env.balance(t, acc.ID).Equal(types.MustMoney("10")))
}

func TestApplyMovementsMultiAccountAtomic(t *testing.T) {
	env := newRegEnv(t)
	ctx := context.Background()
	a := env.newAccount(t, "azteca", account.KindOperational)
	b := env.newAccount(t, "leftie", account.KindOperational)
	env.fund(t, a, "100")

	now := time.Now().UTC()
	pair := []ledger.Movement{
		{
			ID: id.New(), AccountID: a.ID, Direction: ledger.DirectionDebit,
			Amount: types.MustMoney("150"), OccurredAt: now, Concept: "out",
			SourceType: ledger.SourceTransfer, CreatedBy: "tester", CreatedAt: now,
		},
		{
			ID: id.New(), AccountID: b.ID, Direction: ledger.DirectionCredit,
			Amount: types.MustMoney("150"), OccurredAt: now, Concept: "in",
			SourceType: ledger.SourceTransfer, CreatedBy: "tester", CreatedAt: now,
		},
	}

	err := env.registry.ApplyMovements(ctx, pair)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientFunds(err))

	// Neither leg may be visible.
	assert.True(t, env.balance(t, a.ID).Equal(types.MustMoney("100")))
	assert.True(t, env.balance(t, b.ID).IsZero())
}

func TestApplyMovementsArchivedAccount(t *testing.T) {
	env := newRegEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t, "azteca", account.KindOperational)
	require.NoError(t, env.registry.Archive(ctx, acc.ID))

	_, err := env.registry.PostIncome(ctx, account.IncomeInput{
		AccountID: acc.ID,
		Amount:    types.MustMoney("10"),
		Concept:   "late income",
		CreatedBy: "tester",
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAccountArchived, appErr.Code)
}

// contentiousAccounts wraps a repository and fails every balance update with
// a concurrent-modification error, simulating a writer that always loses the
// version race.
type contentiousAccounts struct {
	account.Repository
}

func (c *contentiousAccounts) UpdateBalance(ctx context.Context, accountID id.ID, balance types.Money, expectedVersion int64) error {
	return apperror.NewConcurrentModification("account", accountID.String())
}

func TestApplyMovementsContentionExceeded(t *testing.T) {
	store := memory.NewStore()
	accountRepo := memory.NewAccountRepo(store)
	registry := account.NewRegistry(
		&contentiousAccounts{Repository: accountRepo},
		memory.NewMovementRepo(store),
		memory.NewTxManager(store),
		account.NewGates(),
	)

	ctx := context.Background()
	acc := account.NewAccount("azteca", "azteca", "MXN", account.KindOperational)
	require.NoError(t, registry.CreateAccount(ctx, acc))

	_, err := registry.PostIncome(ctx, account.IncomeInput{
		AccountID: acc.ID,
		Amount:    types.MustMoney("10"),
		Concept:   "never lands",
		CreatedBy: "tester",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsContentionExceeded(err))

	// The retry loop rolled every attempt back.
	stored, err := accountRepo.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.IsZero())
}
