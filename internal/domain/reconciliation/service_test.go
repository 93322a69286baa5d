package reconciliation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/types"
	"flowvault/internal/domain/account"
	"flowvault/internal/domain/reconciliation"
	"flowvault/internal/infrastructure/storage/memory"
)

type corteEnv struct {
	registry *account.Registry
	service  *reconciliation.Service
}

func newCorteEnv(t *testing.T) *corteEnv {
	t.Helper()
	store := memory.NewStore()
	accounts := memory.NewAccountRepo(store)
	movements := memory.NewMovementRepo(store)
	gates := account.NewGates()
	txm := memory.NewTxManager(store)
	registry := account.NewRegistry(accounts, movements, txm, gates)
	service := reconciliation.NewService(accounts, movements, memory.NewCorteRepo(store), txm, gates)
	return &corteEnv{registry: registry, service: service}
}

func (e *corteEnv) newAccount(t *testing.T) *account.Account {
	t.Helper()
	acc := account.NewAccount("boveda_monte", "Bóveda Monte", "MXN", account.KindVault)
	require.NoError(t, e.registry.CreateAccount(context.Background(), acc))
	return acc
}

func (e *corteEnv) income(t *testing.T, acc *account.Account, amount string, at time.Time) {
	t.Helper()
	_, err := e.registry.PostIncome(context.Background(), account.IncomeInput{
		AccountID:  acc.ID,
		Amount:     types.MustMoney(amount),
		Concept:    "ingreso",
		OccurredAt: at,
		CreatedBy:  "tester",
	})
	require.NoError(t, err)
}

func (e *corteEnv) expense(t *testing.T, acc *account.Account, amount string, at time.Time) {
	t.Helper()
	_, err := e.registry.PostExpense(context.Background(), account.ExpenseInput{
		AccountID:  acc.ID,
		Amount:     types.MustMoney(amount),
		Concept:    "gasto",
		OccurredAt: at,
		CreatedBy:  "tester",
	})
	require.NoError(t, err)
}

func TestReconcileFirstPeriod(t *testing.T) {
	env := newCorteEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t)

	at := time.Now().UTC()
	env.income(t, acc, "1500", at)
	env.expense(t, acc, "320.50", at.Add(time.Millisecond))
	// Make sure the wall clock has passed the expense's stamped time so it
	// falls inside the (periodStart, periodEnd] window.
	time.Sleep(2 * time.Millisecond)
	periodEnd := time.Now().UTC()

	corte, err := env.service.Reconcile(ctx, reconciliation.Input{
		AccountID:     acc.ID,
		PeriodEnd:     periodEnd,
		ActualBalance: types.MustMoney("1179.50"),
		CreatedBy:     "tester",
	})
	require.NoError(t, err)

	// First corte opens at zero from the account's creation.
	assert.True(t, corte.OpeningBalance.IsZero())
	assert.Equal(t, acc.CreatedAt, corte.PeriodStart)
	assert.True(t, corte.TotalCredits.Equal(types.MustMoney("1500")))
	assert.True(t, corte.TotalDebits.Equal(types.MustMoney("320.50")))
	assert.True(t, corte.ComputedBalance.Equal(types.MustMoney("1179.50")))
	assert.True(t, corte.Discrepancy.IsZero())
	assert.False(t, corte.HasDiscrepancy())
}

func TestReconcileRecordsDiscrepancy(t *testing.T) {
	env := newCorteEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t)

	env.income(t, acc, "1000", time.Now().UTC())
	periodEnd := time.Now().UTC()

	// The physical count came up 50 short. Still a recorded corte, not an
	// error.
	corte, err := env.service.Reconcile(ctx, reconciliation.Input{
		AccountID:     acc.ID,
		PeriodEnd:     periodEnd,
		ActualBalance: types.MustMoney("950"),
		Notes:         "faltante en caja",
		CreatedBy:     "tester",
	})
	require.NoError(t, err)
	assert.True(t, corte.HasDiscrepancy())
	assert.True(t, corte.Discrepancy.Equal(types.MustMoney("-50")))
}

func TestReconcileCarryForward(t *testing.T) {
	env := newCorteEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t)

	env.income(t, acc, "1000", time.Now().UTC())
	firstEnd := time.Now().UTC()

	first, err := env.service.Reconcile(ctx, reconciliation.Input{
		AccountID:     acc.ID,
		PeriodEnd:     firstEnd,
		ActualBalance: types.MustMoney("980"),
		CreatedBy:     "tester",
	})
	require.NoError(t, err)
	assert.True(t, first.HasDiscrepancy())

	// Second period: movements after the first cut.
	env.income(t, acc, "500", time.Now().UTC())
	secondEnd := time.Now().UTC()

	second, err := env.service.Reconcile(ctx, reconciliation.Input{
		AccountID:     acc.ID,
		PeriodEnd:     secondEnd,
		ActualBalance: types.MustMoney("1480"),
		CreatedBy:     "tester",
	})
	require.NoError(t, err)

	// The new period opens at the counted balance, not the computed one, so
	// the first period's shortfall is not reported twice.
	assert.Equal(t, first.PeriodEnd, second.PeriodStart)
	assert.True(t, second.OpeningBalance.Equal(types.MustMoney("980")))
	assert.True(t, second.TotalCredits.Equal(types.MustMoney("500")))
	assert.True(t, second.ComputedBalance.Equal(types.MustMoney("1480")))
	assert.False(t, second.HasDiscrepancy())
}

func TestReconcilePeriodEndValidation(t *testing.T) {
	env := newCorteEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t)

	env.income(t, acc, "100", time.Now().UTC())
	firstEnd := time.Now().UTC()

	_, err := env.service.Reconcile(ctx, reconciliation.Input{
		AccountID:     acc.ID,
		PeriodEnd:     firstEnd,
		ActualBalance: types.MustMoney("100"),
		CreatedBy:     "tester",
	})
	require.NoError(t, err)

	// Same cut again: the period would be empty-or-backwards.
	_, err = env.service.Reconcile(ctx, reconciliation.Input{
		AccountID:     acc.ID,
		PeriodEnd:     firstEnd,
		ActualBalance: types.MustMoney("100"),
		CreatedBy:     "tester",
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	// Future cuts are rejected outright.
	_, err = env.service.Reconcile(ctx, reconciliation.Input{
		AccountID:     acc.ID,
		PeriodEnd:     time.Now().UTC().Add(time.Hour),
		ActualBalance: types.MustMoney("100"),
		CreatedBy:     "tester",
	})
	require.Error(t, err)
}

func TestReconcileRejectsBackdatedMovement(t *testing.T) {
	env := newCorteEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t)

	insidePeriod := time.Now().UTC()
	env.income(t, acc, "1000", insidePeriod)
	periodEnd := time.Now().UTC()

	corte, err := env.service.Reconcile(ctx, reconciliation.Input{
		AccountID:     acc.ID,
		PeriodEnd:     periodEnd,
		ActualBalance: types.MustMoney("1000"),
		CreatedBy:     "tester",
	})
	require.NoError(t, err)
	require.False(t, corte.HasDiscrepancy())

	// A movement dated inside the closed period would be counted by no corte
	// at all and every later cut would report a phantom discrepancy.
	_, err = env.registry.PostIncome(ctx, account.IncomeInput{
		AccountID:  acc.ID,
		Amount:     types.MustMoney("500"),
		Concept:    "ingreso atrasado",
		OccurredAt: insidePeriod,
		CreatedBy:  "tester",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsPeriodClosed(err))

	got, err := env.registry.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(types.MustMoney("1000")))

	// Dated after the cut, the income lands in the next period and the next
	// corte stays clean.
	env.income(t, acc, "500", time.Now().UTC())
	second, err := env.service.Reconcile(ctx, reconciliation.Input{
		AccountID:     acc.ID,
		PeriodEnd:     time.Now().UTC(),
		ActualBalance: types.MustMoney("1500"),
		CreatedBy:     "tester",
	})
	require.NoError(t, err)
	assert.False(t, second.HasDiscrepancy())
}

// stalledCorteRepo holds the corte write open so the test can observe the
// closing window from a concurrent writer's point of view.
type stalledCorteRepo struct {
	reconciliation.Repository
	entered chan struct{}
	release chan struct{}
}

func (r *stalledCorteRepo) Create(ctx context.Context, c *reconciliation.Corte) error {
	close(r.entered)
	<-r.release
	return r.Repository.Create(ctx, c)
}

func TestReconcileBlocksConcurrentPostings(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	accounts := memory.NewAccountRepo(store)
	movements := memory.NewMovementRepo(store)
	gates := account.NewGates()
	txm := memory.NewTxManager(store)
	registry := account.NewRegistry(accounts, movements, txm, gates)
	cortes := &stalledCorteRepo{
		Repository: memory.NewCorteRepo(store),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	service := reconciliation.NewService(accounts, movements, cortes, txm, gates)

	acc := account.NewAccount("boveda_monte", "Bóveda Monte", "MXN", account.KindVault)
	require.NoError(t, registry.CreateAccount(ctx, acc))
	_, err := registry.PostIncome(ctx, account.IncomeInput{
		AccountID: acc.ID,
		Amount:    types.MustMoney("1000"),
		Concept:   "ingreso",
		CreatedBy: "tester",
	})
	require.NoError(t, err)
	periodEnd := time.Now().UTC()

	corteDone := make(chan error, 1)
	go func() {
		_, err := service.Reconcile(ctx, reconciliation.Input{
			AccountID:     acc.ID,
			PeriodEnd:     periodEnd,
			ActualBalance: types.MustMoney("1000"),
			CreatedBy:     "tester",
		})
		corteDone <- err
	}()

	select {
	case <-cortes.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("reconcile never reached the corte write")
	}

	postDone := make(chan error, 1)
	go func() {
		_, err := registry.PostIncome(ctx, account.IncomeInput{
			AccountID: acc.ID,
			Amount:    types.MustMoney("500"),
			Concept:   "ingreso",
			CreatedBy: "tester",
		})
		postDone <- err
	}()

	// While the corte is in flight the posting must wait on the gate.
	select {
	case <-postDone:
		t.Fatal("posting went through during the closing window")
	case <-time.After(100 * time.Millisecond):
	}

	close(cortes.release)
	require.NoError(t, <-corteDone)
	require.NoError(t, <-postDone)

	// The late posting landed after the cut, in the next period.
	got, err := registry.Get(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(types.MustMoney("1500")))
}

func TestReconcileHistory(t *testing.T) {
	env := newCorteEnv(t)
	ctx := context.Background()
	acc := env.newAccount(t)

	env.income(t, acc, "100", time.Now().UTC())
	_, err := env.service.Reconcile(ctx, reconciliation.Input{
		AccountID:     acc.ID,
		PeriodEnd:     time.Now().UTC(),
		ActualBalance: types.MustMoney("100"),
		CreatedBy:     "tester",
	})
	require.NoError(t, err)

	env.income(t, acc, "25", time.Now().UTC())
	second, err := env.service.Reconcile(ctx, reconciliation.Input{
		AccountID:     acc.ID,
		PeriodEnd:     time.Now().UTC(),
		ActualBalance: types.MustMoney("125"),
		CreatedBy:     "tester",
	})
	require.NoError(t, err)

	history, err := env.service.History(ctx, acc.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Newest first.
	assert.Equal(t, second.ID, history[0].ID)
}
