// Package memory provides an in-process implementation of the ledger's
// storage contracts. It backs tests and the development mode of the server;
// the transactional semantics (all-or-nothing visibility, duplicate-id
// skipping, version-conditioned balance updates) mirror the Postgres
// implementation.
package memory

import (
	"context"
	"sync"

	"flowvault/internal/core/id"
	"flowvault/internal/core/tx"
	"flowvault/internal/domain/account"
	"flowvault/internal/domain/distribution"
	"flowvault/internal/domain/ledger"
	"flowvault/internal/domain/reconciliation"
	"flowvault/internal/domain/transfer"
)

// Store holds all collections behind a single mutex. Transactions hold the
// mutex for their whole duration and roll back by restoring a snapshot, so
// a failed unit leaves no trace.
type Store struct {
	mu sync.Mutex

	accounts      map[id.ID]account.Account
	accountCodes  map[string]id.ID
	movements     map[id.ID]ledger.Movement
	movementOrder []id.ID
	batches       map[id.ID]distribution.Batch
	transfers     map[id.ID]transfer.Transfer
	cortes        map[id.ID]reconciliation.Corte

	// AppendHook, when set, runs before each movement insert. Tests inject
	// failures here to exercise atomic rollback.
	AppendHook func(m ledger.Movement) error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[id.ID]account.Account),
		accountCodes: make(map[string]id.ID),
		movements:    make(map[id.ID]ledger.Movement),
		batches:      make(map[id.ID]distribution.Batch),
		transfers:    make(map[id.ID]transfer.Transfer),
		cortes:       make(map[id.ID]reconciliation.Corte),
	}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// enter takes the store mutex unless the context already runs inside a
// transaction (which holds it for the duration). Returns the release func.
func (s *Store) enter(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// snapshot deep-copies all collections for rollback.
func (s *Store) snapshot() *storeSnapshot {
	snap := &storeSnapshot{
		accounts:      make(map[id.ID]account.Account, len(s.accounts)),
		accountCodes:  make(map[string]id.ID, len(s.accountCodes)),
		movements:     make(map[id.ID]ledger.Movement, len(s.movements)),
		movementOrder: append([]id.ID(nil), s.movementOrder...),
		batches:       make(map[id.ID]distribution.Batch, len(s.batches)),
		transfers:     make(map[id.ID]transfer.Transfer, len(s.transfers)),
		cortes:        make(map[id.ID]reconciliation.Corte, len(s.cortes)),
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	for k, v := range s.accountCodes {
		snap.accountCodes[k] = v
	}
	for k, v := range s.movements {
		snap.movements[k] = v
	}
	for k, v := range s.batches {
		v.Splits = append([]distribution.Split(nil), v.Splits...)
		snap.batches[k] = v
	}
	for k, v := range s.transfers {
		snap.transfers[k] = v
	}
	for k, v := range s.cortes {
		snap.cortes[k] = v
	}
	return snap
}

func (s *Store) restore(snap *storeSnapshot) {
	s.accounts = snap.accounts
	s.accountCodes = snap.accountCodes
	s.movements = snap.movements
	s.movementOrder = snap.movementOrder
	s.batches = snap.batches
	s.transfers = snap.transfers
	s.cortes = snap.cortes
}

type storeSnapshot struct {
	accounts      map[id.ID]account.Account
	accountCodes  map[string]id.ID
	movements     map[id.ID]ledger.Movement
	movementOrder []id.ID
	batches       map[id.ID]distribution.Batch
	transfers     map[id.ID]transfer.Transfer
	cortes        map[id.ID]reconciliation.Corte
}

// TxManager implements tx.Manager for the in-memory store. A transaction
// serializes all access by holding the store mutex; rollback restores the
// pre-transaction snapshot.
type TxManager struct {
	store *Store
}

var _ tx.ReadOnlyManager = (*TxManager)(nil)

// NewTxManager creates a transaction manager over the store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction executes fn atomically against the store. Nested calls
// reuse the ambient transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snap := m.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// ReadOnly executes fn under the store mutex. The in-memory store does not
// enforce the read-only contract; it exists to satisfy tx.ReadOnlyManager.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, fn)
}
