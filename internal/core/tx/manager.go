// Package tx provides transaction management abstractions.
// This package defines interfaces that decouple domain logic from specific
// storage implementations, following the Dependency Inversion Principle.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
// Implementations handle BEGIN, COMMIT, ROLLBACK, and nested transaction support.
//
// Domain services depend on this interface, not concrete implementations.
// Implementations live in infrastructure/storage.
//
// The ledger's atomicity unit (a distribution batch or a transfer's movement
// pair) maps to exactly one RunInTransaction call: all constituent movements
// and their balance deltas become visible together or not at all.
type Manager interface {
	// RunInTransaction executes fn within a storage transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
// Use for queries that don't modify data (better performance, no locks).
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	// Attempts to modify data will fail.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
