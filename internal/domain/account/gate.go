package account

import (
	"sort"
	"sync"

	"flowvault/internal/core/id"
)

// Gates serializes movement submission against reconciliation closing.
//
// Movement writers hold a shared lock per involved account; a reconciliation
// in its CLOSING phase holds the exclusive lock for its account, so
// concurrent movements block briefly and land in the next period. This is
// the one place the core blocks: it protects the no-double-counting
// invariant for period sums.
//
// Multi-account writers acquire their shared locks in sorted id order and
// exclusive holders take exactly one lock, so no lock cycle can form.
type Gates struct {
	mu    sync.Mutex
	gates map[id.ID]*sync.RWMutex
}

// NewGates creates an empty gate set.
func NewGates() *Gates {
	return &Gates{gates: make(map[id.ID]*sync.RWMutex)}
}

func (g *Gates) gate(accountID id.ID) *sync.RWMutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.gates[accountID]
	if !ok {
		m = &sync.RWMutex{}
		g.gates[accountID] = m
	}
	return m
}

// AcquireShared takes the shared gate for every given account and returns a
// release function. Duplicate ids are collapsed.
func (g *Gates) AcquireShared(accountIDs []id.ID) func() {
	unique := make(map[id.ID]struct{}, len(accountIDs))
	for _, a := range accountIDs {
		unique[a] = struct{}{}
	}
	ordered := make([]id.ID, 0, len(unique))
	for a := range unique {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].String() < ordered[j].String()
	})

	locked := make([]*sync.RWMutex, 0, len(ordered))
	for _, a := range ordered {
		m := g.gate(a)
		m.RLock()
		locked = append(locked, m)
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].RUnlock()
		}
	}
}

// AcquireExclusive takes the exclusive gate for one account (the CLOSING
// window of a reconciliation) and returns a release function.
func (g *Gates) AcquireExclusive(accountID id.ID) func() {
	m := g.gate(accountID)
	m.Lock()
	return m.Unlock
}
