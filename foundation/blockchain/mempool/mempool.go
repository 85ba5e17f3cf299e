// Package mempool maintains the pending transactions waiting to be mined.
// Transactions are kept in arrival order.
package mempool

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Mempool represents a cache of pending transactions keyed by transaction id.
type Mempool struct {
	mu    sync.RWMutex
	pool  map[string]database.Tx
	order []string
}

// New constructs a new, empty mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]database.Tx),
	}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds a transaction to the back of the pool. A transaction already
// in the pool keeps its position and is replaced.
func (mp *Mempool) Upsert(tx database.Tx) (int, error) {
	if tx.ID == "" {
		return 0, fmt.Errorf("transaction has no id")
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[tx.ID]; !exists {
		mp.order = append(mp.order, tx.ID)
	}
	mp.pool[tx.ID] = tx

	return len(mp.pool), nil
}

// Delete removes the specified transactions from the pool. Unknown ids are
// ignored.
func (mp *Mempool) Delete(ids ...string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, id := range ids {
		delete(mp.pool, id)
	}

	order := mp.order[:0]
	for _, id := range mp.order {
		if _, exists := mp.pool[id]; exists {
			order = append(order, id)
		}
	}
	mp.order = order
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.Tx)
	mp.order = nil
}

// PickBest returns up to howMany transactions in arrival order. A value of
// -1 returns the whole pool. The returned slice is a copy.
func (mp *Mempool) PickBest(howMany int) []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if howMany == -1 || howMany > len(mp.order) {
		howMany = len(mp.order)
	}

	trans := make([]database.Tx, 0, howMany)
	for _, id := range mp.order[:howMany] {
		trans = append(trans, mp.pool[id])
	}

	return trans
}
