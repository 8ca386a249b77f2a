// Package mempool maintains the pool of transactions waiting to be sealed
// into a block.
package mempool

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
)

// Mempool represents the ordered set of transactions that have not been
// sealed yet. Transactions leave the pool in the order they were added.
type Mempool struct {
	mu    sync.RWMutex
	trans []database.Tx
}

// New constructs a new, empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.trans)
}

// Add appends a transaction to the end of the pool and returns the new size
// of the pool.
func (mp *Mempool) Add(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.trans = append(mp.trans, tx)

	return len(mp.trans)
}

// Copy returns the transactions in the pool in the order they were added.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.Tx, len(mp.trans))
	copy(cpy, mp.trans)

	return cpy
}

// Drain removes and returns the oldest n transactions. Nothing is removed
// when the pool holds fewer than n transactions. A seal drains the length of
// its snapshot, which empties the pool unless more arrived during the work.
func (mp *Mempool) Drain(n int) ([]database.Tx, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if n < 0 || n > len(mp.trans) {
		return nil, fmt.Errorf("can't drain %d transactions from a pool of %d", n, len(mp.trans))
	}

	drained := make([]database.Tx, n)
	copy(drained, mp.trans[:n])

	rest := make([]database.Tx, len(mp.trans)-n)
	copy(rest, mp.trans[n:])
	mp.trans = rest

	return drained, nil
}
