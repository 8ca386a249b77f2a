package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
)

// ErrNoTransactions is returned when a block is requested to be sealed
// in the background and there are no transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// Sealing captures the history of sealing operations on this node.
type Sealing struct {
	Sealed       uint64        `json:"sealed"`
	Failed       uint64        `json:"failed"`
	LastDuration time.Duration `json:"lastDuration"`
	Total        time.Duration `json:"total"`
}

type sealing struct {
	mu sync.Mutex
	Sealing
}

// =============================================================================

// SealBlock snapshots the mempool and performs the proof of work to seal the
// snapshot into a new block, which is then appended to the chain. Sealing
// can be cancelled through the context. A cancelled or failed seal leaves
// the mempool untouched. Transactions submitted while the work is being
// performed stay in the mempool for the next block.
func (s *State) SealBlock(ctx context.Context, difficulty int) (database.Block, error) {
	s.sealMu.Lock()
	defer s.sealMu.Unlock()

	s.evHandler("state: SealBlock: MINING: started: difficulty[%d]", difficulty)

	start := time.Now()

	block, err := s.seal(ctx, difficulty)
	s.recordSeal(time.Since(start), err)

	if err != nil {
		s.evHandler("state: SealBlock: MINING: ERROR: %s", err)
		return database.Block{}, err
	}

	s.evHandler("state: SealBlock: MINING: completed: blk[%d]: hash[%s]: trans[%d]", block.Index, block.Hash, len(block.Transactions))

	return block, nil
}

// SealPending seals the mempool using the configured difficulty. It returns
// ErrNoTransactions when there is nothing to seal.
func (s *State) SealPending(ctx context.Context) (database.Block, error) {
	if s.mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	return s.SealBlock(ctx, s.difficulty)
}

func (s *State) seal(ctx context.Context, difficulty int) (database.Block, error) {
	trans := s.mempool.Copy()
	latest := s.RetrieveLatestBlock()

	s.evHandler("state: SealBlock: MINING: perform POW: trans[%d]", len(trans))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, s.hash, difficulty, latest, trans, s.clock(), s.evHandler)
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: SealBlock: MINING: update local state")

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Write(block); err != nil {
		return database.Block{}, err
	}

	// Only seals remove transactions and seals are serialized, so the
	// snapshot is still the head of the mempool.
	if _, err := s.mempool.Drain(len(trans)); err != nil {
		s.evHandler("state: SealBlock: MINING: WARNING: %s", err)
	}

	return block, nil
}

func (s *State) recordSeal(d time.Duration, err error) {
	s.sealing.mu.Lock()
	defer s.sealing.mu.Unlock()

	if err != nil {
		s.sealing.Failed++
		return
	}

	s.sealing.Sealed++
	s.sealing.LastDuration = d
	s.sealing.Total += d
}

// RetrieveSealing returns a copy of the sealing history.
func (s *State) RetrieveSealing() Sealing {
	s.sealing.mu.Lock()
	defer s.sealing.mu.Unlock()

	return s.sealing.Sealing
}
