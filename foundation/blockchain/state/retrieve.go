package state

import (
	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
)

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	block, _ := s.db.LatestBlock()
	return block
}

// RetrieveMempool returns a copy of the mempool in submission order.
func (s *State) RetrieveMempool() []database.Tx {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.mempool.Copy()
}

// RetrieveBlocks returns a copy of the full chain.
func (s *State) RetrieveBlocks() []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.CopyBlocks()
}

// RetrieveDifficulty returns the configured difficulty.
func (s *State) RetrieveDifficulty() int {
	return s.difficulty
}
