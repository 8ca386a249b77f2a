package state

import (
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
)

// Set of health status values.
const (
	HealthHealthy   = "healthy"
	HealthWarning   = "warning"
	HealthUnhealthy = "unhealthy"
)

// Status is a summary of the ledger.
type Status struct {
	TotalBlocks         int    `json:"totalBlocks"`
	PendingTransactions int    `json:"pendingTransactions"`
	LastBlockHash       string `json:"lastBlockHash"`
	Difficulty          int    `json:"difficulty"`
	IsChainValid        bool   `json:"isChainValid"`
}

// ContractStats describes a registered contract.
type ContractStats struct {
	Address       string `json:"address"`
	StateSize     int    `json:"stateSize"`
	FunctionCount int    `json:"functionCount"`
}

// Stats is a detailed report of the ledger.
type Stats struct {
	TotalBlocks         int                      `json:"totalBlocks"`
	TotalTransactions   int                      `json:"totalTransactions"`
	PendingTransactions int                      `json:"pendingTransactions"`
	SmartContracts      int                      `json:"smartContracts"`
	ChainValid          bool                     `json:"chainValid"`
	LastBlock           database.Block           `json:"lastBlock"`
	ContractStats       map[string]ContractStats `json:"contractStats"`
	Sealing             Sealing                  `json:"sealing"`
	TimeStamp           time.Time                `json:"timestamp"`
}

// Health is the health report of the ledger.
type Health struct {
	Status              string    `json:"status"`
	Message             string    `json:"message,omitempty"`
	TotalBlocks         int       `json:"totalBlocks"`
	ChainValid          bool      `json:"chainValid"`
	PendingTransactions int       `json:"pendingTransactions"`
	TimeStamp           time.Time `json:"timestamp"`
}

// =============================================================================

// snapshot captures the chain and the mempool size at the same point in time.
func (s *State) snapshot() ([]database.Block, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.CopyBlocks(), s.mempool.Count()
}

// Status returns a summary of the ledger. An invalid chain is reported in
// the summary and never as an error.
func (s *State) Status() Status {
	blocks, pending := s.snapshot()

	return Status{
		TotalBlocks:         len(blocks),
		PendingTransactions: pending,
		LastBlockHash:       blocks[len(blocks)-1].Hash,
		Difficulty:          s.difficulty,
		IsChainValid:        database.ValidateChain(s.hash, blocks) == nil,
	}
}

// Stats returns a detailed report of the ledger including each contract.
func (s *State) Stats() Stats {
	blocks, pending := s.snapshot()

	var trans int
	for _, block := range blocks {
		trans += len(block.Transactions)
	}

	contracts := s.registry.Descriptors()
	cs := make(map[string]ContractStats, len(contracts))
	for _, d := range contracts {
		cs[d.Name] = ContractStats{
			Address:       d.Address,
			StateSize:     d.StateSize,
			FunctionCount: d.FunctionCount,
		}
	}

	return Stats{
		TotalBlocks:         len(blocks),
		TotalTransactions:   trans,
		PendingTransactions: pending,
		SmartContracts:      len(contracts),
		ChainValid:          database.ValidateChain(s.hash, blocks) == nil,
		LastBlock:           blocks[len(blocks)-1],
		ContractStats:       cs,
		Sealing:             s.RetrieveSealing(),
		TimeStamp:           s.clock(),
	}
}

// Health reports the ledger as unhealthy when the chain is invalid and as a
// warning when too many transactions are pending. An invalid chain takes
// precedence over the pending transactions.
func (s *State) Health() Health {
	blocks, pending := s.snapshot()

	h := Health{
		Status:              HealthHealthy,
		TotalBlocks:         len(blocks),
		ChainValid:          database.ValidateChain(s.hash, blocks) == nil,
		PendingTransactions: pending,
		TimeStamp:           s.clock(),
	}

	switch {
	case !h.ChainValid:
		h.Status = HealthUnhealthy
		h.Message = "ledger integrity compromised"

	case pending > s.pendingThreshold:
		h.Status = HealthWarning
		h.Message = "high number of pending transactions"
	}

	return h
}
