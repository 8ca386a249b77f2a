package state

import (
	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
)

// SubmitTransaction constructs and signs a transaction and adds it to the
// mempool. No validation is performed beyond signing.
func (s *State) SubmitTransaction(from string, to string, data any, amount float64) (database.Tx, error) {
	tx, err := database.NewTx(s.signer, s.newID(), from, to, data, amount, s.clock())
	if err != nil {
		return database.Tx{}, err
	}

	// Submissions wait for an in flight block append so a transaction is
	// never in a sealed block and the mempool at the same time.
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.mempool.Add(tx)
	s.evHandler("state: SubmitTransaction: tx[%s]: pending[%d]", tx, n)

	return tx, nil
}
