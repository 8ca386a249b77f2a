package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// ErrNotFound is returned when a transaction can't be located.
var ErrNotFound = errors.New("not found")

// =============================================================================

// BlockTx is a transaction decorated with the block that sealed it.
type BlockTx struct {
	database.Tx
	Contract       string    `json:"contract,omitempty"`
	BlockIndex     uint64    `json:"blockIndex"`
	BlockHash      string    `json:"blockHash"`
	BlockTimeStamp time.Time `json:"blockTimestamp"`
}

// TxVerification reports where a transaction lives and whether it still
// matches what was recorded.
type TxVerification struct {
	Tx             database.Tx `json:"tx"`
	Pending        bool        `json:"pending"`
	BlockIndex     uint64      `json:"blockIndex,omitempty"`
	BlockHash      string      `json:"blockHash,omitempty"`
	SignatureValid bool        `json:"signatureValid"`
	BlockValid     bool        `json:"blockValid"`
	Reason         string      `json:"reason,omitempty"`
}

// =============================================================================

// QueryEntityTransactions scans every sealed block and returns the
// transactions whose payload references the entity, either directly or
// through a nested record.
func (s *State) QueryEntityTransactions(entityID string) []BlockTx {
	out := []BlockTx{}

	for _, block := range s.db.CopyBlocks() {
		for _, tx := range block.Transactions {
			if !s.references(tx, entityID) {
				continue
			}

			btx := BlockTx{
				Tx:             tx,
				BlockIndex:     block.Index,
				BlockHash:      block.Hash,
				BlockTimeStamp: block.TimeStamp,
			}
			if c, exists := s.registry.LookupAddress(tx.To); exists {
				btx.Contract = c.Name()
			}

			out = append(out, btx)
		}
	}

	return out
}

// references checks the configured entity keys against the top level of
// the payload and against every nested object.
func (s *State) references(tx database.Tx, entityID string) bool {
	data := tx.DataMap()
	if data == nil {
		return false
	}

	match := func(m map[string]any) bool {
		for _, key := range s.entityKeys {
			if v, ok := m[key].(string); ok && v == entityID {
				return true
			}
		}
		return false
	}

	if match(data) {
		return true
	}

	for _, v := range data {
		if nested, ok := v.(map[string]any); ok && match(nested) {
			return true
		}
	}

	return false
}

// QueryTransaction locates a transaction by id in the chain or the mempool
// and verifies its signature and, once sealed, the integrity of its block
// and the link to the previous block.
func (s *State) QueryTransaction(id string) (TxVerification, error) {
	blocks := s.db.CopyBlocks()

	for i, block := range blocks {
		for _, tx := range block.Transactions {
			if tx.ID != id {
				continue
			}

			v := TxVerification{
				Tx:         tx,
				BlockIndex: block.Index,
				BlockHash:  block.Hash,
			}

			if err := tx.VerifySignature(s.signer); err != nil {
				v.Reason = err.Error()
			} else {
				v.SignatureValid = true
			}

			var prev []database.Block
			if i > 0 {
				prev = append(prev, blocks[i-1])
			}
			if err := database.ValidateChain(s.hash, append(prev, block)); err != nil {
				v.Reason = err.Error()
			} else {
				v.BlockValid = true
			}

			return v, nil
		}
	}

	for _, tx := range s.mempool.Copy() {
		if tx.ID != id {
			continue
		}

		v := TxVerification{
			Tx:      tx,
			Pending: true,
		}

		if err := tx.VerifySignature(s.signer); err != nil {
			v.Reason = err.Error()
		} else {
			v.SignatureValid = true
		}

		return v, nil
	}

	return TxVerification{}, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	latest := s.RetrieveLatestBlock().Index

	if from == QueryLatest {
		from = latest
		to = from
	}
	if to == QueryLatest || to > latest {
		to = latest
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, err := s.db.GetBlock(i)
		if err != nil {
			s.evHandler("state: getblock: ERROR: %s", err)
			return nil
		}
		out = append(out, block)
	}

	return out
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}
