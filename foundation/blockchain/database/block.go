package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/signature"
)

// GenesisPreviousHash is the previous hash recorded on the genesis block.
const GenesisPreviousHash = "0"

// ErrInvalidDifficulty is returned when a difficulty can't be satisfied by
// the configured digest.
var ErrInvalidDifficulty = errors.New("invalid difficulty")

// =============================================================================

// Block represents a group of transactions sealed together. The nonce is not
// part of the hash input.
type Block struct {
	Index        uint64    `json:"index"`        // Position in the chain, 0 is the genesis block.
	TimeStamp    time.Time `json:"timestamp"`    // Time the block was sealed.
	Transactions []Tx      `json:"transactions"` // Transactions included in the block.
	PreviousHash string    `json:"previousHash"` // Hash of the previous block in the chain.
	Hash         string    `json:"hash"`         // Digest over index, timestamp, transactions and previous hash.
	Nonce        uint64    `json:"nonce"`        // Proof of work witness.
}

// Genesis constructs the first block of a chain.
func Genesis(fn signature.HashFunc, now time.Time) (Block, error) {
	b := Block{
		Index:        0,
		TimeStamp:    now,
		Transactions: []Tx{},
		PreviousHash: GenesisPreviousHash,
		Nonce:        0,
	}

	hash, err := b.CalculateHash(fn)
	if err != nil {
		return Block{}, err
	}
	b.Hash = hash

	return b, nil
}

// CalculateHash recomputes the digest of the block from its committed fields.
func (b Block) CalculateHash(fn signature.HashFunc) (string, error) {
	return CalculateHash(fn, b.Index, b.TimeStamp, b.Transactions, b.PreviousHash)
}

// CalculateHash returns the digest over the concatenation of the index, the
// timestamp, the json encoded transactions and the previous hash.
func CalculateHash(fn signature.HashFunc, index uint64, ts time.Time, trans []Tx, prevHash string) (string, error) {
	if trans == nil {
		trans = []Tx{}
	}

	data, err := json.Marshal(trans)
	if err != nil {
		return "", fmt.Errorf("encoding transactions: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(index, 10))
	sb.WriteString(ts.UTC().Format(time.RFC3339Nano))
	sb.Write(data)
	sb.WriteString(prevHash)

	return fn([]byte(sb.String())), nil
}

// =============================================================================

// POW constructs a new Block and performs the work to find a nonce that
// solves the proof of work puzzle. The transactions are sealed in the order
// provided.
func POW(ctx context.Context, fn signature.HashFunc, difficulty int, prevBlock Block, trans []Tx, start time.Time, evHandler func(v string, args ...any)) (Block, error) {
	if difficulty < 0 || difficulty > len(fn(nil)) {
		return Block{}, fmt.Errorf("difficulty %d: %w", difficulty, ErrInvalidDifficulty)
	}

	if trans == nil {
		trans = []Tx{}
	}

	nb := Block{
		Index:        prevBlock.Index + 1,
		TimeStamp:    start,
		Transactions: trans,
		PreviousHash: prevBlock.Hash,
		Nonce:        0,
	}

	if err := nb.performPOW(ctx, fn, difficulty, start, evHandler); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for the block.
// Since the nonce is not hashed, every attempt moves the candidate timestamp
// forward by the nonce in nanoseconds. Pointer semantics are being used since
// a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, fn signature.HashFunc, difficulty int, start time.Time, ev func(v string, args ...any)) error {
	ev("database: performPOW: MINING: started: blk[%d]: difficulty[%d]", b.Index, difficulty)
	defer ev("database: performPOW: MINING: completed: blk[%d]", b.Index)

	for _, tx := range b.Transactions {
		ev("database: performPOW: MINING: tx[%s]", tx)
	}

	// The transactions are marshaled once since they don't change between
	// attempts.
	data, err := json.Marshal(b.Transactions)
	if err != nil {
		return fmt.Errorf("encoding transactions: %w", err)
	}
	prefix := strconv.FormatUint(b.Index, 10)

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: performPOW: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if ctx.Err() != nil {
			ev("database: performPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		ts := start.Add(time.Duration(b.Nonce))

		var sb strings.Builder
		sb.WriteString(prefix)
		sb.WriteString(ts.UTC().Format(time.RFC3339Nano))
		sb.Write(data)
		sb.WriteString(b.PreviousHash)

		hash := fn([]byte(sb.String()))
		if !IsHashSolved(difficulty, hash) {
			b.Nonce++
			continue
		}

		b.TimeStamp = ts
		b.Hash = hash

		ev("database: performPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.PreviousHash, hash)
		ev("database: performPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}

// IsHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func IsHashSolved(difficulty int, hash string) bool {
	if len(hash) < difficulty {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == difficulty
}
