// Package database handles all the lower level support for maintaining the
// blockchain in storage and keeping an in memory copy of the sealed blocks.
package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/servicechain/foundation/blockchain/signature"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(block Block) error
	GetBlock(num uint64) (Block, error)
	ForEach() Iterator
	Close() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (Block, error)
	Done() bool
}

// =============================================================================

// ErrIntegrityViolation is the error reported when the chain no longer
// matches its hashes.
var ErrIntegrityViolation = errors.New("chain integrity violation")

// IntegrityError describes the first block found to be inconsistent.
type IntegrityError struct {
	Index  uint64
	Reason string
}

// Error implements the error interface.
func (ie *IntegrityError) Error() string {
	return fmt.Sprintf("block %d: %s", ie.Index, ie.Reason)
}

// Is allows errors.Is to match ErrIntegrityViolation.
func (ie *IntegrityError) Is(target error) bool {
	return target == ErrIntegrityViolation
}

// ValidateChain recomputes every block hash and checks each block points to
// its predecessor. It reports the first inconsistency found.
func ValidateChain(fn signature.HashFunc, blocks []Block) error {
	for i, block := range blocks {
		hash, err := block.CalculateHash(fn)
		if err != nil {
			return err
		}

		if block.Hash != hash {
			return &IntegrityError{Index: block.Index, Reason: fmt.Sprintf("hash mismatch, got %s, exp %s", block.Hash, hash)}
		}

		if i == 0 {
			continue
		}

		prev := blocks[i-1]
		if block.PreviousHash != prev.Hash {
			return &IntegrityError{Index: block.Index, Reason: fmt.Sprintf("previous hash doesn't match, got %s, exp %s", block.PreviousHash, prev.Hash)}
		}

		if block.Index != prev.Index+1 {
			return &IntegrityError{Index: block.Index, Reason: fmt.Sprintf("block is not the next number, got %d, exp %d", block.Index, prev.Index+1)}
		}
	}

	return nil
}

// =============================================================================

// Database manages the sealed blocks of the chain. Every block is kept in
// memory and written through to the configured storage.
type Database struct {
	mu      sync.RWMutex
	storage Storage
	blocks  []Block
}

// New constructs a database and reads all the existing blocks from storage.
// No validation is performed here so a corrupted chain can still be loaded
// and reported on.
func New(storage Storage) (*Database, error) {
	db := Database{
		storage: storage,
	}

	iter := storage.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		db.blocks = append(db.blocks, block)
	}

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// Write appends a block to the chain. The block must be the next block in
// the chain. Nothing is appended in memory if storage fails.
func (db *Database) Write(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if next := uint64(len(db.blocks)); block.Index != next {
		return fmt.Errorf("block is out of order, got %d, exp %d", block.Index, next)
	}

	if err := db.storage.Write(block); err != nil {
		return err
	}

	db.blocks = append(db.blocks, block)

	return nil
}

// Len returns the number of sealed blocks, genesis included.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// LatestBlock returns the tail of the chain.
func (db *Database) LatestBlock() (Block, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if len(db.blocks) == 0 {
		return Block{}, false
	}

	return db.blocks[len(db.blocks)-1], true
}

// GetBlock returns the block for the specified number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if num >= uint64(len(db.blocks)) {
		return Block{}, fmt.Errorf("block %d does not exist", num)
	}

	return db.blocks[num], nil
}

// CopyBlocks returns a copy of the chain. Blocks are values but share their
// transaction slices, which are never modified once sealed.
func (db *Database) CopyBlocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	copy(blocks, db.blocks)

	return blocks
}

// CorruptBlockForDrill replaces a block in memory without touching storage.
// It is only meant for audit drills that prove corruption is detected and
// must never be reachable from an operator surface.
func (db *Database) CorruptBlockForDrill(num uint64, fn func(b *Block)) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if num >= uint64(len(db.blocks)) {
		return fmt.Errorf("block %d does not exist", num)
	}

	block := db.blocks[num]
	trans := make([]Tx, len(block.Transactions))
	copy(trans, block.Transactions)
	block.Transactions = trans

	fn(&block)
	db.blocks[num] = block

	return nil
}
