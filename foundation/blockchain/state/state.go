// Package state is the core API for the ledger and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/contract"
	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
	"github.com/ardanlabs/servicechain/foundation/blockchain/mempool"
	"github.com/ardanlabs/servicechain/foundation/blockchain/signature"
	"github.com/google/uuid"
)

// DefaultEntityKey is the payload field used to associate a transaction
// with an entity when no keys are configured.
const DefaultEntityKey = "vehicleId"

// DefaultPendingThreshold is the number of pending transactions above which
// the ledger reports a warning.
const DefaultPendingThreshold = 100

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for sealing blocks in the background.
type Worker interface {
	Shutdown()
	SignalSeal()
}

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Storage          database.Storage
	Digest           signature.HashFunc
	Signer           *signature.Signer
	Difficulty       int
	PendingThreshold int
	Clock            func() time.Time
	NewID            func() string
	EvHandler        EventHandler
	EntityKeys       []string
}

// State manages the ledger.
type State struct {
	mu     sync.RWMutex
	sealMu sync.Mutex

	evHandler        EventHandler
	hash             signature.HashFunc
	signer           *signature.Signer
	difficulty       int
	pendingThreshold int
	clock            func() time.Time
	newID            func() string
	entityKeys       []string

	db       *database.Database
	mempool  *mempool.Mempool
	registry *contract.Registry
	sealing  sealing

	Worker Worker
}

// New constructs a new ledger for data management. The chain is loaded
// from storage and a genesis block is created and stored when the storage
// is empty. A chain that fails validation is still loaded so it can be
// reported on.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Storage == nil {
		return nil, errors.New("storage is required")
	}

	if cfg.Signer == nil {
		return nil, fmt.Errorf("signer is required: %w", signature.ErrConfiguration)
	}

	hash := cfg.Digest
	if hash == nil {
		hash = signature.SHA256
	}

	if cfg.Difficulty < 0 || cfg.Difficulty > len(hash(nil)) {
		return nil, fmt.Errorf("difficulty %d: %w", cfg.Difficulty, database.ErrInvalidDifficulty)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	pendingThreshold := cfg.PendingThreshold
	if pendingThreshold <= 0 {
		pendingThreshold = DefaultPendingThreshold
	}

	entityKeys := cfg.EntityKeys
	if len(entityKeys) == 0 {
		entityKeys = []string{DefaultEntityKey}
	}

	// Load all existing blocks from storage into memory for processing.
	db, err := database.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("loading blocks: %w", err)
	}

	genesis, exists := db.LatestBlock()
	if !exists {
		ev("state: New: creating genesis block")

		genesis, err = database.Genesis(hash, clock())
		if err != nil {
			return nil, err
		}

		if err := db.Write(genesis); err != nil {
			return nil, fmt.Errorf("writing genesis block: %w", err)
		}
	}

	if genesis, err = db.GetBlock(0); err != nil {
		return nil, err
	}

	if exists {
		if err := checkDigest(hash, genesis); err != nil {
			return nil, err
		}
	}

	state := State{
		evHandler:        ev,
		hash:             hash,
		signer:           cfg.Signer,
		difficulty:       cfg.Difficulty,
		pendingThreshold: pendingThreshold,
		clock:            clock,
		newID:            newID,
		entityKeys:       entityKeys,

		db:       db,
		mempool:  mempool.New(),
		registry: contract.NewRegistry(genesis.TimeStamp),
	}

	ev("state: New: loaded blocks[%d]", db.Len())

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// checkDigest refuses a stored chain that was sealed with another known
// digest than the configured one. A genesis block that no digest reproduces
// is left for chain validation to report.
func checkDigest(hash signature.HashFunc, genesis database.Block) error {
	got, err := genesis.CalculateHash(hash)
	if err != nil {
		return err
	}

	if got == genesis.Hash {
		return nil
	}

	for _, name := range signature.DigestNames() {
		fn, err := signature.Digest(name)
		if err != nil {
			continue
		}

		if h, err := genesis.CalculateHash(fn); err == nil && h == genesis.Hash {
			return fmt.Errorf("chain was sealed with digest %q: %w", name, signature.ErrConfiguration)
		}
	}

	return nil
}

// Shutdown cleanly brings the ledger down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all sealing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Make sure the storage is properly closed.
	return s.db.Close()
}

// =============================================================================
// These methods implement the contract.Ledger interface.

// Submit records an action performed by a contract.
func (s *State) Submit(from string, to string, data any, amount float64) (database.Tx, error) {
	return s.SubmitTransaction(from, to, data, amount)
}

// LatestBlockHash returns the hash of the tail of the chain.
func (s *State) LatestBlockHash() string {
	return s.RetrieveLatestBlock().Hash
}

// Now returns the current time from the configured clock.
func (s *State) Now() time.Time {
	return s.clock()
}

// NewID returns a new unique id.
func (s *State) NewID() string {
	return s.newID()
}
