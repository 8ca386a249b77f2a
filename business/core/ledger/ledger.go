// Package ledger opens a ledger with its storage and built-in contracts
// from configuration.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/servicechain/business/contracts"
	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
	"github.com/ardanlabs/servicechain/foundation/blockchain/genesis"
	"github.com/ardanlabs/servicechain/foundation/blockchain/signature"
	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
	"github.com/ardanlabs/servicechain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/servicechain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/servicechain/foundation/blockchain/storage/postgres"
)

// Set of storage kinds.
const (
	StorageMemory   = "memory"
	StorageDisk     = "disk"
	StoragePostgres = "postgres"
)

// ErrUnknownStorage is returned for a storage kind that isn't supported.
var ErrUnknownStorage = errors.New("unknown storage kind")

// Config is the settings required to open a ledger. Zero values fall back
// to the genesis file.
type Config struct {
	Environment      string
	Secret           string
	GenesisPath      string
	Digest           string
	Difficulty       int
	PendingThreshold int
	EntityKeys       []string
	StorageKind      string
	DBPath           string
	PostgresURL      string
}

// Ledger is an opened ledger with its contracts registered.
type Ledger struct {
	State     *state.State
	Contracts contracts.Contracts
	Genesis   genesis.Genesis
}

// Open loads the genesis settings, opens the storage and constructs the
// ledger. The built-in contracts are registered, which replays their sealed
// transactions.
func Open(ctx context.Context, cfg Config, ev state.EventHandler) (Ledger, error) {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	gen, err := genesis.Load(cfg.GenesisPath)
	if err != nil {
		return Ledger{}, fmt.Errorf("loading genesis: %w", err)
	}

	if cfg.Digest != "" {
		gen.Digest = cfg.Digest
	}
	if cfg.Difficulty > 0 {
		gen.Difficulty = cfg.Difficulty
	}
	if cfg.PendingThreshold > 0 {
		gen.PendingThreshold = cfg.PendingThreshold
	}

	digest, err := signature.Digest(gen.Digest)
	if err != nil {
		return Ledger{}, err
	}

	secret, err := signature.ResolveSecret(cfg.Secret, cfg.Environment)
	if err != nil {
		return Ledger{}, err
	}

	if cfg.Secret == "" {
		ev("ledger: Open: WARNING: no secret configured, signing with the default secret: env[%s]", cfg.Environment)
	}

	signer, err := signature.NewSigner(secret)
	if err != nil {
		return Ledger{}, err
	}

	strg, err := OpenStorage(ctx, cfg.StorageKind, cfg.DBPath, cfg.PostgresURL)
	if err != nil {
		return Ledger{}, err
	}

	st, err := state.New(state.Config{
		Storage:          strg,
		Digest:           digest,
		Signer:           signer,
		Difficulty:       gen.Difficulty,
		PendingThreshold: gen.PendingThreshold,
		EvHandler:        ev,
		EntityKeys:       cfg.EntityKeys,
	})
	if err != nil {
		strg.Close()
		return Ledger{}, err
	}

	cts, err := contracts.Register(st)
	if err != nil {
		st.Shutdown()
		return Ledger{}, fmt.Errorf("registering contracts: %w", err)
	}

	l := Ledger{
		State:     st,
		Contracts: cts,
		Genesis:   gen,
	}

	return l, nil
}

// OpenStorage constructs the storage for the specified kind.
func OpenStorage(ctx context.Context, kind string, dbPath string, postgresURL string) (database.Storage, error) {
	switch strings.ToLower(kind) {
	case StorageMemory:
		return memory.New(), nil

	case StorageDisk, "":
		d, err := disk.New(dbPath)
		if err != nil {
			return nil, err
		}
		return d, nil

	case StoragePostgres:
		p, err := postgres.New(ctx, postgresURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	return nil, fmt.Errorf("%q: %w", kind, ErrUnknownStorage)
}
