// Package postgres implements the ability to read and write blocks to a
// PostgreSQL database.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryTimeout bounds every statement issued by the storage since the
// database.Storage interface carries no context.
const queryTimeout = 10 * time.Second

// schema creates the blocks table. The block is stored as the exact json
// bytes that were written so the committed encoding survives a reload.
const schema = `
CREATE TABLE IF NOT EXISTS blocks (
	idx        BIGINT PRIMARY KEY,
	hash       TEXT NOT NULL,
	data       BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Postgres represents the storage implementation for reading and storing
// blocks in a PostgreSQL table. This implements the database.Storage
// interface.
type Postgres struct {
	pool *pgxpool.Pool
}

// New connects to the database at the specified url and makes sure the
// blocks table exists.
func New(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := Postgres{
		pool: pool,
	}

	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &p, nil
}

// Migrate creates the schema if it doesn't exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate blocks table: %w", err)
	}

	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Write inserts the block. A block number can only be written once.
func (p *Postgres) Write(block database.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	const q = `INSERT INTO blocks (idx, hash, data) VALUES ($1, $2, $3)`
	if _, err := p.pool.Exec(ctx, q, int64(block.Index), block.Hash, data); err != nil {
		return fmt.Errorf("insert block %d: %w", block.Index, err)
	}

	return nil
}

// GetBlock returns the block for the specified number.
func (p *Postgres) GetBlock(num uint64) (database.Block, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var data []byte
	const q = `SELECT data FROM blocks WHERE idx = $1`
	if err := p.pool.QueryRow(ctx, q, int64(num)).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Block{}, fmt.Errorf("block %d does not exist", num)
		}
		return database.Block{}, fmt.Errorf("get block %d: %w", num, err)
	}

	var block database.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return database.Block{}, fmt.Errorf("decoding block %d: %w", num, err)
	}

	return block, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with the genesis block.
func (p *Postgres) ForEach() database.Iterator {
	return &postgresIterator{storage: p}
}

// Reset removes every block from the table.
func (p *Postgres) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if _, err := p.pool.Exec(ctx, `TRUNCATE TABLE blocks`); err != nil {
		return fmt.Errorf("truncate blocks: %w", err)
	}

	return nil
}

// =============================================================================

// postgresIterator walks the table one block number at a time. This
// implements the database Iterator interface.
type postgresIterator struct {
	storage *Postgres // Access to the storage API.
	current uint64    // Current block number being iterated over.
	eoc     bool      // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from the table.
func (pi *postgresIterator) Next() (database.Block, error) {
	if pi.eoc {
		return database.Block{}, errors.New("end of chain")
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var data []byte
	const q = `SELECT data FROM blocks WHERE idx = $1`
	err := pi.storage.pool.QueryRow(ctx, q, int64(pi.current)).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		pi.eoc = true
		return database.Block{}, nil
	}
	if err != nil {
		return database.Block{}, fmt.Errorf("get block %d: %w", pi.current, err)
	}

	var block database.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return database.Block{}, fmt.Errorf("decoding block %d: %w", pi.current, err)
	}
	pi.current++

	return block, nil
}

// Done returns the end of chain value.
func (pi *postgresIterator) Done() bool {
	return pi.eoc
}
