// Package contract provides the registry and dispatcher for contracts that
// execute against the ledger. Each contract owns an isolated state store and
// records every action it performs as a transaction on the ledger.
package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
	"github.com/ardanlabs/servicechain/foundation/blockchain/signature"
)

// Set of error variables for contract execution.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyRegistered = errors.New("contract already registered")
	ErrInvalidParams     = errors.New("invalid params")
	ErrInvalidState      = errors.New("invalid state transition")
)

// =============================================================================

// Ledger represents the behavior contracts need from the ledger to record
// the actions they perform.
type Ledger interface {
	Submit(from string, to string, data any, amount float64) (database.Tx, error)
	LatestBlockHash() string
	Now() time.Time
	NewID() string
}

// Call carries everything a contract function needs to execute.
type Call struct {
	Ledger   Ledger
	Address  string
	Function string
	Params   json.RawMessage
}

// Contract interface represents the behavior required to be implemented by
// any contract that can be registered.
type Contract interface {
	Name() string
	Functions() []string
	Execute(ctx context.Context, call Call) (any, error)
	Apply(tx database.Tx) error
	StateSize() int
}

// Descriptor describes a registered contract.
type Descriptor struct {
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	Functions     []string `json:"functions"`
	FunctionCount int      `json:"functionCount"`
	StateSize     int      `json:"stateSize"`
}

// =============================================================================

type entry struct {
	contract Contract
	address  string
}

// Registry maintains the set of registered contracts by name.
type Registry struct {
	mu      sync.RWMutex
	created time.Time
	entries map[string]entry
}

// NewRegistry constructs a registry. Contract addresses are derived from the
// contract name and the created time, so the same created time must be used
// across restarts to keep addresses stable.
func NewRegistry(created time.Time) *Registry {
	return &Registry{
		created: created,
		entries: make(map[string]entry),
	}
}

// Register adds a new contract to the registry and returns its address.
// Registering a name twice fails, use Replace to overwrite.
func (r *Registry) Register(c Contract) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[c.Name()]; exists {
		return "", fmt.Errorf("contract %q: %w", c.Name(), ErrAlreadyRegistered)
	}

	return r.set(c), nil
}

// Replace registers the contract overwriting any contract registered under
// the same name. The new contract starts with its own state.
func (r *Registry) Replace(c Contract) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.set(c)
}

// Address returns the address a contract with the specified name has or
// will have once registered.
func (r *Registry) Address(name string) string {
	return signature.ContractAddress(name, r.created)
}

func (r *Registry) set(c Contract) string {
	address := r.Address(c.Name())
	r.entries[c.Name()] = entry{contract: c, address: address}

	return address
}

// Lookup returns the contract and its address for the specified name.
func (r *Registry) Lookup(name string) (Contract, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return nil, "", fmt.Errorf("contract %q: %w", name, ErrNotFound)
	}

	return e.contract, e.address, nil
}

// LookupAddress returns the contract registered at the specified address.
func (r *Registry) LookupAddress(address string) (Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.address == address {
			return e.contract, true
		}
	}

	return nil, false
}

// Execute resolves the contract and function by name and invokes it.
func (r *Registry) Execute(ctx context.Context, ledger Ledger, name string, function string, params json.RawMessage) (any, error) {
	c, address, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	if !HasFunction(c, function) {
		return nil, fmt.Errorf("contract %q function %q: %w", name, function, ErrNotFound)
	}

	call := Call{
		Ledger:   ledger,
		Address:  address,
		Function: function,
		Params:   params,
	}

	return c.Execute(ctx, call)
}

// Descriptors returns a description of every registered contract ordered
// by name.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.entries))
	for name, e := range r.entries {
		fns := e.contract.Functions()
		out = append(out, Descriptor{
			Name:          name,
			Address:       e.address,
			Functions:     fns,
			FunctionCount: len(fns),
			StateSize:     e.contract.StateSize(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out
}

// HasFunction reports whether the contract exposes the named function.
func HasFunction(c Contract, function string) bool {
	for _, fn := range c.Functions() {
		if fn == function {
			return true
		}
	}

	return false
}
