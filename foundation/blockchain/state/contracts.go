package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/servicechain/foundation/blockchain/contract"
)

// RegisterContract adds the contract to the registry and returns its
// address. Every sealed transaction addressed to the contract is replayed
// first so the contract state matches the chain.
func (s *State) RegisterContract(c contract.Contract) (string, error) {
	address := s.registry.Address(c.Name())

	var replayed int
	for _, block := range s.db.CopyBlocks() {
		for _, tx := range block.Transactions {
			if tx.To != address {
				continue
			}

			if err := c.Apply(tx); err != nil {
				return "", fmt.Errorf("replaying tx %s in block %d for contract %q: %w", tx.ID, block.Index, c.Name(), err)
			}
			replayed++
		}
	}

	if _, err := s.registry.Register(c); err != nil {
		return "", err
	}

	s.evHandler("state: RegisterContract: name[%s]: address[%s]: replayed[%d]", c.Name(), address, replayed)

	return address, nil
}

// Execute dispatches the call to the named contract function.
func (s *State) Execute(ctx context.Context, name string, function string, params json.RawMessage) (any, error) {
	s.evHandler("state: Execute: contract[%s]: function[%s]", name, function)

	result, err := s.registry.Execute(ctx, s, name, function, params)
	if err != nil {
		s.evHandler("state: Execute: contract[%s]: function[%s]: ERROR: %s", name, function, err)
		return nil, err
	}

	return result, nil
}

// RetrieveContracts returns a description of the registered contracts.
func (s *State) RetrieveContracts() []contract.Descriptor {
	return s.registry.Descriptors()
}
