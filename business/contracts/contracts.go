// Package contracts registers the built-in contracts with the ledger.
package contracts

import (
	"github.com/ardanlabs/servicechain/business/contracts/agreement"
	"github.com/ardanlabs/servicechain/business/contracts/ownership"
	"github.com/ardanlabs/servicechain/business/contracts/servicehistory"
	"github.com/ardanlabs/servicechain/foundation/blockchain/contract"
)

// Registrar represents the ledger behavior required to register contracts.
type Registrar interface {
	RegisterContract(c contract.Contract) (string, error)
}

// Contracts holds the built-in contracts once registered.
type Contracts struct {
	ServiceHistory *servicehistory.Contract
	Ownership      *ownership.Contract
	Agreement      *agreement.Contract
	Addresses      map[string]string
}

// Register constructs the built-in contracts and registers each of them.
// Registration replays the sealed transactions of each contract so the
// state matches the chain.
func Register(r Registrar) (Contracts, error) {
	c := Contracts{
		ServiceHistory: servicehistory.New(),
		Ownership:      ownership.New(),
		Agreement:      agreement.New(),
		Addresses:      make(map[string]string),
	}

	for _, ct := range []contract.Contract{c.ServiceHistory, c.Ownership, c.Agreement} {
		address, err := r.RegisterContract(ct)
		if err != nil {
			return Contracts{}, err
		}
		c.Addresses[ct.Name()] = address
	}

	return c, nil
}
