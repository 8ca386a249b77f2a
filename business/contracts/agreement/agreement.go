// Package agreement implements the contract managing service agreements
// between customers and mechanics.
package agreement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ardanlabs/servicechain/business/sys/validate"
	"github.com/ardanlabs/servicechain/foundation/blockchain/contract"
	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
)

// Name is the name the contract is registered under.
const Name = "serviceAgreement"

// Set of functions exposed by the contract.
const (
	FnCreateAgreement  = "createAgreement"
	FnExecuteAgreement = "executeAgreement"
	FnGetAgreement     = "getAgreement"
)

// Set of agreement states. Executed is terminal.
const (
	StatusPending  = "pending"
	StatusExecuted = "executed"
)

// Agreement represents a service agreement.
type Agreement struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	MechanicID  string          `json:"mechanicId"`
	VehicleID   string          `json:"vehicleId"`
	ServiceType string          `json:"serviceType"`
	Terms       json.RawMessage `json:"terms,omitempty"`
	Cost        float64         `json:"cost"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	ExecutedAt  *time.Time      `json:"executedAt,omitempty"`
	BlockHash   string          `json:"blockHash"`
}

// NewAgreement contains the information needed to create an agreement. An
// id is generated when none is provided.
type NewAgreement struct {
	AgreementID string          `json:"agreementId"`
	CustomerID  string          `json:"customerId" validate:"required"`
	MechanicID  string          `json:"mechanicId" validate:"required"`
	VehicleID   string          `json:"vehicleId" validate:"required"`
	ServiceType string          `json:"serviceType" validate:"required"`
	Terms       json.RawMessage `json:"terms"`
	Cost        float64         `json:"cost" validate:"gte=0"`
}

// Payload is the data recorded on the ledger for every change.
type Payload struct {
	Action    string    `json:"action"`
	Agreement Agreement `json:"agreement"`
}

type agreementParams struct {
	AgreementID string `json:"agreementId" validate:"required"`
}

// =============================================================================

// Contract manages the agreements by id.
type Contract struct {
	store *contract.Store[Agreement]
}

// New constructs an agreement contract with no agreements.
func New() *Contract {
	return &Contract{
		store: contract.NewStore[Agreement](),
	}
}

// Name implements the contract.Contract interface.
func (c *Contract) Name() string {
	return Name
}

// Functions implements the contract.Contract interface.
func (c *Contract) Functions() []string {
	return []string{FnCreateAgreement, FnExecuteAgreement, FnGetAgreement}
}

// StateSize returns the number of agreements.
func (c *Contract) StateSize() int {
	return c.store.Len()
}

// Execute implements the contract.Contract interface.
func (c *Contract) Execute(ctx context.Context, call contract.Call) (any, error) {
	switch call.Function {
	case FnCreateAgreement:
		var na NewAgreement
		if err := validate.Decode(call.Params, &na); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", call.Function, contract.ErrInvalidParams, err)
		}
		return c.CreateAgreement(call, na)

	case FnExecuteAgreement:
		var p agreementParams
		if err := validate.Decode(call.Params, &p); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", call.Function, contract.ErrInvalidParams, err)
		}
		return c.ExecuteAgreement(call, p.AgreementID)

	case FnGetAgreement:
		var p agreementParams
		if err := validate.Decode(call.Params, &p); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", call.Function, contract.ErrInvalidParams, err)
		}
		return c.Agreement(p.AgreementID), nil
	}

	return nil, fmt.Errorf("%s function %q: %w", Name, call.Function, contract.ErrNotFound)
}

// Apply rebuilds the state from a sealed transaction.
func (c *Contract) Apply(tx database.Tx) error {
	var p Payload
	if err := json.Unmarshal(tx.Data, &p); err != nil {
		return err
	}

	switch p.Action {
	case FnCreateAgreement, FnExecuteAgreement:
		_, err := c.store.Update(p.Agreement.ID, func(Agreement, bool) (Agreement, error) {
			return p.Agreement, nil
		})
		return err
	}

	return nil
}

// =============================================================================

// CreateAgreement creates a pending agreement and records it on the ledger.
// An existing agreement is never replaced.
func (c *Contract) CreateAgreement(call contract.Call, na NewAgreement) (Agreement, error) {
	id := na.AgreementID
	if id == "" {
		id = call.Ledger.NewID()
	}

	return c.store.Update(id, func(_ Agreement, exists bool) (Agreement, error) {
		if exists {
			return Agreement{}, fmt.Errorf("agreement %q already exists: %w", id, contract.ErrInvalidState)
		}

		a := Agreement{
			ID:          id,
			CustomerID:  na.CustomerID,
			MechanicID:  na.MechanicID,
			VehicleID:   na.VehicleID,
			ServiceType: na.ServiceType,
			Terms:       na.Terms,
			Cost:        na.Cost,
			Status:      StatusPending,
			CreatedAt:   call.Ledger.Now(),
			BlockHash:   call.Ledger.LatestBlockHash(),
		}

		payload := Payload{
			Action:    FnCreateAgreement,
			Agreement: a,
		}

		if _, err := call.Ledger.Submit(na.CustomerID, call.Address, payload, 0); err != nil {
			return Agreement{}, err
		}

		return a, nil
	})
}

// ExecuteAgreement moves a pending agreement to executed and records the
// payment of the agreed cost on the ledger.
func (c *Contract) ExecuteAgreement(call contract.Call, id string) (Agreement, error) {
	return c.store.Update(id, func(a Agreement, exists bool) (Agreement, error) {
		if !exists {
			return Agreement{}, fmt.Errorf("agreement %q: %w", id, contract.ErrNotFound)
		}

		if a.Status != StatusPending {
			return Agreement{}, fmt.Errorf("agreement %q is %s: %w", id, a.Status, contract.ErrInvalidState)
		}

		now := call.Ledger.Now()
		a.Status = StatusExecuted
		a.ExecutedAt = &now
		a.BlockHash = call.Ledger.LatestBlockHash()

		payload := Payload{
			Action:    FnExecuteAgreement,
			Agreement: a,
		}

		if _, err := call.Ledger.Submit(a.MechanicID, call.Address, payload, a.Cost); err != nil {
			return Agreement{}, err
		}

		return a, nil
	})
}

// Agreement returns the agreement or nil.
func (c *Contract) Agreement(id string) *Agreement {
	a, exists := c.store.Get(id)
	if !exists {
		return nil
	}

	return &a
}
