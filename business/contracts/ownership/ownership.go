// Package ownership implements the contract tracking the current owner of
// every vehicle. Prior owners are only recoverable from the ledger.
package ownership

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
const Name = "vehicleOwnership"

// Set of functions exposed by the contract.
const (
	FnTransferOwnership = "transferOwnership"
	FnGetOwnership      = "getOwnership"
	FnVerifyOwnership   = "verifyOwnership"
)

// Record represents the latest transfer of a vehicle.
type Record struct {
	VehicleID    string    `json:"vehicleId"`
	FromOwner    string    `json:"fromOwner"`
	ToOwner      string    `json:"toOwner"`
	TransferDate string    `json:"transferDate"`
	TimeStamp    time.Time `json:"timestamp"`
	BlockHash    string    `json:"blockHash"`
}

// Transfer contains the information needed to transfer a vehicle.
type Transfer struct {
	VehicleID    string `json:"vehicleId" validate:"required"`
	FromOwner    string `json:"fromOwner"`
	ToOwner      string `json:"toOwner" validate:"required"`
	TransferDate string `json:"transferDate"`
}

// Verification is the result of checking the owner of a vehicle.
type Verification struct {
	Verified              bool       `json:"verified"`
	Ownership             *Record    `json:"ownership,omitempty"`
	VerificationTimeStamp *time.Time `json:"verificationTimestamp,omitempty"`
	Message               string     `json:"message,omitempty"`
}

// Payload is the data recorded on the ledger for every transfer.
type Payload struct {
	Action          string `json:"action"`
	OwnershipRecord Record `json:"ownershipRecord"`
}

type vehicleParams struct {
	VehicleID string `json:"vehicleId" validate:"required"`
}

type verifyParams struct {
	VehicleID string `json:"vehicleId" validate:"required"`
	OwnerID   string `json:"ownerId" validate:"required"`
}

// =============================================================================

// Contract manages the current owner by vehicle.
type Contract struct {
	store *contract.Store[Record]
}

// New constructs an ownership contract with no records.
func New() *Contract {
	return &Contract{
		store: contract.NewStore[Record](),
	}
}

// Name implements the contract.Contract interface.
func (c *Contract) Name() string {
	return Name
}

// Functions implements the contract.Contract interface.
func (c *Contract) Functions() []string {
	return []string{FnTransferOwnership, FnGetOwnership, FnVerifyOwnership}
}

// StateSize returns the number of vehicles with an owner.
func (c *Contract) StateSize() int {
	return c.store.Len()
}

// Execute implements the contract.Contract interface.
func (c *Contract) Execute(ctx context.Context, call contract.Call) (any, error) {
	switch call.Function {
	case FnTransferOwnership:
		var t Transfer
		if err := validate.Decode(call.Params, &t); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", call.Function, contract.ErrInvalidParams, err)
		}
		return c.TransferOwnership(call, t)

	case FnGetOwnership:
		var p vehicleParams
		if err := validate.Decode(call.Params, &p); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", call.Function, contract.ErrInvalidParams, err)
		}
		return c.Ownership(p.VehicleID), nil

	case FnVerifyOwnership:
		var p verifyParams
		if err := validate.Decode(call.Params, &p); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", call.Function, contract.ErrInvalidParams, err)
		}
		return c.VerifyOwnership(p.VehicleID, p.OwnerID, call.Ledger.Now()), nil
	}

	return nil, fmt.Errorf("%s function %q: %w", Name, call.Function, contract.ErrNotFound)
}

// Apply rebuilds the state from a sealed transaction.
func (c *Contract) Apply(tx database.Tx) error {
	var p Payload
	if err := json.Unmarshal(tx.Data, &p); err != nil {
		return err
	}

	if p.Action != FnTransferOwnership {
		return nil
	}

	_, err := c.store.Update(p.OwnershipRecord.VehicleID, func(Record, bool) (Record, error) {
		return p.OwnershipRecord, nil
	})

	return err
}

// =============================================================================

// TransferOwnership replaces the current owner of the vehicle and records
// the transfer on the ledger.
func (c *Contract) TransferOwnership(call contract.Call, t Transfer) (Record, error) {
	return c.store.Update(t.VehicleID, func(Record, bool) (Record, error) {
		now := call.Ledger.Now()

		rec := Record{
			VehicleID:    t.VehicleID,
			FromOwner:    t.FromOwner,
			ToOwner:      t.ToOwner,
			TransferDate: t.TransferDate,
			TimeStamp:    now,
			BlockHash:    call.Ledger.LatestBlockHash(),
		}
		if rec.TransferDate == "" {
			rec.TransferDate = now.Format(time.RFC3339)
		}

		payload := Payload{
			Action:          FnTransferOwnership,
			OwnershipRecord: rec,
		}

		if _, err := call.Ledger.Submit(t.FromOwner, call.Address, payload, 0); err != nil {
			return Record{}, err
		}

		return rec, nil
	})
}

// Ownership returns the current owner record of the vehicle or nil.
func (c *Contract) Ownership(vehicleID string) *Record {
	rec, exists := c.store.Get(vehicleID)
	if !exists {
		return nil
	}

	return &rec
}

// VerifyOwnership checks the owner is the current owner of the vehicle.
func (c *Contract) VerifyOwnership(vehicleID string, ownerID string, now time.Time) Verification {
	rec := c.Ownership(vehicleID)
	if rec == nil {
		return Verification{
			Message: "no ownership record found",
		}
	}

	return Verification{
		Verified:              rec.ToOwner == ownerID,
		Ownership:             rec,
		VerificationTimeStamp: &now,
	}
}
