// Package servicehistory implements the contract keeping an append only
// history of the service records of every vehicle.
package servicehistory

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
const Name = "serviceHistory"

// Set of functions exposed by the contract.
const (
	FnAddServiceRecord    = "addServiceRecord"
	FnGetServiceHistory   = "getServiceHistory"
	FnVerifyServiceRecord = "verifyServiceRecord"
)

// Record represents a service performed on a vehicle.
type Record struct {
	ID          string    `json:"id"`
	VehicleID   string    `json:"vehicleId"`
	ServiceType string    `json:"serviceType"`
	Description string    `json:"description"`
	Cost        float64   `json:"cost"`
	Date        string    `json:"date"`
	MechanicID  string    `json:"mechanicId"`
	Mileage     int64     `json:"mileage"`
	TimeStamp   time.Time `json:"timestamp"`
	BlockHash   string    `json:"blockHash"` // Tail of the chain when the record was written.
}

// NewRecord contains the information needed to add a service record.
type NewRecord struct {
	VehicleID   string  `json:"vehicleId" validate:"required"`
	ServiceType string  `json:"serviceType" validate:"required"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost" validate:"gte=0"`
	Date        string  `json:"date"`
	MechanicID  string  `json:"mechanicId"`
	Mileage     int64   `json:"mileage" validate:"gte=0"`
}

// History is the service history of a vehicle.
type History struct {
	VehicleID    string     `json:"vehicleId"`
	Records      []Record   `json:"records"`
	TotalRecords int        `json:"totalRecords"`
	LastUpdated  *time.Time `json:"lastUpdated"`
}

// Verification is the result of looking up a service record.
type Verification struct {
	Verified              bool       `json:"verified"`
	Record                *Record    `json:"record,omitempty"`
	VehicleID             string     `json:"vehicleId,omitempty"`
	BlockHash             string     `json:"blockHash,omitempty"`
	VerificationTimeStamp *time.Time `json:"verificationTimestamp,omitempty"`
	Message               string     `json:"message,omitempty"`
}

// Payload is the data recorded on the ledger for every record added.
type Payload struct {
	Action        string `json:"action"`
	ServiceRecord Record `json:"serviceRecord"`
}

type vehicleParams struct {
	VehicleID string `json:"vehicleId" validate:"required"`
}

type recordParams struct {
	RecordID string `json:"recordId" validate:"required"`
}

// =============================================================================

// Contract manages the service records by vehicle.
type Contract struct {
	store *contract.Store[[]Record]
}

// New constructs a service history contract with no records.
func New() *Contract {
	return &Contract{
		store: contract.NewStore[[]Record](),
	}
}

// Name implements the contract.Contract interface.
func (c *Contract) Name() string {
	return Name
}

// Functions implements the contract.Contract interface.
func (c *Contract) Functions() []string {
	return []string{FnAddServiceRecord, FnGetServiceHistory, FnVerifyServiceRecord}
}

// StateSize returns the number of vehicles with a history.
func (c *Contract) StateSize() int {
	return c.store.Len()
}

// Execute implements the contract.Contract interface.
func (c *Contract) Execute(ctx context.Context, call contract.Call) (any, error) {
	switch call.Function {
	case FnAddServiceRecord:
		var nr NewRecord
		if err := validate.Decode(call.Params, &nr); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", call.Function, contract.ErrInvalidParams, err)
		}
		return c.AddServiceRecord(call, nr)

	case FnGetServiceHistory:
		var p vehicleParams
		if err := validate.Decode(call.Params, &p); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", call.Function, contract.ErrInvalidParams, err)
		}
		return c.ServiceHistory(p.VehicleID), nil

	case FnVerifyServiceRecord:
		var p recordParams
		if err := validate.Decode(call.Params, &p); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", call.Function, contract.ErrInvalidParams, err)
		}
		return c.VerifyServiceRecord(p.RecordID, call.Ledger.Now()), nil
	}

	return nil, fmt.Errorf("%s function %q: %w", Name, call.Function, contract.ErrNotFound)
}

// Apply rebuilds the state from a sealed transaction.
func (c *Contract) Apply(tx database.Tx) error {
	var p Payload
	if err := json.Unmarshal(tx.Data, &p); err != nil {
		return err
	}

	if p.Action != FnAddServiceRecord {
		return nil
	}

	_, err := c.store.Update(p.ServiceRecord.VehicleID, func(records []Record, _ bool) ([]Record, error) {
		return appendRecord(records, p.ServiceRecord), nil
	})

	return err
}

// =============================================================================

// AddServiceRecord appends a new record to the history of the vehicle and
// records the action on the ledger.
func (c *Contract) AddServiceRecord(call contract.Call, nr NewRecord) (Record, error) {
	var rec Record

	_, err := c.store.Update(nr.VehicleID, func(records []Record, _ bool) ([]Record, error) {
		rec = Record{
			ID:          call.Ledger.NewID(),
			VehicleID:   nr.VehicleID,
			ServiceType: nr.ServiceType,
			Description: nr.Description,
			Cost:        nr.Cost,
			Date:        nr.Date,
			MechanicID:  nr.MechanicID,
			Mileage:     nr.Mileage,
			TimeStamp:   call.Ledger.Now(),
			BlockHash:   call.Ledger.LatestBlockHash(),
		}

		payload := Payload{
			Action:        FnAddServiceRecord,
			ServiceRecord: rec,
		}

		if _, err := call.Ledger.Submit(nr.MechanicID, call.Address, payload, 0); err != nil {
			return nil, err
		}

		return appendRecord(records, rec), nil
	})

	if err != nil {
		return Record{}, err
	}

	return rec, nil
}

// ServiceHistory returns a copy of the history of the vehicle.
func (c *Contract) ServiceHistory(vehicleID string) History {
	records, _ := c.store.Get(vehicleID)

	h := History{
		VehicleID:    vehicleID,
		Records:      append([]Record{}, records...),
		TotalRecords: len(records),
	}

	if len(records) > 0 {
		ts := records[len(records)-1].TimeStamp
		h.LastUpdated = &ts
	}

	return h
}

// VerifyServiceRecord searches every vehicle history for the record.
func (c *Contract) VerifyServiceRecord(recordID string, now time.Time) Verification {
	v := Verification{
		Message: "service record not found",
	}

	c.store.Range(func(vehicleID string, records []Record) bool {
		for _, rec := range records {
			if rec.ID == recordID {
				v = Verification{
					Verified:              true,
					Record:                &rec,
					VehicleID:             vehicleID,
					BlockHash:             rec.BlockHash,
					VerificationTimeStamp: &now,
				}
				return false
			}
		}
		return true
	})

	return v
}

// appendRecord returns a new slice so copies handed to readers never share
// the backing array with the stored history.
func appendRecord(records []Record, rec Record) []Record {
	out := make([]Record, len(records), len(records)+1)
	copy(out, records)

	return append(out, rec)
}
