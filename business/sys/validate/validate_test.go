package validate_test

import (
	"testing"

	"github.com/ardanlabs/servicechain/business/sys/validate"
)

type record struct {
	VehicleID string  `json:"vehicleId" validate:"required"`
	Cost      float64 `json:"cost" validate:"gte=0"`
}

func Test_Decode(t *testing.T) {
	var r record
	if err := validate.Decode([]byte(`{"vehicleId":"V1","cost":50}`), &r); err != nil {
		t.Fatalf("Should be able to decode a valid payload: %s", err)
	}

	var bad record
	err := validate.Decode([]byte(`{"cost":-1}`), &bad)
	if !validate.IsFieldErrors(err) {
		t.Fatalf("Should get back field errors: %v", err)
	}

	fields := validate.GetFieldErrors(err).Fields()
	if _, exists := fields["vehicleId"]; !exists {
		t.Fatalf("Should name the field by its json tag: %v", fields)
	}
	if _, exists := fields["cost"]; !exists {
		t.Fatalf("Should report the negative cost: %v", fields)
	}

	if err := validate.Decode([]byte(`{`), &r); err == nil || validate.IsFieldErrors(err) {
		t.Fatalf("Should get back a decode error: %v", err)
	}
}
