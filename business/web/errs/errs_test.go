package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ardanlabs/servicechain/business/web/errs"
	"github.com/ardanlabs/servicechain/foundation/blockchain/contract"
	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
)

func Test_FromLedger(t *testing.T) {
	type table struct {
		err    error
		status int
	}

	tt := []table{
		{err: fmt.Errorf("contract %q: %w", "x", contract.ErrNotFound), status: http.StatusNotFound},
		{err: fmt.Errorf("tx: %w", state.ErrNotFound), status: http.StatusNotFound},
		{err: fmt.Errorf("fn: %w: %w", contract.ErrInvalidParams, errors.New("bad json")), status: http.StatusBadRequest},
		{err: fmt.Errorf("agreement: %w", contract.ErrInvalidState), status: http.StatusConflict},
	}

	for _, tst := range tt {
		te := errs.GetTrusted(errs.FromLedger(tst.err))
		if te == nil || te.Status != tst.status {
			t.Fatalf("Should map %q to %d: %+v", tst.err, tst.status, te)
		}
	}

	plain := errors.New("boom")
	if errs.IsTrusted(errs.FromLedger(plain)) {
		t.Fatalf("Should not trust an unknown error.")
	}
}
