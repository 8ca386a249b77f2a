package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/servicechain/business/sys/metrics"
	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type ledger struct {
	status  state.Status
	sealing state.Sealing
}

func (l ledger) Status() state.Status           { return l.status }
func (l ledger) RetrieveSealing() state.Sealing { return l.sealing }

func Test_LedgerCollector(t *testing.T) {
	l := ledger{
		status: state.Status{
			TotalBlocks:         3,
			PendingTransactions: 7,
			IsChainValid:        true,
		},
		sealing: state.Sealing{
			Sealed:       2,
			Failed:       1,
			LastDuration: 2 * time.Second,
			Total:        3 * time.Second,
		},
	}

	lc := metrics.NewLedgerCollector(l)

	if n := testutil.CollectAndCount(lc); n != 7 {
		t.Fatalf("Should collect 7 metrics, got %d", n)
	}

	exp := `
# HELP servicechain_ledger_blocks Number of sealed blocks including genesis.
# TYPE servicechain_ledger_blocks gauge
servicechain_ledger_blocks 3
# HELP servicechain_ledger_chain_valid 1 when the chain passes validation.
# TYPE servicechain_ledger_chain_valid gauge
servicechain_ledger_chain_valid 1
# HELP servicechain_ledger_pending_transactions Number of transactions waiting to be sealed.
# TYPE servicechain_ledger_pending_transactions gauge
servicechain_ledger_pending_transactions 7
`

	err := testutil.CollectAndCompare(lc, strings.NewReader(exp),
		"servicechain_ledger_blocks",
		"servicechain_ledger_chain_valid",
		"servicechain_ledger_pending_transactions",
	)
	if err != nil {
		t.Fatalf("Should report the ledger status: %s", err)
	}
}
