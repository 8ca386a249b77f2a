package state_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/contract"
	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
	"github.com/ardanlabs/servicechain/foundation/blockchain/signature"
	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
	"github.com/ardanlabs/servicechain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/servicechain/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func newState(t *testing.T, storage database.Storage, threshold int) *state.State {
	signer, err := signature.NewSigner("test-secret")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct a signer: %v", failed, err)
	}

	var n int
	st, err := state.New(state.Config{
		Storage:          storage,
		Signer:           signer,
		Difficulty:       1,
		PendingThreshold: threshold,
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	return st
}

// registrations counts registrations per vehicle.
type registrations struct {
	store *contract.Store[int]
}

func (r *registrations) Name() string        { return "registrations" }
func (r *registrations) Functions() []string { return []string{"register"} }
func (r *registrations) StateSize() int      { return r.store.Len() }

func (r *registrations) Execute(ctx context.Context, call contract.Call) (any, error) {
	var p struct {
		VehicleID string `json:"vehicleId"`
	}
	if err := json.Unmarshal(call.Params, &p); err != nil {
		return nil, err
	}

	return r.store.Update(p.VehicleID, func(v int, _ bool) (int, error) {
		if _, err := call.Ledger.Submit("dmv", call.Address, p, 0); err != nil {
			return 0, err
		}
		return v + 1, nil
	})
}

func (r *registrations) Apply(tx database.Tx) error {
	var p struct {
		VehicleID string `json:"vehicleId"`
	}
	if err := json.Unmarshal(tx.Data, &p); err != nil {
		return err
	}

	_, err := r.store.Update(p.VehicleID, func(v int, _ bool) (int, error) {
		return v + 1, nil
	})
	return err
}

// =============================================================================

func Test_SealBlock(t *testing.T) {
	t.Log("Given the need to seal pending transactions.")
	{
		t.Log("\tWhen sealing the mempool.")
		{
			st := newState(t, memory.New(), 0)

			var submitted []database.Tx
			for i := 0; i < 3; i++ {
				tx, err := st.SubmitTransaction("mechanic-1", "0xContract", map[string]any{"vehicleId": fmt.Sprintf("V%d", i)}, float64(i))
				if err != nil {
					t.Fatalf("\t%s\tShould be able to submit a transaction: %v", failed, err)
				}
				submitted = append(submitted, tx)
			}

			block, err := st.SealBlock(context.Background(), 2)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to seal a block: %v", failed, err)
			}
			t.Logf("\t%s\tShould be able to seal a block.", success)

			if !strings.HasPrefix(block.Hash, "00") {
				t.Fatalf("\t%s\tShould have a hash with 2 leading zeros: %s", failed, block.Hash)
			}
			t.Logf("\t%s\tShould have a hash with 2 leading zeros.", success)

			if st.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tShould have an empty mempool.", failed)
			}
			if len(block.Transactions) != 3 {
				t.Fatalf("\t%s\tShould seal every pending transaction.", failed)
			}
			for i, tx := range block.Transactions {
				if tx.ID != submitted[i].ID {
					t.Fatalf("\t%s\tShould seal the transactions in submission order.", failed)
				}
			}
			t.Logf("\t%s\tShould move the mempool into the block in order.", success)

			if !st.IsChainValid() {
				t.Fatalf("\t%s\tShould have a valid chain.", failed)
			}
			t.Logf("\t%s\tShould have a valid chain.", success)

			empty, err := st.SealBlock(context.Background(), 0)
			if err != nil || len(empty.Transactions) != 0 || empty.Index != 2 {
				t.Fatalf("\t%s\tShould be able to seal an empty block: %v", failed, err)
			}
			t.Logf("\t%s\tShould be able to seal an empty block.", success)

			if _, err := st.SealPending(context.Background()); !errors.Is(err, state.ErrNoTransactions) {
				t.Fatalf("\t%s\tShould not seal pending transactions when there are none: %v", failed, err)
			}
			t.Logf("\t%s\tShould not seal pending transactions when there are none.", success)
		}

		t.Log("\tWhen a seal is cancelled.")
		{
			st := newState(t, memory.New(), 0)

			if _, err := st.SubmitTransaction("mechanic-1", "0xContract", map[string]any{"vehicleId": "V1"}, 0); err != nil {
				t.Fatalf("\t%s\tShould be able to submit a transaction: %v", failed, err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := st.SealBlock(ctx, 64); !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tShould get back a cancelled error: %v", failed, err)
			}

			if st.QueryMempoolLength() != 1 || st.Status().TotalBlocks != 1 {
				t.Fatalf("\t%s\tShould leave the mempool and chain untouched.", failed)
			}
			t.Logf("\t%s\tShould leave the mempool and chain untouched.", success)

			if _, err := st.SealBlock(context.Background(), 65); !errors.Is(err, database.ErrInvalidDifficulty) {
				t.Fatalf("\t%s\tShould reject an impossible difficulty: %v", failed, err)
			}
			if st.QueryMempoolLength() != 1 {
				t.Fatalf("\t%s\tShould leave the mempool untouched on failure.", failed)
			}
			t.Logf("\t%s\tShould leave the mempool untouched on failure.", success)

			if s := st.RetrieveSealing(); s.Failed != 2 || s.Sealed != 0 {
				t.Fatalf("\t%s\tShould record the failed seals: %+v", failed, s)
			}
		}

		t.Log("\tWhen transactions are submitted during a seal.")
		{
			signer, err := signature.NewSigner("test-secret")
			if err != nil {
				t.Fatalf("\t%s\tShould be able to construct a signer: %v", failed, err)
			}

			working := make(chan struct{})
			var once sync.Once
			var ids atomic.Int64

			st, err := state.New(state.Config{
				Storage:    memory.New(),
				Signer:     signer,
				Difficulty: 1,
				NewID: func() string {
					return fmt.Sprintf("id-%d", ids.Add(1))
				},
				EvHandler: func(v string, args ...any) {
					if strings.Contains(v, "perform POW") {
						once.Do(func() { close(working) })
					}
				},
			})
			if err != nil {
				t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
			}

			const before, during = 10, 490

			for i := 0; i < before; i++ {
				if _, err := st.SubmitTransaction("mechanic-1", "0xContract", map[string]any{"vehicleId": fmt.Sprintf("V%d", i)}, 0); err != nil {
					t.Fatalf("\t%s\tShould be able to submit a transaction: %v", failed, err)
				}
			}

			var wg sync.WaitGroup
			wg.Add(1)
			errs := make(chan error, during)
			go func() {
				defer wg.Done()
				<-working
				for i := 0; i < during; i++ {
					if _, err := st.SubmitTransaction("mechanic-2", "0xContract", map[string]any{"vehicleId": fmt.Sprintf("W%d", i)}, 0); err != nil {
						errs <- err
					}
				}
			}()

			first, err := st.SealBlock(context.Background(), 4)
			wg.Wait()
			close(errs)

			if err != nil {
				t.Fatalf("\t%s\tShould be able to seal while transactions arrive: %v", failed, err)
			}
			for err := range errs {
				t.Fatalf("\t%s\tShould be able to submit during a seal: %v", failed, err)
			}
			if len(first.Transactions) != before {
				t.Fatalf("\t%s\tShould seal only the snapshot taken at the start: %d", failed, len(first.Transactions))
			}
			t.Logf("\t%s\tShould be able to seal while transactions arrive.", success)

			if st.QueryMempoolLength() != before+during-len(first.Transactions) {
				t.Fatalf("\t%s\tShould keep the late transactions pending: %d", failed, st.QueryMempoolLength())
			}
			t.Logf("\t%s\tShould keep the late transactions pending.", success)

			if st.QueryMempoolLength() > 0 {
				if _, err := st.SealPending(context.Background()); err != nil {
					t.Fatalf("\t%s\tShould be able to seal the late transactions: %v", failed, err)
				}
			}

			seen := make(map[string]int)
			for _, block := range st.RetrieveBlocks() {
				for _, tx := range block.Transactions {
					seen[tx.ID]++
				}
			}

			if len(seen) != before+during {
				t.Fatalf("\t%s\tShould seal every transaction: got %d, exp %d", failed, len(seen), before+during)
			}
			for id, n := range seen {
				if n != 1 {
					t.Fatalf("\t%s\tShould seal %s exactly once, got %d", failed, id, n)
				}
			}
			t.Logf("\t%s\tShould seal every transaction exactly once.", success)

			if st.QueryMempoolLength() != 0 || !st.IsChainValid() {
				t.Fatalf("\t%s\tShould end with an empty mempool and a valid chain.", failed)
			}
			t.Logf("\t%s\tShould end with an empty mempool and a valid chain.", success)
		}
	}
}

func Test_Health(t *testing.T) {
	t.Log("Given the need to report the health of the ledger.")
	{
		st := newState(t, memory.New(), 2)

		if h := st.Health(); h.Status != state.HealthHealthy {
			t.Fatalf("\t%s\tShould be healthy when empty: %+v", failed, h)
		}
		t.Logf("\t%s\tShould be healthy when empty.", success)

		for i := 0; i < 3; i++ {
			if _, err := st.SubmitTransaction("a", "b", map[string]any{"vehicleId": "V1"}, 0); err != nil {
				t.Fatalf("\t%s\tShould be able to submit a transaction: %v", failed, err)
			}
		}

		if h := st.Health(); h.Status != state.HealthWarning || h.PendingTransactions != 3 {
			t.Fatalf("\t%s\tShould warn above the pending threshold: %+v", failed, h)
		}
		t.Logf("\t%s\tShould warn above the pending threshold.", success)

		if _, err := st.SealBlock(context.Background(), 1); err != nil {
			t.Fatalf("\t%s\tShould be able to seal a block: %v", failed, err)
		}

		for i := 0; i < 3; i++ {
			if _, err := st.SubmitTransaction("a", "b", map[string]any{"vehicleId": "V1"}, 0); err != nil {
				t.Fatalf("\t%s\tShould be able to submit a transaction: %v", failed, err)
			}
		}

		err := st.CorruptBlockForDrill(1, func(b *database.Block) {
			b.Transactions[0].Amount = 999
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to corrupt a block: %v", failed, err)
		}

		h := st.Health()
		if h.Status != state.HealthUnhealthy || h.ChainValid {
			t.Fatalf("\t%s\tShould be unhealthy with an invalid chain even above the threshold: %+v", failed, h)
		}
		t.Logf("\t%s\tShould be unhealthy with an invalid chain even above the threshold.", success)

		if st.Status().IsChainValid || st.Stats().ChainValid {
			t.Fatalf("\t%s\tShould report the invalid chain in the status and stats.", failed)
		}

		var ie *database.IntegrityError
		if err := st.ValidateChain(); !errors.As(err, &ie) || ie.Index != 1 {
			t.Fatalf("\t%s\tShould identify the tampered block: %v", failed, err)
		}
		t.Logf("\t%s\tShould identify the tampered block.", success)
	}
}

func Test_Query(t *testing.T) {
	st := newState(t, memory.New(), 0)

	payloads := []map[string]any{
		{"action": "addServiceRecord", "serviceRecord": map[string]any{"vehicleId": "V1", "cost": 50}},
		{"action": "transferOwnership", "vehicleId": "V1"},
		{"action": "addServiceRecord", "serviceRecord": map[string]any{"vehicleId": "V2", "cost": 10}},
		{"action": "note", "text": "V1"},
	}

	for _, p := range payloads {
		if _, err := st.SubmitTransaction("mechanic-1", "0xContract", p, 0); err != nil {
			t.Fatalf("Should be able to submit a transaction: %s", err)
		}
	}

	block, err := st.SealBlock(context.Background(), 1)
	if err != nil {
		t.Fatalf("Should be able to seal a block: %s", err)
	}

	pending, err := st.SubmitTransaction("mechanic-1", "0xContract", map[string]any{"vehicleId": "V1"}, 0)
	if err != nil {
		t.Fatalf("Should be able to submit a transaction: %s", err)
	}

	txs := st.QueryEntityTransactions("V1")
	if len(txs) != 2 {
		t.Fatalf("Should find 2 sealed transactions for V1, got %d", len(txs))
	}
	if txs[0].BlockIndex != 1 || txs[0].BlockHash != block.Hash {
		t.Fatalf("Should decorate the transactions with the block: %+v", txs[0])
	}

	if txs := st.QueryEntityTransactions("V3"); len(txs) != 0 {
		t.Fatalf("Should not find transactions for V3")
	}

	v, err := st.QueryTransaction(block.Transactions[0].ID)
	if err != nil {
		t.Fatalf("Should be able to find a sealed transaction: %s", err)
	}
	if !v.SignatureValid || !v.BlockValid || v.Pending {
		t.Fatalf("Should verify a sealed transaction: %+v", v)
	}

	v, err = st.QueryTransaction(pending.ID)
	if err != nil || !v.Pending || !v.SignatureValid {
		t.Fatalf("Should find a pending transaction: %+v %v", v, err)
	}

	if _, err := st.QueryTransaction("missing"); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("Should not find an unknown transaction: %v", err)
	}

	st.CorruptBlockForDrill(1, func(b *database.Block) {
		b.Transactions[0].Data = json.RawMessage(`{"action":"addServiceRecord","serviceRecord":{"cost":5,"vehicleId":"V1"}}`)
	})

	v, err = st.QueryTransaction(block.Transactions[0].ID)
	if err != nil {
		t.Fatalf("Should be able to find a tampered transaction: %s", err)
	}
	if v.SignatureValid || v.BlockValid {
		t.Fatalf("Should detect the tampered transaction: %+v", v)
	}

	if blocks := st.QueryBlocksByNumber(state.QueryLatest, state.QueryLatest); len(blocks) != 1 || blocks[0].Index != 1 {
		t.Fatalf("Should get back the latest block: %+v", blocks)
	}
	if blocks := st.QueryBlocksByNumber(0, 100); len(blocks) != 2 {
		t.Fatalf("Should get back every block: %d", len(blocks))
	}
}

func Test_Reload(t *testing.T) {
	dbPath := t.TempDir()

	t.Log("Given the need to restart a node with durable storage.")
	{
		d, err := disk.New(dbPath)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open storage: %v", failed, err)
		}

		st := newState(t, d, 0)

		reg := registrations{store: contract.NewStore[int]()}
		address, err := st.RegisterContract(&reg)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to register a contract: %v", failed, err)
		}

		if _, err := st.RegisterContract(&registrations{store: contract.NewStore[int]()}); !errors.Is(err, contract.ErrAlreadyRegistered) {
			t.Fatalf("\t%s\tShould not register a contract twice: %v", failed, err)
		}

		for _, id := range []string{"V1", "V1", "V2"} {
			params := json.RawMessage(fmt.Sprintf(`{"vehicleId":%q}`, id))
			if _, err := st.Execute(context.Background(), "registrations", "register", params); err != nil {
				t.Fatalf("\t%s\tShould be able to execute the contract: %v", failed, err)
			}
		}

		if _, err := st.SealBlock(context.Background(), 1); err != nil {
			t.Fatalf("\t%s\tShould be able to seal a block: %v", failed, err)
		}
		genesis := st.QueryBlocksByNumber(0, 0)[0]

		if err := st.Shutdown(); err != nil {
			t.Fatalf("\t%s\tShould be able to shutdown: %v", failed, err)
		}

		d2, err := disk.New(dbPath)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to reopen storage: %v", failed, err)
		}

		st2 := newState(t, d2, 0)
		if !st2.IsChainValid() || st2.Status().TotalBlocks != 2 {
			t.Fatalf("\t%s\tShould reload a valid chain.", failed)
		}
		t.Logf("\t%s\tShould reload a valid chain.", success)

		if g := st2.QueryBlocksByNumber(0, 0)[0]; g.Hash != genesis.Hash {
			t.Fatalf("\t%s\tShould keep the genesis block.", failed)
		}

		reg2 := registrations{store: contract.NewStore[int]()}
		address2, err := st2.RegisterContract(&reg2)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to register the contract again: %v", failed, err)
		}

		if address2 != address {
			t.Fatalf("\t%s\tShould derive the same contract address: %s %s", failed, address, address2)
		}
		t.Logf("\t%s\tShould derive the same contract address.", success)

		if v, _ := reg2.store.Get("V1"); v != 2 || reg2.StateSize() != 2 {
			t.Fatalf("\t%s\tShould rebuild the contract state from the chain: %d", failed, v)
		}
		t.Logf("\t%s\tShould rebuild the contract state from the chain.", success)

		stats := st2.Stats()
		if stats.TotalTransactions != 3 || stats.ContractStats["registrations"].StateSize != 2 {
			t.Fatalf("\t%s\tShould report the contract in the stats: %+v", failed, stats)
		}

		txs := st2.QueryEntityTransactions("V1")
		if len(txs) != 2 || txs[0].Contract != "registrations" {
			t.Fatalf("\t%s\tShould name the contract on entity transactions: %+v", failed, txs)
		}
	}
}

func Test_Configuration(t *testing.T) {
	if _, err := state.New(state.Config{Storage: memory.New()}); !errors.Is(err, signature.ErrConfiguration) {
		t.Fatalf("Should require a signer: %v", err)
	}

	signer, _ := signature.NewSigner("test-secret")
	if _, err := state.New(state.Config{Storage: memory.New(), Signer: signer, Difficulty: 100}); !errors.Is(err, database.ErrInvalidDifficulty) {
		t.Fatalf("Should reject an impossible difficulty: %v", err)
	}

	clock := func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	st, err := state.New(state.Config{Storage: memory.New(), Signer: signer, Clock: clock})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %s", err)
	}

	if !st.RetrieveLatestBlock().TimeStamp.Equal(clock()) {
		t.Fatalf("Should use the configured clock for the genesis block.")
	}
}
