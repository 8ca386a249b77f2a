package contract_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/contract"
	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// counter counts calls per key.
type counter struct {
	name  string
	store *contract.Store[int]
}

func newCounter(name string) *counter {
	return &counter{name: name, store: contract.NewStore[int]()}
}

func (c *counter) Name() string        { return c.name }
func (c *counter) Functions() []string { return []string{"incr"} }
func (c *counter) StateSize() int      { return c.store.Len() }
func (c *counter) Apply(database.Tx) error {
	return nil
}

func (c *counter) Execute(ctx context.Context, call contract.Call) (any, error) {
	var p struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(call.Params, &p); err != nil {
		return nil, err
	}

	return c.store.Update(p.Key, func(v int, _ bool) (int, error) {
		if _, err := call.Ledger.Submit("tester", call.Address, p, 0); err != nil {
			return 0, err
		}
		return v + 1, nil
	})
}

// ledger records submitted transactions.
type ledger struct {
	txs  []database.Tx
	fail bool
}

func (l *ledger) Submit(from string, to string, data any, amount float64) (database.Tx, error) {
	if l.fail {
		return database.Tx{}, errors.New("submit failed")
	}

	tx := database.Tx{ID: fmt.Sprint(len(l.txs)), From: from, To: to, Amount: amount}
	l.txs = append(l.txs, tx)

	return tx, nil
}

func (l *ledger) LatestBlockHash() string { return "hash" }
func (l *ledger) Now() time.Time          { return time.Now().UTC() }
func (l *ledger) NewID() string           { return "id" }

// =============================================================================

func Test_Registry(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := contract.NewRegistry(created)

	t.Log("Given the need to register and execute contracts.")
	{
		t.Log("\tWhen registering two contracts.")
		{
			a, err := reg.Register(newCounter("a"))
			if err != nil {
				t.Fatalf("\t%s\tShould be able to register a contract: %v", failed, err)
			}
			b, err := reg.Register(newCounter("b"))
			if err != nil {
				t.Fatalf("\t%s\tShould be able to register a second contract: %v", failed, err)
			}
			if a == b {
				t.Fatalf("\t%s\tShould get different addresses.", failed)
			}
			t.Logf("\t%s\tShould be able to register contracts.", success)

			if _, err := reg.Register(newCounter("a")); !errors.Is(err, contract.ErrAlreadyRegistered) {
				t.Fatalf("\t%s\tShould not be able to register a name twice: %v", failed, err)
			}
			t.Logf("\t%s\tShould not be able to register a name twice.", success)

			again := contract.NewRegistry(created)
			if addr, _ := again.Register(newCounter("a")); addr != a {
				t.Fatalf("\t%s\tShould derive the same address for the same created time.", failed)
			}
			t.Logf("\t%s\tShould derive stable addresses.", success)
		}

		t.Log("\tWhen executing contract functions.")
		{
			l := ledger{}
			params := json.RawMessage(`{"key":"V1"}`)

			if _, err := reg.Execute(context.Background(), &l, "a", "incr", params); err != nil {
				t.Fatalf("\t%s\tShould be able to execute a function: %v", failed, err)
			}
			if _, err := reg.Execute(context.Background(), &l, "a", "incr", params); err != nil {
				t.Fatalf("\t%s\tShould be able to execute a function: %v", failed, err)
			}
			t.Logf("\t%s\tShould be able to execute a function.", success)

			_, addr, _ := reg.Lookup("a")
			if len(l.txs) != 2 || l.txs[0].To != addr {
				t.Fatalf("\t%s\tShould submit a transaction to the contract address per call: %+v", failed, l.txs)
			}
			t.Logf("\t%s\tShould submit a transaction per call.", success)

			c, _, _ := reg.Lookup("b")
			if c.StateSize() != 0 {
				t.Fatalf("\t%s\tShould not change the state of another contract.", failed)
			}
			t.Logf("\t%s\tShould not change the state of another contract.", success)

			if _, err := reg.Execute(context.Background(), &l, "missing", "incr", params); !errors.Is(err, contract.ErrNotFound) {
				t.Fatalf("\t%s\tShould get not found for an unknown contract: %v", failed, err)
			}
			if _, err := reg.Execute(context.Background(), &l, "a", "decr", params); !errors.Is(err, contract.ErrNotFound) {
				t.Fatalf("\t%s\tShould get not found for an unknown function: %v", failed, err)
			}
			t.Logf("\t%s\tShould get not found for unknown names.", success)

			l.fail = true
			if _, err := reg.Execute(context.Background(), &l, "a", "incr", json.RawMessage(`{"key":"V2"}`)); err == nil {
				t.Fatalf("\t%s\tShould fail when the ledger fails.", failed)
			}
			c, _, _ = reg.Lookup("a")
			if c.StateSize() != 1 {
				t.Fatalf("\t%s\tShould not change state when the ledger fails.", failed)
			}
			t.Logf("\t%s\tShould not change state when the ledger fails.", success)
		}

		t.Log("\tWhen describing the registered contracts.")
		{
			ds := reg.Descriptors()
			if len(ds) != 2 || ds[0].Name != "a" || ds[0].StateSize != 1 || ds[0].FunctionCount != 1 {
				t.Fatalf("\t%s\tShould describe every contract: %+v", failed, ds)
			}
			t.Logf("\t%s\tShould describe every contract.", success)

			reg.Replace(newCounter("a"))
			c, _, _ := reg.Lookup("a")
			if c.StateSize() != 0 {
				t.Fatalf("\t%s\tShould replace the contract explicitly.", failed)
			}
			t.Logf("\t%s\tShould replace the contract explicitly.", success)
		}
	}
}

func Test_Store(t *testing.T) {
	s := contract.NewStore[[]string]()

	for i := 0; i < 3; i++ {
		_, err := s.Update("V1", func(v []string, _ bool) ([]string, error) {
			return append(v, fmt.Sprint(i)), nil
		})
		if err != nil {
			t.Fatalf("Should be able to update: %s", err)
		}
	}

	_, err := s.Update("V2", func(v []string, exists bool) ([]string, error) {
		return nil, errors.New("rejected")
	})
	if err == nil {
		t.Fatalf("Should get back the error from the update.")
	}

	if _, exists := s.Get("V2"); exists {
		t.Fatalf("Should not store a value for a failed update.")
	}

	v, _ := s.Get("V1")
	if len(v) != 3 || s.Len() != 1 {
		t.Fatalf("Should have 3 values for 1 entity: %v", v)
	}

	var keys []string
	s.Range(func(key string, _ []string) bool {
		keys = append(keys, key)
		return true
	})
	if len(keys) != 1 || keys[0] != "V1" {
		t.Fatalf("Should range over every key: %v", keys)
	}
}
