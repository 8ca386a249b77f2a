package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ardanlabs/servicechain/business/contracts/servicehistory"
	"github.com/ardanlabs/servicechain/business/core/ledger"
	"github.com/ardanlabs/servicechain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Open(t *testing.T) {
	t.Log("Given the need to open a ledger from configuration.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen using disk storage twice.", testID)
		{
			cfg := ledger.Config{
				Environment: "test",
				Difficulty:  1,
				StorageKind: ledger.StorageDisk,
				DBPath:      t.TempDir(),
			}
			ev := func(v string, args ...any) {}

			l, err := ledger.Open(context.Background(), cfg, ev)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the ledger: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to open the ledger.", success, testID)

			if len(l.Contracts.Addresses) != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould register three contracts: %d", failed, testID, len(l.Contracts.Addresses))
			}
			t.Logf("\t%s\tTest %d:\tShould register three contracts.", success, testID)

			params := []byte(`{"vehicleId":"VIN1","serviceType":"oil change","mechanicId":"m1","cost":50}`)
			if _, err := l.State.Execute(context.Background(), servicehistory.Name, servicehistory.FnAddServiceRecord, params); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to add a service record: %v", failed, testID, err)
			}

			if _, err := l.State.SealPending(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to seal the record: %v", failed, testID, err)
			}
			address := l.Contracts.Addresses[servicehistory.Name]
			l.State.Shutdown()

			l, err = ledger.Open(context.Background(), cfg, ev)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to reopen the ledger: %v", failed, testID, err)
			}
			defer l.State.Shutdown()

			if l.Contracts.Addresses[servicehistory.Name] != address {
				t.Fatalf("\t%s\tTest %d:\tShould keep the contract address across restarts.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the contract address across restarts.", success, testID)

			if l.Contracts.ServiceHistory.StateSize() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould replay the sealed record: %d", failed, testID, l.Contracts.ServiceHistory.StateSize())
			}
			t.Logf("\t%s\tTest %d:\tShould replay the sealed record.", success, testID)
		}
	}
}

func Test_OpenErrors(t *testing.T) {
	ev := func(v string, args ...any) {}

	if _, err := ledger.Open(context.Background(), ledger.Config{StorageKind: "redis"}, ev); !errors.Is(err, ledger.ErrUnknownStorage) {
		t.Fatalf("Should reject an unknown storage kind: %v", err)
	}

	cfg := ledger.Config{Environment: signature.EnvProduction, StorageKind: ledger.StorageMemory}
	if _, err := ledger.Open(context.Background(), cfg, ev); !errors.Is(err, signature.ErrConfiguration) {
		t.Fatalf("Should refuse to open without a secret in production: %v", err)
	}

	cfg = ledger.Config{Digest: "md5", StorageKind: ledger.StorageMemory}
	if _, err := ledger.Open(context.Background(), cfg, ev); !errors.Is(err, signature.ErrConfiguration) {
		t.Fatalf("Should refuse an unknown digest: %v", err)
	}
}

func Test_OpenSafeguards(t *testing.T) {
	t.Log("Given the need to flag risky configuration when opening a ledger.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen no secret is configured outside production.", testID)
		{
			var events []string
			ev := func(v string, args ...any) {
				events = append(events, fmt.Sprintf(v, args...))
			}

			l, err := ledger.Open(context.Background(), ledger.Config{Environment: "development", StorageKind: ledger.StorageMemory}, ev)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the ledger: %v", failed, testID, err)
			}
			defer l.State.Shutdown()

			var warned bool
			for _, e := range events {
				if strings.Contains(e, "WARNING") && strings.Contains(e, "default secret") {
					warned = true
				}
			}
			if !warned {
				t.Fatalf("\t%s\tTest %d:\tShould warn about signing with the default secret: %v", failed, testID, events)
			}
			t.Logf("\t%s\tTest %d:\tShould warn about signing with the default secret.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a stored chain is reopened with another digest.", testID)
		{
			ev := func(v string, args ...any) {}
			cfg := ledger.Config{
				Environment: "test",
				Digest:      signature.DigestSHA256,
				Difficulty:  1,
				StorageKind: ledger.StorageDisk,
				DBPath:      t.TempDir(),
			}

			l, err := ledger.Open(context.Background(), cfg, ev)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the ledger: %v", failed, testID, err)
			}
			l.State.Shutdown()

			cfg.Digest = signature.DigestKeccak256
			if _, err := ledger.Open(context.Background(), cfg, ev); !errors.Is(err, signature.ErrConfiguration) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse a digest that differs from the stored chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse a digest that differs from the stored chain.", success, testID)

			cfg.Digest = signature.DigestSHA256
			l, err = ledger.Open(context.Background(), cfg, ev)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould reopen with the digest that sealed the chain: %v", failed, testID, err)
			}
			defer l.State.Shutdown()

			if !l.State.IsChainValid() {
				t.Fatalf("\t%s\tTest %d:\tShould have a valid chain after reopening.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reopen with the digest that sealed the chain.", success, testID)
		}
	}
}
