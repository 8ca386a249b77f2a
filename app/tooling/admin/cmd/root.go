// Package cmd contains the ledger admin app.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ardanlabs/servicechain/business/core/ledger"
	"github.com/ardanlabs/servicechain/foundation/logger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	storageKind string
	dbPath      string
	postgresURL string
	genesisPath string
	secret      string
	environment string
	verbose     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&storageKind, "storage", "s", ledger.StorageDisk, "Storage kind: disk or postgres.")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db-path", "d", "zblock/blocks/", "Path to the block files.")
	rootCmd.PersistentFlags().StringVar(&postgresURL, "postgres-url", os.Getenv("NODE_STORAGE_POSTGRES_URL"), "Postgres connection url.")
	rootCmd.PersistentFlags().StringVarP(&genesisPath, "genesis", "g", "zblock/genesis.json", "Path to the genesis file.")
	rootCmd.PersistentFlags().StringVar(&secret, "secret", os.Getenv("NODE_LEDGER_SECRET"), "Signing secret used by the node.")
	rootCmd.PersistentFlags().StringVar(&environment, "env", "development", "Environment the ledger runs in.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log ledger events.")
}

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Administer the service ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the admin app.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("%s %s", failed, err)
		os.Exit(1)
	}
}

// =============================================================================

// Output markers.
const (
	success = "✓"
	failed  = "✗"
)

// openLedger opens the ledger the node writes to. The node must not be
// sealing blocks against the same storage at the same time.
func openLedger(ctx context.Context) (ledger.Ledger, error) {
	ev := func(v string, args ...any) {}

	if verbose {
		log, err := logger.New("ADMIN")
		if err != nil {
			return ledger.Ledger{}, err
		}
		ev = func(v string, args ...any) {
			log.Infow(fmt.Sprintf(v, args...))
		}
	}

	if storageKind == ledger.StorageMemory {
		return ledger.Ledger{}, fmt.Errorf("memory storage holds nothing to administer")
	}

	return ledger.Open(ctx, ledger.Config{
		Environment: environment,
		Secret:      secret,
		GenesisPath: genesisPath,
		StorageKind: storageKind,
		DBPath:      dbPath,
		PostgresURL: postgresURL,
	}, ev)
}
