package cmd

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/servicechain/business/core/ledger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var force bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every block from storage",
	RunE:  resetRun,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVar(&force, "force", false, "Required to remove the blocks.")
}

func resetRun(cmd *cobra.Command, args []string) error {
	if !force {
		return errors.New("reset removes every block, run again with --force")
	}

	strg, err := ledger.OpenStorage(cmd.Context(), storageKind, dbPath, postgresURL)
	if err != nil {
		return err
	}
	defer strg.Close()

	r, ok := strg.(interface{ Reset() error })
	if !ok {
		return fmt.Errorf("%s storage can't be reset", storageKind)
	}

	if err := r.Reset(); err != nil {
		return err
	}

	color.Green("%s storage reset, a new genesis block is created on the next start", success)

	return nil
}
