package cmd

import (
	"fmt"

	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the ledger statistics and health",
	RunE:  statsRun,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func statsRun(cmd *cobra.Command, args []string) error {
	l, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer l.State.Shutdown()

	stats := l.State.Stats()
	health := l.State.Health()

	switch health.Status {
	case state.HealthHealthy:
		color.Green("%s %s", success, health.Status)
	case state.HealthWarning:
		color.Yellow("%s %s: %s", failed, health.Status, health.Message)
	default:
		color.Red("%s %s: %s", failed, health.Status, health.Message)
	}

	fmt.Printf("Blocks:        %d\n", stats.TotalBlocks)
	fmt.Printf("Transactions:  %d\n", stats.TotalTransactions)
	fmt.Printf("Contracts:     %d\n", stats.SmartContracts)
	fmt.Printf("Last Block:    %d %s\n", stats.LastBlock.Index, stats.LastBlock.Hash)

	for name, cs := range stats.ContractStats {
		fmt.Printf("  %-18s %s  state[%d]  functions[%d]\n", name, cs.Address, cs.StateSize, cs.FunctionCount)
	}

	return nil
}
