package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <entity>",
	Short: "Print every sealed transaction referencing an entity",
	Args:  cobra.ExactArgs(1),
	RunE:  historyRun,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func historyRun(cmd *cobra.Command, args []string) error {
	l, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer l.State.Shutdown()

	trans := l.State.QueryEntityTransactions(args[0])
	if len(trans) == 0 {
		color.Yellow("no transactions reference %s", args[0])
		return nil
	}

	for _, tx := range trans {
		contract := tx.Contract
		if contract == "" {
			contract = "-"
		}

		color.Cyan("Block %d  %s", tx.BlockIndex, tx.BlockTimeStamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("  ID: %s  Contract: %s  From: %s  Amount: %v\n", tx.ID, contract, tx.From, tx.Amount)
		fmt.Printf("  Data: %s\n", tx.Data)
	}

	return nil
}
