package cmd

import (
	"fmt"
	"strconv"

	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var showTrans bool

var blocksCmd = &cobra.Command{
	Use:   "blocks [from] [to]",
	Short: "Print the blocks in the chain",
	Args:  cobra.MaximumNArgs(2),
	RunE:  blocksRun,
}

func init() {
	rootCmd.AddCommand(blocksCmd)
	blocksCmd.Flags().BoolVarP(&showTrans, "transactions", "t", false, "Print the transactions of every block.")
}

func blocksRun(cmd *cobra.Command, args []string) error {
	from := uint64(0)
	to := state.QueryLatest

	if len(args) > 0 {
		n, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid from block %q", args[0])
		}
		from = n
	}
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid to block %q", args[1])
		}
		to = n
	}

	l, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer l.State.Shutdown()

	for _, block := range l.State.QueryBlocksByNumber(from, to) {
		color.Cyan("Block %d", block.Index)
		fmt.Printf("  Hash:      %s\n", block.Hash)
		fmt.Printf("  Previous:  %s\n", block.PreviousHash)
		fmt.Printf("  Timestamp: %s\n", block.TimeStamp)
		fmt.Printf("  Nonce:     %d\n", block.Nonce)
		fmt.Printf("  Trans:     %d\n", len(block.Transactions))

		if !showTrans {
			continue
		}

		for _, tx := range block.Transactions {
			fmt.Printf("    ID: %s  From: %s  To: %s  Amount: %v  Data: %s\n", tx.ID, tx.From, tx.To, tx.Amount, tx.Data)
		}
	}

	return nil
}
