package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute every block and transaction signature in the chain",
	RunE:  verifyRun,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func verifyRun(cmd *cobra.Command, args []string) error {
	l, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer l.State.Shutdown()

	blocks := l.State.RetrieveBlocks()
	fmt.Printf("Blocks: %d  Digest: %s  Difficulty: %d\n\n", len(blocks), l.Genesis.Digest, l.State.RetrieveDifficulty())

	var badSigs int
	for _, block := range blocks {
		for _, tx := range block.Transactions {
			v, err := l.State.QueryTransaction(tx.ID)
			if err != nil {
				return err
			}
			if !v.SignatureValid {
				badSigs++
				color.Yellow("%s block[%d] tx[%s]: %s", failed, block.Index, tx.ID, v.Reason)
			}
		}
	}

	if err := l.State.ValidateChain(); err != nil {
		return fmt.Errorf("chain is invalid: %w", err)
	}

	if badSigs > 0 {
		return fmt.Errorf("chain links are valid but %d signatures don't verify", badSigs)
	}

	color.Green("%s chain is valid", success)

	return nil
}
