package cmd

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	difficulty int
	timeout    time.Duration
)

var sealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Seal an empty block to checkpoint the chain",
	RunE:  sealRun,
}

func init() {
	rootCmd.AddCommand(sealCmd)
	sealCmd.Flags().IntVar(&difficulty, "difficulty", 0, "Difficulty override, zero uses the genesis difficulty.")
	sealCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Time allowed to solve the work.")
}

func sealRun(cmd *cobra.Command, args []string) error {
	l, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer l.State.Shutdown()

	d := l.State.RetrieveDifficulty()
	if difficulty > 0 {
		d = difficulty
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	block, err := l.State.SealBlock(ctx, d)
	if err != nil {
		return err
	}

	color.Green("%s sealed block %d: %s nonce[%d]", success, block.Index, block.Hash, block.Nonce)

	return nil
}
