package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var txCmd = &cobra.Command{
	Use:   "tx <id>",
	Short: "Locate and verify a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(http.MethodGet, "/v1/tx/"+args[0], nil)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <entity>",
	Short: "Print the sealed transactions referencing an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(http.MethodGet, fmt.Sprintf("/v1/entities/%s/transactions", args[0]), nil)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the ledger status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(http.MethodGet, "/v1/ledger/status", nil)
	},
}

func init() {
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)
}
