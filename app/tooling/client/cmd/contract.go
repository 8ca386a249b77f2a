package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var params string

var execCmd = &cobra.Command{
	Use:   "exec <contract> <function>",
	Short: "Execute a contract function",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !json.Valid([]byte(params)) {
			return fmt.Errorf("params must be a json document")
		}

		return call(http.MethodPost, fmt.Sprintf("/v1/contracts/%s/%s", args[0], args[1]), json.RawMessage(params))
	},
}

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "List the registered contracts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(http.MethodGet, "/v1/contracts/list", nil)
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(contractsCmd)
	execCmd.Flags().StringVarP(&params, "params", "p", "{}", "Json parameters of the function.")
}
