package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	from   string
	to     string
	amount float64
	data   string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a raw transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		if data != "" && !json.Valid([]byte(data)) {
			return fmt.Errorf("data must be a json document")
		}

		tx := struct {
			From   string          `json:"from"`
			To     string          `json:"to"`
			Data   json.RawMessage `json:"data,omitempty"`
			Amount float64         `json:"amount"`
		}{
			From:   from,
			To:     to,
			Amount: amount,
		}
		if data != "" {
			tx.Data = json.RawMessage(data)
		}

		return call(http.MethodPost, "/v1/tx/submit", tx)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&from, "from", "f", "", "Principal performing the action.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Principal receiving the action.")
	sendCmd.Flags().Float64VarP(&amount, "amount", "a", 0, "Amount transferred.")
	sendCmd.Flags().StringVarP(&data, "data", "d", "", "Json payload of the transaction.")
}
