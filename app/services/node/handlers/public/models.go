package public

import (
	"encoding/json"

	"github.com/ardanlabs/servicechain/business/sys/validate"
	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
)

// NewTx is what a client posts to record a transaction.
type NewTx struct {
	From   string          `json:"from" validate:"required"`
	To     string          `json:"to" validate:"required"`
	Data   json.RawMessage `json:"data"`
	Amount float64         `json:"amount" validate:"gte=0"`
}

// Validate checks the data in the model is considered clean.
func (ntx NewTx) Validate() error {
	return validate.Check(ntx)
}

// submitted is returned once a transaction is in the mempool.
type submitted struct {
	Status string      `json:"status"`
	Tx     database.Tx `json:"tx"`
}

// execution is returned by a contract function.
type execution struct {
	Contract string `json:"contract"`
	Function string `json:"function"`
	Result   any    `json:"result"`
}

// pending describes the mempool.
type pending struct {
	Count        int           `json:"count"`
	Transactions []database.Tx `json:"transactions"`
}
