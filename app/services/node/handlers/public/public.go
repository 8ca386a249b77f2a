// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/servicechain/business/sys/validate"
	"github.com/ardanlabs/servicechain/business/web/errs"
	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
	"github.com/ardanlabs/servicechain/foundation/events"
	"github.com/ardanlabs/servicechain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxParamsSize bounds the contract parameters read from a request.
const maxParamsSize = 1 << 20

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client. The optional
// prefix query parameter filters the events, for example "state:".
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID, r.URL.Query().Get("prefix"))
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Status returns a summary of the ledger.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Status(), http.StatusOK)
}

// Stats returns the detailed report of the ledger.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Stats(), http.StatusOK)
}

// Health reports the health of the ledger. An unhealthy ledger responds
// with a 503 so load balancers can act on it.
func (h Handlers) Health(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	health := h.State.Health()

	status := http.StatusOK
	if health.Status == state.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}

	return web.Respond(ctx, w, health, status)
}

// BlocksByNumber returns all the blocks based on the specified to/from values.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	fromStr := web.Param(r, "from")
	if fromStr == "" {
		return web.Respond(ctx, w, h.State.RetrieveBlocks(), http.StatusOK)
	}

	from, err := parseBlockNumber(fromStr)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := parseBlockNumber(web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks := h.State.QueryBlocksByNumber(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Mempool returns the set of pending transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	trans := h.State.RetrieveMempool()

	resp := pending{
		Count:        len(trans),
		Transactions: trans,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitTransaction signs a raw transaction and adds it to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx NewTx
	if err := web.Decode(r, &ntx); err != nil {
		return asTrusted(err)
	}

	h.Log.Infow("submit tx", "traceid", v.TraceID, "from", ntx.From, "to", ntx.To, "amount", ntx.Amount)

	tx, err := h.State.SubmitTransaction(ntx.From, ntx.To, ntx.Data, ntx.Amount)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := submitted{
		Status: "transaction added to mempool",
		Tx:     tx,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Transaction locates a transaction and reports whether it verifies.
func (h Handlers) Transaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := h.State.QueryTransaction(web.Param(r, "id"))
	if err != nil {
		return errs.FromLedger(err)
	}

	return web.Respond(ctx, w, v, http.StatusOK)
}

// Contracts returns the registered contracts.
func (h Handlers) Contracts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveContracts(), http.StatusOK)
}

// ExecuteContract dispatches a call to a contract function. The request
// body holds the parameters of the function.
func (h Handlers) ExecuteContract(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	name := web.Param(r, "contract")
	function := web.Param(r, "function")

	params, err := io.ReadAll(io.LimitReader(r.Body, maxParamsSize))
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("reading params: %w", err), http.StatusBadRequest)
	}
	if len(params) > 0 && !json.Valid(params) {
		return errs.NewTrusted(errors.New("params must be a json document"), http.StatusBadRequest)
	}

	h.Log.Infow("execute contract", "traceid", v.TraceID, "contract", name, "function", function)

	result, err := h.State.Execute(ctx, name, function, params)
	if err != nil {
		return errs.FromLedger(err)
	}

	resp := execution{
		Contract: name,
		Function: function,
		Result:   result,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// EntityTransactions returns every sealed transaction referencing the entity.
func (h Handlers) EntityTransactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryEntityTransactions(web.Param(r, "id")), http.StatusOK)
}

// =============================================================================

func parseBlockNumber(s string) (uint64, error) {
	if s == "latest" || s == "" {
		return state.QueryLatest, nil
	}

	num, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q", s)
	}

	return num, nil
}

// asTrusted marks decoding failures as client errors. Field errors are
// left for the error middleware.
func asTrusted(err error) error {
	if validate.IsFieldErrors(err) {
		return err
	}

	return errs.NewTrusted(err, http.StatusBadRequest)
}
