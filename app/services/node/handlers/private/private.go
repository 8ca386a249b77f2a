// Package private maintains the group of handlers for operator access.
package private

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ardanlabs/servicechain/business/web/errs"
	"github.com/ardanlabs/servicechain/foundation/blockchain/database"
	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
	"github.com/ardanlabs/servicechain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of operator endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Validate recomputes the whole chain and reports the first inconsistency.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Valid  bool   `json:"valid"`
		Blocks int    `json:"blocks"`
		Error  string `json:"error,omitempty"`
	}{
		Valid:  true,
		Blocks: h.State.Status().TotalBlocks,
	}

	if err := h.State.ValidateChain(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Seal seals the mempool into a new block and waits for the work to
// complete. The difficulty query parameter overrides the configured
// difficulty. Cancelling the request cancels the work.
func (h Handlers) Seal(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	difficulty := h.State.RetrieveDifficulty()
	if d := r.URL.Query().Get("difficulty"); d != "" {
		difficulty, err = strconv.Atoi(d)
		if err != nil {
			return errs.NewTrusted(errors.New("difficulty must be a number"), http.StatusBadRequest)
		}
	}

	h.Log.Infow("seal block", "traceid", v.TraceID, "difficulty", difficulty, "pending", h.State.QueryMempoolLength())

	block, err := h.State.SealBlock(ctx, difficulty)
	if err != nil {
		if errors.Is(err, database.ErrInvalidDifficulty) {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		return err
	}

	return web.Respond(ctx, w, block, http.StatusCreated)
}

// SignalSeal asks the background worker to seal the pending transactions.
func (h Handlers) SignalSeal(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.Worker == nil {
		return errs.NewTrusted(errors.New("background sealing is disabled"), http.StatusConflict)
	}

	h.State.Worker.SignalSeal()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "sealing signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}
