package private

import (
	"net/http"

	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
	"github.com/ardanlabs/servicechain/foundation/web"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Routes binds all the private routes.
func Routes(app *web.App, cfg Config) {
	prv := Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	const version = "v1"

	app.Handle(http.MethodGet, version, "/ledger/validate", prv.Validate)
	app.Handle(http.MethodPost, version, "/ledger/seal", prv.Seal)
	app.Handle(http.MethodPost, version, "/ledger/seal/signal", prv.SignalSeal)
}
