package public

import (
	"net/http"

	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
	"github.com/ardanlabs/servicechain/foundation/events"
	"github.com/ardanlabs/servicechain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
	Mid   []web.Middleware
}

// Routes binds all the public routes.
func Routes(app *web.App, cfg Config) {
	pbl := Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	const version = "v1"

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/ledger/status", pbl.Status, cfg.Mid...)
	app.Handle(http.MethodGet, version, "/ledger/stats", pbl.Stats, cfg.Mid...)
	app.Handle(http.MethodGet, version, "/ledger/health", pbl.Health, cfg.Mid...)
	app.Handle(http.MethodGet, version, "/blocks/list", pbl.BlocksByNumber, cfg.Mid...)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", pbl.BlocksByNumber, cfg.Mid...)
	app.Handle(http.MethodGet, version, "/tx/pending", pbl.Mempool, cfg.Mid...)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction, cfg.Mid...)
	app.Handle(http.MethodGet, version, "/tx/:id", pbl.Transaction, cfg.Mid...)
	app.Handle(http.MethodGet, version, "/contracts/list", pbl.Contracts, cfg.Mid...)
	app.Handle(http.MethodPost, version, "/contracts/:contract/:function", pbl.ExecuteContract, cfg.Mid...)
	app.Handle(http.MethodGet, version, "/entities/:id/transactions", pbl.EntityTransactions, cfg.Mid...)
}
