// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"
	"time"

	"github.com/ardanlabs/ledger/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/ledger/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/ledger/foundation/blockchain/knowledge"
	"github.com/ardanlabs/ledger/foundation/blockchain/pool"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log         *zap.SugaredLogger
	State       *state.State
	Worker      *worker.Worker
	Registry    *knowledge.Registry
	Pool        *pool.Pool
	NS          *nameservice.NameService
	Evts        *events.Events
	MineWait    time.Duration
	PoolAddress string
	CORSOrigins []string
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:         cfg.Log,
		State:       cfg.State,
		Worker:      cfg.Worker,
		Registry:    cfg.Registry,
		Pool:        cfg.Pool,
		NS:          cfg.NS,
		WS:          websocket.Upgrader{},
		Evts:        cfg.Evts,
		MineWait:    cfg.MineWait,
		PoolAddress: cfg.PoolAddress,
		CORSOrigins: cfg.CORSOrigins,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/stats", pbl.Stats)
	app.Handle(http.MethodGet, version, "/health", pbl.Health)
	app.Handle(http.MethodGet, version, "/blocks", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/:number/proof/:id", pbl.TxProof)
	app.Handle(http.MethodGet, version, "/balances", pbl.Balances)
	app.Handle(http.MethodGet, version, "/balances/:address", pbl.Balance)

	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodGet, version, "/tx/pending", pbl.Mempool)

	app.Handle(http.MethodPost, version, "/mine", pbl.Mine)
	app.Handle(http.MethodGet, version, "/mine/jobs/:id", pbl.MineJob)
	app.Handle(http.MethodDelete, version, "/mine/jobs/:id", pbl.CancelMineJob)

	app.Handle(http.MethodPost, version, "/knowledge/submit", pbl.SubmitProof)
	app.Handle(http.MethodPost, version, "/knowledge/verify", pbl.VerifyProof)
	app.Handle(http.MethodGet, version, "/knowledge/list/verified", pbl.VerifiedProofs)
	app.Handle(http.MethodGet, version, "/knowledge/list/pending", pbl.PendingProofs)
	app.Handle(http.MethodGet, version, "/knowledge/:id", pbl.Proof)

	app.Handle(http.MethodPost, version, "/pool/join", pbl.JoinPool)
	app.Handle(http.MethodDelete, version, "/pool/miners/:id", pbl.LeavePool)
	app.Handle(http.MethodPost, version, "/pool/share", pbl.SubmitShare)
	app.Handle(http.MethodGet, version, "/pool/stats", pbl.PoolStats)
	app.Handle(http.MethodPost, version, "/pool/distribute", pbl.Distribute)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:      cfg.Log,
		State:    cfg.State,
		Worker:   cfg.Worker,
		Registry: cfg.Registry,
		Pool:     cfg.Pool,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodPost, version, "/node/chain/verify", prv.VerifyChain)
}
