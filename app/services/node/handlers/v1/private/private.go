// Package private maintains the group of handlers for operator access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/knowledge"
	"github.com/ardanlabs/ledger/foundation/blockchain/pool"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of operator endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	State    *state.State
	Worker   *worker.Worker
	Registry *knowledge.Registry
	Pool     *pool.Pool
}

type status struct {
	LatestBlockHash   string      `json:"latest_block_hash"`
	LatestBlockNumber uint64      `json:"latest_block_number"`
	Beneficiary       string      `json:"beneficiary"`
	MiningAllowed     bool        `json:"mining_allowed"`
	ActiveJobs        int         `json:"active_jobs"`
	Proofs            int         `json:"proofs"`
	PoolMiners        int         `json:"pool_miners"`
	Stats             state.Stats `json:"stats"`
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.State.LatestBlock()

	resp := status{
		LatestBlockHash:   latest.Hash,
		LatestBlockNumber: latest.Header.Number,
		Beneficiary:       h.State.BeneficiaryID(),
		MiningAllowed:     h.State.IsMiningAllowed(),
		ActiveJobs:        h.Worker.ActiveJobs(),
		Proofs:            h.Registry.Count(),
		PoolMiners:        h.Pool.Stats().TotalMiners,
		Stats:             h.State.Stats(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// VerifyChain revalidates the whole chain. A valid chain lifts a mining
// halt left by an earlier failed validation.
func (h Handlers) VerifyChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.Reverify(); err != nil {
		return err
	}

	h.Log.Infow("chain verified", "traceid", web.GetTraceID(ctx), "blocks", h.State.LatestBlock().Header.Number+1)

	resp := struct {
		Valid bool `json:"valid"`
	}{
		Valid: true,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
