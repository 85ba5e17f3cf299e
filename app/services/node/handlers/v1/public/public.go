// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/business/web/mid"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/knowledge"
	"github.com/ardanlabs/ledger/foundation/blockchain/pool"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/validate"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log         *zap.SugaredLogger
	State       *state.State
	Worker      *worker.Worker
	Registry    *knowledge.Registry
	Pool        *pool.Pool
	NS          *nameservice.NameService
	WS          websocket.Upgrader
	Evts        *events.Events
	MineWait    time.Duration
	PoolAddress string
	CORSOrigins []string
}

// Events handles a web socket to provide events to a client. The kinds
// query parameter, a comma separated list, limits the stream to those kinds.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var kinds []events.Kind
	if q := r.URL.Query().Get("kinds"); q != "" {
		for _, name := range strings.Split(q, ",") {
			kind, err := events.ParseKind(name)
			if err != nil {
				return errs.NewTrusted(err, http.StatusBadRequest)
			}
			kinds = append(kinds, kind)
		}
	}

	// Browsers connecting from another origin must be on the CORS list.
	h.WS.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || mid.OriginAllowed(h.CORSOrigins, origin)
	}

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID, kinds...)
	defer func() {
		if dropped, err := h.Evts.Release(v.TraceID); err == nil && dropped > 0 {
			h.Log.Infow("events", "traceid", v.TraceID, "status", "subscriber missed events", "dropped", dropped)
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(ev.String())); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// =============================================================================

// Stats returns the ledger statistics.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Stats(), http.StatusOK)
}

// Health returns a short summary of the ledger.
func (h Handlers) Health(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status := "ok"
	if !h.State.IsMiningAllowed() {
		status = "halted"
	}

	resp := health{
		Status:     status,
		Blocks:     int(h.State.LatestBlock().Header.Number) + 1,
		Supply:     h.State.TotalSupply(),
		Difficulty: h.State.Difficulty(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Blocks returns blocks newest first.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	limit, err := web.QueryInt(r, "limit", 10)
	if err != nil {
		return validate.NewFieldsError("limit", err)
	}

	offset, err := web.QueryInt(r, "offset", 0)
	if err != nil {
		return validate.NewFieldsError("offset", err)
	}

	if limit < 0 || offset < 0 {
		return errs.NewTrusted(errors.New("limit and offset can't be negative"), http.StatusBadRequest)
	}

	return web.Respond(ctx, w, h.State.QueryBlocks(limit, offset), http.StatusOK)
}

// TxProof returns the merkle proof that a transaction was mined in a block.
func (h Handlers) TxProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	number, err := strconv.ParseUint(web.Param(r, "number"), 10, 64)
	if err != nil {
		return validate.NewFieldsError("number", err)
	}

	proof, err := h.State.QueryTxProof(number, web.Param(r, "id"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, proof, http.StatusOK)
}

// Balance returns the balance of a single address.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	resp := balance{
		Address: address,
		Name:    h.NS.Lookup(address),
		Balance: h.State.Balance(address),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Balances returns the balance of every address in the chain.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accounts := h.State.Balances()

	resp := make([]balance, len(accounts))
	for i, acct := range accounts {
		resp[i] = balance{
			Address: acct.Address,
			Name:    h.NS.Lookup(acct.Address),
			Balance: acct.Balance,
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// SubmitTransaction adds a new transaction to the pending pool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req txSubmit
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	tx, err := h.State.AddTransaction(state.NewTx{
		From:   req.From,
		To:     req.To,
		Amount: req.Amount,
		Type:   req.Type,
	})
	if err != nil {
		return err
	}

	h.Log.Infow("add tran", "traceid", web.GetTraceID(ctx), "tx", tx.String())

	return web.Respond(ctx, w, tx, http.StatusCreated)
}

// Mempool returns the set of pending transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryMempool(), http.StatusOK)
}

// =============================================================================

// Mine queues a mine and waits a bounded time for it. A mine that doesn't
// finish in time is answered with the job to poll.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req mineRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	job, err := h.Worker.SubmitJob(req.MinerAddress, req.KnowledgeProofIDs)
	if err != nil {
		return jobError(err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, h.MineWait)
	defer cancel()

	job, err = h.Worker.Wait(waitCtx, job.ID)
	if err != nil {
		return err
	}

	return h.respondJob(ctx, w, job)
}

// MineJob returns the state of a mine job.
func (h Handlers) MineJob(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	job, err := h.Worker.Job(web.Param(r, "id"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, job, http.StatusOK)
}

// CancelMineJob stops a queued or running mine job.
func (h Handlers) CancelMineJob(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	job, err := h.Worker.CancelJob(web.Param(r, "id"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, job, http.StatusOK)
}

func (h Handlers) respondJob(ctx context.Context, w http.ResponseWriter, job worker.Job) error {
	switch job.Status {
	case worker.StatusCompleted:
		return web.Respond(ctx, w, job.Result, http.StatusOK)

	case worker.StatusFailed, worker.StatusCancelled:
		return jobError(job.Err())
	}

	w.Header().Set("Location", fmt.Sprintf("/v1/mine/jobs/%s", job.ID))
	return web.Respond(ctx, w, job, http.StatusAccepted)
}

// jobError marks the mining errors a client can act on.
func jobError(err error) error {
	switch {
	case errors.Is(err, worker.ErrQueueFull):
		return errs.NewTrusted(err, http.StatusTooManyRequests)
	case errors.Is(err, worker.ErrShuttingDown),
		errors.Is(err, database.ErrNonceBudgetExhausted),
		errors.Is(err, context.Canceled):
		return errs.NewTrusted(err, http.StatusServiceUnavailable)
	}
	return err
}

// =============================================================================

// SubmitProof stores a new knowledge proof for review.
func (h Handlers) SubmitProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req proofSubmit
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	id, err := h.Registry.Submit(knowledge.NewProof{
		Type:        req.Type,
		Content:     req.Content,
		Difficulty:  req.Difficulty,
		Accuracy:    req.Accuracy,
		Impact:      req.Impact,
		SubmitterID: req.SubmitterID,
	})
	if err != nil {
		return err
	}

	resp := struct {
		ProofID string `json:"proof_id"`
	}{
		ProofID: id,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// VerifyProof records a verifier vote on a proof.
func (h Handlers) VerifyProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req proofVerify
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	proof, err := h.Registry.Verify(req.ProofID, req.VerifierID, req.Approved, req.Comments)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, proof, http.StatusOK)
}

// Proof returns a single knowledge proof.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	proof, err := h.Registry.Proof(web.Param(r, "id"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, proof, http.StatusOK)
}

// VerifiedProofs returns the most recent verified proofs.
func (h Handlers) VerifiedProofs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	limit, err := web.QueryInt(r, "limit", 10)
	if err != nil {
		return validate.NewFieldsError("limit", err)
	}

	return web.Respond(ctx, w, nonNil(h.Registry.Verified(limit)), http.StatusOK)
}

// PendingProofs returns the proofs waiting on votes.
func (h Handlers) PendingProofs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	limit, err := web.QueryInt(r, "limit", 10)
	if err != nil {
		return validate.NewFieldsError("limit", err)
	}

	return web.Respond(ctx, w, nonNil(h.Registry.Pending(limit)), http.StatusOK)
}

func nonNil(proofs []knowledge.Proof) []knowledge.Proof {
	if proofs == nil {
		return []knowledge.Proof{}
	}
	return proofs
}

// =============================================================================

// JoinPool registers a miner with the pool.
func (h Handlers) JoinPool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req poolJoin
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	miner, err := h.Pool.AddMiner(req.MinerID, req.MinerInfo)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, miner, http.StatusOK)
}

// LeavePool unregisters a miner from the pool.
func (h Handlers) LeavePool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.Pool.RemoveMiner(web.Param(r, "id")); err != nil {
		return err
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// SubmitShare credits a share of work to a miner.
func (h Handlers) SubmitShare(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req poolShare
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	receipt, err := h.Pool.SubmitShare(req.MinerID, req.Share)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, receipt, http.StatusOK)
}

// PoolStats returns the pool statistics.
func (h Handlers) PoolStats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := poolStats{
		Stats:      h.Pool.Stats(),
		ActiveJobs: h.Worker.ActiveJobs(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Distribute splits a reward among the pool miners. When asked to pay and a
// pool address is configured, a transfer from the pool address is submitted
// for every payout.
func (h Handlers) Distribute(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req poolDistribute
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if req.Pay && h.PoolAddress == "" {
		return errs.NewTrusted(errors.New("no pool address configured to pay from"), http.StatusBadRequest)
	}

	payouts, err := h.Pool.DistributeRewards(req.Total)
	if err != nil {
		return err
	}

	resp := poolDistributed{
		Payouts: payouts,
	}

	if req.Pay {
		for _, po := range payouts {
			if !po.Amount.IsPositive() {
				continue
			}

			tx, err := h.State.AddTransaction(state.NewTx{
				From:   h.PoolAddress,
				To:     po.MinerID,
				Amount: po.Amount,
			})
			if err != nil {
				return fmt.Errorf("paying miner %s: %w", po.MinerID, err)
			}
			resp.Transactions = append(resp.Transactions, tx)
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
