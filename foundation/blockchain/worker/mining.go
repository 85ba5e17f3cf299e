package worker

import (
	"context"
	"errors"
	"time"
)

// miningOperations handles mining. Jobs run one at a time in submission
// order.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case j := <-w.queue:
			if w.isShutdown() {
				w.finish(j, nil, context.Canceled)
				continue
			}
			w.runMiningOperation(j)
		case <-w.startMining:
			if !w.isShutdown() {
				w.queueAutoMine()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// queueAutoMine queues a mine for the node's beneficiary when the pending
// pool has reached the configured threshold. At most one automatic job is
// active at a time, it mines every pending transaction when it runs. Only
// this goroutine queues automatic jobs.
func (w *Worker) queueAutoMine() {
	if !w.state.AutoMineDue() {
		return
	}

	if id, active := w.activeAutoJob(); active {
		w.evHandler("worker: queueAutoMine: skip: auto job[%s] already active", id)
		return
	}

	if _, err := w.enqueue(w.state.BeneficiaryID(), nil, true); err != nil {
		w.evHandler("worker: queueAutoMine: WARNING: %s", err)
	}
}

// runMiningOperation takes the pending transactions and writes a new block
// to the ledger.
func (w *Worker) runMiningOperation(j *job) {
	ctx, ok := w.start(j)
	if !ok {
		w.evHandler("worker: runMiningOperation: job[%s]: skipped, cancelled while queued", j.ID)
		return
	}

	w.evHandler("worker: runMiningOperation: MINING: started: job[%s]", j.ID)
	defer w.evHandler("worker: runMiningOperation: MINING: completed: job[%s]", j.ID)

	// After running a mining operation, check if a new operation should
	// be signaled again.
	defer func() {
		if w.state.AutoMineDue() {
			w.evHandler("worker: runMiningOperation: MINING: signal new mining operation: Txs[%d]", w.state.QueryMempoolLength())
			w.SignalStartMining()
		}
	}()

	t := time.Now()
	res, err := w.state.MineNewBlock(ctx, j.MinerAddress, j.ProofIDs)
	duration := time.Since(t)

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		switch {
		case errors.Is(err, ctx.Err()):
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete: job[%s]", j.ID)
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: job[%s]: %s", j.ID, err)
		}
		w.finish(j, nil, err)
		return
	}

	w.evHandler("worker: runMiningOperation: MINING: job[%s]: blk[%d]: reward[%s]", j.ID, res.Block.Header.Number, res.Reward)
	w.finish(j, &res, nil)
}
