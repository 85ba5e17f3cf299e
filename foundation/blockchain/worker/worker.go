// Package worker runs mine operations in the background so the nonce search
// never blocks request handling. Callers submit a job and poll or wait for
// it; the node's own beneficiary is mined automatically when enough
// transactions are pending.
package worker

import (
	"context"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// Default limits used when the config leaves them zero.
const (
	defaultQueueSize    = 16
	defaultJobRetention = 1000
)

// =============================================================================

// Config represents the settings for the worker.
type Config struct {
	QueueSize    int // Jobs that may wait behind the running one.
	JobRetention int // Finished jobs kept for polling.
	EvHandler    state.EventHandler
}

// Worker manages the mining workflows for the ledger.
type Worker struct {
	state       *state.State
	wg          sync.WaitGroup
	shut        chan struct{}
	startMining chan bool
	queue       chan *job
	evHandler   state.EventHandler
	retention   int

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	jobs     map[string]*job
	finished []string
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, cfg Config) *Worker {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	retention := cfg.JobRetention
	if retention <= 0 {
		retention = defaultJobRetention
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		state:       st,
		shut:        make(chan struct{}),
		startMining: make(chan bool, 1),
		queue:       make(chan *job, queueSize),
		evHandler:   ev,
		retention:   retention,
		ctx:         ctx,
		cancel:      cancel,
		jobs:        make(map[string]*job),
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	// Transactions may already be waiting from a previous run.
	if st.AutoMineDue() {
		w.SignalStartMining()
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work. A running mine is
// cancelled and queued jobs are marked cancelled.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: cancel mining")
	w.cancel()

	w.evHandler("worker: shutdown: terminate goroutines")
	w.mu.Lock()
	close(w.shut)
	w.mu.Unlock()
	w.wg.Wait()

	for {
		select {
		case j := <-w.queue:
			w.finish(j, nil, context.Canceled)
		default:
			return
		}
	}
}

// SignalStartMining starts an automatic mining operation. If there is
// already a signal pending in the channel, just return since a mining
// operation will start.
func (w *Worker) SignalStartMining() {
	if !w.state.IsMiningAllowed() {
		w.evHandler("worker: SignalStartMining: mining halted")
		return
	}

	select {
	case w.startMining <- true:
		w.evHandler("worker: SignalStartMining: mining signaled")
	default:
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
