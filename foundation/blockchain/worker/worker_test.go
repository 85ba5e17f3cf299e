package worker_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/fault"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func newState(t *testing.T, difficulty uint32, beneficiary string, threshold int) *state.State {
	t.Helper()

	g := genesis.Default()
	g.Difficulty = difficulty

	st, err := state.New(state.Config{
		BeneficiaryID:     beneficiary,
		AutoMineThreshold: threshold,
		Genesis:           g,
		Storage:           memory.New(),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the ledger: %s", failed, err)
	}

	return st
}

// waitFor polls until fn reports true or the deadline passes.
func waitFor(t *testing.T, what string, fn func() bool) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for !fn() {
		if time.Now().After(deadline) {
			t.Fatalf("\t%s\tShould %s before the deadline.", failed, what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubmitJob(t *testing.T) {
	t.Log("Given the need to mine in the background.")
	{
		st := newState(t, 1, "", 0)
		w := worker.Run(st, worker.Config{})
		defer st.Shutdown()

		if _, err := w.SubmitJob("", nil); !fault.Is(err, fault.KindValidation) {
			t.Fatalf("\t%s\tShould reject a job without a miner: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a job without a miner.", success)

		job, err := w.SubmitJob("miner", nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to submit a job: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to submit a job.", success)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err = w.Wait(ctx, job.ID)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to wait on the job: %s", failed, err)
		}

		if job.Status != worker.StatusCompleted || job.Result == nil || job.Result.Block.Header.Number != 1 {
			t.Fatalf("\t%s\tShould complete with block 1: %+v", failed, job)
		}
		t.Logf("\t%s\tShould complete with block 1.", success)

		if _, err := w.Job("unknown"); !fault.Is(err, fault.KindNotFound) {
			t.Fatalf("\t%s\tShould report an unknown job: %v", failed, err)
		}
		t.Logf("\t%s\tShould report an unknown job.", success)
	}
}

func TestCancelAndQueueFull(t *testing.T) {
	t.Log("Given the need to bound and cancel mining jobs.")
	{
		// A difficulty this high is never solved within the test.
		st := newState(t, 9, "", 0)
		w := worker.Run(st, worker.Config{QueueSize: 1})
		defer st.Shutdown()

		running, err := w.SubmitJob("miner", nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to submit a job: %s", failed, err)
		}

		waitFor(t, "start the first job", func() bool {
			j, _ := w.Job(running.ID)
			return j.Status == worker.StatusRunning
		})
		t.Logf("\t%s\tShould start the first job.", success)

		queued, err := w.SubmitJob("miner", nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to queue a second job: %s", failed, err)
		}

		if _, err := w.SubmitJob("miner", nil); !errors.Is(err, worker.ErrQueueFull) {
			t.Fatalf("\t%s\tShould reject a job when the queue is full: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a job when the queue is full.", success)

		if n := w.ActiveJobs(); n != 2 {
			t.Fatalf("\t%s\tShould report 2 active jobs, got %d.", failed, n)
		}
		t.Logf("\t%s\tShould report 2 active jobs.", success)

		job, err := w.CancelJob(queued.ID)
		if err != nil || job.Status != worker.StatusCancelled {
			t.Fatalf("\t%s\tShould cancel the queued job: %v %+v", failed, err, job)
		}
		t.Logf("\t%s\tShould cancel the queued job.", success)

		job, err = w.CancelJob(running.ID)
		if err != nil || job.Status != worker.StatusCancelled {
			t.Fatalf("\t%s\tShould cancel the running job: %v %+v", failed, err, job)
		}
		t.Logf("\t%s\tShould cancel the running job.", success)

		if st.LatestBlock().Header.Number != 0 {
			t.Fatalf("\t%s\tShould not append a cancelled block.", failed)
		}
		t.Logf("\t%s\tShould not append a cancelled block.", success)

		waitFor(t, "drain the active jobs", func() bool {
			return w.ActiveJobs() == 0
		})
		t.Logf("\t%s\tShould drain the active jobs.", success)
	}
}

func TestAutoMine(t *testing.T) {
	t.Log("Given the need to mine automatically for the node.")
	{
		st := newState(t, 1, "node", 2)
		worker.Run(st, worker.Config{})
		defer st.Shutdown()

		for _, to := range []string{"bob", "carol"} {
			_, err := st.AddTransaction(state.NewTx{From: "alice", To: to, Amount: decimal.NewFromInt(1)})
			if err != nil {
				t.Fatalf("\t%s\tShould be able to submit a transaction: %s", failed, err)
			}
		}

		waitFor(t, "mine a block for the node", func() bool {
			return st.LatestBlock().Header.Number == 1
		})
		t.Logf("\t%s\tShould mine a block for the node.", success)

		if bal := st.Balance("node"); !bal.IsPositive() {
			t.Fatalf("\t%s\tShould credit the node beneficiary, got %s.", failed, bal)
		}
		t.Logf("\t%s\tShould credit the node beneficiary.", success)
	}
}

// recorder keeps the worker's events for inspection.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) handle(v string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, fmt.Sprintf(v, args...))
}

func (r *recorder) contains(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

func TestSingleAutoJob(t *testing.T) {
	t.Log("Given the need to keep one automatic mine active at a time.")
	{
		var rec recorder

		// A difficulty this high is never solved within the test, so the
		// automatic job stays queued behind the running one.
		st := newState(t, 9, "node", 2)
		w := worker.Run(st, worker.Config{EvHandler: rec.handle})
		defer st.Shutdown()

		running, err := w.SubmitJob("miner", nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to submit a job: %s", failed, err)
		}

		waitFor(t, "start the first job", func() bool {
			j, _ := w.Job(running.ID)
			return j.Status == worker.StatusRunning
		})

		for _, to := range []string{"bob", "carol"} {
			if _, err := st.AddTransaction(state.NewTx{From: "alice", To: to, Amount: decimal.NewFromInt(1)}); err != nil {
				t.Fatalf("\t%s\tShould be able to submit a transaction: %s", failed, err)
			}
		}

		waitFor(t, "queue an automatic job", func() bool {
			return w.ActiveJobs() == 2
		})
		t.Logf("\t%s\tShould queue an automatic job at the threshold.", success)

		if _, err := st.AddTransaction(state.NewTx{From: "alice", To: "dave", Amount: decimal.NewFromInt(1)}); err != nil {
			t.Fatalf("\t%s\tShould be able to submit a transaction: %s", failed, err)
		}

		waitFor(t, "skip the second automatic job", func() bool {
			return rec.contains("worker: queueAutoMine: skip")
		})

		if n := w.ActiveJobs(); n != 2 {
			t.Fatalf("\t%s\tShould keep a single automatic job, got %d active jobs.", failed, n)
		}
		t.Logf("\t%s\tShould keep a single automatic job.", success)
	}
}

func TestAutoMineBurst(t *testing.T) {
	t.Log("Given the need to mine a burst of transactions without empty blocks.")
	{
		const threshold = 2
		const submitted = 40

		st := newState(t, 1, "node", threshold)
		w := worker.Run(st, worker.Config{})
		defer st.Shutdown()

		for i := 0; i < submitted; i++ {
			_, err := st.AddTransaction(state.NewTx{From: "alice", To: fmt.Sprintf("user%d", i), Amount: decimal.NewFromInt(1)})
			if err != nil {
				t.Fatalf("\t%s\tShould be able to submit a transaction: %s", failed, err)
			}
		}

		waitFor(t, "mine the burst", func() bool {
			return w.ActiveJobs() == 0 && st.QueryMempoolLength() < threshold
		})
		t.Logf("\t%s\tShould mine the burst.", success)

		blocks := st.QueryBlocks(0, 0)

		var transfers int
		var minted decimal.Decimal
		for _, b := range blocks {
			if b.Header.Number == 0 {
				continue
			}

			if len(b.Trans) < 2 {
				t.Fatalf("\t%s\tShould not mine a block holding only the mint: blk[%d]", failed, b.Header.Number)
			}

			for _, tx := range b.Trans {
				if tx.IsMint() {
					minted = minted.Add(tx.Amount)
					continue
				}
				transfers++
			}
		}
		t.Logf("\t%s\tShould not mine a block holding only the mint.", success)

		if transfers+st.QueryMempoolLength() != submitted {
			t.Fatalf("\t%s\tShould account for every transaction: mined %d pending %d", failed, transfers, st.QueryMempoolLength())
		}
		t.Logf("\t%s\tShould account for every transaction.", success)

		if !minted.Equal(st.TotalSupply()) {
			t.Fatalf("\t%s\tShould grow the supply only by the mints: minted %s supply %s", failed, minted, st.TotalSupply())
		}
		t.Logf("\t%s\tShould grow the supply only by the mints.", success)
	}
}
