package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/fault"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/google/uuid"
)

// Set of errors the job api can return.
var (
	ErrQueueFull    = errors.New("mining queue is full")
	ErrJobNotFound  = errors.New("mining job not found")
	ErrShuttingDown = errors.New("worker is shutting down")
)

// Status represents where a job is in its lifecycle.
type Status string

// Set of job statuses.
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Job is a snapshot of a mine request.
type Job struct {
	ID           string            `json:"id"`
	MinerAddress string            `json:"miner_address"`
	ProofIDs     []string          `json:"knowledge_proof_ids"`
	Auto         bool              `json:"auto"`
	Status       Status            `json:"status"`
	Result       *state.MineResult `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`

	err error
}

// Err returns the error a failed or cancelled job finished with.
func (j Job) Err() error {
	return j.err
}

// Done reports whether the job has finished.
func (j Job) Done() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// job is the worker's record of a request. Fields are guarded by the
// worker mutex.
type job struct {
	Job
	cancel context.CancelFunc
	done   chan struct{}
}

// =============================================================================

// SubmitJob queues a mine for the miner. The job runs after every job
// already queued.
func (w *Worker) SubmitJob(minerAddress string, proofIDs []string) (Job, error) {
	const op = "worker.submit"

	if minerAddress == "" {
		return Job{}, fault.Validationf(op, "miner address is required")
	}

	return w.enqueue(minerAddress, proofIDs, false)
}

// Job returns a snapshot of the specified job.
func (w *Worker) Job(id string) (Job, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	j, exists := w.jobs[id]
	if !exists {
		return Job{}, fault.NotFound("worker.job", ErrJobNotFound)
	}

	return j.snapshot(), nil
}

// Wait blocks until the job finishes or the context is done, then returns
// the job as it stands.
func (w *Worker) Wait(ctx context.Context, id string) (Job, error) {
	w.mu.Lock()
	j, exists := w.jobs[id]
	w.mu.Unlock()

	if !exists {
		return Job{}, fault.NotFound("worker.wait", ErrJobNotFound)
	}

	select {
	case <-j.done:
	case <-ctx.Done():
	}

	return w.Job(id)
}

// CancelJob stops a queued or running job. Finished jobs are returned as
// they are.
func (w *Worker) CancelJob(id string) (Job, error) {
	w.mu.Lock()

	j, exists := w.jobs[id]
	if !exists {
		w.mu.Unlock()
		return Job{}, fault.NotFound("worker.cancel", ErrJobNotFound)
	}

	running := j.Status == StatusRunning
	switch j.Status {
	case StatusQueued:
		w.finishLocked(j, nil, context.Canceled)
	case StatusRunning:
		j.cancel()
	}
	w.mu.Unlock()

	w.evHandler("worker: CancelJob: job[%s]: cancel requested", id)

	if running {
		<-j.done
	}

	return w.Job(id)
}

// ActiveJobs returns the number of queued and running jobs.
func (w *Worker) ActiveJobs() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	var n int
	for _, j := range w.jobs {
		if !j.Done() {
			n++
		}
	}
	return n
}

// =============================================================================

// activeAutoJob returns the id of an automatic job that is queued or
// running.
func (w *Worker) activeAutoJob() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, j := range w.jobs {
		if j.Auto && !j.Done() {
			return id, true
		}
	}
	return "", false
}

func (w *Worker) enqueue(minerAddress string, proofIDs []string, auto bool) (Job, error) {
	j := job{
		Job: Job{
			ID:           uuid.NewString(),
			MinerAddress: minerAddress,
			ProofIDs:     append([]string(nil), proofIDs...),
			Auto:         auto,
			Status:       StatusQueued,
			CreatedAt:    time.Now().UTC(),
		},
		cancel: func() {},
		done:   make(chan struct{}),
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isShutdown() {
		return Job{}, ErrShuttingDown
	}

	select {
	case w.queue <- &j:
	default:
		return Job{}, ErrQueueFull
	}

	w.jobs[j.ID] = &j

	w.evHandler("worker: enqueue: job[%s]: miner[%s]: auto[%t]", j.ID, minerAddress, auto)

	return j.snapshot(), nil
}

// start moves a queued job to running. It returns false when the job was
// cancelled while it waited.
func (w *Worker) start(j *job) (context.Context, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if j.Status != StatusQueued {
		return nil, false
	}

	ctx, cancel := context.WithCancel(w.ctx)

	now := time.Now().UTC()
	j.Status = StatusRunning
	j.StartedAt = &now
	j.cancel = cancel

	return ctx, true
}

func (w *Worker) finish(j *job, res *state.MineResult, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.finishLocked(j, res, err)
}

func (w *Worker) finishLocked(j *job, res *state.MineResult, err error) {
	if j.Done() {
		return
	}

	now := time.Now().UTC()
	j.FinishedAt = &now
	j.Result = res
	j.err = err
	j.cancel()

	switch {
	case err == nil:
		j.Status = StatusCompleted
	case errors.Is(err, context.Canceled):
		j.Status = StatusCancelled
		j.Error = err.Error()
	default:
		j.Status = StatusFailed
		j.Error = err.Error()
	}

	close(j.done)

	// Only the most recent finished jobs are kept for polling.
	w.finished = append(w.finished, j.ID)
	if len(w.finished) > w.retention {
		delete(w.jobs, w.finished[0])
		w.finished = w.finished[1:]
	}
}

func (j *job) snapshot() Job {
	cpy := j.Job
	cpy.ProofIDs = append([]string(nil), j.ProofIDs...)
	return cpy
}
