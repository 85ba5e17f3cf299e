// Package knowledge maintains the proof-of-knowledge registry. Proofs are
// submitted, collect verifier votes and resolve once a quorum of votes has
// been recorded.
package knowledge

import (
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/fault"
	"github.com/google/uuid"
)

// Quorum rules for resolving a proof.
const (
	QuorumVotes     = 3
	QuorumApprovals = 2
)

// Set of errors the registry can return.
var (
	ErrNotFound      = errors.New("knowledge proof not found")
	ErrDuplicateVote = errors.New("verifier already voted on this proof")
)

// EventHandler defines a function that is called when events
// occur in the processing of proofs.
type EventHandler func(v string, args ...any)

// Config represents the configuration for the registry.
type Config struct {

	// UniqueVerifiers rejects a second vote by the same verifier on a proof.
	// When false, repeat votes are recorded and count toward the quorum.
	UniqueVerifiers bool

	EvHandler EventHandler
}

// entry guards a single proof so votes on different proofs never contend.
type entry struct {
	mu    sync.Mutex
	proof Proof
}

// Registry stores every submitted proof. Proofs are never deleted.
type Registry struct {
	uniqueVerifiers bool
	evHandler       EventHandler

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// New constructs a registry for use.
func New(cfg Config) *Registry {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	return &Registry{
		uniqueVerifiers: cfg.UniqueVerifiers,
		evHandler:       ev,
		entries:         make(map[string]*entry),
	}
}

// Submit stores a new proof in the pending state and returns its id.
func (r *Registry) Submit(np NewProof) (string, error) {
	const op = "knowledge.submit"

	if np.Type == "" {
		return "", fault.Validationf(op, "type is required")
	}
	if !np.Type.Valid() {
		return "", fault.Validationf(op, "type %q is not a known proof type", np.Type)
	}
	if np.Content == "" {
		return "", fault.Validationf(op, "content is required")
	}

	difficulty := np.Difficulty
	if difficulty == "" {
		difficulty = Beginner
	}
	if !difficulty.Valid() {
		return "", fault.Validationf(op, "difficulty %q is not a known level", difficulty)
	}

	accuracy := 1.0
	if np.Accuracy != nil {
		accuracy = *np.Accuracy
	}
	if accuracy < 0 || accuracy > 1 {
		return "", fault.Validationf(op, "accuracy %v is outside [0,1]", accuracy)
	}

	impact := uint64(1)
	if np.Impact != nil {
		impact = *np.Impact
	}

	proof := Proof{
		ID:            uuid.NewString(),
		Type:          np.Type,
		Content:       np.Content,
		Difficulty:    difficulty,
		Accuracy:      accuracy,
		Impact:        impact,
		SubmitterID:   np.SubmitterID,
		TimeStamp:     time.Now().UTC(),
		Status:        StatusPending,
		Verifications: []Verification{},
	}

	r.mu.Lock()
	{
		r.entries[proof.ID] = &entry{proof: proof}
		r.order = append(r.order, proof.ID)
	}
	r.mu.Unlock()

	r.evHandler("knowledge: submit: proof[%s]: type[%s]: queued for review", proof.ID, proof.Type)

	return proof.ID, nil
}

// Verify records a vote on the specified proof. Once QuorumVotes votes exist
// the status resolves a single time and never changes afterwards.
func (r *Registry) Verify(proofID string, verifierID string, approved bool, comments string) (Proof, error) {
	const op = "knowledge.verify"

	if verifierID == "" {
		return Proof{}, fault.Validationf(op, "verifier id is required")
	}

	e, err := r.lookup(proofID)
	if err != nil {
		return Proof{}, fault.NotFound(op, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if r.uniqueVerifiers {
		for _, v := range e.proof.Verifications {
			if v.VerifierID == verifierID {
				return Proof{}, fault.Validation(op, ErrDuplicateVote)
			}
		}
	}

	e.proof.Verifications = append(e.proof.Verifications, Verification{
		VerifierID: verifierID,
		Approved:   approved,
		Comments:   comments,
		TimeStamp:  time.Now().UTC(),
	})

	if e.proof.Status == StatusPending && len(e.proof.Verifications) >= QuorumVotes {
		e.proof.Status = StatusRejected
		if e.proof.Approvals() >= QuorumApprovals {
			e.proof.Status = StatusVerified
		}
		r.evHandler("knowledge: verify: proof[%s]: resolved[%s]: approvals[%d]", e.proof.ID, e.proof.Status, e.proof.Approvals())
	}

	return e.proof.clone(), nil
}

// Proof returns a copy of the specified proof.
func (r *Registry) Proof(proofID string) (Proof, error) {
	e, err := r.lookup(proofID)
	if err != nil {
		return Proof{}, fault.NotFound("knowledge.proof", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.proof.clone(), nil
}

// Verified returns up to limit of the most recently submitted verified
// proofs, most recent last. A limit <= 0 returns all of them.
func (r *Registry) Verified(limit int) []Proof {
	return r.latest(StatusVerified, limit)
}

// Pending returns up to limit proofs still waiting on votes, oldest first.
// A limit <= 0 returns all of them.
func (r *Registry) Pending(limit int) []Proof {
	var out []Proof
	for _, p := range r.snapshot() {
		if p.Status != StatusPending {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Count returns the number of proofs held in the registry.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// =============================================================================

// lookup finds the entry for the specified proof id.
func (r *Registry) lookup(proofID string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[proofID]
	if !exists {
		return nil, ErrNotFound
	}
	return e, nil
}

// snapshot copies every proof in submission order.
func (r *Registry) snapshot() []Proof {
	r.mu.RLock()
	entries := make([]*entry, len(r.order))
	for i, id := range r.order {
		entries[i] = r.entries[id]
	}
	r.mu.RUnlock()

	proofs := make([]Proof, len(entries))
	for i, e := range entries {
		e.mu.Lock()
		proofs[i] = e.proof.clone()
		e.mu.Unlock()
	}
	return proofs
}

// latest returns the tail of the proofs with the specified status.
func (r *Registry) latest(status Status, limit int) []Proof {
	var out []Proof
	for _, p := range r.snapshot() {
		if p.Status == status {
			out = append(out, p)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
