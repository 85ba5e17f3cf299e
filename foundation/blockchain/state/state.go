// Package state is the core API for the ledger and implements all the
// business rules for accepting transactions, mining blocks and keeping the
// chain valid.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/knowledge"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/reward"
	"github.com/shopspring/decimal"
)

// ErrChainCorrupted is returned by every mine once the chain has failed
// validation. Only an operator reverify lifts it.
var ErrChainCorrupted = errors.New("chain failed validation, mining halted")

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for background mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
}

// ProofSource is the lookup the ledger uses to resolve knowledge proof ids
// into proofs when a block is mined.
type ProofSource interface {
	Proof(proofID string) (knowledge.Proof, error)
}

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	BeneficiaryID     string // Address credited by automatic mining.
	AutoMineThreshold int    // Pending count that triggers automatic mining, 0 disables.
	Genesis           genesis.Genesis
	Storage           database.Serializer
	Proofs            ProofSource
	Now               func() time.Time
	EvHandler         EventHandler
}

// State manages the ledger.
type State struct {
	beneficiaryID string
	autoMine      int
	now           func() time.Time
	evHandler     EventHandler

	genesis genesis.Genesis
	reward  *reward.Calculator
	proofs  ProofSource
	mempool *mempool.Mempool
	db      *database.Database

	miningMu sync.Mutex

	mu          sync.Mutex
	difficulty  uint32
	totalSupply decimal.Decimal
	halted      error
	validTip    string // Hash of the tip the chain last validated up to.

	Worker Worker
}

// New constructs the ledger, loading any stored chain. A stored chain that
// fails validation doesn't prevent start up, it leaves mining halted.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	calc, err := reward.New(reward.Config{
		BaseReward:      cfg.Genesis.BaseReward,
		HalvingInterval: cfg.Genesis.HalvingInterval,
		PoWWeight:       cfg.Genesis.PoWWeight,
		PoKWeight:       cfg.Genesis.PoKWeight,
	})
	if err != nil {
		return nil, fmt.Errorf("reward: %w", err)
	}

	// The genesis block is only written when the store is empty, so its
	// timestamp is the moment the ledger is created. The first retarget
	// window is measured from it.
	genesisBlock := database.Genesis(now().UTC().UnixMilli(), cfg.Genesis.Difficulty)

	db, err := database.New(cfg.Storage, genesisBlock, ev)
	if err != nil {
		return nil, err
	}

	state := State{
		beneficiaryID: cfg.BeneficiaryID,
		autoMine:      cfg.AutoMineThreshold,
		now:           now,
		evHandler:     ev,

		genesis: cfg.Genesis,
		reward:  calc,
		proofs:  cfg.Proofs,
		mempool: mempool.New(),
		db:      db,

		difficulty:  db.LatestBlock().Header.Difficulty,
		totalSupply: decimal.Zero,

		// The worker.Run call replaces this with the real worker.
		Worker: noopWorker{},
	}

	for _, block := range db.Blocks() {
		for _, tx := range block.Trans {
			if tx.IsMint() {
				state.totalSupply = state.totalSupply.Add(tx.Amount)
			}
		}
	}

	// The stored difficulty belongs to the latest block. Apply the retarget
	// that followed its append.
	state.adjustDifficulty()

	if !state.IsChainValid() {
		ev("state: New: WARNING: stored chain is invalid, mining halted")
	}

	ev("state: New: blocks[%d]: supply[%s]: difficulty[%d]", db.Count(), state.totalSupply, state.difficulty)

	return &state, nil
}

// Shutdown cleanly brings the ledger down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	return s.db.Close()
}

// Genesis returns the chain parameters.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// BeneficiaryID returns the address credited by automatic mining.
func (s *State) BeneficiaryID() string {
	return s.beneficiaryID
}

// =============================================================================

// noopWorker stands in until a worker registers itself.
type noopWorker struct{}

func (noopWorker) Shutdown()          {}
func (noopWorker) SignalStartMining() {}
