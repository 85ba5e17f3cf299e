package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/fault"
	"github.com/ardanlabs/ledger/foundation/blockchain/knowledge"
	"github.com/shopspring/decimal"
)

// MineResult is the outcome of a successful mine.
type MineResult struct {
	Block               database.Block  `json:"block"`
	Reward              decimal.Decimal `json:"reward"`
	KnowledgeBonusCount int             `json:"knowledge_bonus_count"`
}

// MineNewBlock mines the pending transactions plus a mint for the miner into
// the next block. Only verified proofs among proofIDs earn a bonus. The
// nonce search runs outside the ledger lock, transactions that arrive
// during the search stay pending for the next block.
func (s *State) MineNewBlock(ctx context.Context, minerAddress string, proofIDs []string) (MineResult, error) {
	const op = "state.mine"

	if minerAddress == "" {
		return MineResult{}, fault.Validationf(op, "miner address is required")
	}

	// Mines are serialized so every search builds on the latest block.
	s.miningMu.Lock()
	defer s.miningMu.Unlock()

	if err := s.checkChain(true); err != nil {
		return MineResult{}, fault.ChainCorruption(op, err)
	}

	proofs := s.verifiedProofs(proofIDs)

	// Snapshot what the candidate block is built from.
	s.mu.Lock()
	var (
		prevBlock  = s.db.LatestBlock()
		height     = uint64(s.db.Count())
		difficulty = s.difficulty
		pending    = s.mempool.PickBest(-1)
	)
	s.mu.Unlock()

	amount := s.reward.Reward(height, proofs)
	now := s.now()

	proofRefs := make([]string, len(proofs))
	for i, p := range proofs {
		proofRefs[i] = p.ID
	}

	trans := make([]database.Tx, 0, len(pending)+1)
	trans = append(trans, pending...)
	trans = append(trans, database.NewMintTx(minerAddress, amount, now))

	s.evHandler("state: MineNewBlock: MINING: perform POW: height[%d]: txs[%d]: proofs[%d]: reward[%s]", height, len(trans), len(proofs), amount)

	block, err := database.POW(ctx, database.POWArgs{
		BeneficiaryID:   minerAddress,
		Difficulty:      difficulty,
		MaxNonce:        s.genesis.MaxNonce,
		PrevBlock:       prevBlock,
		Trans:           trans,
		KnowledgeProofs: proofRefs,
		TimeStamp:       now.UTC().UnixMilli(),
		EvHandler:       s.evHandler,
	})
	if err != nil {
		return MineResult{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return MineResult{}, ctx.Err()
	}

	if err := s.appendBlock(block, pending, amount); err != nil {
		return MineResult{}, err
	}

	s.blockEvent(block)

	return MineResult{
		Block:               block,
		Reward:              amount,
		KnowledgeBonusCount: len(proofs),
	}, nil
}

// appendBlock writes the block, drains the mined transactions, grows the
// supply and retargets in one critical section.
func (s *State) appendBlock(block database.Block, mined []database.Tx, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: appendBlock: validate block")

	prev := s.db.LatestBlock()
	if err := block.ValidateLink(prev); err != nil {
		return err
	}

	s.evHandler("state: appendBlock: write to storage")

	if err := s.db.Write(block); err != nil {
		return err
	}

	ids := make([]string, len(mined))
	for i, tx := range mined {
		ids[i] = tx.ID
	}
	s.mempool.Delete(ids...)

	// The block was checked against the tip, a chain valid up to the tip
	// stays valid up to the block.
	if s.validTip == prev.Hash {
		s.validTip = block.Hash
	}

	s.totalSupply = s.totalSupply.Add(amount)

	s.adjustDifficulty()

	return nil
}

// adjustDifficulty retargets after an append. Every interval blocks the
// time the last interval took is compared with the target: under half
// raises the difficulty by one, over double lowers it by one but never
// below 1. The caller must hold the lock.
func (s *State) adjustDifficulty() {
	count := uint64(s.db.Count())
	interval := s.genesis.DifficultyAdjustmentInterval

	if count <= 1 || count%interval != 0 {
		return
	}

	latest := s.db.LatestBlock()
	first, err := s.db.GetBlock(count - interval)
	if err != nil {
		return
	}

	actual := latest.Header.TimeStamp - first.Header.TimeStamp
	expected := s.genesis.TargetBlockTime.Milliseconds() * int64(interval)

	prev := s.difficulty

	switch {
	case actual < expected/2:
		s.difficulty++
	case actual > expected*2 && s.difficulty > 1:
		s.difficulty--
	}

	s.evHandler("state: adjustDifficulty: blocks[%d]: actual[%dms]: expected[%dms]: difficulty[%d->%d]", count, actual, expected, prev, s.difficulty)
}

// verifiedProofs resolves the ids, keeping each verified proof once.
func (s *State) verifiedProofs(proofIDs []string) []knowledge.Proof {
	if s.proofs == nil {
		return nil
	}

	seen := make(map[string]bool, len(proofIDs))

	var proofs []knowledge.Proof
	for _, id := range proofIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		p, err := s.proofs.Proof(id)
		if err != nil {
			s.evHandler("state: verifiedProofs: skip proof[%s]: %s", id, err)
			continue
		}

		if p.Status != knowledge.StatusVerified {
			s.evHandler("state: verifiedProofs: skip proof[%s]: status[%s]", id, p.Status)
			continue
		}

		proofs = append(proofs, p)
	}

	return proofs
}

// blockEvent provides a specific event about a new block in the chain for
// the event stream.
func (s *State) blockEvent(block database.Block) {
	data, err := json.Marshal(block)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`event: block: %s`, string(data))
}

// =============================================================================

// IsChainValid reports whether blocks 1..N hash and link correctly. A chain
// already validated up to the current tip isn't walked again. A failure
// halts mining until Reverify succeeds.
func (s *State) IsChainValid() bool {
	return s.checkChain(false) == nil
}

// Reverify re-runs validation over the whole chain and lifts the halt only
// when the chain is valid.
func (s *State) Reverify() error {
	const op = "state.reverify"

	tip, err := s.validateChain()
	if err != nil {
		s.mu.Lock()
		s.halted = err
		s.validTip = ""
		s.mu.Unlock()

		return fault.ChainCorruption(op, err)
	}

	s.mu.Lock()
	s.halted = nil
	s.markValid(tip)
	s.mu.Unlock()

	s.evHandler("state: Reverify: chain valid, mining allowed")

	return nil
}

// IsMiningAllowed reports whether mining is not halted.
func (s *State) IsMiningAllowed() bool {
	return s.haltErr() == nil
}

func (s *State) haltErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted == nil {
		return nil
	}

	return errors.Join(ErrChainCorrupted, s.halted)
}

// checkChain fails with the halt error when mining is halted. Otherwise it
// walks the chain unless full is false and the current tip was already
// validated. A walk that fails halts mining.
func (s *State) checkChain(full bool) error {
	if err := s.haltErr(); err != nil {
		return err
	}

	if !full {
		s.mu.Lock()
		cached := s.validTip != "" && s.validTip == s.db.LatestBlock().Hash
		s.mu.Unlock()

		if cached {
			return nil
		}
	}

	tip, err := s.validateChain()
	if err != nil {
		s.mu.Lock()
		s.halted = err
		s.validTip = ""
		s.mu.Unlock()

		s.evHandler("event: alert: chain corruption: %s", err)
		return s.haltErr()
	}

	s.mu.Lock()
	s.markValid(tip)
	s.mu.Unlock()

	return nil
}

// markValid records the tip a walk validated up to. A walk that finished
// behind a concurrent append leaves the record alone. The caller must hold
// the lock.
func (s *State) markValid(tip string) {
	if tip == s.db.LatestBlock().Hash {
		s.validTip = tip
	}
}

// validateChain walks the chain and returns the hash of the tip it
// validated up to.
func (s *State) validateChain() (string, error) {
	blocks := s.db.Blocks()

	s.evHandler("state: validateChain: blocks[%d]", len(blocks))

	for i := 1; i < len(blocks); i++ {
		if err := blocks[i].ValidateLink(blocks[i-1]); err != nil {
			return "", err
		}
	}

	return blocks[len(blocks)-1].Hash, nil
}
