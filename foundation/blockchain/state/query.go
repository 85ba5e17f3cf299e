package state

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/balance"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/fault"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/shopspring/decimal"
)

// Stats is a snapshot of the ledger.
type Stats struct {
	Blocks      int             `json:"blocks"`
	TotalSupply decimal.Decimal `json:"total_supply"`
	Difficulty  uint32          `json:"difficulty"`
	BaseReward  decimal.Decimal `json:"base_reward"`
	Pending     int             `json:"pending"`
	IsValid     bool            `json:"is_valid"`
}

// Stats returns the current ledger statistics. The base reward is the one
// the next block will earn.
func (s *State) Stats() Stats {
	valid := s.IsChainValid()

	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.db.Count()

	return Stats{
		Blocks:      count,
		TotalSupply: s.totalSupply,
		Difficulty:  s.difficulty,
		BaseReward:  s.reward.BaseReward(uint64(count)),
		Pending:     s.mempool.Count(),
		IsValid:     valid,
	}
}

// Difficulty returns the difficulty the next block must meet.
func (s *State) Difficulty() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.difficulty
}

// TotalSupply returns the sum of every mint in the chain.
func (s *State) TotalSupply() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.totalSupply
}

// LatestBlock returns the tip of the chain.
func (s *State) LatestBlock() database.Block {
	return s.db.LatestBlock()
}

// QueryBlocks returns blocks newest first, skipping offset blocks and
// returning at most limit. A limit <= 0 returns every remaining block.
func (s *State) QueryBlocks(limit int, offset int) []database.Block {
	blocks := s.db.Blocks()

	if offset < 0 {
		offset = 0
	}

	if offset >= len(blocks) {
		return []database.Block{}
	}

	end := len(blocks) - offset
	start := 0
	if limit > 0 && end-limit > 0 {
		start = end - limit
	}

	out := make([]database.Block, 0, end-start)
	for i := end - 1; i >= start; i-- {
		out = append(out, blocks[i])
	}

	return out
}

// QueryMempool returns the pending transactions in arrival order.
func (s *State) QueryMempool() []database.Tx {
	return s.mempool.PickBest(-1)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// Balance replays the chain to compute the address balance. Pending
// transactions are not included.
func (s *State) Balance(address string) decimal.Decimal {
	return balance.Of(s.db.Blocks(), address)
}

// Balances replays the chain and returns every account seen.
func (s *State) Balances() []balance.Account {
	return balance.Replay(s.db.Blocks()).Accounts()
}

// TxProof proves a mined transaction belongs to its block.
type TxProof struct {
	BlockNumber uint64        `json:"block_number"`
	BlockHash   string        `json:"block_hash"`
	TxID        string        `json:"tx_id"`
	TxHash      string        `json:"tx_hash"`
	MerkleRoot  string        `json:"merkle_root"`
	Proof       []merkle.Step `json:"proof"`
}

// QueryTxProof returns the merkle inclusion proof of a transaction in the
// specified block.
func (s *State) QueryTxProof(blockNumber uint64, txID string) (TxProof, error) {
	const op = "state.txproof"

	block, err := s.db.GetBlock(blockNumber)
	if err != nil {
		return TxProof{}, fault.NotFound(op, err)
	}

	tree, err := merkle.New(block.Trans)
	if err != nil {
		return TxProof{}, fault.NotFound(op, fmt.Errorf("block %d: %w", blockNumber, err))
	}

	idx, steps, err := tree.ProofOf(func(tx database.Tx) bool { return tx.ID == txID })
	if err != nil {
		return TxProof{}, fault.NotFound(op, fmt.Errorf("tx %s: %w", txID, err))
	}

	return TxProof{
		BlockNumber: blockNumber,
		BlockHash:   block.Hash,
		TxID:        txID,
		TxHash:      tree.LeafHex(idx),
		MerkleRoot:  tree.RootHex(),
		Proof:       steps,
	}, nil
}
