package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/hash"
)

// GenesisPrevHash is the previous hash recorded on the genesis block.
const GenesisPrevHash = "0"

// Set of errors returned when a block doesn't fit the chain.
var (
	ErrHashMismatch         = errors.New("stored hash doesn't match block contents")
	ErrLinkMismatch         = errors.New("previous hash doesn't match parent block")
	ErrNonceBudgetExhausted = errors.New("nonce budget exhausted before solving block")
)

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number          uint64   `json:"index"`            // Sequential block number, genesis is 0.
	TimeStamp       int64    `json:"timestamp"`        // Unix milliseconds the block was mined.
	PrevBlockHash   string   `json:"previous_hash"`    // Hash of the previous block in the chain.
	Nonce           uint64   `json:"nonce"`            // Value identified to solve the hash solution.
	Difficulty      uint32   `json:"difficulty"`       // Number of leading 0's needed to solve the hash solution.
	BeneficiaryID   string   `json:"beneficiary"`      // The account who received the mint.
	KnowledgeProofs []string `json:"knowledge_proofs"` // Verified proofs that earned a bonus.
}

// Block represents a group of transactions batched together. Hash is the
// digest stored when the block was sealed.
type Block struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"header"`
	Trans  []Tx        `json:"transactions"`
}

// Genesis constructs the first block of a chain.
func Genesis(timeStamp int64, difficulty uint32) Block {
	b := Block{
		Header: BlockHeader{
			Number:          0,
			TimeStamp:       timeStamp,
			PrevBlockHash:   GenesisPrevHash,
			Difficulty:      difficulty,
			KnowledgeProofs: []string{},
		},
		Trans: []Tx{},
	}
	b.Hash = b.ComputeHash()

	return b
}

// ComputeHash recomputes the digest from the block contents.
func (b Block) ComputeHash() string {
	return hash.Hash(b.Header.Number, b.Header.TimeStamp, b.Trans, b.Header.PrevBlockHash, b.Header.Nonce)
}

// ValidateLink checks the block is sealed with the hash of its contents and
// points at the specified parent.
func (b Block) ValidateLink(previousBlock Block) error {
	if computed := b.ComputeHash(); b.Hash != computed {
		return fmt.Errorf("block %d: %w: stored %s, computed %s", b.Header.Number, ErrHashMismatch, b.Hash, computed)
	}

	if b.Header.PrevBlockHash != previousBlock.Hash {
		return fmt.Errorf("block %d: %w: got %s, exp %s", b.Header.Number, ErrLinkMismatch, b.Header.PrevBlockHash, previousBlock.Hash)
	}

	return nil
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	BeneficiaryID   string
	Difficulty      uint32
	MaxNonce        uint64 // Zero means no budget.
	PrevBlock       Block
	Trans           []Tx
	KnowledgeProofs []string
	TimeStamp       int64
	EvHandler       func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	proofs := args.KnowledgeProofs
	if proofs == nil {
		proofs = []string{}
	}

	nb := Block{
		Header: BlockHeader{
			Number:          args.PrevBlock.Header.Number + 1,
			TimeStamp:       args.TimeStamp,
			PrevBlockHash:   args.PrevBlock.Hash,
			Nonce:           0, // Will be identified by the POW algorithm.
			Difficulty:      args.Difficulty,
			BeneficiaryID:   args.BeneficiaryID,
			KnowledgeProofs: proofs,
		},
		Trans: args.Trans,
	}

	if err := nb.performPOW(ctx, args.MaxNonce, args.EvHandler); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, maxNonce uint64, ev func(v string, args ...any)) error {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("database: PerformPOW: MINING: started: blk[%d]: difficulty[%d]", b.Header.Number, b.Header.Difficulty)
	defer ev("database: PerformPOW: MINING: completed")

	for _, tx := range b.Trans {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	// The transactions are serialized once. Each attempt only re-hashes
	// the seed with the next nonce.
	seed, err := hash.NewSeed(b.Header.Number, b.Header.TimeStamp, b.Trans, b.Header.PrevBlockHash)
	if err != nil {
		return fmt.Errorf("serializing block: %w", err)
	}

	for nonce := uint64(0); ; nonce++ {
		if maxNonce > 0 && nonce > maxNonce {
			ev("database: PerformPOW: MINING: BUDGET EXHAUSTED: attempts[%d]", nonce)
			return ErrNonceBudgetExhausted
		}

		if nonce%10_000 == 0 {
			if nonce%1_000_000 == 0 && nonce > 0 {
				ev("database: PerformPOW: MINING: attempts[%d]", nonce)
			}

			// Were we asked to stop trying to solve the problem.
			if ctx.Err() != nil {
				ev("database: PerformPOW: MINING: CANCELLED")
				return ctx.Err()
			}
		}

		h := seed.Sum(nonce)
		if !hash.IsSolved(b.Header.Difficulty, h) {
			continue
		}

		b.Header.Nonce = nonce
		b.Hash = h

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.Header.PrevBlockHash, h, nonce+1)
		return nil
	}
}
