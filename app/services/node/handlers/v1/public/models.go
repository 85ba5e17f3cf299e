package public

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/knowledge"
	"github.com/ardanlabs/ledger/foundation/blockchain/pool"
	"github.com/shopspring/decimal"
)

type txSubmit struct {
	From   string          `json:"from" validate:"required"`
	To     string          `json:"to" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
	Type   database.TxType `json:"type" validate:"omitempty,oneof=transfer mining_reward"`
}

type mineRequest struct {
	MinerAddress      string   `json:"miner_address" validate:"required"`
	KnowledgeProofIDs []string `json:"knowledge_proof_ids"`
}

type proofSubmit struct {
	Type        knowledge.Type       `json:"type" validate:"required"`
	Content     string               `json:"content" validate:"required"`
	Difficulty  knowledge.Difficulty `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced expert"`
	Accuracy    *float64             `json:"accuracy" validate:"omitempty,gte=0,lte=1"`
	Impact      *uint64              `json:"impact"`
	SubmitterID string               `json:"submitter_id"`
}

type proofVerify struct {
	ProofID    string `json:"proof_id" validate:"required"`
	VerifierID string `json:"verifier_id" validate:"required"`
	Approved   bool   `json:"approved"`
	Comments   string `json:"comments"`
}

type poolJoin struct {
	MinerID   string         `json:"miner_id" validate:"required"`
	MinerInfo pool.MinerInfo `json:"miner_info"`
}

type poolShare struct {
	MinerID string     `json:"miner_id" validate:"required"`
	Share   pool.Share `json:"share"`
}

type poolDistribute struct {
	Total decimal.Decimal `json:"total"`
	Pay   bool            `json:"pay"`
}

type poolDistributed struct {
	Payouts      []pool.Payout `json:"payouts"`
	Transactions []database.Tx `json:"transactions,omitempty"`
}

type poolStats struct {
	pool.Stats
	ActiveJobs int `json:"active_jobs"`
}

type balance struct {
	Address string          `json:"address"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

type health struct {
	Status     string          `json:"status"`
	Blocks     int             `json:"blocks"`
	Supply     decimal.Decimal `json:"supply"`
	Difficulty uint32          `json:"difficulty"`
}
