package pool

import (
	"time"

	"github.com/shopspring/decimal"
)

// MinerInfo is what a miner reports about itself when joining.
type MinerInfo struct {
	HashRate decimal.Decimal `json:"hash_rate"`
}

// Miner is a registered participant of the pool.
type Miner struct {
	ID           string          `json:"id"`
	Shares       uint64          `json:"shares"`
	HashRate     decimal.Decimal `json:"hash_rate"`
	JoinedAt     time.Time       `json:"joined_at"`
	LastActivity time.Time       `json:"last_activity"`
}

// Share is a unit of work reported by a miner. The pool counts every
// accepted share as one unit; the fields are kept for observers.
type Share struct {
	Nonce uint64 `json:"nonce"`
	Hash  string `json:"hash"`
}

// ShareReceipt is returned for an accepted share.
type ShareReceipt struct {
	Accepted    bool   `json:"accepted"`
	Shares      uint64 `json:"shares"`
	TotalShares uint64 `json:"total_shares"`
}

// Payout is the amount owed to a miner for a distribution round.
type Payout struct {
	MinerID string          `json:"miner_id"`
	Shares  uint64          `json:"shares"`
	Amount  decimal.Decimal `json:"amount"`
}

// Stats is a snapshot of the pool.
type Stats struct {
	TotalMiners int             `json:"total_miners"`
	TotalShares uint64          `json:"total_shares"`
	HashRate    decimal.Decimal `json:"hash_rate"`
}
