package database

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/fault"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxType represents the kind of value movement a transaction records.
type TxType string

// Set of transaction types.
const (
	TxTransfer     TxType = "transfer"
	TxMiningReward TxType = "mining_reward"
)

// =============================================================================

// Tx is the transactional information between two parties. An empty From
// means the value was minted by the ledger.
type Tx struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Type      TxType          `json:"type"`
	TimeStamp int64           `json:"timestamp"` // Unix milliseconds.
}

// NewTx constructs a new transfer transaction and validates it.
func NewTx(from string, to string, amount decimal.Decimal, now time.Time) (Tx, error) {
	tx := Tx{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Amount:    amount,
		Type:      TxTransfer,
		TimeStamp: now.UTC().UnixMilli(),
	}

	if err := tx.Validate(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// NewMintTx constructs the transaction crediting a miner with a block reward.
func NewMintTx(to string, amount decimal.Decimal, now time.Time) Tx {
	return Tx{
		ID:        uuid.NewString(),
		To:        to,
		Amount:    amount,
		Type:      TxMiningReward,
		TimeStamp: now.UTC().UnixMilli(),
	}
}

// Validate performs the field checks required for a transaction to be
// accepted into the pending pool. Mints are only created by mining.
func (tx Tx) Validate() error {
	const op = "tx.validate"

	switch tx.Type {
	case TxTransfer:
	case TxMiningReward:
		return fault.Validationf(op, "mining rewards are minted by the ledger")
	default:
		return fault.Validationf(op, "unknown transaction type %q", tx.Type)
	}

	if tx.From == "" {
		return fault.Validationf(op, "from is required")
	}

	if tx.To == "" {
		return fault.Validationf(op, "to is required")
	}

	if !tx.Amount.IsPositive() {
		return fault.Validationf(op, "amount must be greater than zero, got %s", tx.Amount)
	}

	return nil
}

// IsMint reports whether the transaction creates new supply.
func (tx Tx) IsMint() bool {
	return tx.From == ""
}

// Hash returns the digest of the transaction used as its merkle leaf.
func (tx Tx) Hash() ([]byte, error) {
	data, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}

	h := sha256.Sum256(data)
	return h[:], nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	from := tx.From
	if tx.IsMint() {
		from = "mint"
	}

	return fmt.Sprintf("%s->%s:%s", from, tx.To, tx.Amount)
}
