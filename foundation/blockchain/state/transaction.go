package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewTx is what a caller provides to submit a transaction.
type NewTx struct {
	From   string
	To     string
	Amount decimal.Decimal
	Type   database.TxType // Empty means transfer.
}

// AddTransaction validates the transaction and appends it to the pending
// pool. Sender balances are not checked.
func (s *State) AddTransaction(nt NewTx) (database.Tx, error) {
	tx := database.Tx{
		ID:        uuid.NewString(),
		From:      nt.From,
		To:        nt.To,
		Amount:    nt.Amount,
		Type:      nt.Type,
		TimeStamp: s.now().UTC().UnixMilli(),
	}

	if tx.Type == "" {
		tx.Type = database.TxTransfer
	}

	if err := tx.Validate(); err != nil {
		return database.Tx{}, err
	}

	n, err := s.mempool.Upsert(tx)
	if err != nil {
		return database.Tx{}, err
	}

	s.evHandler("state: AddTransaction: tx[%s]: pending[%d]", tx, n)

	if s.AutoMineDue() {
		s.Worker.SignalStartMining()
	}

	return tx, nil
}

// AutoMineDue reports whether enough transactions are pending for the node
// to mine a block for its own beneficiary.
func (s *State) AutoMineDue() bool {
	return s.autoMine > 0 && s.beneficiaryID != "" && s.mempool.Count() >= s.autoMine
}
