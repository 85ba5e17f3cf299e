// Package balance resolves account balances by replaying the transaction
// history. Nothing is cached; every answer is derived from the blocks
// handed in so balances can't drift from the chain.
package balance

import (
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// Of folds every transaction in the blocks: the address is credited when it
// is the receiver and debited when it is the sender. An address that never
// appears has a zero balance.
func Of(blocks []database.Block, address string) decimal.Decimal {
	bal := decimal.Zero

	for _, block := range blocks {
		for _, tx := range block.Trans {
			if tx.To == address {
				bal = bal.Add(tx.Amount)
			}
			if !tx.IsMint() && tx.From == address {
				bal = bal.Sub(tx.Amount)
			}
		}
	}

	return bal
}

// =============================================================================

// Account is a single entry of a balance sheet.
type Account struct {
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}

// Sheet represents the balances of every address seen in a replay. A
// sheet is a throwaway value owned by its caller.
type Sheet struct {
	sheet map[string]decimal.Decimal
}

// Replay builds a balance sheet from the full transaction history.
func Replay(blocks []database.Block) *Sheet {
	bs := Sheet{
		sheet: make(map[string]decimal.Decimal),
	}

	for _, block := range blocks {
		for _, tx := range block.Trans {
			bs.ApplyTransaction(tx)
		}
	}

	return &bs
}

// ApplyTransaction moves the transaction amount between the two parties.
// A mint only credits the receiver. Sufficient funds are not checked, a
// sender may go negative.
func (bs *Sheet) ApplyTransaction(tx database.Tx) {
	if !tx.IsMint() {
		bs.sheet[tx.From] = bs.sheet[tx.From].Sub(tx.Amount)
	}
	bs.sheet[tx.To] = bs.sheet[tx.To].Add(tx.Amount)
}

// Balance returns the balance for the address.
func (bs *Sheet) Balance(address string) decimal.Decimal {
	return bs.sheet[address]
}

// Accounts returns the sheet sorted by address.
func (bs *Sheet) Accounts() []Account {
	accounts := make([]Account, 0, len(bs.sheet))
	for address, bal := range bs.sheet {
		accounts = append(accounts, Account{Address: address, Balance: bal})
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Address < accounts[j].Address
	})

	return accounts
}
