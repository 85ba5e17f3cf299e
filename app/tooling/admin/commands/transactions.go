package commands

import (
	"fmt"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// Transactions prints the mined transactions, oldest first, optionally only
// the ones touching an address.
func Transactions(args conf.Args, st *state.State) error {
	address := args.Num(1)

	blocks := st.QueryBlocks(-1, 0)
	for i := len(blocks) - 1; i >= 0; i-- {
		for _, tx := range blocks[i].Trans {
			if address != "" && tx.From != address && tx.To != address {
				continue
			}

			fmt.Printf("Block: %d  ID: %s  Type: %s  Tx: %s\n", blocks[i].Header.Number, tx.ID, tx.Type, tx)
		}
	}

	return nil
}
