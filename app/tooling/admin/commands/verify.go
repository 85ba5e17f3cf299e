package commands

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// Verify validates every block of the stored chain and reports the supply.
func Verify(st *state.State) error {
	if err := st.Reverify(); err != nil {
		return err
	}

	stats := st.Stats()
	fmt.Printf("Chain is valid: blocks[%d] supply[%s] difficulty[%d]\n", stats.Blocks, stats.TotalSupply.StringFixed(2), stats.Difficulty)

	return nil
}
