// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// Balances prints the balances replayed from the stored chain.
func Balances(args conf.Args, st *state.State) error {
	onlyAddress := args.Num(1)

	fmt.Printf("LatestBlockHash: %s\n\n", st.LatestBlock().Hash)

	if onlyAddress != "" {
		fmt.Printf("Address: %s  Balance: %s\n", onlyAddress, st.Balance(onlyAddress).StringFixed(2))
		return nil
	}

	for _, acct := range st.Balances() {
		fmt.Printf("Address: %s  Balance: %s\n", acct.Address, acct.Balance.StringFixed(2))
	}

	return nil
}
