package cmd

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type balance struct {
	Address string          `json:"address"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) error {
	address, err := loadAddress()
	if err != nil {
		return err
	}

	fmt.Println("For Address:", address)

	var bal balance
	if err := send(http.MethodGet, "/v1/balances/"+address, nil, &bal); err != nil {
		return err
	}

	fmt.Println(bal.Balance.StringFixed(2))
	return nil
}
