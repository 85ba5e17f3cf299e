package cmd

import (
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address to send to.")
	sendCmd.Flags().StringVarP(&amount, "amount", "v", "", "Amount to send.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) error {
	from, err := loadAddress()
	if err != nil {
		return err
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return err
	}

	tx := struct {
		From   string          `json:"from"`
		To     string          `json:"to"`
		Amount decimal.Decimal `json:"amount"`
	}{
		From:   from,
		To:     to,
		Amount: value,
	}

	var resp map[string]any
	if err := send(http.MethodPost, "/v1/tx/submit", tx, &resp); err != nil {
		return err
	}

	return printJSON(resp)
}
