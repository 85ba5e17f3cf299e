package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
)

var proofIDs []string

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine the pending transactions with your account as the miner",
	RunE:  mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().StringSliceVarP(&proofIDs, "proof", "k", nil, "Verified knowledge proof ids to claim.")
}

func mineRun(cmd *cobra.Command, args []string) error {
	address, err := loadAddress()
	if err != nil {
		return err
	}

	req := struct {
		MinerAddress      string   `json:"miner_address"`
		KnowledgeProofIDs []string `json:"knowledge_proof_ids"`
	}{
		MinerAddress:      address,
		KnowledgeProofIDs: proofIDs,
	}

	var resp map[string]any
	if err := send(http.MethodPost, "/v1/mine", req, &resp); err != nil {
		return err
	}

	return printJSON(resp)
}
