package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
)

var (
	proofType       string
	proofContent    string
	proofDifficulty string
	proofAccuracy   float64
	proofImpact     uint64
	proofID         string
	approve         bool
	comments        string
)

var proofCmd = &cobra.Command{
	Use:   "proof",
	Short: "Submit and verify knowledge proofs",
}

var proofSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a knowledge proof for review",
	RunE:  proofSubmitRun,
}

var proofVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Vote on a knowledge proof with your account as the verifier",
	RunE:  proofVerifyRun,
}

func init() {
	rootCmd.AddCommand(proofCmd)
	proofCmd.AddCommand(proofSubmitCmd, proofVerifyCmd)

	proofSubmitCmd.Flags().StringVar(&proofType, "type", "", "Kind of work, tutorial, research, etc.")
	proofSubmitCmd.Flags().StringVar(&proofContent, "content", "", "Description of the work.")
	proofSubmitCmd.Flags().StringVar(&proofDifficulty, "difficulty", "beginner", "beginner, intermediate, advanced or expert.")
	proofSubmitCmd.Flags().Float64Var(&proofAccuracy, "accuracy", 0.8, "Accuracy of the work between 0 and 1.")
	proofSubmitCmd.Flags().Uint64Var(&proofImpact, "impact", 1, "Reach of the work.")
	proofSubmitCmd.MarkFlagRequired("type")
	proofSubmitCmd.MarkFlagRequired("content")

	proofVerifyCmd.Flags().StringVar(&proofID, "id", "", "Proof to vote on.")
	proofVerifyCmd.Flags().BoolVar(&approve, "approve", false, "Approve the proof.")
	proofVerifyCmd.Flags().StringVar(&comments, "comments", "", "Comments on the vote.")
	proofVerifyCmd.MarkFlagRequired("id")
}

func proofSubmitRun(cmd *cobra.Command, args []string) error {
	address, err := loadAddress()
	if err != nil {
		return err
	}

	req := struct {
		Type        string  `json:"type"`
		Content     string  `json:"content"`
		Difficulty  string  `json:"difficulty"`
		Accuracy    float64 `json:"accuracy"`
		Impact      uint64  `json:"impact"`
		SubmitterID string  `json:"submitter_id"`
	}{
		Type:        proofType,
		Content:     proofContent,
		Difficulty:  proofDifficulty,
		Accuracy:    proofAccuracy,
		Impact:      proofImpact,
		SubmitterID: address,
	}

	var resp map[string]any
	if err := send(http.MethodPost, "/v1/knowledge/submit", req, &resp); err != nil {
		return err
	}

	return printJSON(resp)
}

func proofVerifyRun(cmd *cobra.Command, args []string) error {
	address, err := loadAddress()
	if err != nil {
		return err
	}

	req := struct {
		ProofID    string `json:"proof_id"`
		VerifierID string `json:"verifier_id"`
		Approved   bool   `json:"approved"`
		Comments   string `json:"comments"`
	}{
		ProofID:    proofID,
		VerifierID: address,
		Approved:   approve,
		Comments:   comments,
	}

	var resp map[string]any
	if err := send(http.MethodPost, "/v1/knowledge/verify", req, &resp); err != nil {
		return err
	}

	return printJSON(resp)
}
