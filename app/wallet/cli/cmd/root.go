// Package cmd contains the ledger wallet commands. Every command works
// against a single account key and talks to one node over its public api.
package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const keyExtension = ".ecdsa"

// Flags shared by every command.
var (
	accountName string
	accountPath string
	nodeURL     string
	timeout     time.Duration
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&accountName, "account", "a", "private", "Name of the account key, the .ecdsa extension is optional.")
	flags.StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Directory holding the account keys.")
	flags.StringVarP(&nodeURL, "url", "u", envOr("LEDGER_WALLET_URL", "http://localhost:8080"), "Base url of the node's public api.")
	flags.DurationVar(&timeout, "timeout", time.Minute, "Time allowed for a request to the node, mines can take a while.")
}

var rootCmd = &cobra.Command{
	Use:          "wallet",
	Short:        "Ledger wallet for transfers, mining and knowledge proofs",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		base, err := normalizeNodeURL(nodeURL)
		if err != nil {
			return err
		}
		nodeURL = base

		if timeout <= 0 {
			return errors.New("timeout must be positive")
		}
		client.Timeout = timeout

		return nil
	},
}

// Execute runs the command named on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// privateKeyPath returns the file of the selected account key.
func privateKeyPath() string {
	return keyPath(accountPath, accountName)
}

// keyPath joins the directory and the account name, adding the key
// extension when the name doesn't carry it.
func keyPath(dir string, name string) string {
	if !strings.HasSuffix(name, keyExtension) {
		name += keyExtension
	}

	return filepath.Join(dir, name)
}

// normalizeNodeURL checks the node url is an absolute http url and drops
// any trailing slash so api paths can be appended.
func normalizeNodeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("node url: %w", err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("node url %q must be an absolute http or https url", raw)
	}

	return strings.TrimRight(u.String(), "/"), nil
}

func envOr(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
