// Command sealvault-dev hosts the in-page wallet bridge for development:
// an HTTP server a local dapp page can talk to, and an MCP stdio server
// for agent hosts. Approval prompts are auto-accepted, so never point it
// at real funds.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sealvault/sealvault-core"
	"github.com/sealvault/sealvault-core/app"
	"github.com/sealvault/sealvault-core/eth"
	"github.com/sealvault/sealvault-core/keychain"
)

var (
	home        string
	pageURL     string
	rpcEndpoint string
	verbose     bool

	logger *slog.Logger
	core   *app.Core
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:                "sealvault-dev",
		Short:              "Development host for the in-page wallet bridge",
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.sealvault-dev)")
	root.PersistentFlags().StringVar(&pageURL, "page-url", "http://localhost:3000", "page URL requests act for")
	root.PersistentFlags().StringVar(&rpcEndpoint, "rpc-endpoint", "", "override every chain's RPC endpoint, e.g. a local node")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newServeCmd(), newMCPCmd())
	return root
}

// setup builds the wallet core shared by the subcommands.
func setup(cmd *cobra.Command, _ []string) error {
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		home = filepath.Join(dir, ".sealvault-dev")
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	kc, err := keychain.NewFile(filepath.Join(home, "keychain"))
	if err != nil {
		return err
	}
	rpc := eth.NewHTTPRPCManager(nil, logger)
	if rpcEndpoint != "" {
		for _, chain := range sealvault.SupportedChains() {
			rpc.SetEndpoint(chain, rpcEndpoint)
		}
	}

	core, err = app.NewCore(cmd.Context(), app.CoreArgs{
		DBPath:   filepath.Join(home, "sealvault.db"),
		Keychain: kc,
		RPC:      rpc,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if mnemonic := core.OnboardingMnemonic(); mnemonic != "" {
		logger.Info("wallet created", slog.String("recovery_phrase", mnemonic))
	}
	return nil
}

func teardown(*cobra.Command, []string) error {
	if core != nil {
		return core.Close()
	}
	return nil
}
