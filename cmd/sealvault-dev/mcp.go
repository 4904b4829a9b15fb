package main

import (
	"github.com/spf13/cobra"

	"github.com/sealvault/sealvault-core/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the wallet bridge as an MCP stdio tool",
		RunE: func(_ *cobra.Command, _ []string) error {
			return mcp.NewWalletServer(core, pageURL, logger).Serve()
		},
	}
}
