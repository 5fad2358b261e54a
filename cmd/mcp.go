package cmd

import (
	"github.com/huangsam/pj/internal/iocache"
	"github.com/huangsam/pj/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp [path]",
	Short: "Start the pj MCP server",
	Long: `Launch an MCP server on stdio that lets AI agents read the stored report,
list failed files, detect changes and run updates. Logs go to stderr so that
stdout stays reserved for the protocol.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, iocache.Manager, newAnnotator())
	},
}
