package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	amcp "github.com/phdlabs/admind/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes admind data as
read-only tools for AI agents: admins, privilege checks, policies, readiness
reports and policy drafts. Supports stdio (default) and HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for desktop MCP clients that launch admind as a subprocess.

In HTTP mode, the server listens on the specified port using the streamable
HTTP transport.`,
		Example: `  admind mcp                               # stdio mode
  admind mcp --transport http --port 3001  # streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			if !cfg.MCP.Enabled {
				return fmt.Errorf("the MCP server is disabled (mcp.enabled: false)")
			}
			if !cmd.Flags().Changed("transport") && cfg.MCP.Transport != "" {
				transport = cfg.MCP.Transport
			}

			// stdout belongs to the protocol in stdio mode.
			logger := newLogger(cfg.Logging, os.Stderr)

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			privileges, rdb := newPrivilegeCache(cmd.Context(), cfg, store, logger)
			if rdb != nil {
				defer rdb.Close()
			}

			mcpSrv := amcp.NewMCPServer(store, privileges, versionString(), logger)

			switch transport {
			case "stdio":
				return mcpSrv.ServeStdio()
			case "http":
				return mcpSrv.ServeHTTP(fmt.Sprintf(":%d", port))
			default:
				return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}
