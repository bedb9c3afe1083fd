package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/attest/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools: search, cite, citations, ingestion_status.
Resources: attest://evidence, attest://citations,
attest://evidence/{documentId}/status.

By default, the server communicates over stdio using JSON-RPC.
Use --http to serve streamable HTTP instead.

Examples:
  # Stdio mode (default)
  attest mcp

  # HTTP mode (for MCP Inspector, remote access)
  attest mcp --http localhost:8080

Assistant configuration:
  {
    "mcpServers": {
      "attest": {
        "command": "/path/to/attest",
        "args": ["mcp", "--engagement", "<engagement-id>"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if services.Search == nil {
		return notConfigured("search")
	}

	ports := &mcp.Ports{
		Search:       services.Search,
		Citations:    services.Citations,
		Ingestion:    services.Ingestion,
		Evidence:     services.Evidence,
		EngagementID: services.EngagementID,
	}
	if services.Settings != nil {
		if settings, err := services.Settings.Get(); err == nil {
			ports.TopK = settings.Search.TopK
			ports.ScoreThreshold = settings.Search.ScoreThreshold
		}
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}

	return server.Run(cmd.Context())
}
