package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/mcp"
)

var mcpHTTP string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default the server communicates over stdio using JSON-RPC. Use
--http to serve over HTTP instead, which enables testing with the MCP
Inspector and remote access.

Tools:
  search  find corpus passages relevant to a query
  ask     answer a question grounded on the corpus

Resources:
  docqa://corpus  index statistics
  docqa://usage   provider usage and cost

Client configuration (stdio):
  {
    "mcpServers": {
      "docqa": {
        "command": "/path/to/docqa",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTP, "http", "", "serve over HTTP on this address (e.g. :8080) instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ports := &mcp.Ports{
		Retriever: retrievalService,
		Answerer:  answerService,
		Ingestor:  ingestService,
		Usage:     usageService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpHTTP != "" {
		display := mcpHTTP
		if strings.HasPrefix(display, ":") {
			display = "localhost" + display
		}
		cmd.Printf("MCP server listening on http://%s\n", display)
		return server.RunHTTP(cmd.Context(), mcpHTTP)
	}

	return server.Run(cmd.Context())
}
