// Package cmd implements the docdex command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/log"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:          "docdex",
	Short:        "Semantic search over API documentation, served over MCP",
	Long: `docdex indexes API documentation (OpenAPI specs, YAML docs, HTML
pages) into a vector store and serves semantic search to MCP clients.

Run 'docdex mcp' to serve, 'docdex ingest' to load documentation and
'docdex apikey' to manage credentials.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// newLogger builds the CLI logger. Logs go to stderr; stdout carries
// MCP JSON-RPC in server mode and report output in ingest mode.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if debug || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// checkRequiredEnv verifies the embedder API key is present before
// any component tries to use it.
func checkRequiredEnv() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "docdex requires a Gemini API key for embeddings.")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		return fmt.Errorf("GEMINI_API_KEY not set")
	}
	return nil
}
