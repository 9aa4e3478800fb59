package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/app"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the documentation index over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := checkRequiredEnv(); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		logger.Info("starting MCP server", "version", AppVersion, "collection", cfg.Collection, "backend", cfg.Backend)

		a, err := app.Setup(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("initializing application: %w", err)
		}
		defer func() {
			if closeErr := a.Close(); closeErr != nil {
				logger.Warn("shutdown error", "error", closeErr)
			}
		}()

		server, err := mcp.NewServer(mcp.Config{
			Name:    "docdex",
			Version: AppVersion,
			Crawler: cfg.Crawler,
		}, a.Guard, a.Registry, a.Loader, logger)
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}

		logger.Info("MCP server ready", "transport", "stdio")
		if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		logger.Info("MCP server shut down")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
