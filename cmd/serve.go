package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xk9labs/pagepilot/internal/diagnostics"
	"github.com/xk9labs/pagepilot/internal/dispatch"
	"github.com/xk9labs/pagepilot/internal/mcp"
	"github.com/xk9labs/pagepilot/internal/observability"
	"github.com/xk9labs/pagepilot/internal/registry"
	"github.com/xk9labs/pagepilot/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tool catalog over stdio.",
	Long: `Serve reads JSON-RPC requests from stdin and writes responses to stdout.
All logging goes to stderr; stdout carries protocol traffic only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg := loadedConfig
	logger := observability.GetLogger()
	defer observability.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	diags := diagnostics.NewBuffer(cfg.Diagnostics.Capacity)
	sessions := session.NewManager(session.ChromedpLauncher(diags, logger), diags, logger)
	defer sessions.Shutdown()

	reg := registry.Default(cfg.Network, logger)
	dispatcher := dispatch.New(reg, sessions, diags, cfg, logger)

	server := mcp.NewServer(os.Stdin, os.Stdout, dispatcher, cfg.Server.Name, Version, logger)
	logger.Info("Tool server listening on stdio.",
		zap.String("server", cfg.Server.Name),
		zap.Int("tools", len(reg.Schemas())))

	if err := server.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("Tool server stopped.")
	return nil
}
