package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vnforge/internal/config"
	"vnforge/internal/logging"
	"vnforge/internal/mcpserver"
	"vnforge/internal/preflight"
	"vnforge/internal/studio"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve vnforge tools over MCP stdio",
		Long:  "Runs a Model Context Protocol server on stdin/stdout. Logs go to stderr and the log directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logPreflight(signalCtx, cfg, logger)

			st, err := studio.New(signalCtx, cfg, studio.WithLogger(logger))
			if err != nil {
				return err
			}
			defer st.Close()

			err = mcpserver.New(st, version, logger).Run(signalCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// logPreflight reports problems without refusing to serve; project editing
// works without a compiler.
func logPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	for _, r := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
		)
	}
}
