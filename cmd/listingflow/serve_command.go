package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ListingFlow/internal/app"
	"ListingFlow/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the workflow engine and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.ensureConfig()
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.New(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			if err := application.Run(runCtx); err != nil {
				logger.Error("application stopped", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}
