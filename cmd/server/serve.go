package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"openpay/internal/app/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := server.New(ctx, cfg, log)
			if err != nil {
				log.WithError(err).Error("startup failed")
				return err
			}
			defer app.Close()
			return app.Run(ctx)
		},
	}
}
