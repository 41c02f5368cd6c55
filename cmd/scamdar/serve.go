package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/scamdar/internal/app"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan HTTP service",
		Long: `Serve exposes POST /v1/scan, GET /healthz and GET /metrics.

Scans of the same page are rejected with 409 while one is in flight. Set
--redis-addr to share that guard between replicas.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a, err := app.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			return a.Serve(ctx)
		},
	}
	addModelFlags(cmd)
	cmd.Flags().String("listen", "", "Listen address (default :8080)")
	cmd.Flags().String("redis-addr", "", "Redis address for the shared in-flight guard")
	return cmd
}
