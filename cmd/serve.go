// File: cmd/serve.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/internal/config"
	"github.com/xkilldash9x/cua-scheduler/internal/observability"
	"github.com/xkilldash9x/cua-scheduler/internal/server"
	"github.com/xkilldash9x/cua-scheduler/internal/service"
)

// newServeCmd creates and configures the `serve` command.
func newServeCmd(factory service.ComponentFactory) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the HTTP trigger that starts booking sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				addr, _ := cmd.Flags().GetString("addr")
				copied := *cfg
				copied.Server.Addr = addr
				cfg = &copied
			}
			if err := validateForSession(cfg); err != nil {
				return err
			}
			return runServe(ctx, logger, cfg, factory)
		},
	}

	serveCmd.Flags().String("addr", "", "Listen address, e.g. :8080. (Overrides config/env)")
	return serveCmd
}

// runServe wires the components behind the HTTP trigger and blocks until ctx ends.
func runServe(ctx context.Context, logger *zap.Logger, cfg *config.Config, factory service.ComponentFactory) error {
	components, err := factory.Create(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session components: %w", err)
	}
	defer components.Shutdown()

	srv := server.New(cfg.Server, cfg.Task, components, logger)
	return srv.ListenAndServe(ctx)
}
