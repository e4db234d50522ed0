// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
	"github.com/xkilldash9x/cua-scheduler/internal/config"
	"github.com/xkilldash9x/cua-scheduler/internal/observability"
	"github.com/xkilldash9x/cua-scheduler/internal/service"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd(factory service.ComponentFactory) *cobra.Command {
	var task schemas.TaskRequest

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs one booking session in a local browser",
		Long: `Opens the scheduling page in a fresh browser and lets the computer-use model
book the meeting. Fields that are not given on the command line come from
task.defaults in the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			cfg = applyRunFlagOverrides(cmd.Flags(), cfg)
			if err := validateForSession(cfg); err != nil {
				return err
			}

			return runSession(ctx, logger, cfg, task.WithDefaults(cfg.Task.Defaults), factory, cmd.OutOrStdout())
		},
	}

	runCmd.Flags().StringVar(&task.URL, "url", "", "Scheduling page URL")
	runCmd.Flags().StringVar(&task.FirstName, "first", "", "Attendee first name")
	runCmd.Flags().StringVar(&task.LastName, "last", "", "Attendee last name")
	runCmd.Flags().StringVar(&task.Email, "mail", "", "Attendee email")
	runCmd.Flags().StringVar(&task.Hour, "hour", "", "Preferred hour for the meeting")
	runCmd.Flags().Int("max-turns", 0, "Maximum turns before the session is aborted, 0 for unlimited. (Overrides config/env)")
	runCmd.Flags().Bool("no-plan", false, "Skip the side-channel planner call.")

	return runCmd
}

// applyRunFlagOverrides returns a copy of cfg with explicitly set flags applied.
func applyRunFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) *config.Config {
	out := *cfg
	if flags.Changed("max-turns") {
		if n, err := flags.GetInt("max-turns"); err == nil {
			out.Agent.MaxTurns = n
		}
	}
	if noPlan, err := flags.GetBool("no-plan"); err == nil && noPlan {
		out.Agent.PlannerEnabled = false
	}
	return &out
}

// runSession contains the core, testable logic of the run command.
func runSession(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	task schemas.TaskRequest,
	factory service.ComponentFactory,
	out io.Writer,
) error {
	if err := task.Validate(cfg.Task.RequiredDomain); err != nil {
		return err
	}

	components, err := factory.Create(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session components: %w", err)
	}
	defer components.Shutdown()

	logger.Info("Starting booking session.",
		zap.String("url", task.URL),
		zap.Int("max_turns", cfg.Agent.MaxTurns),
		zap.Bool("planner", cfg.Agent.PlannerEnabled))

	result, err := components.Run(ctx, task)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Session aborted gracefully.")
		}
		if result != nil {
			fmt.Fprintf(out, "Session %s failed after %d turns: %v\n", result.SessionID, result.Turns, err)
		}
		return err
	}

	fmt.Fprintf(out, "Session %s finished after %d turns.\n", result.SessionID, result.Turns)
	return nil
}
