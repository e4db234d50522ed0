// File: cmd/history.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
	"github.com/xkilldash9x/cua-scheduler/internal/config"
	"github.com/xkilldash9x/cua-scheduler/internal/observability"
	"github.com/xkilldash9x/cua-scheduler/internal/store"
)

// journalReader is the read side of the session journal.
type journalReader interface {
	GetSession(ctx context.Context, id string) (schemas.SessionSummary, error)
	GetTurnsBySessionID(ctx context.Context, sessionID string) ([]schemas.TurnRecord, error)
}

// storeProvider creates a journal reader plus a cleanup function. Tests inject
// a fake instead of a live database connection.
type storeProvider interface {
	Create(ctx context.Context, cfg *config.Config) (journalReader, func(), error)
}

// defaultStoreProvider connects to PostgreSQL.
type defaultStoreProvider struct{}

// NewStoreProvider is a factory function that creates a new defaultStoreProvider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg *config.Config) (journalReader, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (CUA_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	journal, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed (via history cleanup).")
	}
	return journal, cleanup, nil
}

// sessionHistory is the printed shape of one journaled session.
type sessionHistory struct {
	Session schemas.SessionSummary `json:"session"`
	Turns   []schemas.TurnRecord   `json:"turns"`
}

// newHistoryCmd creates and configures the `history` command.
func newHistoryCmd(provider storeProvider) *cobra.Command {
	var sessionID string

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Prints the journal of a finished session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runHistory(ctx, observability.GetLogger(), cfg, sessionID, provider, cmd.OutOrStdout())
		},
	}

	historyCmd.Flags().StringVar(&sessionID, "session-id", "", "The ID of the session to print (required)")
	_ = historyCmd.MarkFlagRequired("session-id")
	return historyCmd
}

// runHistory contains the core, testable logic of the history command.
func runHistory(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	sessionID string,
	provider storeProvider,
	out io.Writer,
) error {
	reader, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	summary, err := reader.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	turns, err := reader.GetTurnsBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	logger.Debug("Loaded session history.", zap.String("session_id", sessionID), zap.Int("turns", len(turns)))

	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(sessionHistory{Session: summary, Turns: turns}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize history to JSON: %w", err)
	}
	fmt.Fprintln(out, string(raw))
	return nil
}
