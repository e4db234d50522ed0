// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/internal/agent"
	"github.com/xkilldash9x/cua-scheduler/internal/browser"
	"github.com/xkilldash9x/cua-scheduler/internal/config"
	"github.com/xkilldash9x/cua-scheduler/internal/llmclient"
	"github.com/xkilldash9x/cua-scheduler/internal/store"
)

// ComponentFactory creates the set of components needed to run sessions.
// The abstraction keeps the commands testable without Chrome or a database.
type ComponentFactory interface {
	Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error)
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct{}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create handles the dependency injection and initialization of session components.
func (f *concreteFactory) Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	components := &Components{}

	// Ensure cleanup happens if initialization fails midway.
	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	// 1. Remote clients
	client, err := llmclient.NewResponsesClient(cfg.OpenAI, logger)
	if err != nil {
		initializationErr = fmt.Errorf("failed to initialize computer-use client: %w", err)
		return nil, initializationErr
	}

	planner, err := llmclient.NewPlanner(ctx, cfg, logger)
	if err != nil {
		initializationErr = fmt.Errorf("failed to initialize planner: %w", err)
		return nil, initializationErr
	}
	logger.Debug("Remote clients initialized.", zap.Bool("planner_enabled", planner != nil))

	deps := agent.Dependencies{
		Launcher: browser.NewChromeLauncher(cfg.Browser, logger),
		Client:   client,
		Planner:  planner,
	}

	// 2. Optional journal
	if cfg.Database.URL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			initializationErr = fmt.Errorf("failed to create database connection pool: %w", err)
			return nil, initializationErr
		}
		// Add to components immediately so the deferred Shutdown can close it if later steps fail.
		components.DBPool = dbPool

		journal, err := store.New(ctx, dbPool, logger)
		if err != nil {
			initializationErr = fmt.Errorf("failed to initialize journal: %w", err)
			return nil, initializationErr
		}
		if err := journal.EnsureSchema(ctx); err != nil {
			initializationErr = fmt.Errorf("failed to prepare journal schema: %w", err)
			return nil, initializationErr
		}
		components.Journal = journal
		deps.Journal = journal
		logger.Debug("Session journal initialized.")
	} else {
		logger.Debug("No database configured; sessions will not be journaled.")
	}

	// 3. Driver
	driver, err := agent.NewDriver(cfg, deps, logger)
	if err != nil {
		initializationErr = fmt.Errorf("failed to create session driver: %w", err)
		return nil, initializationErr
	}
	components.Driver = driver

	logger.Info("All session components initialized successfully.")
	return components, nil
}
