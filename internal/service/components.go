// File: internal/service/components.go
package service

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
	"github.com/xkilldash9x/cua-scheduler/internal/agent"
	"github.com/xkilldash9x/cua-scheduler/internal/observability"
	"github.com/xkilldash9x/cua-scheduler/internal/store"
)

// Components holds the initialized services one process needs to run booking
// sessions. Journal and DBPool are nil when no database is configured.
type Components struct {
	Driver  *agent.Driver
	Journal *store.Store
	DBPool  *pgxpool.Pool

	shutdownOnce sync.Once
}

// Run executes one session with the wired driver.
func (c *Components) Run(ctx context.Context, task schemas.TaskRequest) (*agent.SessionResult, error) {
	return c.Driver.Run(ctx, task)
}

// Shutdown releases long-lived resources. Browsers are per session and are
// already released by the driver. Safe to call more than once.
func (c *Components) Shutdown() {
	c.shutdownOnce.Do(func() {
		logger := observability.GetLogger()
		logger.Debug("Beginning components shutdown sequence.")

		if c.DBPool != nil {
			c.DBPool.Close()
			logger.Debug("Database connection pool closed.", zap.String("component", "journal"))
		}
		logger.Debug("Components shutdown sequence complete.")
	})
}
