package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
)

// ErrSessionNotFound is returned when a session id has no journal row.
var ErrSessionNotFound = errors.New("session not found")

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	sqlCreateSessions = `
        CREATE TABLE IF NOT EXISTS cua_sessions (
            id          TEXT PRIMARY KEY,
            url         TEXT NOT NULL,
            model       TEXT NOT NULL,
            status      TEXT NOT NULL,
            turns       INTEGER NOT NULL DEFAULT 0,
            error       TEXT NOT NULL DEFAULT '',
            started_at  TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ
        );
    `
	sqlCreateTurns = `
        CREATE TABLE IF NOT EXISTS cua_turns (
            session_id   TEXT NOT NULL REFERENCES cua_sessions(id) ON DELETE CASCADE,
            turn         INTEGER NOT NULL,
            response_id  TEXT NOT NULL,
            call_id      TEXT NOT NULL,
            action_type  TEXT NOT NULL,
            action_error TEXT NOT NULL DEFAULT '',
            recorded_at  TIMESTAMPTZ NOT NULL,
            PRIMARY KEY (session_id, turn)
        );
    `
	sqlInsertSession = `
        INSERT INTO cua_sessions (id, url, model, status, started_at)
        VALUES ($1, $2, $3, $4, $5);
    `
	sqlInsertTurn = `
        INSERT INTO cua_turns (session_id, turn, response_id, call_id, action_type, action_error, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (session_id, turn) DO NOTHING;
    `
	sqlFinishSession = `
        UPDATE cua_sessions
        SET status = $2, turns = $3, error = $4, finished_at = $5
        WHERE id = $1;
    `
	sqlSelectSession = `
        SELECT id, status, turns, error, COALESCE(finished_at, started_at)
        FROM cua_sessions
        WHERE id = $1;
    `
	sqlSelectTurns = `
        SELECT turn, response_id, call_id, action_type, action_error, recorded_at
        FROM cua_turns
        WHERE session_id = $1
        ORDER BY turn ASC;
    `
)

// Store is the PostgreSQL session journal.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the journal tables inside a single transaction.
func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	for _, stmt := range []string{sqlCreateSessions, sqlCreateTurns} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) StartSession(ctx context.Context, rec schemas.SessionRecord) error {
	if _, err := s.pool.Exec(ctx, sqlInsertSession,
		rec.ID, rec.URL, rec.Model, string(schemas.SessionRunning), rec.StartedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert session %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) RecordTurn(ctx context.Context, rec schemas.TurnRecord) error {
	if _, err := s.pool.Exec(ctx, sqlInsertTurn,
		rec.SessionID, rec.Turn, rec.ResponseID, rec.CallID,
		string(rec.ActionType), rec.ActionError, rec.RecordedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert turn %d of session %s: %w", rec.Turn, rec.SessionID, err)
	}
	return nil
}

// FinishSession stamps the terminal status on a session row.
func (s *Store) FinishSession(ctx context.Context, summary schemas.SessionSummary) error {
	tag, err := s.pool.Exec(ctx, sqlFinishSession,
		summary.ID, string(summary.Status), summary.Turns, summary.Error, summary.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to finish session %s: %w", summary.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, summary.ID)
	}
	return nil
}

// GetSession loads the summary row for id.
func (s *Store) GetSession(ctx context.Context, id string) (schemas.SessionSummary, error) {
	var (
		summary schemas.SessionSummary
		status  string
	)
	err := s.pool.QueryRow(ctx, sqlSelectSession, id).Scan(
		&summary.ID, &status, &summary.Turns, &summary.Error, &summary.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return summary, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return summary, fmt.Errorf("failed to query session: %w", err)
	}
	summary.Status = schemas.SessionStatus(status)
	return summary, nil
}

// GetTurnsBySessionID returns the journaled turns of a session in order.
func (s *Store) GetTurnsBySessionID(ctx context.Context, sessionID string) ([]schemas.TurnRecord, error) {
	rows, err := s.pool.Query(ctx, sqlSelectTurns, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []schemas.TurnRecord
	for rows.Next() {
		var (
			rec        schemas.TurnRecord
			actionType string
			recordedAt time.Time
		)
		if err := rows.Scan(&rec.Turn, &rec.ResponseID, &rec.CallID, &actionType, &rec.ActionError, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		rec.SessionID = sessionID
		rec.ActionType = schemas.ActionType(actionType)
		rec.RecordedAt = recordedAt
		turns = append(turns, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return turns, nil
}
