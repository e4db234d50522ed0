// internal/server/server.go
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
	"github.com/xkilldash9x/cua-scheduler/internal/agent"
	"github.com/xkilldash9x/cua-scheduler/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const shutdownTimeout = 15 * time.Second

// Runner executes one booking session. *agent.Driver satisfies it.
type Runner interface {
	Run(ctx context.Context, task schemas.TaskRequest) (*agent.SessionResult, error)
}

// Server exposes session runs over HTTP. Each request runs a session
// synchronously; at most cfg.MaxConcurrentSessions run at once.
type Server struct {
	cfg    config.ServerConfig
	task   config.TaskConfig
	runner Runner
	sem    *semaphore.Weighted
	logger *zap.Logger
}

// New creates a server. Request fields left empty are taken from
// task.Defaults and every request must target task.RequiredDomain.
func New(cfg config.ServerConfig, task config.TaskConfig, runner Runner, logger *zap.Logger) *Server {
	limit := cfg.MaxConcurrentSessions
	if limit <= 0 {
		limit = 1
	}
	return &Server{
		cfg:    cfg,
		task:   task,
		runner: runner,
		sem:    semaphore.NewWeighted(limit),
		logger: logger.Named("server"),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(s.recoverer)
	router.Use(s.requestLogger)

	router.Get("/", s.handleRoot)
	router.Get("/run", s.handleRun)
	router.Post("/run", s.handleRun)
	return router
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP trigger listening.", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP trigger.")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

type runResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	Turns     int    `json:"turns"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	task := schemas.TaskRequest{
		URL:       q.Get("url"),
		FirstName: q.Get("first"),
		LastName:  q.Get("last"),
		Email:     q.Get("mail"),
		Hour:      q.Get("hour"),
	}.WithDefaults(s.task.Defaults)

	// A malformed task never occupies a session slot.
	if err := task.Validate(s.task.RequiredDomain); err != nil {
		s.logger.Warn("Rejecting run; invalid task.", zap.Error(err))
		respondJSON(w, http.StatusBadRequest, runResponse{Status: "failed", Error: err.Error()})
		return
	}

	if !s.sem.TryAcquire(1) {
		s.logger.Warn("Rejecting run; session limit reached.", zap.Int64("limit", s.cfg.MaxConcurrentSessions))
		respondJSON(w, http.StatusTooManyRequests, runResponse{Status: "rejected", Error: "too many concurrent sessions"})
		return
	}
	defer s.sem.Release(1)

	result, err := s.runner.Run(r.Context(), task)
	if err != nil {
		resp := runResponse{Status: "failed", Error: err.Error()}
		if result != nil {
			resp.SessionID = result.SessionID
			resp.Turns = result.Turns
		}
		status := http.StatusInternalServerError
		if errors.Is(err, schemas.ErrInvalidTask) {
			status = http.StatusBadRequest
		}
		s.logger.Warn("Session run failed.", zap.Int("http_status", status), zap.Error(err))
		respondJSON(w, status, resp)
		return
	}

	respondJSON(w, http.StatusOK, runResponse{
		Status:    "finished",
		SessionID: result.SessionID,
		Turns:     result.Turns,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
