// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
	"github.com/xkilldash9x/cua-scheduler/internal/agent"
	"github.com/xkilldash9x/cua-scheduler/internal/browser"
	"github.com/xkilldash9x/cua-scheduler/internal/config"
	"github.com/xkilldash9x/cua-scheduler/internal/observability"
	"github.com/xkilldash9x/cua-scheduler/internal/service"
)

// resetForTest clears package state shared between command executions.
func resetForTest(t *testing.T) {
	t.Helper()
	cfgFile = ""
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CUA_OPENAI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CUA_DATABASE_URL", "")
	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
	t.Cleanup(observability.ResetForTest)
}

// executeCommand runs a fresh command tree with the given fakes.
func executeCommand(t *testing.T, factory service.ComponentFactory, provider storeProvider, args ...string) (string, error) {
	t.Helper()
	root := newRootCmdWith(factory, provider)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// -- Fakes for building a real driver without Chrome or the network --

type fakePage struct {
	mu     sync.Mutex
	closed int
}

func (p *fakePage) Navigate(context.Context, string) error                         { return nil }
func (p *fakePage) Click(context.Context, int64, int64, schemas.MouseButton) error { return nil }
func (p *fakePage) MoveMouse(context.Context, int64, int64) error                  { return nil }
func (p *fakePage) Evaluate(context.Context, string) error                         { return nil }
func (p *fakePage) TypeText(context.Context, string) error                         { return nil }
func (p *fakePage) PressKey(context.Context, string) error                         { return nil }
func (p *fakePage) Screenshot(context.Context) ([]byte, error)                     { return []byte("png"), nil }
func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

type fakeLauncher struct{ page *fakePage }

func (l *fakeLauncher) Launch(context.Context, browser.Viewport) (browser.Page, error) {
	return l.page, nil
}

// oneActionClient asks for a single screenshot and then declares the task done.
type oneActionClient struct {
	mu    sync.Mutex
	calls int
}

func (c *oneActionClient) Create(ctx context.Context, req schemas.ResponsesRequest) (*schemas.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls == 1 {
		return &schemas.Response{ID: "resp_1", Output: []schemas.OutputItem{{
			Type:   schemas.OutputComputerCall,
			CallID: "call_1",
			Action: []byte(`{"type":"screenshot"}`),
		}}}, nil
	}
	return &schemas.Response{ID: "resp_2"}, nil
}

// fakeFactory builds components around a real driver wired to fakes and
// remembers the configuration it was given.
type fakeFactory struct {
	err     error
	created int
	cfg     *config.Config
	page    *fakePage
}

func (f *fakeFactory) Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service.Components, error) {
	f.created++
	f.cfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	f.page = &fakePage{}
	driver, err := agent.NewDriver(cfg, agent.Dependencies{
		Launcher: &fakeLauncher{page: f.page},
		Client:   &oneActionClient{},
	}, logger)
	if err != nil {
		return nil, err
	}
	return &service.Components{Driver: driver}, nil
}

type fakeJournal struct {
	summary schemas.SessionSummary
	turns   []schemas.TurnRecord
	err     error
}

func (j *fakeJournal) GetSession(ctx context.Context, id string) (schemas.SessionSummary, error) {
	return j.summary, j.err
}

func (j *fakeJournal) GetTurnsBySessionID(ctx context.Context, sessionID string) ([]schemas.TurnRecord, error) {
	return j.turns, nil
}

type fakeStoreProvider struct {
	journal   *fakeJournal
	err       error
	cleanedUp bool
}

func (p *fakeStoreProvider) Create(ctx context.Context, cfg *config.Config) (journalReader, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.journal, func() { p.cleanedUp = true }, nil
}
