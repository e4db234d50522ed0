package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
	"github.com/xkilldash9x/cua-scheduler/internal/browser"
)

// -- Page Mock --

// MockPage mocks browser.Page for interpreter tests.
type MockPage struct {
	mock.Mock
}

var _ browser.Page = (*MockPage)(nil)

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) Click(ctx context.Context, x, y int64, button schemas.MouseButton) error {
	return m.Called(ctx, x, y, button).Error(0)
}

func (m *MockPage) MoveMouse(ctx context.Context, x, y int64) error {
	return m.Called(ctx, x, y).Error(0)
}

func (m *MockPage) Evaluate(ctx context.Context, script string) error {
	return m.Called(ctx, script).Error(0)
}

func (m *MockPage) TypeText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockPage) PressKey(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockPage) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockPage) Close() error {
	return m.Called().Error(0)
}

// -- Fakes for driver tests --

// fakePage is a permissive page that records operations in order.
type fakePage struct {
	mu         sync.Mutex
	ops        []string
	closes     atomic.Int32
	shotErr    error
	navErr     error
	screenshot []byte
}

func newFakePage() *fakePage {
	return &fakePage{screenshot: []byte("\x89PNG frame")}
}

func (p *fakePage) record(op string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, op)
}

func (p *fakePage) Ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops...)
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.record("navigate " + url)
	return p.navErr
}

func (p *fakePage) Click(_ context.Context, x, y int64, b schemas.MouseButton) error {
	p.record(fmt.Sprintf("click %d,%d %s", x, y, b))
	return nil
}

func (p *fakePage) MoveMouse(_ context.Context, x, y int64) error {
	p.record(fmt.Sprintf("move %d,%d", x, y))
	return nil
}

func (p *fakePage) Evaluate(_ context.Context, script string) error {
	p.record("eval " + script)
	return nil
}

func (p *fakePage) TypeText(_ context.Context, text string) error {
	p.record("type " + text)
	return nil
}

func (p *fakePage) PressKey(_ context.Context, key string) error {
	p.record("key " + key)
	return nil
}

func (p *fakePage) Screenshot(_ context.Context) ([]byte, error) {
	p.record("screenshot")
	if p.shotErr != nil {
		return nil, p.shotErr
	}
	return p.screenshot, nil
}

func (p *fakePage) Close() error {
	p.closes.Add(1)
	return nil
}

// fakeLauncher hands out one fakePage per launch.
type fakeLauncher struct {
	mu       sync.Mutex
	launches int
	pages    []*fakePage
	err      error
	newPage  func() *fakePage
}

func (l *fakeLauncher) Launch(_ context.Context, vp browser.Viewport) (browser.Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if vp != browser.DefaultViewport {
		return nil, fmt.Errorf("unexpected viewport %+v", vp)
	}
	if l.err != nil {
		return nil, l.err
	}
	l.launches++
	p := newFakePage()
	if l.newPage != nil {
		p = l.newPage()
	}
	l.pages = append(l.pages, p)
	return p, nil
}

func (l *fakeLauncher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

func (l *fakeLauncher) Page(i int) *fakePage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pages[i]
}

// scriptedClient replays responses in order and records every request.
// Turn n (1-based) returns script[n-1]; errAt makes that turn fail instead.
type scriptedClient struct {
	mu       sync.Mutex
	script   []*schemas.Response
	errAt    int
	requests []schemas.ResponsesRequest
	// repeat returns the last scripted response forever once the script runs out.
	repeat bool
}

func (c *scriptedClient) Create(_ context.Context, req schemas.ResponsesRequest) (*schemas.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	turn := len(c.requests)
	if c.errAt == turn {
		return nil, errors.New("service unavailable")
	}
	if turn > len(c.script) {
		if c.repeat && len(c.script) > 0 {
			return c.script[len(c.script)-1], nil
		}
		return &schemas.Response{ID: fmt.Sprintf("resp_%d", turn)}, nil
	}
	return c.script[turn-1], nil
}

func (c *scriptedClient) Requests() []schemas.ResponsesRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]schemas.ResponsesRequest(nil), c.requests...)
}

// recordingInterpreter counts applies and can be told to fail or panic.
type recordingInterpreter struct {
	mu      sync.Mutex
	applied []schemas.Action
	err     error
	panics  bool
}

func (r *recordingInterpreter) Apply(_ context.Context, _ browser.Page, action schemas.Action) error {
	r.mu.Lock()
	r.applied = append(r.applied, action)
	r.mu.Unlock()
	if r.panics {
		panic("interpreter exploded")
	}
	return r.err
}

func (r *recordingInterpreter) Applied() []schemas.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]schemas.Action(nil), r.applied...)
}

// stubPlanner returns a fixed plan or error.
type stubPlanner struct {
	calls atomic.Int32
	plan  string
	err   error
}

func (p *stubPlanner) Plan(context.Context, string) (string, error) {
	p.calls.Add(1)
	return p.plan, p.err
}

// memoryJournal keeps journal entries in memory.
type memoryJournal struct {
	mu       sync.Mutex
	sessions []schemas.SessionRecord
	turns    []schemas.TurnRecord
	finished []schemas.SessionSummary
	err      error
}

func (j *memoryJournal) StartSession(_ context.Context, rec schemas.SessionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sessions = append(j.sessions, rec)
	return j.err
}

func (j *memoryJournal) RecordTurn(_ context.Context, rec schemas.TurnRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.turns = append(j.turns, rec)
	return j.err
}

func (j *memoryJournal) FinishSession(_ context.Context, s schemas.SessionSummary) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finished = append(j.finished, s)
	return j.err
}

// computerCall builds a pending action as the service would send it.
func computerCall(callID, action string) schemas.OutputItem {
	return schemas.OutputItem{
		Type:   schemas.OutputComputerCall,
		ID:     "cu_" + callID,
		CallID: callID,
		Status: "completed",
		Action: []byte(action),
	}
}
