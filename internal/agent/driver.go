// internal/agent/driver.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
	"github.com/xkilldash9x/cua-scheduler/internal/browser"
	"github.com/xkilldash9x/cua-scheduler/internal/config"
)

const journalTimeout = 5 * time.Second

// Dependencies are the collaborators a Driver talks to. Launcher and Client
// are required; the rest are optional.
type Dependencies struct {
	Launcher    browser.Launcher
	Client      ComputerUseClient
	Planner     Planner
	Journal     Journal
	Interpreter ActionInterpreter
	Capturer    FrameCapturer
}

// SessionResult summarises a finished session.
type SessionResult struct {
	SessionID      string
	Status         schemas.SessionStatus
	Turns          int
	LastResponseID string
}

// Driver runs booking sessions. One Run owns one browser page and one
// conversation; a Driver may serve several Runs concurrently.
type Driver struct {
	logger         *zap.Logger
	model          string
	maxTurns       int
	requiredDomain string
	viewport       browser.Viewport

	launcher    browser.Launcher
	client      ComputerUseClient
	planner     Planner
	journal     Journal
	interpreter ActionInterpreter
	capturer    FrameCapturer
}

// NewDriver wires a Driver from the immutable configuration.
func NewDriver(cfg *config.Config, deps Dependencies, logger *zap.Logger) (*Driver, error) {
	if deps.Launcher == nil {
		return nil, errors.New("agent: a browser launcher is required")
	}
	if deps.Client == nil {
		return nil, errors.New("agent: a computer-use client is required")
	}

	d := &Driver{
		logger:         logger.Named("driver"),
		model:          cfg.Agent.ExecutorModel,
		maxTurns:       cfg.Agent.MaxTurns,
		requiredDomain: cfg.Task.RequiredDomain,
		viewport:       browser.DefaultViewport,
		launcher:       deps.Launcher,
		client:         deps.Client,
		planner:        deps.Planner,
		journal:        deps.Journal,
		interpreter:    deps.Interpreter,
		capturer:       deps.Capturer,
	}
	if d.interpreter == nil {
		d.interpreter = NewInterpreter(logger)
	}
	if d.capturer == nil {
		d.capturer = NewCapturer()
	}
	return d, nil
}

// Run executes one session: validate, optionally plan, open the page, then
// apply one action per turn until the service stops requesting actions. The
// page is released on every return path.
func (d *Driver) Run(ctx context.Context, task schemas.TaskRequest) (result *SessionResult, err error) {
	if err := task.Validate(d.requiredDomain); err != nil {
		return nil, err
	}

	result = &SessionResult{SessionID: uuid.NewString(), Status: schemas.SessionRunning}
	logger := d.logger.With(zap.String("session_id", result.SessionID))
	instruction := task.Instruction()

	d.logPlan(ctx, logger, instruction)

	d.journalStart(ctx, logger, schemas.SessionRecord{
		ID:        result.SessionID,
		URL:       task.URL,
		Model:     d.model,
		StartedAt: time.Now().UTC(),
	})
	defer func() { d.journalFinish(ctx, logger, result, err) }()

	page, err := d.launcher.Launch(ctx, d.viewport)
	if err != nil {
		result.Status = schemas.SessionFailed
		return result, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logger.Warn("Failed to release browser.", zap.Error(cerr))
		}
	}()

	err = d.loop(ctx, logger, page, task, instruction, result)
	if err != nil {
		result.Status = schemas.SessionFailed
		return result, err
	}
	result.Status = schemas.SessionCompleted
	return result, nil
}

func (d *Driver) loop(ctx context.Context, logger *zap.Logger, page browser.Page, task schemas.TaskRequest, instruction string, result *SessionResult) error {
	if err := page.Navigate(ctx, task.URL); err != nil {
		return fmt.Errorf("failed to open %s: %w", task.URL, err)
	}

	logger.Info("Sending initial turn.", zap.String("url", task.URL), zap.String("model", d.model))
	resp, err := d.client.Create(ctx, d.initialRequest(instruction))
	if err != nil {
		return fmt.Errorf("initial turn failed: %w", err)
	}

	for {
		result.LastResponseID = resp.ID
		calls := resp.PendingCalls()
		if len(calls) == 0 {
			logger.Info("No pending actions; session finished.", zap.Int("turns", result.Turns))
			return nil
		}
		if d.maxTurns > 0 && result.Turns >= d.maxTurns {
			return fmt.Errorf("%w: %d turns", ErrTurnLimit, d.maxTurns)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		call := calls[0]
		if len(calls) > 1 {
			logger.Warn("Service returned several actions; applying only the first.",
				zap.Int("discarded", len(calls)-1))
		}

		action := d.decode(logger, call)
		actionErr := d.apply(ctx, logger, page, action)

		frame, err := d.capturer.Capture(ctx, page)
		if err != nil {
			return err
		}

		if len(call.PendingSafetyChecks) > 0 {
			logger.Warn("Acknowledging safety checks.", zap.Int("count", len(call.PendingSafetyChecks)))
		}

		next, err := d.client.Create(ctx, d.followUpRequest(resp.ID, call, frame))
		if err != nil {
			return fmt.Errorf("turn %d failed: %w", result.Turns+1, err)
		}
		result.Turns++

		d.journalTurn(ctx, logger, result, resp.ID, call, action, actionErr)
		logger.Debug("Turn complete.",
			zap.Int("turn", result.Turns),
			zap.String("action", string(action.Kind())),
			zap.String("call_id", call.CallID))
		resp = next
	}
}

func (d *Driver) tools() []schemas.ComputerTool {
	return []schemas.ComputerTool{schemas.NewComputerTool(d.viewport.Width, d.viewport.Height)}
}

func (d *Driver) initialRequest(instruction string) schemas.ResponsesRequest {
	return schemas.ResponsesRequest{
		Model:      d.model,
		Tools:      d.tools(),
		Input:      []schemas.InputItem{schemas.UserMessage(instruction)},
		Truncation: schemas.TruncationAuto,
	}
}

func (d *Driver) followUpRequest(previousID string, call schemas.OutputItem, frame string) schemas.ResponsesRequest {
	return schemas.ResponsesRequest{
		Model:              d.model,
		PreviousResponseID: previousID,
		Tools:              d.tools(),
		Input: []schemas.InputItem{
			schemas.ComputerCallOutput(call.CallID, schemas.FrameDataURI(frame), call.PendingSafetyChecks),
		},
		Truncation: schemas.TruncationAuto,
	}
}

// decode never fails: a malformed payload becomes an unrecognized action so
// the turn still produces a frame.
func (d *Driver) decode(logger *zap.Logger, call schemas.OutputItem) schemas.Action {
	action, err := schemas.DecodeAction(call.Action)
	if err != nil {
		logger.Warn("Malformed action payload.", zap.String("call_id", call.CallID), zap.Error(err))
		return schemas.UnrecognizedAction{Type: "malformed"}
	}
	return action
}

// apply contains anything the interpreter does, including panics.
func (d *Driver) apply(ctx context.Context, logger *zap.Logger, page browser.Page, action schemas.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ActionError{Action: string(action.Kind()), Code: ErrCodeExecutorPanic, Err: fmt.Errorf("panic: %v", r)}
			logger.Error("Interpreter panicked; continuing with capture.", zap.Any("panic", r))
		}
	}()
	if err = d.interpreter.Apply(ctx, page, action); err != nil {
		logger.Debug("Action failed; continuing with capture.", zap.Error(err))
	}
	return err
}

func (d *Driver) logPlan(ctx context.Context, logger *zap.Logger, instruction string) {
	if d.planner == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Planner panicked; ignoring.", zap.Any("panic", r))
		}
	}()
	plan, err := d.planner.Plan(ctx, instruction)
	if err != nil {
		logger.Warn("Side-channel plan failed; ignoring.", zap.Error(err))
		return
	}
	logger.Info("High-level plan.", zap.String("plan", plan))
}

func (d *Driver) journalStart(ctx context.Context, logger *zap.Logger, rec schemas.SessionRecord) {
	if d.journal == nil {
		return
	}
	jctx, cancel := context.WithTimeout(ctx, journalTimeout)
	defer cancel()
	if err := d.journal.StartSession(jctx, rec); err != nil {
		logger.Warn("Journal start failed.", zap.Error(err))
	}
}

func (d *Driver) journalTurn(ctx context.Context, logger *zap.Logger, result *SessionResult, responseID string, call schemas.OutputItem, action schemas.Action, actionErr error) {
	if d.journal == nil {
		return
	}
	rec := schemas.TurnRecord{
		SessionID:  result.SessionID,
		Turn:       result.Turns,
		ResponseID: responseID,
		CallID:     call.CallID,
		ActionType: action.Kind(),
		RecordedAt: time.Now().UTC(),
	}
	if actionErr != nil {
		rec.ActionError = actionErr.Error()
	}
	jctx, cancel := context.WithTimeout(ctx, journalTimeout)
	defer cancel()
	if err := d.journal.RecordTurn(jctx, rec); err != nil {
		logger.Warn("Journal turn failed.", zap.Int("turn", rec.Turn), zap.Error(err))
	}
}

func (d *Driver) journalFinish(ctx context.Context, logger *zap.Logger, result *SessionResult, runErr error) {
	if d.journal == nil || result == nil {
		return
	}
	summary := schemas.SessionSummary{
		ID:         result.SessionID,
		Status:     result.Status,
		Turns:      result.Turns,
		FinishedAt: time.Now().UTC(),
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	// The session context may already be cancelled; the summary is still worth writing.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := d.journal.FinishSession(jctx, summary); err != nil {
		logger.Warn("Journal finish failed.", zap.Error(err))
	}
}
