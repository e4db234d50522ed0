// internal/agent/interpreter.go
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
	"github.com/xkilldash9x/cua-scheduler/internal/browser"
)

// DefaultWaitInterval is how long a wait action blocks.
const DefaultWaitInterval = 2 * time.Second

// Interpreter turns one decoded action into browser operations.
type Interpreter struct {
	logger       *zap.Logger
	handlers     map[schemas.ActionType]actionHandler
	waitInterval time.Duration
}

type actionHandler func(ctx context.Context, page browser.Page, action schemas.Action) error

var _ ActionInterpreter = (*Interpreter)(nil)

// NewInterpreter creates an Interpreter with every known action registered.
func NewInterpreter(logger *zap.Logger) *Interpreter {
	i := &Interpreter{
		logger:       logger.Named("interpreter"),
		handlers:     make(map[schemas.ActionType]actionHandler),
		waitInterval: DefaultWaitInterval,
	}
	i.registerHandlers()
	return i
}

func (i *Interpreter) registerHandlers() {
	i.handlers[schemas.ActionClick] = i.handleClick
	i.handlers[schemas.ActionScroll] = i.handleScroll
	i.handlers[schemas.ActionTypeText] = i.handleTypeText
	i.handlers[schemas.ActionKeypress] = i.handleKeypress
	i.handlers[schemas.ActionWait] = i.handleWait
	// The driver captures a frame after every action anyway.
	i.handlers[schemas.ActionScreenshot] = func(context.Context, browser.Page, schemas.Action) error { return nil }
}

// Apply performs action against page. Failures and panics are contained: they
// are logged and returned as an *ActionError for reporting, and the caller is
// expected to continue with the capture step regardless.
func (i *Interpreter) Apply(ctx context.Context, page browser.Page, action schemas.Action) (err error) {
	kind := action.Kind()
	defer func() {
		if r := recover(); r != nil {
			err = &ActionError{Action: string(kind), Code: ErrCodeExecutorPanic, Err: fmt.Errorf("panic: %v", r)}
			i.logger.Error("Action handler panicked.", zap.String("action", string(kind)), zap.Any("panic", r))
		}
	}()

	handler, ok := i.handlers[kind]
	if !ok {
		i.logger.Warn("Ignoring unrecognized action.",
			zap.String("action", string(kind)),
			zap.String("error_code", string(ErrCodeUnknownAction)))
		return nil
	}

	if herr := handler(ctx, page, action); herr != nil {
		actionErr := &ActionError{Action: string(kind), Code: classifyActionError(herr), Err: herr}
		i.logger.Warn("Action execution failed",
			zap.String("action", string(kind)),
			zap.String("error_code", string(actionErr.Code)),
			zap.Error(herr))
		return actionErr
	}
	return nil
}

func (i *Interpreter) handleClick(ctx context.Context, page browser.Page, action schemas.Action) error {
	a, ok := action.(schemas.ClickAction)
	if !ok {
		return fmt.Errorf("unexpected payload %T for click", action)
	}
	return page.Click(ctx, a.X, a.Y, a.Effective())
}

func (i *Interpreter) handleScroll(ctx context.Context, page browser.Page, action schemas.Action) error {
	a, ok := action.(schemas.ScrollAction)
	if !ok {
		return fmt.Errorf("unexpected payload %T for scroll", action)
	}
	if err := page.MoveMouse(ctx, a.X, a.Y); err != nil {
		return err
	}
	return page.Evaluate(ctx, scrollScript(a.ScrollX, a.ScrollY))
}

func (i *Interpreter) handleTypeText(ctx context.Context, page browser.Page, action schemas.Action) error {
	a, ok := action.(schemas.TypeTextAction)
	if !ok {
		return fmt.Errorf("unexpected payload %T for type", action)
	}
	return page.TypeText(ctx, a.Text)
}

func (i *Interpreter) handleKeypress(ctx context.Context, page browser.Page, action schemas.Action) error {
	a, ok := action.(schemas.KeypressAction)
	if !ok {
		return fmt.Errorf("unexpected payload %T for keypress", action)
	}
	for _, key := range a.Keys {
		if err := page.PressKey(ctx, NormalizeKey(key)); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
	}
	return nil
}

func (i *Interpreter) handleWait(ctx context.Context, _ browser.Page, _ schemas.Action) error {
	t := time.NewTimer(i.waitInterval)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NormalizeKey maps the key name "enter", in any case, to the canonical Enter
// key. All other names pass through verbatim.
func NormalizeKey(key string) string {
	if strings.EqualFold(key, "enter") {
		return kb.Enter
	}
	return key
}

func scrollScript(dx, dy int64) string {
	return fmt.Sprintf("window.scrollBy(%d, %d)", dx, dy)
}
