// internal/browser/page.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
)

// Per-operation ceilings. Screenshot has none of its own; the caller's
// deadline bounds it.
const (
	mouseTimeout    = 10 * time.Second
	keyTimeout      = 10 * time.Second
	evaluateTimeout = 15 * time.Second
)

// chromePage drives one chromedp tab.
type chromePage struct {
	ctx        context.Context // tab context from chromedp.NewContext
	release    func()
	logger     *zap.Logger
	navTimeout time.Duration

	closeOnce sync.Once
}

var _ Page = (*chromePage)(nil)

// run executes actions on the tab, bounded by timeout (if positive) and by
// the caller's ctx. Cancelling the derived context never closes the tab.
func (p *chromePage) run(ctx context.Context, op string, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		opCtx  context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(p.ctx, timeout)
	} else {
		opCtx, cancel = context.WithCancel(p.ctx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s aborted: %w", op, ctx.Err())
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %v: %w", op, timeout, opCtx.Err())
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating.", zap.String("url", url))
	return p.run(ctx, "navigate", p.navTimeout, chromedp.Navigate(url))
}

func (p *chromePage) Click(ctx context.Context, x, y int64, button schemas.MouseButton) error {
	return p.run(ctx, "click", mouseTimeout,
		chromedp.MouseClickXY(float64(x), float64(y), chromedp.ButtonType(toCDPButton(button))))
}

func (p *chromePage) MoveMouse(ctx context.Context, x, y int64) error {
	return p.run(ctx, "mouse move", mouseTimeout,
		input.DispatchMouseEvent(input.MouseMoved, float64(x), float64(y)))
}

func (p *chromePage) Evaluate(ctx context.Context, script string) error {
	return p.run(ctx, "evaluate", evaluateTimeout, chromedp.Evaluate(script, nil))
}

func (p *chromePage) TypeText(ctx context.Context, text string) error {
	return p.run(ctx, "type", keyTimeout, chromedp.KeyEvent(text))
}

// namedKeys maps the key names the remote service sends, lower-cased, onto
// chromedp key runes so Chrome performs each key's default action.
var namedKeys = map[string]string{
	"enter":      kb.Enter,
	"return":     kb.Enter,
	"tab":        kb.Tab,
	"backspace":  kb.Backspace,
	"escape":     kb.Escape,
	"esc":        kb.Escape,
	"delete":     kb.Delete,
	"insert":     kb.Insert,
	"arrowdown":  kb.ArrowDown,
	"arrowup":    kb.ArrowUp,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
	"down":       kb.ArrowDown,
	"up":         kb.ArrowUp,
	"left":       kb.ArrowLeft,
	"right":      kb.ArrowRight,
	"home":       kb.Home,
	"end":        kb.End,
	"pageup":     kb.PageUp,
	"pagedown":   kb.PageDown,
	"space":      " ",
}

// resolveKey returns the chromedp rune for a known key name, in any case, and
// the name unchanged otherwise.
func resolveKey(key string) string {
	if r, ok := namedKeys[strings.ToLower(key)]; ok {
		return r
	}
	return key
}

func (p *chromePage) PressKey(ctx context.Context, key string) error {
	key = resolveKey(key)
	if utf8.RuneCountInString(key) == 1 {
		return p.run(ctx, "keypress", keyTimeout, chromedp.KeyEvent(key))
	}
	keyDown := input.DispatchKeyEvent(input.KeyDown).WithKey(key)
	keyUp := input.DispatchKeyEvent(input.KeyUp).WithKey(key)
	return p.run(ctx, "keypress", keyTimeout, keyDown, keyUp)
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, "screenshot", 0, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromePage) Close() error {
	p.closeOnce.Do(func() {
		p.release()
		p.logger.Info("Browser released.")
	})
	return nil
}
