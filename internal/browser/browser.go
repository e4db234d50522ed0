// internal/browser/browser.go
package browser

import (
	"context"

	"github.com/chromedp/cdproto/input"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
)

// Viewport is the fixed page geometry of a session.
type Viewport struct {
	Width  int64
	Height int64
}

// DefaultViewport matches the display size declared to the computer-use tool.
var DefaultViewport = Viewport{Width: 1024, Height: 768}

// Launcher starts an isolated browser instance with a single page.
type Launcher interface {
	Launch(ctx context.Context, vp Viewport) (Page, error)
}

// Page is the single long-lived tab a session drives. Coordinates are CSS
// pixels relative to the viewport.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, x, y int64, button schemas.MouseButton) error
	MoveMouse(ctx context.Context, x, y int64) error
	Evaluate(ctx context.Context, script string) error
	// TypeText sends the literal text to the focused element.
	TypeText(ctx context.Context, text string) error
	// PressKey presses and releases one key. Named keys such as Tab or
	// ArrowDown are matched in any case; other single characters are typed as
	// key events and anything else is sent as a DOM key value.
	PressKey(ctx context.Context, key string) error
	// Screenshot returns a PNG of the current viewport.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the page and its browser process. Safe to call twice.
	Close() error
}

// toCDPButton maps the service's button names onto CDP buttons.
func toCDPButton(b schemas.MouseButton) input.MouseButton {
	switch b {
	case schemas.ButtonRight:
		return input.Right
	case schemas.ButtonWheel:
		return input.Middle
	case schemas.ButtonBack:
		return input.Back
	case schemas.ButtonForward:
		return input.Forward
	default:
		return input.Left
	}
}
