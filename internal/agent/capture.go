// internal/agent/capture.go
package agent

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/xkilldash9x/cua-scheduler/internal/browser"
)

// DefaultCaptureTimeout bounds one screenshot acquisition.
const DefaultCaptureTimeout = 60 * time.Second

// Capturer snapshots the viewport as base64 PNG text. There is no retry: a
// failed capture ends the session.
type Capturer struct {
	timeout time.Duration
}

// NewCapturer returns a Capturer with the default acquisition timeout.
func NewCapturer() *Capturer {
	return &Capturer{timeout: DefaultCaptureTimeout}
}

// Capture takes a fresh viewport screenshot and returns it base64 encoded.
func (c *Capturer) Capture(ctx context.Context, page browser.Page) (string, error) {
	captureCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	png, err := page.Screenshot(captureCtx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	if len(png) == 0 {
		return "", fmt.Errorf("%w: empty screenshot", ErrCaptureFailed)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
