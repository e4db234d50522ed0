// internal/browser/launcher.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/internal/config"
)

const (
	launchTimeout            = 60 * time.Second
	defaultNavigationTimeout = 90 * time.Second
)

// ChromeLauncher starts one headless Chrome process per session.
type ChromeLauncher struct {
	cfg           config.BrowserConfig
	logger        *zap.Logger
	launchTimeout time.Duration
}

var _ Launcher = (*ChromeLauncher)(nil)

// NewChromeLauncher creates a launcher for the given browser settings.
func NewChromeLauncher(cfg config.BrowserConfig, logger *zap.Logger) *ChromeLauncher {
	return &ChromeLauncher{cfg: cfg, logger: logger.Named("browser"), launchTimeout: launchTimeout}
}

// Launch starts the browser process, opens a tab and pins its viewport. The
// returned page owns the process; closing it kills the browser.
func (l *ChromeLauncher) Launch(ctx context.Context, vp Viewport) (Page, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, AllocatorOptions(l.cfg, vp)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(l.logger.Sugar().Debugf))

	release := sync.OnceFunc(func() {
		tabCancel()
		allocCancel()
	})

	// The first Run allocates the browser and binds the process to the context
	// it is given, so it must run on tabCtx itself. A timer enforces the
	// startup limit instead of a deadline.
	timer := time.AfterFunc(l.launchTimeout, release)
	err := chromedp.Run(tabCtx, chromedp.EmulateViewport(vp.Width, vp.Height))
	if !timer.Stop() {
		release()
		return nil, fmt.Errorf("failed to start browser: no response within %v: %w", l.launchTimeout, context.DeadlineExceeded)
	}
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	navTimeout := l.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = defaultNavigationTimeout
	}

	l.logger.Info("Browser launched.",
		zap.Int64("width", vp.Width),
		zap.Int64("height", vp.Height),
		zap.Bool("headless", l.cfg.Headless))

	return &chromePage{
		ctx:        tabCtx,
		release:    release,
		logger:     l.logger,
		navTimeout: navTimeout,
	}, nil
}

// AllocatorOptions assembles the exec allocator options for one session.
func AllocatorOptions(cfg config.BrowserConfig, vp Viewport) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	flags := launchFlags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}

	opts = append(opts, chromedp.WindowSize(int(vp.Width), int(vp.Height)))
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// launchFlags returns the command-line switches for the browser process.
// Extensions and file-system access are always disabled; config args are
// layered on top and may override anything except those two.
func launchFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":    cfg.Headless,
		"disable-gpu": cfg.Headless,
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}

	// Containers on Linux lack the namespaces the sandbox needs.
	if runtime.GOOS == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
	}

	flags["disable-extensions"] = true
	flags["disable-file-system"] = true
	return flags
}
