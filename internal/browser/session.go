// Package browser drives a headless Chrome instance over the DevTools
// protocol and implements the replay page interface on top of it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrLoadTimeout is returned when a page does not finish loading within the
// allowed window.
var ErrLoadTimeout = errors.New("page load timeout")

// Config controls how the Chrome instance is launched.
type Config struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
	// ExecPath pins the browser binary. Empty means auto-detect, falling
	// back to chromedp's own lookup.
	ExecPath string
}

// Session owns a running Chrome instance. Each task run opens its own tab
// through OpenAndActivate; tabs are independent and share no run state.
type Session struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *zap.Logger
}

// NewSession launches Chrome. The instance stays up until Close.
func NewSession(cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = 1400
	}
	if cfg.WindowHeight <= 0 {
		cfg.WindowHeight = 900
	}

	execPath := cfg.ExecPath
	if execPath == "" {
		if inst := DetectDefault(); inst != nil {
			execPath = inst.Path
			logger.Debug("detected browser", zap.String("name", inst.Name), zap.String("path", inst.Path))
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run a no-op so launch failures surface here instead of on first use.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	logger.Info("browser session started", zap.Bool("headless", cfg.Headless))
	return &Session{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger.Named("browser"),
	}, nil
}

// OpenAndActivate opens a new tab at the given URL and returns its page
// handle. The caller owns the page and must Close it.
func (s *Session) OpenAndActivate(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	navCtx, navCancel := context.WithTimeout(tabCtx, 60*time.Second)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		tabCancel()
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}

	s.logger.Debug("page opened", zap.String("url", url))
	return &Page{ctx: tabCtx, cancel: tabCancel, logger: s.logger}, nil
}

// Close shuts the browser down.
func (s *Session) Close() {
	s.browserCancel()
	s.allocCancel()
	s.logger.Info("browser session closed")
}
