// Package headless renders tracking pages with a real browser via chromedp.
//
// The tracking site draws status client-side for most shipments, so the
// probe fetch alone is often not enough. A Session owns one headless browser
// and is scoped to a single poll cycle's fetch phase: acquire it, run the
// lookups, release it on every exit path.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"github.com/ozwatch/ozwatch/internal/track"
)

// Config controls the rendered fetch.
type Config struct {
	BaseURL    string
	UserAgent  string
	NavTimeout time.Duration
	// Settle is the fixed wait after network quiescence before reading the
	// body; the status widget animates in after load.
	Settle time.Duration
	// LookupsPerSecond paces navigation across a batch. Zero disables pacing.
	LookupsPerSecond float64
}

func (c *Config) applyDefaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 60 * time.Second
	}
	if c.Settle <= 0 {
		c.Settle = 5 * time.Second
	}
}

// Session is one live headless browser shared across lookups.
type Session struct {
	cfg           Config
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	limiter       *rate.Limiter
}

// NewSession launches the browser. Callers must Close the session.
func NewSession(cfg Config) (*Session, error) {
	cfg.applyDefaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		// the tracking site fingerprints automation
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(1280, 800),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.LookupsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.LookupsPerSecond), 1)
	}

	return &Session{
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		limiter:       limiter,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.browserCancel()
	s.allocCancel()
}

// Fetch navigates a fresh tab to the tracking page and returns the fully
// rendered visible body text. Per-number UI state never leaks between
// lookups because each one gets its own tab.
func (s *Session) Fetch(ctx context.Context, number string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", &track.FetchError{Number: number, Err: fmt.Errorf("lookup pacing: %w", err)}
		}
	}

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, s.cfg.NavTimeout)
	defer cancelTask()

	stop := forwardCancel(ctx, cancelTask)
	defer stop()

	var body string
	tasks := chromedp.Tasks{
		network.Enable(),
		s.userAgentAction(),
		chromedp.Navigate(track.PageURL(s.cfg.BaseURL, number)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.cfg.Settle),
		chromedp.Text("body", &body, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return "", &track.FetchError{Number: number, Err: fmt.Errorf("chromedp run: %w", err)}
	}
	return body, nil
}

// FetchMany looks up every number in one browser session. Failures are
// isolated per number in the outcome map.
func (s *Session) FetchMany(ctx context.Context, numbers []string) map[string]track.FetchOutcome {
	out := make(map[string]track.FetchOutcome, len(numbers))
	for _, number := range numbers {
		if ctx.Err() != nil {
			out[number] = track.FetchOutcome{Err: &track.FetchError{Number: number, Err: ctx.Err()}}
			continue
		}
		body, err := s.Fetch(ctx, number)
		out[number] = track.FetchOutcome{Body: body, Err: err}
	}
	return out
}

func (s *Session) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if s.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

// forwardCancel propagates cancellation of the caller context into the
// chromedp task context.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
