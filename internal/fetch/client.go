package fetch

import (
	"context"

	"go.uber.org/zap"

	collyfetch "github.com/ozwatch/ozwatch/internal/fetch/colly"
	"github.com/ozwatch/ozwatch/internal/fetch/headless"
	"github.com/ozwatch/ozwatch/internal/track"
)

// Config wires both fetch strategies.
type Config struct {
	Probe           collyfetch.Config
	Headless        headless.Config
	HeadlessEnabled bool
}

// Client implements track.Fetcher: probe first, promote to a rendered fetch
// when the detector says the probe body is script-rendered.
type Client struct {
	cfg      Config
	probe    *collyfetch.Fetcher
	detector *Detector
	logger   *zap.Logger

	// newSession is swappable in tests.
	newSession func(headless.Config) (*headless.Session, error)
}

// NewClient builds a Client.
func NewClient(cfg Config, detector *Detector, logger *zap.Logger) *Client {
	if detector == nil {
		detector = NewDetector(0, nil)
	}
	return &Client{
		cfg:        cfg,
		probe:      collyfetch.New(cfg.Probe),
		detector:   detector,
		logger:     logger,
		newSession: headless.NewSession,
	}
}

// Fetch retrieves one page, spinning up a throwaway browser session if the
// probe result needs rendering.
func (c *Client) Fetch(ctx context.Context, number string) (string, error) {
	body, err := c.probe.Fetch(ctx, number)
	if err == nil && !c.detector.ShouldPromote(body) {
		return body, nil
	}
	if !c.cfg.HeadlessEnabled {
		return body, err
	}

	session, serr := c.newSession(c.cfg.Headless)
	if serr != nil {
		c.logger.Warn("headless session unavailable", zap.Error(serr))
		return body, err
	}
	defer session.Close()

	rendered, rerr := session.Fetch(ctx, number)
	if rerr != nil {
		// fall back to whatever the probe produced
		if err == nil {
			c.logger.Warn("rendered fetch failed, using probe body",
				zap.String("number", number), zap.Error(rerr))
			return body, nil
		}
		return "", rerr
	}
	return rendered, nil
}

// FetchMany processes a batch sharing one browser session, acquired lazily
// on the first promotion and released on all exit paths.
func (c *Client) FetchMany(ctx context.Context, numbers []string) map[string]track.FetchOutcome {
	out := make(map[string]track.FetchOutcome, len(numbers))

	var session *headless.Session
	sessionBroken := false
	defer func() {
		session.Close()
	}()

	for _, number := range numbers {
		if ctx.Err() != nil {
			out[number] = track.FetchOutcome{Err: &track.FetchError{Number: number, Err: ctx.Err()}}
			continue
		}

		body, err := c.probe.Fetch(ctx, number)
		if err == nil && !c.detector.ShouldPromote(body) {
			out[number] = track.FetchOutcome{Body: body}
			continue
		}
		if !c.cfg.HeadlessEnabled || sessionBroken {
			out[number] = track.FetchOutcome{Body: body, Err: err}
			continue
		}

		if session == nil {
			var serr error
			session, serr = c.newSession(c.cfg.Headless)
			if serr != nil {
				c.logger.Warn("headless session unavailable", zap.Error(serr))
				sessionBroken = true
				out[number] = track.FetchOutcome{Body: body, Err: err}
				continue
			}
		}

		rendered, rerr := session.Fetch(ctx, number)
		switch {
		case rerr == nil:
			out[number] = track.FetchOutcome{Body: rendered}
		case err == nil:
			c.logger.Warn("rendered fetch failed, using probe body",
				zap.String("number", number), zap.Error(rerr))
			out[number] = track.FetchOutcome{Body: body}
		default:
			out[number] = track.FetchOutcome{Err: rerr}
		}
	}
	return out
}
