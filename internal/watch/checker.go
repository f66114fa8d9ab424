package watch

import (
	"context"

	"go.uber.org/zap"

	"github.com/ozwatch/ozwatch/internal/track"
)

// Checker performs one fetch+extract for a single tracking number. It is the
// shared one-shot path behind the bot's immediate check on add, the /debug
// command and the check CLI.
type Checker struct {
	fetcher   track.Fetcher
	extractor track.Extractor
	logger    *zap.Logger
}

// NewChecker builds a Checker.
func NewChecker(fetcher track.Fetcher, extractor track.Extractor, logger *zap.Logger) *Checker {
	return &Checker{fetcher: fetcher, extractor: extractor, logger: logger}
}

// Check never fails; fetch errors degrade to unknown/fetch-error.
func (c *Checker) Check(ctx context.Context, number string) track.CheckResult {
	body, err := c.fetcher.Fetch(ctx, number)
	if err != nil {
		c.logger.Warn("one-shot fetch failed", zap.String("number", number), zap.Error(err))
		return track.CheckResult{Status: track.StatusUnknown, Reason: track.ReasonFetchError}
	}
	status, reason := c.extractor.Extract(body)
	return track.CheckResult{Status: status, Reason: reason}
}
