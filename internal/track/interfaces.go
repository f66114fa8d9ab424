package track

import (
	"context"
	"time"
)

// FetchOutcome is the per-number result of a batched fetch. Exactly one of
// Body or Err is meaningful.
type FetchOutcome struct {
	Body string
	Err  error
}

// Fetcher retrieves raw page content for tracking numbers. FetchMany shares
// one browser session across all numbers; per-number failures are reported in
// the outcome map, never by partial silent content.
type Fetcher interface {
	Fetch(ctx context.Context, number string) (string, error)
	FetchMany(ctx context.Context, numbers []string) map[string]FetchOutcome
}

// Extractor turns raw page content into a canonical status plus a reason
// code. It never fails; the worst case is StatusUnknown/ReasonNoMatch.
type Extractor interface {
	Extract(pageContent string) (Status, string)
}

// Store persists the whole tracking document. Save must be atomic with
// respect to concurrent Load calls; a corrupt persisted document is recovered
// as an empty one.
type Store interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// Notifier delivers a message to an owner. Best effort: failures are logged
// by callers, never retried.
type Notifier interface {
	Send(ctx context.Context, owner, text string) error
}

// EventSink receives transition events for downstream consumers.
type EventSink interface {
	Publish(ctx context.Context, event TransitionEvent) error
}

// SnapshotStore archives a raw page body for diagnostics and returns a URI.
type SnapshotStore interface {
	Put(ctx context.Context, number string, body []byte) (string, error)
}

// Clock returns the current time (swappable in tests).
type Clock interface {
	Now() time.Time
}
