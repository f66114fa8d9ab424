package watch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ozwatch/ozwatch/internal/metrics"
	"github.com/ozwatch/ozwatch/internal/track"
)

// Config controls the watch loop.
type Config struct {
	Interval        time.Duration
	StartupCooldown time.Duration
	// StopWhenDelivered skips further polling of delivered shipments.
	StopWhenDelivered bool
	// StartupRecipients get the "watcher started" notice in addition to
	// owners already present in the store.
	StartupRecipients []string
}

// Watcher drives poll cycles: fetch and extract every tracked number,
// apply the transition policy, persist once, dispatch events.
type Watcher struct {
	cfg        Config
	store      track.Store
	fetcher    track.Fetcher
	extractor  track.Extractor
	dispatcher *Dispatcher
	snapshots  track.SnapshotStore
	clock      track.Clock
	logger     *zap.Logger
}

// New builds a Watcher. snapshots may be nil.
func New(
	cfg Config,
	store track.Store,
	fetcher track.Fetcher,
	extractor track.Extractor,
	dispatcher *Dispatcher,
	snapshots track.SnapshotStore,
	clock track.Clock,
	logger *zap.Logger,
) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.StartupCooldown <= 0 {
		cfg.StartupCooldown = 30 * time.Minute
	}
	return &Watcher{
		cfg:        cfg,
		store:      store,
		fetcher:    fetcher,
		extractor:  extractor,
		dispatcher: dispatcher,
		snapshots:  snapshots,
		clock:      clock,
		logger:     logger,
	}
}

// Run blocks, executing one cycle immediately and then one per interval
// until the context finishes. Cycle errors are logged, never fatal.
func (w *Watcher) Run(ctx context.Context) error {
	w.sendStartupNotice(ctx)

	for {
		if err := w.RunCycle(ctx); err != nil {
			w.logger.Error("poll cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.Interval):
		}
	}
}

// RunCycle performs one full poll over every tracked number across all
// owners. Per-number failures are isolated; the store is written at most
// once per cycle.
func (w *Watcher) RunCycle(ctx context.Context) error {
	start := w.clock.Now()

	snapshot, err := w.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}

	numbers := w.collectNumbers(snapshot)
	if len(numbers) == 0 {
		metrics.ObserveCycle(w.clock.Now().Sub(start), 0)
		return nil
	}
	w.logger.Debug("poll cycle started", zap.Int("numbers", len(numbers)))

	outcomes := w.fetcher.FetchMany(ctx, numbers)
	results := w.extractAll(ctx, outcomes)

	// Re-read before mutating: a record deleted while we were fetching must
	// not be resurrected by this cycle's save.
	fresh, err := w.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload store: %w", err)
	}

	now := w.clock.Now()
	var events []track.TransitionEvent
	changed := false
	for owner, tracks := range fresh.Tracks {
		for number, rec := range tracks {
			res, ok := results[number]
			if !ok {
				continue // added mid-cycle, next cycle picks it up
			}
			updated, event := Evaluate(owner, number, rec, res, now)
			tracks[number] = updated
			changed = true
			if event != nil {
				w.logger.Info("status transition",
					zap.String("number", number),
					zap.String("from", string(event.From)),
					zap.String("to", string(event.To)))
				events = append(events, *event)
			}
		}
	}

	if changed {
		if err := w.store.Save(ctx, fresh); err != nil {
			return fmt.Errorf("save store: %w", err)
		}
	}

	w.dispatcher.Dispatch(ctx, events)
	metrics.ObserveCycle(w.clock.Now().Sub(start), fresh.RecordCount())
	return nil
}

// collectNumbers gathers the unique tracking numbers due for a check, in a
// deterministic order.
func (w *Watcher) collectNumbers(doc track.Document) []string {
	seen := make(map[string]struct{})
	for _, tracks := range doc.Tracks {
		for number, rec := range tracks {
			if w.cfg.StopWhenDelivered && rec.Status == track.StatusDelivered {
				continue
			}
			seen[number] = struct{}{}
		}
	}
	numbers := make([]string, 0, len(seen))
	for number := range seen {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)
	return numbers
}

// extractAll converts fetch outcomes into check results, archiving page
// bodies that produced no recognizable status.
func (w *Watcher) extractAll(ctx context.Context, outcomes map[string]track.FetchOutcome) map[string]track.CheckResult {
	results := make(map[string]track.CheckResult, len(outcomes))
	for number, outcome := range outcomes {
		if outcome.Err != nil {
			w.logger.Warn("fetch failed", zap.String("number", number), zap.Error(outcome.Err))
			results[number] = track.CheckResult{Status: track.StatusUnknown, Reason: track.ReasonFetchError}
			metrics.ObserveCheck(track.ReasonFetchError)
			continue
		}
		status, reason := w.extractor.Extract(outcome.Body)
		results[number] = track.CheckResult{Status: status, Reason: reason}
		switch status {
		case track.StatusUnknown:
			metrics.ObserveCheck(track.ReasonNoMatch)
			w.archive(ctx, number, outcome.Body)
		case track.StatusBlocked:
			metrics.ObserveCheck("blocked")
			w.archive(ctx, number, outcome.Body)
		default:
			metrics.ObserveCheck(track.ReasonMatched)
		}
	}
	return results
}

func (w *Watcher) archive(ctx context.Context, number, body string) {
	if w.snapshots == nil || body == "" {
		return
	}
	uri, err := w.snapshots.Put(ctx, number, []byte(body))
	if err != nil {
		w.logger.Warn("snapshot failed", zap.String("number", number), zap.Error(err))
		return
	}
	metrics.ObserveSnapshot()
	w.logger.Debug("page snapshot archived", zap.String("number", number), zap.String("uri", uri))
}

// sendStartupNotice announces the watcher once per cooldown window. The
// timestamp lives in the document meta so a crash-restart loop under a
// supervisor cannot produce a notification storm.
func (w *Watcher) sendStartupNotice(ctx context.Context) {
	doc, err := w.store.Load(ctx)
	if err != nil {
		w.logger.Warn("startup notice skipped", zap.Error(err))
		return
	}
	now := w.clock.Now()
	if last := doc.Meta.LastStartupNoticeAt; last != nil && now.Sub(*last) < w.cfg.StartupCooldown {
		return
	}

	recipients := make(map[string]struct{})
	for _, owner := range w.cfg.StartupRecipients {
		recipients[owner] = struct{}{}
	}
	for owner := range doc.Tracks {
		recipients[owner] = struct{}{}
	}
	for owner := range recipients {
		if err := w.dispatcher.notifier.Send(ctx, owner, "🤖 Бот запущен. Жми /start или кидай треки."); err != nil {
			w.logger.Warn("startup notice failed", zap.String("owner", owner), zap.Error(err))
		}
	}

	doc.Meta.LastStartupNoticeAt = &now
	if err := w.store.Save(ctx, doc); err != nil {
		w.logger.Warn("startup notice timestamp not persisted", zap.Error(err))
	}
}
