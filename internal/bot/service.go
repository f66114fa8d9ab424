// Package bot implements the Telegram command surface: track management
// commands plus the long-polling update loop.
package bot

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ozwatch/ozwatch/internal/track"
	"github.com/ozwatch/ozwatch/internal/watch"
)

// Service implements the track-management operations behind the bot commands.
// Every operation works against a freshly loaded document so concurrent
// watch-cycle saves are not clobbered with stale state.
type Service struct {
	store   track.Store
	checker *watch.Checker
	clock   track.Clock
	logger  *zap.Logger
}

// NewService builds a Service.
func NewService(store track.Store, checker *watch.Checker, clock track.Clock, logger *zap.Logger) *Service {
	return &Service{store: store, checker: checker, clock: clock, logger: logger}
}

// AddResult reports the outcome of registering a tracking number.
type AddResult struct {
	Record         track.TrackingRecord
	Result         track.CheckResult
	AlreadyTracked bool
}

// Add registers a number for an owner and performs an immediate one-shot
// check so the user gets a baseline status right away. Re-adding an existing
// number refreshes its status instead of resetting the record.
func (s *Service) Add(ctx context.Context, owner, number string) (AddResult, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return AddResult{}, fmt.Errorf("load tracks: %w", err)
	}

	records := doc.Owner(owner)
	rec, existed := records[number]
	if !existed {
		rec = track.TrackingRecord{AddedAt: s.clock.Now()}
	}

	res := s.checker.Check(ctx, number)
	rec, _ = watch.Evaluate(owner, number, rec, res, s.clock.Now())
	records[number] = rec

	if err := s.store.Save(ctx, doc); err != nil {
		return AddResult{}, fmt.Errorf("save tracks: %w", err)
	}

	s.logger.Info("track added",
		zap.String("owner", owner),
		zap.String("number", number),
		zap.String("status", string(rec.Status)),
		zap.Bool("already_tracked", existed))
	return AddResult{Record: rec, Result: res, AlreadyTracked: existed}, nil
}

// Remove deletes a number for an owner. It reports whether the number was
// actually tracked.
func (s *Service) Remove(ctx context.Context, owner, number string) (bool, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load tracks: %w", err)
	}

	records, ok := doc.Tracks[owner]
	if !ok {
		return false, nil
	}
	if _, ok := records[number]; !ok {
		return false, nil
	}
	delete(records, number)
	if len(records) == 0 {
		delete(doc.Tracks, owner)
	}

	if err := s.store.Save(ctx, doc); err != nil {
		return false, fmt.Errorf("save tracks: %w", err)
	}

	s.logger.Info("track removed", zap.String("owner", owner), zap.String("number", number))
	return true, nil
}

// Entry is one tracked shipment as shown in a listing.
type Entry struct {
	Number string
	Record track.TrackingRecord
}

// List returns the owner's tracked shipments sorted by number.
func (s *Service) List(ctx context.Context, owner string) ([]Entry, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}

	records := doc.Tracks[owner]
	entries := make([]Entry, 0, len(records))
	for number, rec := range records {
		entries = append(entries, Entry{Number: number, Record: rec})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Number < entries[j].Number })
	return entries, nil
}

// Check runs a one-shot status lookup without touching the store.
func (s *Service) Check(ctx context.Context, number string) track.CheckResult {
	return s.checker.Check(ctx, number)
}
