// Package watch owns the change-detection loop: the pure transition policy,
// the cycle runner and the event dispatcher.
package watch

import (
	"time"

	"github.com/ozwatch/ozwatch/internal/track"
)

// Evaluate applies the transition policy for one check result and returns
// the updated record plus an optional transition event. It is side-effect
// free; the watcher persists records and the dispatcher delivers events.
//
// Rules:
//   - The first observation is the baseline: stored silently, even when it
//     is a sentinel.
//   - A recognized status different from the stored one is a genuine
//     transition and yields exactly one event.
//   - A sentinel result (unknown/blocked) overwrites the stored status but
//     never yields an event; a transient scrape failure must not alarm the
//     user.
//   - An unchanged status is a no-op apart from the check bookkeeping.
func Evaluate(owner, number string, rec track.TrackingRecord, res track.CheckResult, now time.Time) (track.TrackingRecord, *track.TransitionEvent) {
	checked := now
	rec.LastCheckedAt = &checked
	rec.LastCheckReason = res.Reason

	status := res.Status
	if status == "" {
		status = track.StatusUnknown
	}

	if !rec.HasStatus() {
		rec.Status = status
		return rec, nil
	}

	if status == rec.Status {
		return rec, nil
	}

	if !status.IsLifecycle() {
		rec.Status = status
		return rec, nil
	}

	event := &track.TransitionEvent{
		Owner:  owner,
		Number: number,
		From:   rec.Status,
		To:     status,
		At:     now,
	}
	rec.Status = status
	return rec, event
}
