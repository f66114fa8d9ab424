// Package track defines the core domain types shared across subsystems.
package track

import (
	"fmt"
	"net/url"
	"regexp"
	"time"
)

// Status is a canonical shipment status drawn from a fixed vocabulary.
type Status string

// Lifecycle statuses, in carrier order. The ordering is informative only and
// is not enforced anywhere.
const (
	StatusCreated         Status = "created"
	StatusHandedToCarrier Status = "handed to carrier"
	StatusInTransit       Status = "in transit"
	StatusCustomsOutbound Status = "customs outbound"
	StatusCustomsInbound  Status = "customs inbound"
	StatusAtSortation     Status = "at sortation"
	StatusOutForDelivery  Status = "out for delivery"
	StatusReadyForPickup  Status = "ready for pickup"
	StatusDelivered       Status = "delivered"
)

// Sentinel statuses outside the carrier lifecycle.
const (
	// StatusUnknown means extraction found nothing recognizable.
	StatusUnknown Status = "unknown"
	// StatusBlocked means the page showed anti-automation defenses.
	StatusBlocked Status = "blocked"
)

// Check reason codes recorded on TrackingRecord.LastCheckReason. A blocked
// result carries the matched indicator phrase instead.
const (
	ReasonMatched    = "matched"
	ReasonNoMatch    = "no-match"
	ReasonFetchError = "fetch-error"
)

var lifecyclePhase = map[Status]int{
	StatusCreated:         0,
	StatusHandedToCarrier: 1,
	StatusInTransit:       2,
	StatusCustomsOutbound: 3,
	StatusCustomsInbound:  4,
	StatusAtSortation:     5,
	StatusOutForDelivery:  6,
	StatusReadyForPickup:  7,
	StatusDelivered:       8,
}

// IsLifecycle reports whether s is a carrier lifecycle status rather than a
// sentinel or the zero value.
func (s Status) IsLifecycle() bool {
	_, ok := lifecyclePhase[s]
	return ok
}

// Phase returns the informative lifecycle position of s, or -1 for sentinels.
func (s Status) Phase() int {
	if p, ok := lifecyclePhase[s]; ok {
		return p
	}
	return -1
}

// TrackingRecord is one tracked shipment. The tracking number is the map key
// in Document and is not repeated here.
type TrackingRecord struct {
	// Status is the last confirmed status; empty until the first check
	// completes. Once set it is only overwritten by a recognized status or a
	// sentinel, never cleared.
	Status          Status     `json:"status,omitempty"`
	LastCheckedAt   *time.Time `json:"last_checked_at,omitempty"`
	LastCheckReason string     `json:"last_check_reason,omitempty"`
	AddedAt         time.Time  `json:"added_at,omitzero"`
}

// HasStatus reports whether any check has produced a status yet.
func (r TrackingRecord) HasStatus() bool {
	return r.Status != ""
}

// SchemaVersion is the current persisted document shape.
const SchemaVersion = 1

// Meta holds document-level bookkeeping.
type Meta struct {
	LastStartupNoticeAt *time.Time `json:"last_startup_notice_at,omitempty"`
}

// Document is the whole persisted state: tracking records keyed by owner
// (chat identity), then by tracking number.
type Document struct {
	SchemaVersion int                                  `json:"schema_version"`
	Meta          Meta                                 `json:"meta"`
	Tracks        map[string]map[string]TrackingRecord `json:"tracks"`
}

// NewDocument returns an empty document in the current schema.
func NewDocument() Document {
	return Document{
		SchemaVersion: SchemaVersion,
		Tracks:        make(map[string]map[string]TrackingRecord),
	}
}

// Owner returns the record map for an owner, creating it if needed.
func (d *Document) Owner(owner string) map[string]TrackingRecord {
	if d.Tracks == nil {
		d.Tracks = make(map[string]map[string]TrackingRecord)
	}
	m, ok := d.Tracks[owner]
	if !ok {
		m = make(map[string]TrackingRecord)
		d.Tracks[owner] = m
	}
	return m
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	cp := d
	cp.Tracks = make(map[string]map[string]TrackingRecord, len(d.Tracks))
	for owner, tracks := range d.Tracks {
		inner := make(map[string]TrackingRecord, len(tracks))
		for number, rec := range tracks {
			inner[number] = rec
		}
		cp.Tracks[owner] = inner
	}
	if d.Meta.LastStartupNoticeAt != nil {
		ts := *d.Meta.LastStartupNoticeAt
		cp.Meta.LastStartupNoticeAt = &ts
	}
	return cp
}

// RecordCount returns the total number of tracked shipments across owners.
func (d Document) RecordCount() int {
	n := 0
	for _, tracks := range d.Tracks {
		n += len(tracks)
	}
	return n
}

// CheckResult is the outcome of one fetch+extract attempt.
type CheckResult struct {
	Status Status
	Reason string
}

// TransitionEvent records one genuine status transition detected by the
// watch loop.
type TransitionEvent struct {
	Owner  string    `json:"owner"`
	Number string    `json:"number"`
	From   Status    `json:"from"`
	To     Status    `json:"to"`
	At     time.Time `json:"at"`
}

// Message renders the user-facing notification text.
func (e TransitionEvent) Message() string {
	return fmt.Sprintf("📦 %s: %s → %s", e.Number, e.From, e.To)
}

// FetchError is a typed failure from a page fetch attempt. StatusCode is zero
// for transport-level errors.
type FetchError struct {
	Number     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http %d", e.Number, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Number, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DefaultBaseURL is the public carrier tracking endpoint.
const DefaultBaseURL = "https://tracking.ozon.ru"

// PageURL builds the tracking page URL for a number. An empty base falls back
// to DefaultBaseURL.
func PageURL(base, number string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return base + "/?track=" + url.QueryEscape(number)
}

// Accepts a bare number or a pasted URL with a track query parameter. The
// candidate must contain at least one digit.
var (
	numberPattern = regexp.MustCompile(`(?i)(?:[?&]track=)?([\d-]{6,})`)
	digitPattern  = regexp.MustCompile(`\d`)
)

// ParseNumber extracts a tracking number from free-form user input.
func ParseNumber(text string) (string, bool) {
	for _, m := range numberPattern.FindAllStringSubmatch(text, -1) {
		if digitPattern.MatchString(m[1]) {
			return m[1], true
		}
	}
	return "", false
}
