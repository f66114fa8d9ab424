package track

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"bare number", "94044975-0220-1", "94044975-0220-1", true},
		{"digits only", "1234567890", "1234567890", true},
		{"pasted url", "https://tracking.ozon.ru/?track=94044975-0220-1", "94044975-0220-1", true},
		{"url with extra params", "https://tracking.ozon.ru/?lang=ru&track=94044975-0220-1", "94044975-0220-1", true},
		{"surrounded by chatter", "посмотри пожалуйста 94044975-0220-1 спасибо", "94044975-0220-1", true},
		{"too short", "12345", "", false},
		{"hyphens only", "------", "", false},
		{"no number at all", "привет", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusIsLifecycle(t *testing.T) {
	for _, s := range []Status{
		StatusCreated, StatusHandedToCarrier, StatusInTransit,
		StatusCustomsOutbound, StatusCustomsInbound, StatusAtSortation,
		StatusOutForDelivery, StatusReadyForPickup, StatusDelivered,
	} {
		assert.True(t, s.IsLifecycle(), "status %q", s)
	}
	assert.False(t, StatusUnknown.IsLifecycle())
	assert.False(t, StatusBlocked.IsLifecycle())
	assert.False(t, Status("").IsLifecycle())
}

func TestStatusPhaseOrdering(t *testing.T) {
	assert.Less(t, StatusCreated.Phase(), StatusInTransit.Phase())
	assert.Less(t, StatusInTransit.Phase(), StatusDelivered.Phase())
	assert.Equal(t, -1, StatusUnknown.Phase())
}

func TestRecordStatusNullRoundTrip(t *testing.T) {
	// The original flat layout stored "status": null for never-checked
	// records; that must decode as an unset status.
	var rec TrackingRecord
	require.NoError(t, json.Unmarshal([]byte(`{"status": null}`), &rec))
	assert.False(t, rec.HasStatus())

	data, err := json.Marshal(TrackingRecord{})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"status"`)
}

func TestDocumentOwnerCreatesMap(t *testing.T) {
	var doc Document
	doc.Owner("42")["94044975-0220-1"] = TrackingRecord{Status: StatusInTransit}
	assert.Equal(t, StatusInTransit, doc.Tracks["42"]["94044975-0220-1"].Status)
}

func TestDocumentClone(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := NewDocument()
	doc.Meta.LastStartupNoticeAt = &ts
	doc.Owner("42")["111111"] = TrackingRecord{Status: StatusCreated}

	cp := doc.Clone()
	cp.Tracks["42"]["111111"] = TrackingRecord{Status: StatusDelivered}
	*cp.Meta.LastStartupNoticeAt = ts.Add(time.Hour)

	assert.Equal(t, StatusCreated, doc.Tracks["42"]["111111"].Status)
	assert.Equal(t, ts, *doc.Meta.LastStartupNoticeAt)
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "https://tracking.ozon.ru/?track=94044975-0220-1", PageURL("", "94044975-0220-1"))
	assert.Equal(t, "http://localhost:8080/?track=123456", PageURL("http://localhost:8080", "123456"))
}

func TestTransitionEventMessage(t *testing.T) {
	e := TransitionEvent{Number: "94044975-0220-1", From: StatusInTransit, To: StatusDelivered}
	assert.Equal(t, "📦 94044975-0220-1: in transit → delivered", e.Message())
}
