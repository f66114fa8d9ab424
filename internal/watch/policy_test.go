package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozwatch/ozwatch/internal/track"
)

var policyNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func evaluate(t *testing.T, stored track.Status, res track.CheckResult) (track.TrackingRecord, *track.TransitionEvent) {
	t.Helper()
	rec := track.TrackingRecord{Status: stored}
	return Evaluate("42", "94044975-0220-1", rec, res, policyNow)
}

func TestEvaluateFirstObservationIsSilent(t *testing.T) {
	rec, event := evaluate(t, "", track.CheckResult{Status: track.StatusInTransit, Reason: track.ReasonMatched})
	assert.Nil(t, event)
	assert.Equal(t, track.StatusInTransit, rec.Status)
	assert.Equal(t, track.ReasonMatched, rec.LastCheckReason)
	require.NotNil(t, rec.LastCheckedAt)
	assert.Equal(t, policyNow, *rec.LastCheckedAt)
}

func TestEvaluateFirstObservationSentinelIsSilent(t *testing.T) {
	rec, event := evaluate(t, "", track.CheckResult{Status: track.StatusBlocked, Reason: "captcha"})
	assert.Nil(t, event)
	assert.Equal(t, track.StatusBlocked, rec.Status)
}

func TestEvaluateGenuineTransitionYieldsOneEvent(t *testing.T) {
	rec, event := evaluate(t, track.StatusInTransit, track.CheckResult{Status: track.StatusDelivered, Reason: track.ReasonMatched})
	require.NotNil(t, event)
	assert.Equal(t, track.StatusInTransit, event.From)
	assert.Equal(t, track.StatusDelivered, event.To)
	assert.Equal(t, "42", event.Owner)
	assert.Equal(t, "94044975-0220-1", event.Number)
	assert.Equal(t, policyNow, event.At)
	assert.Equal(t, track.StatusDelivered, rec.Status)
}

func TestEvaluateUnchangedStatusIsNoop(t *testing.T) {
	rec, event := evaluate(t, track.StatusInTransit, track.CheckResult{Status: track.StatusInTransit, Reason: track.ReasonMatched})
	assert.Nil(t, event)
	assert.Equal(t, track.StatusInTransit, rec.Status)
	assert.NotNil(t, rec.LastCheckedAt)
}

func TestEvaluateSentinelOverwritesSilently(t *testing.T) {
	rec, event := evaluate(t, track.StatusInTransit, track.CheckResult{Status: track.StatusUnknown, Reason: track.ReasonNoMatch})
	assert.Nil(t, event)
	assert.Equal(t, track.StatusUnknown, rec.Status)

	rec, event = evaluate(t, track.StatusInTransit, track.CheckResult{Status: track.StatusBlocked, Reason: "captcha"})
	assert.Nil(t, event)
	assert.Equal(t, track.StatusBlocked, rec.Status)
}

func TestEvaluateRecoveryFromSentinelYieldsEvent(t *testing.T) {
	// After an unknown overwrote a lifecycle status, a recognized status is
	// reported as a transition from the sentinel.
	_, event := evaluate(t, track.StatusUnknown, track.CheckResult{Status: track.StatusInTransit, Reason: track.ReasonMatched})
	require.NotNil(t, event)
	assert.Equal(t, track.StatusUnknown, event.From)
	assert.Equal(t, track.StatusInTransit, event.To)
}

func TestEvaluateEmptyResultDegradesToUnknown(t *testing.T) {
	rec, event := evaluate(t, track.StatusInTransit, track.CheckResult{Status: "", Reason: track.ReasonFetchError})
	assert.Nil(t, event)
	assert.Equal(t, track.StatusUnknown, rec.Status)
	assert.Equal(t, track.ReasonFetchError, rec.LastCheckReason)
}
