// Package metrics exposes Prometheus collectors for the watcher service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	checksTotal          *prometheus.CounterVec
	transitionsTotal     *prometheus.CounterVec
	notificationsTotal   *prometheus.CounterVec
	snapshotsTotal       prometheus.Counter
	cycleDurationSeconds prometheus.Histogram
	trackedRecords       prometheus.Gauge

	once sync.Once
)

// Init initializes the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		checksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ozwatch_checks_total",
				Help: "Total status checks performed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		transitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ozwatch_transitions_total",
				Help: "Total genuine status transitions detected, labeled by new status.",
			},
			[]string{"to"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ozwatch_notifications_total",
				Help: "Total outbound notifications, labeled by delivery outcome.",
			},
			[]string{"outcome"},
		)

		snapshotsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ozwatch_snapshots_total",
				Help: "Total page snapshots archived for failed extractions.",
			},
		)

		cycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ozwatch_cycle_duration_seconds",
				Help:    "Histogram of poll cycle durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		trackedRecords = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ozwatch_tracked_records",
				Help: "Number of tracking records currently in the store.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCheck increments the check counter for an outcome reason.
func ObserveCheck(outcome string) {
	if checksTotal != nil {
		checksTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveTransition increments the transition counter.
func ObserveTransition(to string) {
	if transitionsTotal != nil {
		transitionsTotal.WithLabelValues(to).Inc()
	}
}

// ObserveNotification increments the notification counter.
func ObserveNotification(outcome string) {
	if notificationsTotal != nil {
		notificationsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveSnapshot increments the snapshot counter.
func ObserveSnapshot() {
	if snapshotsTotal != nil {
		snapshotsTotal.Inc()
	}
}

// ObserveCycle records one completed poll cycle.
func ObserveCycle(duration time.Duration, records int) {
	if cycleDurationSeconds != nil {
		cycleDurationSeconds.Observe(duration.Seconds())
	}
	if trackedRecords != nil {
		trackedRecords.Set(float64(records))
	}
}
