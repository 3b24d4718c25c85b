// Package metrics holds the Prometheus collectors of the notification engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "notify"

var (
	// DispatchTotal counts per-channel delivery attempts by result (ok|error).
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_total",
		Help:      "Channel delivery attempts by channel and result.",
	}, []string{"channel", "result"})

	// SuppressedTotal counts notifications stopped by the delivery gate.
	SuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suppressed_total",
		Help:      "Notifications suppressed by the delivery gate, by reason.",
	}, []string{"reason"})

	RemindersScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_scheduled_total",
		Help:      "Reminders created, by reminder type.",
	}, []string{"type"})

	RemindersSwept = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_swept_total",
		Help:      "Due reminders processed by the sweep, by result (sent|failed|skipped).",
	}, []string{"result"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Duration of a reminder sweep.",
		Buckets:   prometheus.DefBuckets,
	})

	LiveFeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "livefeed_connections",
		Help:      "Open live feed streams.",
	})
)
