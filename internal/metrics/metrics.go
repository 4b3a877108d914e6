package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	enqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syncq",
			Name:      "actions_enqueued_total",
			Help:      "Actions accepted into the offline queue by type.",
		},
		[]string{"type"},
	)

	processed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syncq",
			Name:      "actions_processed_total",
			Help:      "Actions successfully delivered by type.",
		},
		[]string{"type"},
	)

	failed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syncq",
			Name:      "actions_failed_total",
			Help:      "Actions dropped after exhausting retries by type.",
		},
		[]string{"type"},
	)

	retried = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syncq",
			Name:      "actions_retried_total",
			Help:      "Transient failures that were requeued by type.",
		},
		[]string{"type"},
	)

	dropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "syncq",
			Name:      "actions_dropped_total",
			Help:      "Actions evicted by the queue capacity bound.",
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "syncq",
			Name:      "queue_depth",
			Help:      "Current number of queued actions.",
		},
	)

	flushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "syncq",
			Name:      "flush_duration_seconds",
			Help:      "Wall time of complete flush runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(enqueued, processed, failed, retried, dropped, queueDepth, flushDuration)
	})
}

func IncEnqueued(actionType string) { enqueued.WithLabelValues(actionType).Inc() }
func IncProcessed(actionType string) { processed.WithLabelValues(actionType).Inc() }
func IncFailed(actionType string)   { failed.WithLabelValues(actionType).Inc() }
func IncRetried(actionType string)  { retried.WithLabelValues(actionType).Inc() }
func IncDropped()                   { dropped.Inc() }

// SetQueueDepth records the queue size after a mutation.
func SetQueueDepth(n int) { queueDepth.Set(float64(n)) }

// ObserveFlush records the duration of one flush run.
func ObserveFlush(d time.Duration) { flushDuration.Observe(d.Seconds()) }
