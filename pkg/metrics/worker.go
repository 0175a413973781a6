package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics records metadata for background workers such as the churn
// recompute consumer and the outbox publisher.
type WorkerMetrics struct {
	duration  *prometheus.HistogramVec
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	lastRun   *prometheus.GaugeVec
}

// NewWorkerMetrics registers the worker metrics on the provided registerer.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		return &WorkerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worker_run_duration_seconds",
		Help:    "Duration of worker runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_events_processed_total",
		Help: "Events handled successfully by the worker.",
	}, []string{"worker"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_events_failed_total",
		Help: "Events the worker failed to handle.",
	}, []string{"worker"})
	lastRun := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "worker_last_run_timestamp_seconds",
		Help: "Unix time of the worker's most recent run.",
	}, []string{"worker"})
	reg.MustRegister(duration, processed, failed, lastRun)
	return &WorkerMetrics{
		duration:  duration,
		processed: processed,
		failed:    failed,
		lastRun:   lastRun,
	}
}

// ObserveRun records the duration of a worker run and stamps the last-run gauge.
func (w *WorkerMetrics) ObserveRun(worker string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	label := normalizeLabel(worker)
	w.duration.WithLabelValues(label).Observe(duration.Seconds())
	w.lastRun.WithLabelValues(label).SetToCurrentTime()
}

// IncProcessed increments the processed counter for the named worker.
func (w *WorkerMetrics) IncProcessed(worker string) {
	if w == nil || w.processed == nil {
		return
	}
	w.processed.WithLabelValues(normalizeLabel(worker)).Inc()
}

// IncFailed increments the failure counter for the named worker.
func (w *WorkerMetrics) IncFailed(worker string) {
	if w == nil || w.failed == nil {
		return
	}
	w.failed.WithLabelValues(normalizeLabel(worker)).Inc()
}

func normalizeLabel(worker string) string {
	if worker == "" {
		return "unknown"
	}
	return worker
}
