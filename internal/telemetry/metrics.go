package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	EnqueueCounter     = prometheus.NewCounter(prometheus.CounterOpts{Name: "applications_enqueued_total", Help: "Applications accepted into the queue"})
	DuplicateRejects   = prometheus.NewCounter(prometheus.CounterOpts{Name: "applications_duplicate_total", Help: "Enqueues rejected as duplicate applications"})
	DispatchFailures   = prometheus.NewCounter(prometheus.CounterOpts{Name: "applications_dispatch_failures_total", Help: "Dispatch calls that failed after a committed enqueue"})
	SnapshotCounter    = prometheus.NewCounter(prometheus.CounterOpts{Name: "job_snapshots_created_total", Help: "Job snapshots written"})
	CancelCounter      = prometheus.NewCounter(prometheus.CounterOpts{Name: "applications_cancelled_total", Help: "Applications cancelled"})
	RetryCounter       = prometheus.NewCounter(prometheus.CounterOpts{Name: "applications_retried_total", Help: "Applications re-queued via retry"})
	RateLimitRejects   = prometheus.NewCounter(prometheus.CounterOpts{Name: "swipes_rate_limited_total", Help: "Swipes rejected by the per-user rate limiter"})
	SweepPromotions    = prometheus.NewCounter(prometheus.CounterOpts{Name: "applications_sweep_promoted_total", Help: "Applications re-dispatched by the sweeper"})
	QueueDepthGauge    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "applications_queue_depth", Help: "Ready dispatch depth across priority tiers"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			EnqueueCounter,
			DuplicateRejects,
			DispatchFailures,
			SnapshotCounter,
			CancelCounter,
			RetryCounter,
			RateLimitRejects,
			SweepPromotions,
			QueueDepthGauge,
		)
	})
	return promhttp.Handler()
}
