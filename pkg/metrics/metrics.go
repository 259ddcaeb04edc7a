package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names match SPEC_FULL.md §6 "Metrics surface" exactly.
var (
	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warpconnect_reconcile_duration_seconds",
			Help:    "Time taken for a single target reconcile in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconcileCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warpconnect_reconcile_cycles_total",
			Help: "Total number of target reconciles, by result",
		},
		[]string{"result"}, // ok | error
	)

	RoutesInstalledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warpconnect_routes_installed_total",
			Help: "Total number of routes newly installed into a target namespace",
		},
	)

	RoutesRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warpconnect_routes_removed_total",
			Help: "Total number of routes removed from a target namespace",
		},
	)

	RoutesReplacedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warpconnect_routes_replaced_total",
			Help: "Total number of routes whose next-hop was replaced in place",
		},
	)

	RouteErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warpconnect_route_errors_total",
			Help: "Total number of route-programming failures, by error kind",
		},
		[]string{"kind"},
	)

	TargetsAwaitingWarp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warpconnect_targets_awaiting_warp",
			Help: "Number of known targets whose warp selector does not currently resolve",
		},
	)

	RuntimeReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warpconnect_runtime_reconnects_total",
			Help: "Total number of times the runtime event stream was re-established",
		},
	)

	KnownContainersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warpconnect_known_containers",
			Help: "Number of containers currently known to the Store, by role",
		},
		[]string{"role"},
	)
)

func init() {
	prometheus.MustRegister(ReconcileDuration)
	prometheus.MustRegister(ReconcileCyclesTotal)
	prometheus.MustRegister(RoutesInstalledTotal)
	prometheus.MustRegister(RoutesRemovedTotal)
	prometheus.MustRegister(RoutesReplacedTotal)
	prometheus.MustRegister(RouteErrorsTotal)
	prometheus.MustRegister(TargetsAwaitingWarp)
	prometheus.MustRegister(RuntimeReconnectsTotal)
	prometheus.MustRegister(KnownContainersTotal)
}

// Handler returns the Prometheus HTTP handler, mounted at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
