package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	feedRequestsTotal      *prometheus.CounterVec
	feedLatencySeconds     prometheus.Histogram
	ecosystemResolvesTotal *prometheus.CounterVec
	ecosystemSize          *prometheus.HistogramVec
	activitiesRecorded     *prometheus.CounterVec
	eventPublishFailures   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the hub and admin APIs.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cks_api_requests_total",
			Help: "Total number of hub and admin API requests served.",
		}, []string{"surface", "method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cks_api_latency_seconds",
			Help:    "Latency distribution for hub and admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"surface", "method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cks_api_errors_total",
			Help: "Total number of error responses returned by hub and admin endpoints.",
		}, []string{"surface", "method", "route", "status"})

		feedRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cks_activity_feed_requests_total",
			Help: "Activity feed lookups partitioned by cache outcome.",
		}, []string{"result"})

		feedLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cks_activity_feed_latency_seconds",
			Help:    "Time spent building an actor's activity feed.",
			Buckets: prometheus.DefBuckets,
		})

		ecosystemResolvesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cks_ecosystem_resolves_total",
			Help: "Ecosystem resolutions partitioned by role and cache outcome.",
		}, []string{"role", "result"})

		ecosystemSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cks_ecosystem_size",
			Help:    "Number of identifiers in a resolved ecosystem.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"role"})

		activitiesRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cks_activities_recorded_total",
			Help: "Activity records persisted, partitioned by decoded kind.",
		}, []string{"kind"})

		eventPublishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cks_event_publish_failures_total",
			Help: "Activity events that could not be delivered to a broker.",
		}, []string{"broker"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			feedRequestsTotal,
			feedLatencySeconds,
			ecosystemResolvesTotal,
			ecosystemSize,
			activitiesRecorded,
			eventPublishFailures,
		)
	})
}

// APIRequests exposes the counter for hub and admin requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for hub and admin requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// FeedRequests counts feed lookups by "hit", "miss" or "error".
func FeedRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return feedRequestsTotal
}

// FeedLatency exposes the feed build histogram.
func FeedLatency() prometheus.Histogram {
	RegisterMetrics()
	return feedLatencySeconds
}

// EcosystemResolves counts resolver calls by role and cache outcome.
func EcosystemResolves() *prometheus.CounterVec {
	RegisterMetrics()
	return ecosystemResolvesTotal
}

// EcosystemSize observes resolved scope sizes.
func EcosystemSize() *prometheus.HistogramVec {
	RegisterMetrics()
	return ecosystemSize
}

// ActivitiesRecorded counts persisted activity rows.
func ActivitiesRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return activitiesRecorded
}

// EventPublishFailures counts broker delivery failures.
func EventPublishFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return eventPublishFailures
}
