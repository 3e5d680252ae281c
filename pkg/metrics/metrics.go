package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fct"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	RepositoryOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "repository_operations_total", Help: "Repository operations by collection, operation and outcome."},
		[]string{"collection", "operation", "status"},
	)
	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "repository_operation_duration_seconds", Help: "Repository operation latency.", Buckets: prometheus.DefBuckets},
		[]string{"collection", "operation"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by method, route and status code."},
		[]string{"method", "route", "code"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(RepositoryOperations)
	reg.MustRegister(RepositoryDuration)
	reg.MustRegister(HTTPRequests)
}

// ObserveRepository records one repository call. status is "ok" or the error kind.
func ObserveRepository(collection, operation, status string, elapsed time.Duration) {
	RepositoryOperations.WithLabelValues(collection, operation, status).Inc()
	RepositoryDuration.WithLabelValues(collection, operation).Observe(elapsed.Seconds())
}
