package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	leadSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_submissions_total",
			Help: "Total number of lead submissions by result category",
		},
		[]string{"result"},
	)

	auxiliaryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auxiliary_failures_total",
			Help: "Total number of swallowed auxiliary step failures",
		},
		[]string{"step"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of document store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "collection"},
	)
)

// ObserveHTTP 记录一次 HTTP 请求
func ObserveHTTP(method, path, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// RecordSubmission result 为 "success" 或错误分类
func RecordSubmission(result string) {
	leadSubmissions.WithLabelValues(result).Inc()
}

func RecordAuxiliaryFailure(step string) {
	auxiliaryFailures.WithLabelValues(step).Inc()
}

func ObserveStoreOperation(op, collection string, elapsed time.Duration) {
	storeOperationDuration.WithLabelValues(op, collection).Observe(elapsed.Seconds())
}
