package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(httpRequestsTotal, httpRequestDuration) }

var httpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served, by route, method and status class.",
	},
	[]string{"route", "method", "status"},
)

var httpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latency of HTTP requests by route.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route"},
)

func ObserveHTTPRequest(route, method, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(norm(route), norm(method), norm(status)).Inc()
	httpRequestDuration.WithLabelValues(norm(route)).Observe(seconds)
}
