package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securelab_http_requests_total",
			Help: "Total API requests by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	SnapshotRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securelab_assistant_snapshot_requests_total",
			Help: "Assistant snapshot lookups by result (hit, refresh, error).",
		},
		[]string{"result"},
	)

	SnapshotReadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securelab_assistant_snapshot_read_failures_total",
			Help: "Failed collection reads while assembling a snapshot.",
		},
		[]string{"collection"},
	)

	ModelCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "securelab_assistant_model_calls_total",
			Help: "Generate-content calls by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	ModelLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "securelab_assistant_model_call_seconds",
			Help:    "Latency of generate-content calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, SnapshotRequests, SnapshotReadFailures, ModelCalls, ModelLatency)
}
