package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// apiRequests tracks remote calls by operation and outcome.
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_api_requests_total",
		Help: "Total number of import API calls by operation and outcome",
	}, []string{"op", "outcome"}) // outcome: ok, error, unauthorized

	// apiAuthReplays tracks calls replayed after a token refresh.
	apiAuthReplays = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_api_auth_replays_total",
		Help: "Total number of calls replayed after a 401-triggered token refresh",
	}, []string{"op"})

	// apiDuration tracks remote call latency including any replay.
	apiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "import_api_request_duration_seconds",
		Help:    "Import API call duration by operation",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"op"})
)
