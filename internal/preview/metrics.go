package preview

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// previewTriggers counts parameter changes that re-armed the debounce timer.
	previewTriggers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preview_triggers_total",
		Help: "Total number of parameter changes that scheduled a preview",
	})

	// previewRequests counts preview calls actually issued.
	previewRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preview_requests_total",
		Help: "Total number of preview calls issued after the debounce window",
	})

	previewApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preview_applied_total",
		Help: "Total number of preview results applied to the wizard",
	})

	// previewStale counts results dropped because a newer generation exists.
	previewStale = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preview_stale_discarded_total",
		Help: "Total number of preview results discarded as stale",
	})

	previewFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preview_failures_total",
		Help: "Total number of failed preview calls",
	})

	previewDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "preview_request_duration_seconds",
		Help:    "Preview call duration",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
)
