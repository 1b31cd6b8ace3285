package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prodige_http_requests_total",
		Help: "Total number of HTTP requests, labelled by method and status code.",
	}, []string{"method", "status"})

	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prodige_http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	EventMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prodige_calendar_event_mutations_total",
		Help: "Total number of calendar event mutations, labelled by operation.",
	}, []string{"op"})

	StorageMode = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "prodige_storage_mode",
		Help: "Active storage backend (1 for the active mode, 0 otherwise).",
	}, []string{"mode"})
)
