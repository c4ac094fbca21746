package graphql

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	outcomeSuccess     = "success"
	outcomeTransport   = "transport_error"
	outcomeApplication = "application_error"
	outcomeConfig      = "config_error"
)

var (
	upstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphql_upstream_requests_total",
			Help: "Total number of GraphQL requests sent to the commerce APIs",
		},
		[]string{"api", "operation", "outcome"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphql_upstream_duration_seconds",
			Help:    "Duration of GraphQL requests to the commerce APIs in seconds",
			Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"api"},
	)
)
