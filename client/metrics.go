package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aigencia_client",
			Name:      "requests_total",
			Help:      "HTTP exchanges by method and status code (or aborted/timeout/network_error).",
		},
		[]string{"method", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aigencia_client",
			Name:      "request_duration_seconds",
			Help:      "Latency of single HTTP exchanges.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aigencia_client",
			Name:      "retries_total",
			Help:      "Requests re-sent after a retryable failure.",
		},
		[]string{"method"},
	)

	tokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aigencia_client",
			Name:      "token_refresh_total",
			Help:      "Access token refreshes by result.",
		},
		[]string{"result"},
	)
)
