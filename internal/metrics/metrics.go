// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vividly_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vividly_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vividly_login_attempts_total",
			Help: "Password login attempts by outcome",
		},
		[]string{"result"},
	)

	SessionsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vividly_sessions_issued_total",
			Help: "Sessions created by login method",
		},
		[]string{"method"},
	)

	CodeGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vividly_code_generations_total",
			Help: "Generative code requests by kind and outcome",
		},
		[]string{"kind", "result"},
	)

	CodeGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vividly_code_generation_duration_seconds",
			Help:    "Latency of generative code requests",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"kind"},
	)
)
