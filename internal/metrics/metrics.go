package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики регистрируются в глобальном реестре, /metrics отдает go-gin-prometheus.
var (
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "superstory_vapi_fetch_attempts_total",
			Help: "Total number of call status requests, partitioned by outcome.",
		},
		[]string{"outcome"}, // ready | pending | finalized | null | error
	)

	FetchAttemptsPerRun = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "superstory_vapi_fetch_attempts_per_run",
			Help:    "Number of status requests needed per fetch run.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "superstory_pipeline_runs_total",
			Help: "Total number of call completion pipeline runs, partitioned by result.",
		},
		[]string{"result"}, // success | fetch | extract | storage
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "superstory_pipeline_duration_seconds",
			Help:    "Histogram of call completion pipeline durations.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "superstory_chat_requests_total",
			Help: "Total number of chat completion requests.",
		},
		[]string{"provider", "model", "status"},
	)

	ChatRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "superstory_chat_request_duration_seconds",
			Help:    "Histogram of chat completion request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)

	ChatTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "superstory_chat_tokens_total",
			Help: "Total number of chat tokens, partitioned by kind (prompt, completion).",
		},
		[]string{"provider", "model", "kind"},
	)

	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "superstory_session_transitions_total",
			Help: "Total number of voice session state transitions.",
		},
		[]string{"from", "to"},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "superstory_websocket_clients",
			Help: "Number of connected websocket clients.",
		},
	)
)
