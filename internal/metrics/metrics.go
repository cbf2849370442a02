package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Throughput metrics - Track polling and processing volume
var (
	BlocksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agent_blocks_processed_total",
		Help: "Total number of blocks scanned for events",
	})

	EventsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_events_detected_total",
			Help: "Total number of contract events detected by event type",
		},
		[]string{"event_type"},
	)

	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_events_processed_total",
			Help: "Total number of events processed by outcome",
		},
		[]string{"outcome"},
	)

	PollsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agent_polls_skipped_total",
		Help: "Total number of poll ticks skipped because a poll was in flight",
	})

	ResponsesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agent_responses_submitted_total",
		Help: "Total number of response transactions submitted on-chain",
	})
)

// Performance metrics - Track processing latency
var (
	EventProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agent_event_processing_duration_seconds",
		Help:    "Time taken to process a single event end to end",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agent_poll_duration_seconds",
		Help:    "Time taken by one pollForEvents invocation",
		Buckets: prometheus.DefBuckets,
	})
)

// State metrics - Track current system state
var (
	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agent_active_subscriptions",
		Help: "Number of subscriptions with a running schedule",
	})

	CurrentBlockHeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agent_cursor_block_height",
			Help: "Last fully processed block height by subscription",
		},
		[]string{"subscription"},
	)
)

// Error metrics - Track failures
var (
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_errors_total",
			Help: "Total number of errors by component",
		},
		[]string{"component"},
	)
)
