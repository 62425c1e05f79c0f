package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipflow_messages_consumed_total",
		Help: "Total number of queue messages handled, by queue and outcome",
	}, []string{"queue", "outcome"})

	PollErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipflow_poll_errors_total",
		Help: "Total number of transport-level receive failures, by queue",
	}, []string{"queue"})

	HandleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clipflow_message_handle_duration_seconds",
		Help:    "Duration of message handler invocations",
		Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"queue"})

	ActiveConsumers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clipflow_active_consumers",
		Help: "Number of queue polling loops currently running",
	})

	VideosCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipflow_videos_created_total",
		Help: "Total number of video job records created",
	})

	ResultsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipflow_results_processed_total",
		Help: "Total number of worker results applied, by reported status",
	}, []string{"status"})
)
