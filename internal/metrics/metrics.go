package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_pipeline_runs_total",
			Help: "Total number of pipeline runs by terminal result",
		},
		[]string{"client", "result"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gateway_pipeline_stage_duration_seconds",
			Help: "Pipeline stage duration in seconds",
		},
		[]string{"stage"},
	)

	ProviderDegradations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_provider_degradations_total",
			Help: "Provider failures recovered via degrade defaults",
		},
		[]string{"stage"},
	)

	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	ChannelSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_channel_sends_total",
			Help: "Outbound channel sends by platform and outcome",
		},
		[]string{"channel", "outcome"},
	)

	ScheduledPosts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_scheduled_posts_total",
			Help: "Total number of scheduled social posts dispatched",
		},
	)
)
