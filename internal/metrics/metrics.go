// Package metrics exposes the Prometheus instrumentation for workflow runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeTimeout   = "timeout"
)

var (
	// ActiveRuns tracks currently executing workflow runs.
	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "medassist",
		Name:      "active_runs",
		Help:      "Number of workflow runs currently executing.",
	})

	// RunsTotal counts finished runs by outcome.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medassist",
		Name:      "runs_total",
		Help:      "Finished workflow runs by outcome.",
	}, []string{"outcome"})

	// RunDuration observes wall-clock run time.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "medassist",
		Name:      "run_duration_seconds",
		Help:      "Workflow run duration.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	// ToolCallsTotal counts tool invocations by tool and status.
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medassist",
		Name:      "tool_calls_total",
		Help:      "Tool invocations by tool name and status.",
	}, []string{"tool", "status"})

	// EventsTotal counts streamed events by type.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medassist",
		Name:      "stream_events_total",
		Help:      "Events written to client streams by type.",
	}, []string{"type"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
