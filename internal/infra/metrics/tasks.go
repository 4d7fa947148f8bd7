package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		taskTransitionsTotal,
		submissionsTotal,
		pollsTotal,
		pollLatencyMs,
		historySyncedTasks,
		downloadsTotal,
	)
}

var taskTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "batch_task_transitions_total",
		Help: "Task status transitions, labeled by source and target status.",
	},
	[]string{"from", "to"},
)

var submissionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "batch_submissions_total",
		Help: "Generation submissions per provider, labeled by outcome.",
	},
	[]string{"provider", "outcome"}, // 'queued', 'failed'
)

var pollsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "batch_polls_total",
		Help: "Provider status polls, labeled by reported status.",
	},
	[]string{"provider", "status"},
)

var pollLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "batch_poll_latency_ms",
		Help:    "Provider poll latency distribution in milliseconds.",
		Buckets: []float64{25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
	},
	[]string{"provider"},
)

var historySyncedTasks = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "batch_history_synced_tasks_total",
		Help: "Remote tasks imported by history reconciliation.",
	},
)

var downloadsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "batch_downloads_total",
		Help: "Video materialization attempts, labeled by outcome.",
	},
	[]string{"outcome"}, // 'saved', 'fallback'
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncTransition(from, to string) {
	taskTransitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func IncSubmission(provider, outcome string) {
	submissionsTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
}

func IncPoll(provider, status string) {
	pollsTotal.WithLabelValues(norm(provider), norm(status)).Inc()
}

func ObservePollLatency(provider string, ms float64) {
	pollLatencyMs.WithLabelValues(norm(provider)).Observe(ms)
}

func AddHistorySynced(n int) {
	historySyncedTasks.Add(float64(n))
}

func IncDownload(outcome string) {
	downloadsTotal.WithLabelValues(norm(outcome)).Inc()
}
