package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rule engine metrics, registered on the default registry and exposed
// at /metrics.
var (
	SweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sensorstation",
		Subsystem: "rules",
		Name:      "sweeps_total",
		Help:      "Total number of evaluation sweeps run.",
	})
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sensorstation",
		Subsystem: "rules",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of evaluation sweeps.",
		Buckets:   prometheus.DefBuckets,
	})
	RulesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sensorstation",
		Subsystem: "rules",
		Name:      "evaluated_total",
		Help:      "Total number of rule condition evaluations.",
	})
	ConditionsMatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sensorstation",
		Subsystem: "rules",
		Name:      "matched_total",
		Help:      "Total number of rule conditions that matched.",
	})
	CommandsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sensorstation",
		Subsystem: "rules",
		Name:      "commands_dispatched_total",
		Help:      "Total number of commands dispatched by addressing mode.",
	}, []string{"mode"}) // mode: device, broadcast
	DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sensorstation",
		Subsystem: "rules",
		Name:      "dispatch_failures_total",
		Help:      "Total number of commands the transport refused to accept.",
	})
	ScheduledJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sensorstation",
		Subsystem: "rules",
		Name:      "scheduled_jobs",
		Help:      "Number of active cron jobs for schedule rules.",
	})
)
