package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TasksCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "growth_tasks_completed_total",
			Help: "Total number of daily tasks marked complete",
		},
	)
	DaysCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "growth_days_completed_total",
			Help: "Total number of challenge days fully completed",
		},
	)
	ChallengesCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "growth_challenges_completed_total",
			Help: "Total number of challenges finished",
		},
	)
	Enrollments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growth_enrollments_total",
			Help: "Total number of challenge enrollments",
		},
		[]string{"kind"},
	)
	WizardTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growth_wizard_transitions_total",
			Help: "Wizard events applied, by resulting state and outcome",
		},
		[]string{"state", "event", "outcome"},
	)
	AggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "growth_progress_aggregation_seconds",
			Help:    "Duration of dimension progress aggregation passes",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register adds the domain collectors to reg. Call this from main.go.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		TasksCompleted,
		DaysCompleted,
		ChallengesCompleted,
		Enrollments,
		WizardTransitions,
		AggregationDuration,
	)
}
