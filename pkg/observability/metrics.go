package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/lantern/pkg/actions"
	"github.com/aretw0/lantern/pkg/lifecycle"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Action outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeDiscarded = "discarded"
)

// Metrics holds the engine collectors.
type Metrics struct {
	Transitions      *prometheus.CounterVec
	ExperienceErrors *prometheus.CounterVec
	Actions          *prometheus.CounterVec
	ActionDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lantern_transitions_total",
				Help: "Total number of states entered by the lifecycle state machine",
			},
			[]string{"state"},
		),
		ExperienceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lantern_experience_errors_total",
				Help: "Total number of experience failures reported to observers",
			},
			[]string{"category", "recoverable"},
		),
		Actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lantern_actions_total",
				Help: "Total number of actions leaving the pipeline, by outcome",
			},
			[]string{"type", "outcome"},
		),
		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lantern_action_duration_seconds",
				Help:    "Duration of action executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.ExperienceErrors, m.Actions, m.ActionDuration)
	}
	return m
}

// Observe records one state machine result. It matches lifecycle.Observer.
func (m *Metrics) Observe(_ context.Context, r lifecycle.Result) {
	if r.Err == nil {
		m.Transitions.WithLabelValues(r.State.Name()).Inc()
		return
	}
	if expErr, ok := r.ExperienceError(); ok {
		m.ExperienceErrors.WithLabelValues(string(expErr.Category), strconv.FormatBool(expErr.Recoverable)).Inc()
	}
}

// Hooks returns the queue hooks recording action executions and discards.
func (m *Metrics) Hooks() actions.Hooks {
	return actions.Hooks{
		OnExecute: func(_ context.Context, e actions.ExecutionEvent) {
			outcome := OutcomeSuccess
			if e.Err != nil {
				outcome = OutcomeFailure
			}
			m.Actions.WithLabelValues(e.Type, outcome).Inc()
			m.ActionDuration.WithLabelValues(e.Type).Observe(e.Duration.Seconds())
		},
		OnDiscard: func(_ context.Context, actionType string, _ uuid.UUID) {
			m.Actions.WithLabelValues(actionType, OutcomeDiscarded).Inc()
		},
	}
}
