// Package analytics translates lifecycle transitions into analytics events.
package analytics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/lantern/internal/logging"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/lifecycle"
	"github.com/aretw0/lantern/pkg/ports"
	"github.com/google/uuid"
)

// Option configures an Observer.
type Option func(*Observer)

// WithLogger sets the observer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Observer) {
		o.logger = logger
	}
}

// Observer publishes lifecycle events for the transitions it observes.
type Observer struct {
	publisher ports.AnalyticsPublisher
	logger    *slog.Logger

	mu sync.Mutex
	// failed remembers the last error per instance until the instance renders again or ends.
	// Observers are shared between render contexts, so entries are only ever cleared per instance.
	failed map[uuid.UUID]*domain.ExperienceError
}

// NewObserver creates an observer publishing through publisher.
func NewObserver(publisher ports.AnalyticsPublisher, opts ...Option) *Observer {
	o := &Observer{
		publisher: publisher,
		logger:    logging.NewNop(),
		failed:    make(map[uuid.UUID]*domain.ExperienceError),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Observe handles one state machine result. It matches lifecycle.Observer.
func (o *Observer) Observe(ctx context.Context, r lifecycle.Result) {
	if r.Err != nil {
		if expErr, ok := r.ExperienceError(); ok && expErr.Experience != nil {
			o.trackError(ctx, expErr)
		}
		return
	}

	switch st := r.State.(type) {
	case lifecycle.RenderingStep:
		if recovered := o.clearFailure(st.Experience); recovered != nil {
			name := domain.EventExperienceRecovered
			if recovered.IsStepError() {
				name = domain.EventStepRecovered
			}
			o.track(ctx, name, st.Experience, &st.StepIndex, nil)
		}
		if st.IsFirst {
			o.track(ctx, domain.EventExperienceStarted, st.Experience, nil, nil)
		}
		o.track(ctx, domain.EventStepSeen, st.Experience, &st.StepIndex, nil)

	case lifecycle.EndingStep:
		if st.MarkComplete {
			o.track(ctx, domain.EventStepCompleted, st.Experience, &st.StepIndex, nil)
		}

	case lifecycle.EndingExperience:
		o.clearFailure(st.Experience)
		if st.MarkComplete {
			o.track(ctx, domain.EventExperienceCompleted, st.Experience, nil, nil)
		} else {
			o.track(ctx, domain.EventExperienceDismissed, st.Experience, &st.StepIndex, nil)
		}
	}
}

func (o *Observer) trackError(ctx context.Context, expErr *domain.ExperienceError) {
	o.mu.Lock()
	o.failed[expErr.Experience.InstanceID] = expErr
	o.mu.Unlock()

	props := map[string]any{domain.PropMessage: expErr.Message}
	if expErr.IsStepError() {
		o.track(ctx, domain.EventStepError, expErr.Experience, expErr.StepIndex, props)
		return
	}
	o.track(ctx, domain.EventExperienceError, expErr.Experience, nil, props)
}

// clearFailure forgets and returns the pending error of exp's instance.
func (o *Observer) clearFailure(exp *domain.ExperienceData) *domain.ExperienceError {
	o.mu.Lock()
	defer o.mu.Unlock()
	expErr := o.failed[exp.InstanceID]
	delete(o.failed, exp.InstanceID)
	return expErr
}

func (o *Observer) track(ctx context.Context, name domain.EventName, exp *domain.ExperienceData, idx *domain.StepIndex, extra map[string]any) {
	props := Properties(exp, idx)
	for k, v := range extra {
		props[k] = v
	}
	if err := o.publisher.Track(ctx, domain.NewEvent(name, props)); err != nil {
		o.logger.Warn("failed to publish analytics event", "event", name, "err", err)
	}
}

// Properties returns the standard event properties of an experience, and of a step when idx is set.
func Properties(exp *domain.ExperienceData, idx *domain.StepIndex) map[string]any {
	props := map[string]any{
		domain.PropExperienceID:         exp.ID,
		domain.PropExperienceName:       exp.Name,
		domain.PropExperienceInstanceID: exp.InstanceID.String(),
		domain.PropTrigger:              exp.Trigger.String(),
	}
	if exp.Type != "" {
		props[domain.PropExperienceType] = exp.Type
	}
	if exp.PublishedAt != nil {
		props[domain.PropVersion] = exp.PublishedAt.UnixMilli()
	}
	if idx != nil {
		props[domain.PropStepIndex] = idx.String()
		if step, ok := exp.Step(*idx); ok {
			props[domain.PropStepID] = step.ID
		}
	}
	return props
}
