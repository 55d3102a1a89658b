package builtin

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/lantern/pkg/actions"
	"github.com/aretw0/lantern/pkg/domain"
)

// Track publishes a custom analytics event.
type Track struct {
	EventName  string         `mapstructure:"eventName"`
	Attributes map[string]any `mapstructure:"attributes"`

	actx *actions.Context
}

// NewTrack builds a Track action.
func NewTrack(cfg actions.Configuration) (actions.Action, error) {
	a := &Track{actx: cfg.Context}
	if err := cfg.Decode(a); err != nil {
		return nil, err
	}
	if a.EventName == "" {
		return nil, errors.New("track: eventName is required")
	}
	return a, nil
}

func (a *Track) ActionType() string { return TrackType }

func (a *Track) Execute(ctx context.Context) error {
	publisher := services(a.actx).Analytics
	if publisher == nil {
		return fmt.Errorf("track: analytics: %w", errMissingService)
	}
	props := experienceProperties(a.actx)
	for k, v := range a.Attributes {
		props[k] = v
	}
	return publisher.Track(ctx, domain.NewEvent(domain.EventName(a.EventName), props))
}

// UpdateProfile merges properties into the user profile.
type UpdateProfile struct {
	Properties map[string]any `mapstructure:"properties"`

	actx *actions.Context
}

// NewUpdateProfile builds an UpdateProfile action.
func NewUpdateProfile(cfg actions.Configuration) (actions.Action, error) {
	a := &UpdateProfile{actx: cfg.Context}
	if err := cfg.Decode(a); err != nil {
		return nil, err
	}
	if len(a.Properties) == 0 {
		return nil, errors.New("update-profile: properties are required")
	}
	return a, nil
}

func (a *UpdateProfile) ActionType() string { return UpdateProfileType }

func (a *UpdateProfile) Execute(ctx context.Context) error {
	publisher := services(a.actx).Analytics
	if publisher == nil {
		return fmt.Errorf("update-profile: analytics: %w", errMissingService)
	}
	return publisher.UpdateProfile(ctx, a.Properties)
}

func experienceProperties(actx *actions.Context) map[string]any {
	props := make(map[string]any)
	if actx == nil || actx.Experience == nil || actx.Experience.Experience == nil {
		return props
	}
	exp := actx.Experience
	props[domain.PropExperienceID] = exp.ID
	props[domain.PropExperienceName] = exp.Name
	props[domain.PropExperienceInstanceID] = exp.InstanceID.String()
	props[domain.PropStepIndex] = actx.StepIndex.String()
	if step, ok := exp.Step(actx.StepIndex); ok {
		props[domain.PropStepID] = step.ID
	}
	return props
}
