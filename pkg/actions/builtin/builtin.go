// Package builtin provides the standard experience action plugins.
package builtin

import (
	"errors"

	"github.com/aretw0/lantern/pkg/actions"
)

// Type tags of the built-in actions.
const (
	CloseType            = "@lantern/close"
	ContinueType         = "@lantern/continue"
	TrackType            = "@lantern/track"
	DelayType            = "@lantern/delay"
	ConditionalType      = "@lantern/conditional"
	SubmitFormType       = "@lantern/submit-form"
	LaunchExperienceType = "@lantern/launch-experience"
	LinkType             = "@lantern/link"
	UpdateProfileType    = "@lantern/update-profile"
)

var errMissingService = errors.New("service not available in action context")

// RegisterAll registers every built-in plugin. It returns the types that were rejected
// because something else already registered them.
func RegisterAll(r *actions.Registry) []string {
	factories := []struct {
		typ     string
		factory actions.Factory
	}{
		{CloseType, NewClose},
		{ContinueType, NewContinue},
		{TrackType, NewTrack},
		{DelayType, NewDelay},
		{ConditionalType, NewConditional},
		{SubmitFormType, NewSubmitForm},
		{LaunchExperienceType, NewLaunchExperience},
		{LinkType, NewLink},
		{UpdateProfileType, NewUpdateProfile},
	}

	var rejected []string
	for _, f := range factories {
		if !r.Register(f.typ, f.factory) {
			rejected = append(rejected, f.typ)
		}
	}
	return rejected
}

func services(actx *actions.Context) actions.Services {
	if actx == nil {
		return actions.Services{}
	}
	return actx.Services
}
