package domain

import "fmt"

// TriggerKind describes why an experience was started.
type TriggerKind string

const (
	TriggerQualification          TriggerKind = "qualification"
	TriggerShowCall               TriggerKind = "show_call"
	TriggerDeepLink               TriggerKind = "deep_link"
	TriggerPreview                TriggerKind = "preview"
	TriggerExperienceCompletion   TriggerKind = "experience_completion_action"
	TriggerLaunchExperienceAction TriggerKind = "launch_experience_action"
)

// Trigger records the reason an experience is shown.
type Trigger struct {
	Kind TriggerKind `json:"kind"`
	// Reason is the qualification reason (e.g. "screen_view"), when known.
	Reason string `json:"reason,omitempty"`
	// FromExperienceID is set for experience-chaining triggers.
	FromExperienceID string `json:"fromExperienceId,omitempty"`
}

// IsQualification reports whether the experience was selected by the qualification process.
func (t Trigger) IsQualification() bool {
	return t.Kind == TriggerQualification
}

func (t Trigger) String() string {
	switch {
	case t.FromExperienceID != "":
		return fmt.Sprintf("%s:%s", t.Kind, t.FromExperienceID)
	case t.Reason != "":
		return fmt.Sprintf("%s:%s", t.Kind, t.Reason)
	}
	return string(t.Kind)
}
