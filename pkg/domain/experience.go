package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action triggers the engine cares about directly.
const (
	// TriggerNavigate actions run before a new step group is presented.
	TriggerNavigate = "navigate"
	// TriggerTap actions run when the user taps an interactive element.
	TriggerTap = "tap"
	// TriggerLongPress actions run on a long press.
	TriggerLongPress = "longPress"
)

// Action is the declarative form of a unit of behavior attached to a step or group.
// It is decoded into a registered plugin instance by the action registry.
type Action struct {
	Trigger string         `json:"on" yaml:"on" mapstructure:"on" validate:"required"`
	Type    string         `json:"type" yaml:"type" mapstructure:"type" validate:"required"`
	Config  map[string]any `json:"config,omitempty" yaml:"config,omitempty" mapstructure:"config"`
}

// FormField declares an input block whose answer is captured in the form state.
type FormField struct {
	BlockID  string `json:"blockId" yaml:"blockId" validate:"required"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Step is a single screen of an experience.
type Step struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Content is opaque to the engine. Headless presenters render it as markdown.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	Actions []Action    `json:"actions,omitempty" yaml:"actions,omitempty" validate:"dive"`
	Form    []FormField `json:"form,omitempty" yaml:"form,omitempty" validate:"dive"`
}

// StepGroup is a container of steps presented together (e.g. a paged modal).
type StepGroup struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Actions are container-level actions, typically keyed to TriggerNavigate.
	Actions []Action `json:"actions,omitempty" yaml:"actions,omitempty" validate:"dive"`
	Steps   []Step   `json:"steps" yaml:"steps" validate:"required,dive"`
}

// Experience is the immutable server-authored document describing a flow.
type Experience struct {
	ID            string      `json:"id" yaml:"id" validate:"required"`
	Name          string      `json:"name" yaml:"name"`
	Type          string      `json:"type,omitempty" yaml:"type,omitempty"`
	Published     bool        `json:"published" yaml:"published"`
	PublishedAt   *time.Time  `json:"publishedAt,omitempty" yaml:"publishedAt,omitempty"`
	NextContentID string      `json:"nextContentId,omitempty" yaml:"nextContentId,omitempty"`
	RedirectURL   string      `json:"redirectUrl,omitempty" yaml:"redirectUrl,omitempty"`
	Groups        []StepGroup `json:"groups" yaml:"groups" validate:"required,dive"`
}

// StepCount returns the total number of steps across all groups.
func (e *Experience) StepCount() int {
	n := 0
	for _, g := range e.Groups {
		n += len(g.Steps)
	}
	return n
}

// StepIndices lists every addressable step index in flat order.
func (e *Experience) StepIndices() []StepIndex {
	indices := make([]StepIndex, 0, e.StepCount())
	for g, group := range e.Groups {
		for i := range group.Steps {
			indices = append(indices, StepIndex{Group: g, Item: i})
		}
	}
	return indices
}

// Step returns the step at idx, or false when idx is out of range.
func (e *Experience) Step(idx StepIndex) (Step, bool) {
	if idx.Group < 0 || idx.Group >= len(e.Groups) {
		return Step{}, false
	}
	steps := e.Groups[idx.Group].Steps
	if idx.Item < 0 || idx.Item >= len(steps) {
		return Step{}, false
	}
	return steps[idx.Item], true
}

// FlatIndex converts a step index into its position in StepIndices, or -1.
func (e *Experience) FlatIndex(idx StepIndex) int {
	if _, ok := e.Step(idx); !ok {
		return -1
	}
	flat := idx.Item
	for g := 0; g < idx.Group; g++ {
		flat += len(e.Groups[g].Steps)
	}
	return flat
}

// IndexAt converts a flat position into a step index.
func (e *Experience) IndexAt(flat int) (StepIndex, bool) {
	if flat < 0 {
		return StepIndex{}, false
	}
	for g, group := range e.Groups {
		if flat < len(group.Steps) {
			return StepIndex{Group: g, Item: flat}, true
		}
		flat -= len(group.Steps)
	}
	return StepIndex{}, false
}

// NavigateActions returns the container actions of group g that must run before it is presented.
func (e *Experience) NavigateActions(g int) []Action {
	if g < 0 || g >= len(e.Groups) {
		return nil
	}
	var out []Action
	for _, a := range e.Groups[g].Actions {
		if a.Trigger == TriggerNavigate {
			out = append(out, a)
		}
	}
	return out
}

// ExperienceData is one running instance of an experience.
type ExperienceData struct {
	*Experience
	Trigger    Trigger
	InstanceID uuid.UUID
	Form       *FormState
}

// NewExperienceData wraps an experience for a single presentation attempt.
func NewExperienceData(exp *Experience, trigger Trigger) *ExperienceData {
	form := NewFormState()
	for _, g := range exp.Groups {
		for _, s := range g.Steps {
			form.Register(s.Form...)
		}
	}
	return &ExperienceData{
		Experience: exp,
		Trigger:    trigger,
		InstanceID: uuid.New(),
		Form:       form,
	}
}
