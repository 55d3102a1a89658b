// Package lifecycle defines the states, commands and results of the experience state machine.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/ports"
)

// State is one state of the experience state machine.
type State interface {
	Name() string
	isState()
}

// Idling is the resting state: no experience is active.
type Idling struct{}

// BeginningExperience is entered when an experience starts.
type BeginningExperience struct {
	Experience *domain.ExperienceData
}

// BeginningStep is entered once the package for the target step exists but before it is presented.
type BeginningStep struct {
	Experience *domain.ExperienceData
	StepIndex  domain.StepIndex
	Package    ports.PresentationPackage
	IsFirst    bool
}

// RenderingStep is the steady state while a step is on screen.
type RenderingStep struct {
	Experience *domain.ExperienceData
	StepIndex  domain.StepIndex
	Package    ports.PresentationPackage
	IsFirst    bool
}

// EndingStep is entered when leaving a step. Keep is set when the next step is presented by the same
// package.
type EndingStep struct {
	Experience   *domain.ExperienceData
	StepIndex    domain.StepIndex
	Package      ports.PresentationPackage
	MarkComplete bool
	Keep         bool
}

// EndingExperience is entered when the experience ends.
type EndingExperience struct {
	Experience   *domain.ExperienceData
	StepIndex    domain.StepIndex
	MarkComplete bool
}

// Failing holds a recoverable failure. Retry re-runs Effect and restores Target.
type Failing struct {
	Target State
	Retry  Effect
}

func (Idling) Name() string              { return "idling" }
func (BeginningExperience) Name() string { return "beginningExperience" }
func (BeginningStep) Name() string       { return "beginningStep" }
func (RenderingStep) Name() string       { return "renderingStep" }
func (EndingStep) Name() string          { return "endingStep" }
func (EndingExperience) Name() string    { return "endingExperience" }
func (Failing) Name() string             { return "failing" }

func (Idling) isState()              {}
func (BeginningExperience) isState() {}
func (BeginningStep) isState()       {}
func (RenderingStep) isState()       {}
func (EndingStep) isState()          {}
func (EndingExperience) isState()    {}
func (Failing) isState()             {}

// ExperienceOf returns the experience a state carries, if any.
func ExperienceOf(s State) *domain.ExperienceData {
	switch st := s.(type) {
	case BeginningExperience:
		return st.Experience
	case BeginningStep:
		return st.Experience
	case RenderingStep:
		return st.Experience
	case EndingStep:
		return st.Experience
	case EndingExperience:
		return st.Experience
	case Failing:
		return ExperienceOf(st.Target)
	}
	return nil
}

// StepIndexOf returns the step index a state carries.
func StepIndexOf(s State) (domain.StepIndex, bool) {
	switch st := s.(type) {
	case BeginningStep:
		return st.StepIndex, true
	case RenderingStep:
		return st.StepIndex, true
	case EndingStep:
		return st.StepIndex, true
	case EndingExperience:
		return st.StepIndex, true
	case Failing:
		return StepIndexOf(st.Target)
	}
	return domain.StepIndex{}, false
}

// Describe renders a state for logs and debug endpoints.
func Describe(s State) string {
	exp := ExperienceOf(s)
	if exp == nil {
		return s.Name()
	}
	if idx, ok := StepIndexOf(s); ok {
		return fmt.Sprintf("%s(%s@%s)", s.Name(), exp.ID, idx)
	}
	return fmt.Sprintf("%s(%s)", s.Name(), exp.ID)
}

// Effect is a deferred side effect. It may request a follow-up command.
type Effect func(ctx context.Context) (Action, error)
