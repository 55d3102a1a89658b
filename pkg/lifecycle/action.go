package lifecycle

import (
	"github.com/aretw0/lantern/pkg/domain"
)

// Action is a command sent to the state machine.
type Action interface {
	Name() string
	isAction()
}

// StartExperience begins an experience.
type StartExperience struct {
	Experience *domain.ExperienceData
}

// StartStep moves to the step the reference resolves to.
type StartStep struct {
	Ref domain.StepReference
}

// RenderStep presents the package of the current step. The machine issues it internally.
type RenderStep struct{}

// EndExperience ends the active experience.
type EndExperience struct {
	MarkComplete bool
}

// Reset returns an ending experience to idling. The machine issues it internally.
type Reset struct{}

// ReportError surfaces an error. With a Retry effect the machine enters Failing.
type ReportError struct {
	Err   *domain.ExperienceError
	Retry Effect
}

// Retry re-runs the failed effect.
type Retry struct{}

func (StartExperience) Name() string { return "startExperience" }
func (StartStep) Name() string       { return "startStep" }
func (RenderStep) Name() string      { return "renderStep" }
func (EndExperience) Name() string   { return "endExperience" }
func (Reset) Name() string           { return "reset" }
func (ReportError) Name() string     { return "reportError" }
func (Retry) Name() string           { return "retry" }

func (StartExperience) isAction() {}
func (StartStep) isAction()       {}
func (RenderStep) isAction()      {}
func (EndExperience) isAction()   {}
func (Reset) isAction()           {}
func (ReportError) isAction()     {}
func (Retry) isAction()           {}
