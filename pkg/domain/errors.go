package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyExperience is returned when an experience has no steps to present.
	ErrEmptyExperience = errors.New("experience has no steps")

	// ErrStepNotFound is returned when a step reference cannot be resolved.
	ErrStepNotFound = errors.New("step not found")

	// ErrExperienceNotFound is returned by loaders for unknown experience IDs.
	ErrExperienceNotFound = errors.New("experience not found")

	// ErrUnknownActionType is returned when no plugin is registered for an action type.
	ErrUnknownActionType = errors.New("unknown action type")
)

// ErrorCategory classifies experience failures.
type ErrorCategory string

const (
	// CategoryStructural failures are always fatal.
	CategoryStructural ErrorCategory = "structural"
	// CategoryPresentation failures may be recoverable.
	CategoryPresentation ErrorCategory = "presentation"
	// CategoryAction failures are absorbed by the action pipeline.
	CategoryAction ErrorCategory = "action"
	// CategoryRegistration failures are reported by the registry.
	CategoryRegistration ErrorCategory = "registration"
)

// ExperienceError is the failure reported by the state machine to its observers.
type ExperienceError struct {
	Category   ErrorCategory
	Experience *ExperienceData
	// StepIndex is nil for experience-level failures.
	StepIndex   *StepIndex
	Message     string
	Recoverable bool
	Err         error
}

// NewExperienceError builds an experience-level error.
func NewExperienceError(category ErrorCategory, exp *ExperienceData, err error) *ExperienceError {
	return &ExperienceError{
		Category:    category,
		Experience:  exp,
		Message:     messageOf(err),
		Recoverable: IsRecoverable(err),
		Err:         err,
	}
}

// NewStepError builds a step-level error.
func NewStepError(category ErrorCategory, exp *ExperienceData, idx StepIndex, err error) *ExperienceError {
	e := NewExperienceError(category, exp, err)
	e.StepIndex = &idx
	return e
}

func (e *ExperienceError) Error() string {
	id := ""
	if e.Experience != nil {
		id = e.Experience.ID
	}
	if e.StepIndex != nil {
		return fmt.Sprintf("%s error in experience %s step %s: %s", e.Category, id, e.StepIndex, e.Message)
	}
	return fmt.Sprintf("%s error in experience %s: %s", e.Category, id, e.Message)
}

func (e *ExperienceError) Unwrap() error {
	return e.Err
}

// IsStepError reports whether the error is scoped to a single step.
func (e *ExperienceError) IsStepError() bool {
	return e.StepIndex != nil
}

func messageOf(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

type recoverableError struct {
	err error
}

func (e *recoverableError) Error() string { return e.err.Error() }
func (e *recoverableError) Unwrap() error { return e.err }

// Recoverable marks a presentation failure as retryable.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &recoverableError{err: err}
}

// IsRecoverable reports whether err, or anything it wraps, was marked with Recoverable.
func IsRecoverable(err error) bool {
	var r *recoverableError
	return errors.As(err, &r)
}
