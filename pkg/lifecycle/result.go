package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/lantern/pkg/domain"
)

var (
	// ErrNoTransition is returned when a command is not valid in the current state.
	ErrNoTransition = errors.New("no transition")
	// ErrExperienceAlreadyActive is returned when an experience starts while another is active.
	ErrExperienceAlreadyActive = errors.New("experience already active")
)

// NoTransitionError describes a rejected command.
type NoTransitionError struct {
	From   State
	Action Action
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("no transition from %s on %s", e.From.Name(), e.Action.Name())
}

func (e *NoTransitionError) Unwrap() error {
	return ErrNoTransition
}

// Result is what observers receive: either the state entered or a failure.
type Result struct {
	State State
	Err   error
}

// Success reports whether the result carries a state.
func (r Result) Success() bool {
	return r.Err == nil
}

// ExperienceError returns the failure as an ExperienceError, if it is one.
func (r Result) ExperienceError() (*domain.ExperienceError, bool) {
	var expErr *domain.ExperienceError
	if errors.As(r.Err, &expErr) {
		return expErr, true
	}
	return nil, false
}

// Observer is notified of every transition and failure.
type Observer func(ctx context.Context, r Result)
