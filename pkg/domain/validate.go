package domain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce    sync.Once
	structValidator *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return structValidator
}

// ValidationError lists the problems found in an experience document.
type ValidationError struct {
	ExperienceID string
	Problems     []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("experience %q is invalid: %v", e.ExperienceID, e.Problems)
}

// Validate checks the structural invariants the engine relies on:
// required fields, at least one step and unique step identifiers.
func (e *Experience) Validate() error {
	var problems []string

	if err := getValidator().Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if e.StepCount() == 0 {
		problems = append(problems, ErrEmptyExperience.Error())
	}

	seen := make(map[string]bool)
	for _, idx := range e.StepIndices() {
		step, _ := e.Step(idx)
		if step.ID == "" {
			continue
		}
		if seen[step.ID] {
			problems = append(problems, fmt.Sprintf("duplicate step id %q at %s", step.ID, idx))
		}
		seen[step.ID] = true
	}

	if len(problems) > 0 {
		return &ValidationError{ExperienceID: e.ID, Problems: problems}
	}
	return nil
}
