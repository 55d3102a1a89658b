package lifecycle_test

import (
	"errors"
	"testing"

	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	exp := domain.NewExperienceData(&domain.Experience{ID: "tour"}, domain.Trigger{})
	idx := domain.StepIndex{Group: 1, Item: 2}

	assert.Equal(t, "idling", lifecycle.Describe(lifecycle.Idling{}))
	assert.Equal(t, "beginningExperience(tour)", lifecycle.Describe(lifecycle.BeginningExperience{Experience: exp}))
	assert.Equal(t, "renderingStep(tour@1,2)", lifecycle.Describe(lifecycle.RenderingStep{Experience: exp, StepIndex: idx}))

	failing := lifecycle.Failing{Target: lifecycle.RenderingStep{Experience: exp, StepIndex: idx}}
	assert.Equal(t, "failing(tour@1,2)", lifecycle.Describe(failing))
	assert.Same(t, exp, lifecycle.ExperienceOf(failing))

	got, ok := lifecycle.StepIndexOf(failing)
	assert.True(t, ok)
	assert.Equal(t, idx, got)

	_, ok = lifecycle.StepIndexOf(lifecycle.BeginningExperience{Experience: exp})
	assert.False(t, ok)
}

func TestNoTransitionError(t *testing.T) {
	err := &lifecycle.NoTransitionError{From: lifecycle.Idling{}, Action: lifecycle.Retry{}}
	assert.EqualError(t, err, "no transition from idling on retry")
	assert.ErrorIs(t, err, lifecycle.ErrNoTransition)
}

func TestResult(t *testing.T) {
	ok := lifecycle.Result{State: lifecycle.Idling{}}
	assert.True(t, ok.Success())
	_, isExp := ok.ExperienceError()
	assert.False(t, isExp)

	expErr := domain.NewExperienceError(domain.CategoryStructural, nil, domain.ErrEmptyExperience)
	failed := lifecycle.Result{Err: expErr}
	assert.False(t, failed.Success())
	got, isExp := failed.ExperienceError()
	assert.True(t, isExp)
	assert.Same(t, expErr, got)

	plain := lifecycle.Result{Err: errors.New("plain")}
	_, isExp = plain.ExperienceError()
	assert.False(t, isExp)
}
