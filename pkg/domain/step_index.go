package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// StepIndex addresses a step by group and item, both zero-based.
type StepIndex struct {
	Group int `json:"group"`
	Item  int `json:"item"`
}

// InitialStepIndex is the first step of every experience.
var InitialStepIndex = StepIndex{}

func (i StepIndex) String() string {
	return fmt.Sprintf("%d,%d", i.Group, i.Item)
}

// ParseStepIndex parses the "group,item" form produced by String.
func ParseStepIndex(s string) (StepIndex, error) {
	g, item, ok := strings.Cut(s, ",")
	if !ok {
		return StepIndex{}, fmt.Errorf("invalid step index %q", s)
	}
	group, err := strconv.Atoi(strings.TrimSpace(g))
	if err != nil {
		return StepIndex{}, fmt.Errorf("invalid step index %q: %w", s, err)
	}
	it, err := strconv.Atoi(strings.TrimSpace(item))
	if err != nil {
		return StepIndex{}, fmt.Errorf("invalid step index %q: %w", s, err)
	}
	return StepIndex{Group: group, Item: it}, nil
}

// StepReferenceKind selects how a StepReference is interpreted.
type StepReferenceKind int

const (
	RefIndex StepReferenceKind = iota
	RefOffset
	RefStepID
)

// StepReference is a request to move to a step.
type StepReference struct {
	Kind   StepReferenceKind
	Value  int
	StepID string
}

// IndexRef references an absolute flat index.
func IndexRef(i int) StepReference { return StepReference{Kind: RefIndex, Value: i} }

// OffsetRef references a step relative to the current one.
func OffsetRef(n int) StepReference { return StepReference{Kind: RefOffset, Value: n} }

// StepIDRef references a step by identifier.
func StepIDRef(id string) StepReference { return StepReference{Kind: RefStepID, StepID: id} }

func (r StepReference) String() string {
	switch r.Kind {
	case RefOffset:
		return fmt.Sprintf("offset(%+d)", r.Value)
	case RefStepID:
		return fmt.Sprintf("stepID(%s)", r.StepID)
	}
	return fmt.Sprintf("index(%d)", r.Value)
}

// Resolve resolves the reference against exp from the current index.
// The returned index is always within bounds; otherwise the error is a *StepResolutionError.
func (r StepReference) Resolve(exp *Experience, current StepIndex) (StepIndex, error) {
	target := 0
	switch r.Kind {
	case RefIndex:
		target = r.Value
	case RefOffset:
		flat := exp.FlatIndex(current)
		if flat < 0 {
			return StepIndex{}, &StepResolutionError{Ref: r, Reason: ResolutionOutOfRange}
		}
		target = flat + r.Value
	case RefStepID:
		for _, idx := range exp.StepIndices() {
			if step, _ := exp.Step(idx); step.ID == r.StepID {
				return idx, nil
			}
		}
		return StepIndex{}, &StepResolutionError{Ref: r, Reason: ResolutionUnknownID}
	default:
		return StepIndex{}, &StepResolutionError{Ref: r, Reason: ResolutionOutOfRange}
	}

	if target < 0 {
		return StepIndex{}, &StepResolutionError{Ref: r, Reason: ResolutionBeforeStart}
	}
	idx, ok := exp.IndexAt(target)
	if !ok {
		return StepIndex{}, &StepResolutionError{Ref: r, Reason: ResolutionPastEnd}
	}
	return idx, nil
}

// ResolutionFailure explains why a StepReference did not resolve.
type ResolutionFailure string

const (
	ResolutionPastEnd     ResolutionFailure = "past end"
	ResolutionBeforeStart ResolutionFailure = "before start"
	ResolutionUnknownID   ResolutionFailure = "unknown step id"
	ResolutionOutOfRange  ResolutionFailure = "out of range"
)

// StepResolutionError is returned when a step reference cannot be resolved.
type StepResolutionError struct {
	Ref    StepReference
	Reason ResolutionFailure
}

func (e *StepResolutionError) Error() string {
	return fmt.Sprintf("step reference %s: %s", e.Ref, e.Reason)
}

func (e *StepResolutionError) Unwrap() error {
	return ErrStepNotFound
}
