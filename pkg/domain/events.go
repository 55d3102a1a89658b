package domain

import (
	"time"
)

// EventName is the name of a lifecycle analytics event.
type EventName string

const (
	EventExperienceStarted   EventName = "experience_started"
	EventStepSeen            EventName = "step_seen"
	EventStepCompleted       EventName = "step_completed"
	EventExperienceCompleted EventName = "experience_completed"
	EventExperienceDismissed EventName = "experience_dismissed"
	EventStepError           EventName = "step_error"
	EventExperienceError     EventName = "experience_error"
	EventStepRecovered       EventName = "step_recovered"
	EventExperienceRecovered EventName = "experience_recovered"
	EventFormSubmitted       EventName = "form_submitted"
)

// Standard event property keys.
const (
	PropExperienceID         = "experienceId"
	PropExperienceName       = "experienceName"
	PropExperienceInstanceID = "experienceInstanceId"
	PropExperienceType       = "experienceType"
	PropVersion              = "version"
	PropTrigger              = "trigger"
	PropStepID               = "stepId"
	PropStepIndex            = "stepIndex"
	PropMessage              = "message"
	PropInteractionData      = "interactionData"
)

// Event is a structured analytics record.
type Event struct {
	Name       EventName      `json:"name"`
	Timestamp  time.Time      `json:"timestamp"`
	Properties map[string]any `json:"properties,omitempty"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(name EventName, props map[string]any) Event {
	if props == nil {
		props = make(map[string]any)
	}
	return Event{
		Name:       name,
		Timestamp:  time.Now().UTC(),
		Properties: props,
	}
}
