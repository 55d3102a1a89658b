package builtin

import (
	"context"
	"fmt"

	"github.com/aretw0/lantern/pkg/actions"
	"github.com/aretw0/lantern/pkg/domain"
)

// FormProfilePrefix prefixes profile attributes written from form answers.
const FormProfilePrefix = "_lanternForm_"

// SubmitForm stops the rest of the pipeline when the form is invalid, and otherwise
// records the answers.
type SubmitForm struct {
	SkipValidation bool `mapstructure:"skipValidation"`

	actx *actions.Context
}

// NewSubmitForm builds a SubmitForm action.
func NewSubmitForm(cfg actions.Configuration) (actions.Action, error) {
	a := &SubmitForm{actx: cfg.Context}
	if err := cfg.Decode(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *SubmitForm) ActionType() string { return SubmitFormType }

func (a *SubmitForm) TransformQueue(queue []actions.Action, index int, actx *actions.Context) []actions.Action {
	if a.SkipValidation || formValid(actx) {
		return queue
	}
	actx.Log().Debug("form invalid, dropping remaining actions", "dropped", len(queue)-index-1)
	return queue[:index+1]
}

func (a *SubmitForm) Execute(ctx context.Context) error {
	if a.actx == nil || a.actx.Experience == nil || a.actx.Experience.Form == nil {
		return nil
	}
	if !a.SkipValidation && !formValid(a.actx) {
		return nil
	}
	publisher := services(a.actx).Analytics
	if publisher == nil {
		return fmt.Errorf("submit-form: analytics: %w", errMissingService)
	}

	responses := a.actx.Experience.Form.Responses()
	profile := make(map[string]any, len(responses))
	for _, r := range responses {
		key := r.Label
		if key == "" {
			key = r.BlockID
		}
		profile[FormProfilePrefix+key] = r.Value
	}
	if len(profile) > 0 {
		if err := publisher.UpdateProfile(ctx, profile); err != nil {
			return fmt.Errorf("submit-form: update profile: %w", err)
		}
	}

	props := experienceProperties(a.actx)
	props[domain.PropInteractionData] = map[string]any{"formResponse": responses}
	return publisher.Track(ctx, domain.NewEvent(domain.EventFormSubmitted, props))
}

func formValid(actx *actions.Context) bool {
	if actx == nil || actx.Experience == nil || actx.Experience.Form == nil {
		return true
	}
	return actx.Experience.Form.IsValid()
}
