package builtin

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/lantern/pkg/actions"
	"github.com/aretw0/lantern/pkg/domain"
)

// Close ends the current experience.
type Close struct {
	MarkComplete bool `mapstructure:"markComplete"`

	actx *actions.Context
}

// NewClose builds a Close action.
func NewClose(cfg actions.Configuration) (actions.Action, error) {
	a := &Close{actx: cfg.Context}
	if err := cfg.Decode(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Close) ActionType() string { return CloseType }

func (a *Close) Execute(ctx context.Context) error {
	nav := services(a.actx).Navigator
	if nav == nil {
		return fmt.Errorf("close: navigator: %w", errMissingService)
	}
	return nav.EndExperience(ctx, a.MarkComplete)
}

// Continue moves to another step. Without configuration it advances by one.
type Continue struct {
	Index  *int   `mapstructure:"index"`
	Offset *int   `mapstructure:"offset"`
	StepID string `mapstructure:"stepID"`

	actx *actions.Context
}

// NewContinue builds a Continue action.
func NewContinue(cfg actions.Configuration) (actions.Action, error) {
	a := &Continue{actx: cfg.Context}
	if err := cfg.Decode(a); err != nil {
		return nil, err
	}
	set := 0
	for _, present := range []bool{a.Index != nil, a.Offset != nil, a.StepID != ""} {
		if present {
			set++
		}
	}
	if set > 1 {
		return nil, errors.New("continue: only one of index, offset or stepID may be set")
	}
	return a, nil
}

func (a *Continue) ActionType() string { return ContinueType }

// Reference returns the step reference the action navigates to.
func (a *Continue) Reference() domain.StepReference {
	switch {
	case a.StepID != "":
		return domain.StepIDRef(a.StepID)
	case a.Index != nil:
		return domain.IndexRef(*a.Index)
	case a.Offset != nil:
		return domain.OffsetRef(*a.Offset)
	}
	return domain.OffsetRef(1)
}

func (a *Continue) Execute(ctx context.Context) error {
	nav := services(a.actx).Navigator
	if nav == nil {
		return fmt.Errorf("continue: navigator: %w", errMissingService)
	}
	return nav.StartStep(ctx, a.Reference())
}

// LaunchExperience shows another experience, replacing the current one.
type LaunchExperience struct {
	ExperienceID string `mapstructure:"experienceID"`

	actx *actions.Context
}

// NewLaunchExperience builds a LaunchExperience action.
func NewLaunchExperience(cfg actions.Configuration) (actions.Action, error) {
	a := &LaunchExperience{actx: cfg.Context}
	if err := cfg.Decode(a); err != nil {
		return nil, err
	}
	if a.ExperienceID == "" {
		return nil, errors.New("launch-experience: experienceID is required")
	}
	return a, nil
}

func (a *LaunchExperience) ActionType() string { return LaunchExperienceType }

func (a *LaunchExperience) Execute(ctx context.Context) error {
	loader := services(a.actx).Content
	if loader == nil {
		return fmt.Errorf("launch-experience: content loader: %w", errMissingService)
	}
	trigger := domain.Trigger{Kind: domain.TriggerLaunchExperienceAction}
	if a.actx != nil && a.actx.Experience != nil {
		trigger.FromExperienceID = a.actx.Experience.ID
	}
	return loader.Load(ctx, a.ExperienceID, true, trigger)
}

// Link opens a URL through the host.
type Link struct {
	URL            string `mapstructure:"url"`
	OpenExternally bool   `mapstructure:"openExternally"`

	actx *actions.Context
}

// NewLink builds a Link action.
func NewLink(cfg actions.Configuration) (actions.Action, error) {
	a := &Link{actx: cfg.Context}
	if err := cfg.Decode(a); err != nil {
		return nil, err
	}
	if a.URL == "" {
		return nil, errors.New("link: url is required")
	}
	return a, nil
}

func (a *Link) ActionType() string { return LinkType }

func (a *Link) Execute(ctx context.Context) error {
	opener := services(a.actx).Links
	if opener == nil {
		return fmt.Errorf("link: opener: %w", errMissingService)
	}
	return opener.Open(ctx, a.URL, a.OpenExternally)
}
