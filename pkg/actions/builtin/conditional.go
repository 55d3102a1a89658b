package builtin

import (
	"context"

	"github.com/aretw0/lantern/pkg/actions"
	"github.com/aretw0/lantern/pkg/clause"
	"github.com/aretw0/lantern/pkg/domain"
)

// Check is one branch of a Conditional. A nil Condition always matches.
type Check struct {
	Condition clause.Clause
	Actions   []domain.Action
}

// Conditional replaces itself with the actions of the first check whose condition holds.
type Conditional struct {
	Checks []Check
}

type conditionalConfig struct {
	Checks []struct {
		Condition map[string]any  `mapstructure:"condition"`
		Actions   []domain.Action `mapstructure:"actions"`
	} `mapstructure:"checks"`
}

// NewConditional builds a Conditional action. A condition that cannot be decoded never matches.
func NewConditional(cfg actions.Configuration) (actions.Action, error) {
	var raw conditionalConfig
	if err := cfg.Decode(&raw); err != nil {
		return nil, err
	}

	a := &Conditional{Checks: make([]Check, 0, len(raw.Checks))}
	for i, check := range raw.Checks {
		c := Check{Actions: check.Actions}
		if check.Condition != nil {
			parsed, err := clause.FromMap(check.Condition)
			if err != nil {
				cfg.Context.Log().Warn("invalid condition", "check", i, "err", err)
				parsed = clause.Unknown{}
			}
			c.Condition = parsed
		}
		a.Checks = append(a.Checks, c)
	}
	return a, nil
}

func (a *Conditional) ActionType() string { return ConditionalType }

// Match returns the first check whose condition holds for state.
func (a *Conditional) Match(state clause.State) (Check, bool) {
	for _, check := range a.Checks {
		if check.Condition == nil || clause.Evaluate(check.Condition, state) {
			return check, true
		}
	}
	return Check{}, false
}

func (a *Conditional) TransformQueue(queue []actions.Action, index int, actx *actions.Context) []actions.Action {
	var expansion []actions.Action
	if check, ok := a.Match(actx.ClauseState()); ok && actx != nil && actx.Builder != nil {
		expansion = actx.Builder.Build(check.Actions, actx)
	}

	out := make([]actions.Action, 0, len(queue)-1+len(expansion))
	out = append(out, queue[:index]...)
	out = append(out, expansion...)
	return append(out, queue[index+1:]...)
}

// Execute does nothing; a conditional only acts through its transform.
func (a *Conditional) Execute(context.Context) error { return nil }
