package builtin

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/lantern/pkg/actions"
)

// Delay suspends the pipeline for a fixed duration.
type Delay struct {
	// Duration in milliseconds.
	Duration int `mapstructure:"duration"`
}

// NewDelay builds a Delay action.
func NewDelay(cfg actions.Configuration) (actions.Action, error) {
	a := &Delay{}
	if err := cfg.Decode(a); err != nil {
		return nil, err
	}
	if a.Duration < 0 {
		return nil, errors.New("delay: duration must not be negative")
	}
	return a, nil
}

func (a *Delay) ActionType() string { return DelayType }

func (a *Delay) Execute(ctx context.Context) error {
	timer := time.NewTimer(time.Duration(a.Duration) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
