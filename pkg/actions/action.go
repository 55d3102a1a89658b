// Package actions implements the action plugin registry and the ordered, asynchronous
// pipeline that executes experience actions.
package actions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/lantern/internal/logging"
	"github.com/aretw0/lantern/pkg/clause"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/ports"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Action is a plugin instance built from a declarative domain.Action.
// Its side effects are its only output.
type Action interface {
	Execute(ctx context.Context) error
}

// Transformer is implemented by actions that rewrite the pipeline before they execute.
// TransformQueue receives the whole queue and the action's own index and returns the
// replacement queue. It runs with the queue locked and must not call back into the queue.
type Transformer interface {
	TransformQueue(queue []Action, index int, actx *Context) []Action
}

// Typed is implemented by actions that know their registered type tag.
type Typed interface {
	ActionType() string
}

// Factory constructs an action from its configuration. Returning an error drops the action.
type Factory func(cfg Configuration) (Action, error)

// Configuration is handed to a Factory.
type Configuration struct {
	Type    string
	Trigger string
	Config  map[string]any
	Context *Context
}

// Decode decodes the configuration blob into out using mapstructure tags.
// Scalars are weakly typed so that JSON numbers and YAML strings both decode.
func (c Configuration) Decode(out any) error {
	if c.Config == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(c.Config); err != nil {
		return fmt.Errorf("invalid %s configuration: %w", c.Type, err)
	}
	return nil
}

// Navigator is the state machine surface available to actions.
type Navigator interface {
	StartStep(ctx context.Context, ref domain.StepReference) error
	EndExperience(ctx context.Context, markComplete bool) error
}

// Builder constructs action instances from declarative actions.
type Builder interface {
	Build(decls []domain.Action, actx *Context) []Action
}

// Services are the collaborators actions act upon. Any of them may be nil.
type Services struct {
	Navigator Navigator
	Analytics ports.AnalyticsPublisher
	Content   ports.ContentLoader
	Links     ports.LinkOpener
}

// Context is the environment an action was enqueued in.
type Context struct {
	Experience *domain.ExperienceData
	StepIndex  domain.StepIndex
	Trigger    string
	Tokens     map[string]string
	Services   Services
	Builder    Builder
	Logger     *slog.Logger
}

// Owner identifies the experience instance that owns actions enqueued with this context.
func (c *Context) Owner() uuid.UUID {
	if c == nil || c.Experience == nil {
		return uuid.Nil
	}
	return c.Experience.InstanceID
}

// ClauseState snapshots the form answers and tokens for clause evaluation.
func (c *Context) ClauseState() clause.State {
	state := clause.State{
		Forms:  map[string]string{},
		Tokens: map[string]string{},
	}
	if c == nil {
		return state
	}
	if c.Experience != nil && c.Experience.Form != nil {
		state.Forms = c.Experience.Form.Answers()
	}
	for k, v := range c.Tokens {
		state.Tokens[k] = v
	}
	return state
}

// Log returns the context logger, or a no-op logger.
func (c *Context) Log() *slog.Logger {
	if c == nil || c.Logger == nil {
		return logging.NewNop()
	}
	return c.Logger
}

// TypeOf returns the action's type tag, falling back to its Go type.
func TypeOf(a Action) string {
	if t, ok := a.(Typed); ok {
		return t.ActionType()
	}
	return fmt.Sprintf("%T", a)
}

type pipelineKey struct{}

// InPipeline reports whether ctx belongs to an action executing in a pipeline.
func InPipeline(ctx context.Context) bool {
	_, ok := ctx.Value(pipelineKey{}).(*Queue)
	return ok
}

func withPipeline(ctx context.Context, q *Queue) context.Context {
	return context.WithValue(ctx, pipelineKey{}, q)
}
