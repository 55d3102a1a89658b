package actions_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/lantern/internal/logging"
	"github.com/aretw0/lantern/pkg/actions"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greet struct {
	Name string `mapstructure:"name"`
	rec  *recorder
}

func (g *greet) ActionType() string { return "test/greet" }

func (g *greet) Execute(context.Context) error {
	g.rec.add(g.Name)
	return nil
}

func greetFactory(rec *recorder, prefix string) actions.Factory {
	return func(cfg actions.Configuration) (actions.Action, error) {
		g := &greet{rec: rec}
		if err := cfg.Decode(g); err != nil {
			return nil, err
		}
		if g.Name == "" {
			return nil, errors.New("name is required")
		}
		g.Name = prefix + g.Name
		return g, nil
	}
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	var logs bytes.Buffer
	rec := &recorder{}
	reg := actions.NewRegistry(logging.NewWithWriter(&logs, slog.LevelDebug))

	assert.True(t, reg.Register("test/greet", greetFactory(rec, "first:")))
	assert.False(t, reg.Register("test/greet", greetFactory(rec, "second:")))
	assert.Contains(t, logs.String(), "action type already registered")
	assert.Equal(t, []string{"test/greet"}, reg.Types())

	q := actions.NewQueue(reg)
	done := q.Enqueue(context.Background(), []domain.Action{
		{Trigger: domain.TriggerTap, Type: "test/greet", Config: map[string]any{"name": "ada"}},
	}, &actions.Context{})
	<-done

	assert.Equal(t, []string{"first:ada"}, rec.Names())
}

func TestRegistry_RejectsInvalidRegistration(t *testing.T) {
	reg := actions.NewRegistry(nil)
	assert.False(t, reg.Register("", greetFactory(&recorder{}, "")))
	assert.False(t, reg.Register("test/nil", nil))
	assert.Empty(t, reg.Types())
}

func TestRegistry_BuildDropsFailures(t *testing.T) {
	rec := &recorder{}
	reg := actions.NewRegistry(nil)
	require.True(t, reg.Register("test/greet", greetFactory(rec, "")))
	require.True(t, reg.Register("test/nothing", func(actions.Configuration) (actions.Action, error) {
		return nil, nil
	}))

	actx := &actions.Context{}
	built := reg.Build([]domain.Action{
		{Trigger: domain.TriggerTap, Type: "test/greet", Config: map[string]any{"name": "a"}},
		{Trigger: domain.TriggerTap, Type: "test/unknown"},
		{Trigger: domain.TriggerTap, Type: "test/greet"},
		{Trigger: domain.TriggerTap, Type: "test/greet", Config: map[string]any{"name": map[string]any{"nested": true}}},
		{Trigger: domain.TriggerTap, Type: "test/nothing"},
		{Trigger: domain.TriggerTap, Type: "test/greet", Config: map[string]any{"name": "b"}},
	}, actx)

	require.Len(t, built, 2)
	assert.Equal(t, "a", built[0].(*greet).Name)
	assert.Equal(t, "b", built[1].(*greet).Name)
	assert.Same(t, reg, actx.Builder, "build installs itself as the nested builder")
}

func TestConfiguration_DecodeWeaklyTyped(t *testing.T) {
	var out struct {
		Count int  `mapstructure:"count"`
		Flag  bool `mapstructure:"flag"`
	}
	cfg := actions.Configuration{Type: "test", Config: map[string]any{"count": "3", "flag": "true"}}
	require.NoError(t, cfg.Decode(&out))
	assert.Equal(t, 3, out.Count)
	assert.True(t, out.Flag)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, "test/x", actions.TypeOf(&recordAction{name: "x"}))
	assert.Equal(t, "*actions_test.greetless", actions.TypeOf(&greetless{}))
}

type greetless struct{}

func (greetless) Execute(context.Context) error { return nil }
