package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/lantern"
	"github.com/aretw0/lantern/internal/logging"
	"github.com/aretw0/lantern/pkg/adapters/memory"
	"github.com/aretw0/lantern/pkg/adapters/redis"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const onboardingYAML = `id: onboarding
name: Onboarding
groups:
  - id: intro
    steps:
      - id: a
        content: "# Hello"
      - id: b
        content: "# Features"
  - id: signup
    steps:
      - id: c
        form:
          - blockId: email
            label: Email
            required: true
        actions:
          - on: tap
            type: "@lantern/submit-form"
          - on: tap
            type: "@lantern/continue"
`

func newTestRuntime(t *testing.T, cfg Config, trace *bytes.Buffer) *Runtime {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "onboarding.yaml"), []byte(onboardingYAML), 0o644))
	cfg.ExperiencesDir = dir

	var opts []lantern.Option
	if trace != nil {
		opts = append(opts, lantern.WithObserver(TraceObserver(trace)))
	}
	rt, err := NewRuntime(cfg, &bytes.Buffer{}, logging.NewNop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestPlay_CompletesExperience(t *testing.T) {
	trace := &bytes.Buffer{}
	rt := newTestRuntime(t, DefaultConfig(), trace)
	ctx := context.Background()

	require.NoError(t, rt.Engine.Show(ctx, "onboarding"))
	require.NoError(t, Play(ctx, rt, ParseScript("next,back,swipe:1,next")))

	st, ok := rt.Engine.State(lantern.ModalContext).(lifecycle.RenderingStep)
	require.True(t, ok)
	assert.Equal(t, domain.StepIndex{Group: 1, Item: 0}, st.StepIndex)

	require.NoError(t, Play(ctx, rt, ParseScript("set:email=ada@example.com,tap")))
	assert.IsType(t, lifecycle.Idling{}, rt.Engine.State(lantern.ModalContext))

	pub := rt.Publisher.(*memory.Publisher)
	assert.Contains(t, pub.EventNames(), domain.EventFormSubmitted)
	assert.Contains(t, pub.EventNames(), domain.EventExperienceCompleted)

	assert.Contains(t, trace.String(), "renderingStep onboarding @1,0")
	assert.Contains(t, trace.String(), "idling")
}

func TestPlay_Errors(t *testing.T) {
	rt := newTestRuntime(t, DefaultConfig(), nil)
	ctx := context.Background()

	err := Play(ctx, rt, []string{"next"})
	assert.ErrorIs(t, err, lantern.ErrUnknownContext)

	require.NoError(t, rt.Engine.Show(ctx, "onboarding"))
	assert.ErrorContains(t, Play(ctx, rt, []string{"jump"}), "unknown command")
	assert.Error(t, Play(ctx, rt, []string{"index:x"}))
	assert.Error(t, Play(ctx, rt, []string{"set:email"}))

	require.NoError(t, Play(ctx, rt, []string{"exit"}))
	assert.IsType(t, lifecycle.Idling{}, rt.Engine.State(lantern.ModalContext))
	assert.ErrorIs(t, Play(ctx, rt, []string{"tap"}), lantern.ErrNoActiveExperience)
}

func TestNewRuntime_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.Redis = RedisConfig{Addr: mr.Addr(), Prefix: "cli:"}
	rt := newTestRuntime(t, cfg, nil)
	ctx := context.Background()

	require.NoError(t, rt.Engine.Show(ctx, "onboarding"))
	require.NoError(t, Play(ctx, rt, []string{"complete"}))

	assert.True(t, mr.Exists("cli:experience:onboarding"), "experiences are cached")

	pub, ok := rt.Publisher.(*redis.Publisher)
	require.True(t, ok)
	records, err := pub.Records(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, domain.EventExperienceStarted, records[0].Event.Name)

	families, err := rt.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "lantern_transitions_total")
}
