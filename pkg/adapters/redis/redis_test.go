package redis_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/lantern/pkg/adapters/memory"
	"github.com/aretw0/lantern/pkg/adapters/redis"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.ExperienceLoader   = (*redis.Store)(nil)
	_ ports.Lister             = (*redis.Store)(nil)
	_ ports.AnalyticsPublisher = (*redis.Publisher)(nil)
	_ ports.ExperienceLoader   = (*redis.CachedLoader)(nil)
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func tour() *domain.Experience {
	return &domain.Experience{
		ID:   "tour",
		Name: "Product Tour",
		Groups: []domain.StepGroup{{
			ID:    "g",
			Steps: []domain.Step{{ID: "one", Content: "# Hi"}},
		}},
	}
}

func TestStore_SaveLoadDelete(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, tour()))
	assert.True(t, mr.Exists("test:experience:tour"))

	loaded, err := store.Load(ctx, "tour")
	require.NoError(t, err)
	assert.Equal(t, "Product Tour", loaded.Name)
	assert.Equal(t, 1, loaded.StepCount())

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tour"}, ids)

	require.NoError(t, store.Delete(ctx, "tour"))
	_, err = store.Load(ctx, "tour")
	assert.ErrorIs(t, err, domain.ErrExperienceNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_TTLExpiration(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, tour()))
	_, err := store.Load(ctx, "tour")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "tour")
	assert.ErrorIs(t, err, domain.ErrExperienceNotFound)
}

func TestStore_CorruptPayload(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client)
	require.NoError(t, mr.Set(redis.DefaultPrefix+"experience:bad", "{not json"))

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrExperienceNotFound)
}

func TestPublisher_TrackAndProfile(t *testing.T) {
	_, client := setup(t)
	pub := redis.NewPublisher(client)
	ctx := context.Background()

	require.NoError(t, pub.Track(ctx, domain.NewEvent(domain.EventExperienceStarted, map[string]any{"experienceId": "tour"})))
	require.NoError(t, pub.UpdateProfile(ctx, map[string]any{"plan": "pro", "seats": 3}))
	require.NoError(t, pub.UpdateProfile(ctx, map[string]any{"plan": "team"}))
	require.NoError(t, pub.UpdateProfile(ctx, nil))

	records, err := pub.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, redis.RecordEvent, records[0].Kind)
	assert.Equal(t, domain.EventExperienceStarted, records[0].Event.Name)
	assert.Equal(t, "tour", records[0].Event.Properties["experienceId"])
	assert.Equal(t, redis.RecordProfile, records[1].Kind)

	profile, err := pub.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"plan": "team", "seats": float64(3)}, profile)
}

func TestPublisher_RetriesThenFails(t *testing.T) {
	mr, client := setup(t)
	pub := redis.NewPublisher(client, redis.WithRetry(2, time.Millisecond))
	mr.SetError("ERR injected failure")

	err := pub.Track(context.Background(), domain.NewEvent(domain.EventStepSeen, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")

	mr.SetError("")
	require.NoError(t, pub.Track(context.Background(), domain.NewEvent(domain.EventStepSeen, nil)))
}

// lostReply runs the first successful script call and then reports it as failed.
type lostReply struct {
	dropped atomic.Bool
}

func (h *lostReply) DialHook(next backend.DialHook) backend.DialHook { return next }

func (h *lostReply) ProcessHook(next backend.ProcessHook) backend.ProcessHook {
	return func(ctx context.Context, cmd backend.Cmder) error {
		err := next(ctx, cmd)
		name := cmd.Name()
		if err == nil && (name == "evalsha" || name == "eval") && h.dropped.CompareAndSwap(false, true) {
			return errors.New("connection reset by peer")
		}
		return err
	}
}

func (h *lostReply) ProcessPipelineHook(next backend.ProcessPipelineHook) backend.ProcessPipelineHook {
	return next
}

func TestPublisher_RetryAfterLostReplyDoesNotDuplicate(t *testing.T) {
	_, client := setup(t)
	hook := &lostReply{}
	client.AddHook(hook)
	pub := redis.NewPublisher(client, redis.WithRetry(2, time.Millisecond))
	ctx := context.Background()

	require.NoError(t, pub.Track(ctx, domain.NewEvent(domain.EventStepSeen, nil)))
	require.True(t, hook.dropped.Load())
	require.NoError(t, pub.Track(ctx, domain.NewEvent(domain.EventStepCompleted, nil)))

	records, err := pub.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.EventStepSeen, records[0].Event.Name)
	assert.Equal(t, domain.EventStepCompleted, records[1].Event.Name)
	assert.NotEqual(t, records[0].ID, records[1].ID)
}

func TestCachedLoader_ReadThrough(t *testing.T) {
	mr, client := setup(t)
	origin, err := memory.NewLoader(tour())
	require.NoError(t, err)
	store := redis.NewFromClient(client)
	cached := store.ReadThrough(origin)
	ctx := context.Background()

	exp, err := cached.Load(ctx, "tour")
	require.NoError(t, err)
	assert.Equal(t, "Product Tour", exp.Name)
	assert.True(t, mr.Exists(redis.DefaultPrefix+"experience:tour"), "origin reads are cached")

	// Served from the cache even when origin changes.
	changed := tour()
	changed.Name = "Renamed"
	require.NoError(t, origin.Add(changed))
	exp, err = cached.Load(ctx, "tour")
	require.NoError(t, err)
	assert.Equal(t, "Product Tour", exp.Name)

	require.NoError(t, cached.Invalidate(ctx, "tour"))
	exp, err = cached.Load(ctx, "tour")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", exp.Name)

	_, err = cached.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrExperienceNotFound)

	ids, err := cached.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tour"}, ids)
}

func TestCachedLoader_FallsBackWhenCacheFails(t *testing.T) {
	mr, client := setup(t)
	origin, err := memory.NewLoader(tour())
	require.NoError(t, err)
	cached := redis.NewFromClient(client).ReadThrough(origin)

	mr.SetError("ERR injected failure")
	exp, err := cached.Load(context.Background(), "tour")
	require.NoError(t, err)
	assert.Equal(t, "tour", exp.ID)
}
