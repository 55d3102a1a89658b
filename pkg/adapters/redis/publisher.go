package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/lantern/pkg/domain"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// Record kinds stored in the analytics list.
const (
	RecordEvent   = "event"
	RecordProfile = "profile"
)

// dedupeWindow is how long a delivered record ID is remembered.
const dedupeWindow = 24 * time.Hour

// pushOnce appends ARGV[1] to KEYS[1] unless the marker KEYS[2] already exists.
var pushOnce = backend.NewScript(`
if redis.call('SET', KEYS[2], '1', 'NX', 'EX', ARGV[2]) then
	return redis.call('RPUSH', KEYS[1], ARGV[1])
end
return 0
`)

// Record is one entry of the analytics list.
type Record struct {
	ID    string        `json:"id"`
	Kind  string        `json:"kind"`
	Event *domain.Event `json:"event,omitempty"`
	// Profile holds the properties of a profile update.
	Profile map[string]any `json:"profile,omitempty"`
}

// Publisher implements ports.AnalyticsPublisher by appending JSON records to
// <prefix>analytics and merging profile updates into the <prefix>profile hash.
// Failed writes are retried with exponential backoff. Each record carries an ID that is
// appended at most once, so a retry after a lost reply does not duplicate it.
type Publisher struct {
	client *backend.Client
	opts   options
}

// NewPublisher creates a publisher writing through client.
func NewPublisher(client *backend.Client, opts ...Option) *Publisher {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Publisher{client: client, opts: o}
}

// ListKey is the key of the analytics list.
func (p *Publisher) ListKey() string {
	return p.opts.prefix + "analytics"
}

// ProfileKey is the key of the profile hash.
func (p *Publisher) ProfileKey() string {
	return p.opts.prefix + "profile"
}

// Track appends an event record.
func (p *Publisher) Track(ctx context.Context, event domain.Event) error {
	id := uuid.NewString()
	data, err := json.Marshal(Record{ID: id, Kind: RecordEvent, Event: &event})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.retry(ctx, "track", func() error {
		return pushOnce.Run(ctx, p.client, p.pushKeys(id), data, int(dedupeWindow.Seconds())).Err()
	})
}

// UpdateProfile merges properties into the profile hash and appends a profile record.
func (p *Publisher) UpdateProfile(ctx context.Context, properties map[string]any) error {
	if len(properties) == 0 {
		return nil
	}
	id := uuid.NewString()
	record, err := json.Marshal(Record{ID: id, Kind: RecordProfile, Profile: properties})
	if err != nil {
		return fmt.Errorf("failed to marshal profile update: %w", err)
	}
	fields := make(map[string]any, len(properties))
	for k, v := range properties {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal profile property %q: %w", k, err)
		}
		fields[k] = string(encoded)
	}

	return p.retry(ctx, "update_profile", func() error {
		pipe := p.client.TxPipeline()
		pipe.HSet(ctx, p.ProfileKey(), fields)
		pushOnce.Eval(ctx, pipe, p.pushKeys(id), record, int(dedupeWindow.Seconds()))
		_, err := pipe.Exec(ctx)
		return err
	})
}

func (p *Publisher) pushKeys(id string) []string {
	return []string{p.ListKey(), p.ListKey() + ":sent:" + id}
}

// Records reads back the analytics list.
func (p *Publisher) Records(ctx context.Context) ([]Record, error) {
	raw, err := p.client.LRange(ctx, p.ListKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read analytics: %w", err)
	}
	out := make([]Record, 0, len(raw))
	for _, r := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analytics record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Profile reads back the merged profile.
func (p *Publisher) Profile(ctx context.Context) (map[string]any, error) {
	raw, err := p.client.HGetAll(ctx, p.ProfileKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profile property %q: %w", k, err)
		}
		out[k] = decoded
	}
	return out, nil
}

func (p *Publisher) retry(ctx context.Context, op string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.opts.initialDelay
	b := backoff.WithContext(backoff.WithMaxRetries(policy, p.opts.maxRetries), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn()
		if err != nil {
			p.opts.logger.Debug("redis publish attempt failed", "op", op, "attempt", attempt, "err", err)
		}
		return err
	}, b)
	if err != nil {
		return fmt.Errorf("failed to %s after %d attempts: %w", op, attempt, err)
	}
	return nil
}
