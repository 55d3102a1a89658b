package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/lantern/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.ExperienceLoader over Redis. It caches experience documents
// as JSON under <prefix>experience:<id> and indexes them in a sorted set scored by expiry.
type Store struct {
	client *backend.Client
	opts   options
}

// New creates a store connected to the given server.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{client: client, opts: o}
}

// Client returns the underlying client, e.g. to share it with a Publisher.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(id string) string {
	return s.opts.prefix + "experience:" + id
}

func (s *Store) indexKey() string {
	return s.opts.prefix + "experiences"
}

// Save caches exp, replacing any previous version.
func (s *Store) Save(ctx context.Context, exp *domain.Experience) error {
	if exp == nil || exp.ID == "" {
		return fmt.Errorf("experience missing ID")
	}
	data, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("failed to marshal experience: %w", err)
	}

	score := float64(time.Now().Add(s.opts.ttl).Unix())
	if s.opts.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(exp.ID), data, s.opts.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: exp.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load returns the cached experience, or domain.ErrExperienceNotFound when absent or expired.
func (s *Store) Load(ctx context.Context, id string) (*domain.Experience, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrExperienceNotFound, id)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var exp domain.Experience
	if err := json.Unmarshal(val, &exp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal experience: %w", err)
	}
	return &exp, nil
}

// Delete removes a cached experience.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the IDs of cached experiences, pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired experiences: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list experiences: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
