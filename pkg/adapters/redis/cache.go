package redis

import (
	"context"
	"errors"

	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/ports"
)

// CachedLoader serves experiences from the store and falls back to origin on a miss,
// caching what origin returns. Cache failures degrade to origin reads.
type CachedLoader struct {
	store  *Store
	origin ports.ExperienceLoader
}

// ReadThrough wraps origin with the store as its cache.
func (s *Store) ReadThrough(origin ports.ExperienceLoader) *CachedLoader {
	return &CachedLoader{store: s, origin: origin}
}

// Load implements ports.ExperienceLoader.
func (c *CachedLoader) Load(ctx context.Context, id string) (*domain.Experience, error) {
	exp, err := c.store.Load(ctx, id)
	if err == nil {
		return exp, nil
	}
	if !errors.Is(err, domain.ErrExperienceNotFound) {
		c.store.opts.logger.Warn("experience cache unavailable", "experience_id", id, "err", err)
	}

	exp, err = c.origin.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, exp); err != nil {
		c.store.opts.logger.Warn("failed to cache experience", "experience_id", id, "err", err)
	}
	return exp, nil
}

// List delegates to origin when it can enumerate, otherwise to the cache.
func (c *CachedLoader) List(ctx context.Context) ([]string, error) {
	if l, ok := c.origin.(ports.Lister); ok {
		return l.List(ctx)
	}
	return c.store.List(ctx)
}

// Invalidate drops id from the cache so the next Load reads origin.
func (c *CachedLoader) Invalidate(ctx context.Context, id string) error {
	return c.store.Delete(ctx, id)
}
