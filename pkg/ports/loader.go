package ports

import (
	"context"

	"github.com/aretw0/lantern/pkg/domain"
)

// ExperienceLoader defines how the engine retrieves experience documents.
// This allows the content source (files, memory, redis) to be decoupled.
type ExperienceLoader interface {
	// Load returns the experience with the given ID, or domain.ErrExperienceNotFound.
	Load(ctx context.Context, id string) (*domain.Experience, error)
}

// Lister is implemented by loaders that can enumerate their experiences.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// ContentLoader chain-loads content when an experience completes with a next content ID.
type ContentLoader interface {
	Load(ctx context.Context, contentID string, published bool, trigger domain.Trigger) error
}

// ContentLoaderFunc adapts a function to ContentLoader.
type ContentLoaderFunc func(ctx context.Context, contentID string, published bool, trigger domain.Trigger) error

// Load calls f.
func (f ContentLoaderFunc) Load(ctx context.Context, contentID string, published bool, trigger domain.Trigger) error {
	return f(ctx, contentID, published, trigger)
}
