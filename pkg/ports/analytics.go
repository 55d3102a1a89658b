package ports

import (
	"context"

	"github.com/aretw0/lantern/pkg/domain"
)

// AnalyticsPublisher delivers analytics to the host's backend.
type AnalyticsPublisher interface {
	// Track records an event.
	Track(ctx context.Context, event domain.Event) error
	// UpdateProfile merges properties into the current user's profile.
	UpdateProfile(ctx context.Context, properties map[string]any) error
}

// LinkOpener opens URLs on behalf of link actions.
type LinkOpener interface {
	Open(ctx context.Context, url string, external bool) error
}
