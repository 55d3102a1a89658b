package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/aretw0/lantern/pkg/domain"
)

// Publisher implements ports.AnalyticsPublisher by recording everything in memory.
// Safe for concurrent use.
type Publisher struct {
	mu      sync.RWMutex
	events  []domain.Event
	profile map[string]any
}

// NewPublisher creates an empty publisher.
func NewPublisher() *Publisher {
	return &Publisher{profile: make(map[string]any)}
}

// Track records an event.
func (p *Publisher) Track(ctx context.Context, event domain.Event) error {
	event.Properties = maps.Clone(event.Properties)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// UpdateProfile merges properties into the recorded profile.
func (p *Publisher) UpdateProfile(ctx context.Context, properties map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	maps.Copy(p.profile, properties)
	return nil
}

// Events returns a copy of the recorded events in publication order.
func (p *Publisher) Events() []domain.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Event, len(p.events))
	copy(out, p.events)
	return out
}

// EventNames returns the names of the recorded events in publication order.
func (p *Publisher) EventNames() []domain.EventName {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.EventName, len(p.events))
	for i, e := range p.events {
		out[i] = e.Name
	}
	return out
}

// Profile returns a copy of the merged profile.
func (p *Publisher) Profile() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.profile)
}

// Reset forgets everything recorded so far.
func (p *Publisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
	p.profile = make(map[string]any)
}
