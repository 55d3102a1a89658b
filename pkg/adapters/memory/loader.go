package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/lantern/pkg/domain"
)

// Loader implements ports.ExperienceLoader using an in-memory map.
// Safe for concurrent use.
type Loader struct {
	mu          sync.RWMutex
	experiences map[string]*domain.Experience
}

// NewLoader creates a loader holding the given experiences.
func NewLoader(experiences ...*domain.Experience) (*Loader, error) {
	l := &Loader{experiences: make(map[string]*domain.Experience)}
	for _, exp := range experiences {
		if err := l.Add(exp); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add stores an experience, replacing any experience with the same ID.
func (l *Loader) Add(exp *domain.Experience) error {
	if exp == nil || exp.ID == "" {
		return fmt.Errorf("experience missing ID")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.experiences[exp.ID] = exp
	return nil
}

// Load returns the experience with the given ID.
func (l *Loader) Load(ctx context.Context, id string) (*domain.Experience, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	exp, ok := l.experiences[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrExperienceNotFound, id)
	}
	return exp, nil
}

// List returns all experience IDs in sorted order.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.experiences))
	for k := range l.experiences {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
