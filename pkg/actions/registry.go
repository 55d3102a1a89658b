package actions

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/lantern/internal/logging"
	"github.com/aretw0/lantern/pkg/domain"
)

// Registry maps action type tags to plugin factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		factories: make(map[string]Factory),
		logger:    logger,
	}
}

// Register adds a factory for actionType.
// Only the first registration of a type wins; later attempts are logged and return false.
func (r *Registry) Register(actionType string, f Factory) bool {
	if actionType == "" || f == nil {
		r.logger.Warn("rejected invalid action registration", "action_type", actionType)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[actionType]; exists {
		r.logger.Warn("action type already registered", "action_type", actionType)
		return false
	}
	r.factories[actionType] = f
	return true
}

// Types lists the registered type tags.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build constructs instances for decls in order.
// Actions whose type is unknown or whose configuration is rejected are dropped.
func (r *Registry) Build(decls []domain.Action, actx *Context) []Action {
	if actx != nil && actx.Builder == nil {
		actx.Builder = r
	}

	out := make([]Action, 0, len(decls))
	for _, decl := range decls {
		action, err := r.build(decl, actx)
		if err != nil {
			r.logger.Warn("dropping action", "action_type", decl.Type, "err", err)
			continue
		}
		out = append(out, action)
	}
	return out
}

func (r *Registry) build(decl domain.Action, actx *Context) (Action, error) {
	r.mu.RLock()
	factory, ok := r.factories[decl.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownActionType, decl.Type)
	}

	action, err := factory(Configuration{
		Type:    decl.Type,
		Trigger: decl.Trigger,
		Config:  decl.Config,
		Context: actx,
	})
	if err != nil {
		return nil, err
	}
	if action == nil {
		return nil, errors.New("factory returned no action")
	}
	return action, nil
}
