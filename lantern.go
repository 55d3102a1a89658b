package lantern

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/lantern/internal/logging"
	"github.com/aretw0/lantern/internal/runtime"
	"github.com/aretw0/lantern/pkg/actions"
	"github.com/aretw0/lantern/pkg/actions/builtin"
	"github.com/aretw0/lantern/pkg/analytics"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/lifecycle"
	"github.com/aretw0/lantern/pkg/observability"
	"github.com/aretw0/lantern/pkg/ports"
)

// ModalContext is the render context used by Show and by chained content.
const ModalContext = "modal"

var (
	// ErrUnknownContext is returned for a render context that has no presentation builder.
	ErrUnknownContext = errors.New("unknown render context")

	// ErrNoActiveExperience is returned by operations that need an experience on screen.
	ErrNoActiveExperience = errors.New("no active experience")
)

// Engine is the high-level entry point of the library.
// It owns one state machine per render context, all sharing a single action pipeline.
type Engine struct {
	loader    ports.ExperienceLoader
	builder   ports.PresentationBuilder
	builders  map[string]ports.PresentationBuilder
	publisher ports.AnalyticsPublisher
	links     ports.LinkOpener
	registry  *actions.Registry
	queue     *actions.Queue
	metrics   *observability.Metrics
	analytics *analytics.Observer
	observers []lifecycle.Observer
	tokens    map[string]string
	logger    *slog.Logger

	mu       sync.Mutex
	machines map[string]*runtime.Machine
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader sets the source of experience documents.
func WithLoader(l ports.ExperienceLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithBuilder sets the presentation builder used by every render context without its own.
func WithBuilder(b ports.PresentationBuilder) Option {
	return func(e *Engine) {
		e.builder = b
	}
}

// WithContextBuilder registers the presentation builder of a named render context, such as an embed.
func WithContextBuilder(renderContext string, b ports.PresentationBuilder) Option {
	return func(e *Engine) {
		e.builders[renderContext] = b
	}
}

// WithPublisher sets the analytics destination.
func WithPublisher(p ports.AnalyticsPublisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithLinkOpener sets the opener used by link actions.
func WithLinkOpener(l ports.LinkOpener) Option {
	return func(e *Engine) {
		e.links = l
	}
}

// WithRegistry replaces the action registry. Built-in actions are registered into it
// unless the registry already holds their types.
func WithRegistry(r *actions.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithMetrics records transitions and action executions into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithObserver adds a lifecycle observer attached to every render context.
func WithObserver(fn lifecycle.Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, fn)
	}
}

// WithTokens sets the runtime tokens visible to token clauses.
func WithTokens(tokens map[string]string) Option {
	return func(e *Engine) {
		e.tokens = tokens
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes an Engine. A loader and a presentation builder are required.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		builders: make(map[string]ports.PresentationBuilder),
		machines: make(map[string]*runtime.Machine),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.loader == nil {
		return nil, fmt.Errorf("an experience loader is required")
	}
	if e.builder == nil && len(e.builders) == 0 {
		return nil, fmt.Errorf("a presentation builder is required")
	}

	if e.registry == nil {
		e.registry = actions.NewRegistry(e.logger)
	}
	builtin.RegisterAll(e.registry)

	queueOpts := []actions.QueueOption{actions.WithLogger(e.logger)}
	if e.metrics != nil {
		queueOpts = append(queueOpts, actions.WithHooks(e.metrics.Hooks()))
	}
	e.queue = actions.NewQueue(e.registry, queueOpts...)

	if e.publisher != nil {
		e.analytics = analytics.NewObserver(e.publisher, analytics.WithLogger(e.logger))
	}
	return e, nil
}

// Registry returns the action registry, e.g. to register custom action types.
func (e *Engine) Registry() *actions.Registry {
	return e.registry
}

// Queue returns the shared action pipeline.
func (e *Engine) Queue() *actions.Queue {
	return e.queue
}

// Loader returns the experience loader.
func (e *Engine) Loader() ports.ExperienceLoader {
	return e.loader
}

// Show loads an experience and starts it in the modal context.
func (e *Engine) Show(ctx context.Context, experienceID string) error {
	return e.Start(ctx, ModalContext, experienceID, domain.Trigger{Kind: domain.TriggerShowCall})
}

// Start loads an experience and starts it in renderContext.
func (e *Engine) Start(ctx context.Context, renderContext, experienceID string, trigger domain.Trigger) error {
	exp, err := e.loader.Load(ctx, experienceID)
	if err != nil {
		return err
	}
	if err := exp.Validate(); err != nil {
		return err
	}
	return e.StartExperience(ctx, renderContext, exp, trigger)
}

// StartExperience starts an already loaded experience in renderContext.
func (e *Engine) StartExperience(ctx context.Context, renderContext string, exp *domain.Experience, trigger domain.Trigger) error {
	m, err := e.machine(renderContext)
	if err != nil {
		return err
	}
	e.attach(m)
	e.logger.Debug("starting experience", "render_context", renderContext, "experience_id", exp.ID, "trigger", trigger.String())
	return m.Transition(ctx, lifecycle.StartExperience{Experience: domain.NewExperienceData(exp, trigger)})
}

// StartStep moves the experience of renderContext to another step.
func (e *Engine) StartStep(ctx context.Context, renderContext string, ref domain.StepReference) error {
	m, err := e.existing(renderContext)
	if err != nil {
		return err
	}
	return m.Transition(ctx, lifecycle.StartStep{Ref: ref})
}

// Dismiss ends the experience of renderContext.
func (e *Engine) Dismiss(ctx context.Context, renderContext string, markComplete bool) error {
	m, err := e.existing(renderContext)
	if err != nil {
		return err
	}
	return m.Transition(ctx, lifecycle.EndExperience{MarkComplete: markComplete})
}

// Retry retries the failed operation of renderContext.
func (e *Engine) Retry(ctx context.Context, renderContext string) error {
	m, err := e.existing(renderContext)
	if err != nil {
		return err
	}
	return m.Transition(ctx, lifecycle.Retry{})
}

// Trigger enqueues the current step's actions declared for trigger (e.g. "tap").
// The returned channel is closed once they have all run or been discarded.
func (e *Engine) Trigger(ctx context.Context, renderContext, trigger string) (<-chan struct{}, error) {
	m, err := e.existing(renderContext)
	if err != nil {
		return nil, err
	}
	st, ok := m.State().(lifecycle.RenderingStep)
	if !ok {
		return nil, fmt.Errorf("%w in %s", ErrNoActiveExperience, renderContext)
	}
	step, _ := st.Experience.Step(st.StepIndex)
	return m.Enqueue(ctx, trigger, step.Actions), nil
}

// SetFormValue records a form answer for the experience of renderContext.
func (e *Engine) SetFormValue(renderContext, blockID, value string) error {
	m, err := e.existing(renderContext)
	if err != nil {
		return err
	}
	exp := lifecycle.ExperienceOf(m.State())
	if exp == nil {
		return fmt.Errorf("%w in %s", ErrNoActiveExperience, renderContext)
	}
	exp.Form.Set(blockID, value)
	return nil
}

// State returns the state of renderContext. Contexts never used are idling.
func (e *Engine) State(renderContext string) lifecycle.State {
	e.mu.Lock()
	m, ok := e.machines[renderContext]
	e.mu.Unlock()
	if !ok {
		return lifecycle.Idling{}
	}
	return m.State()
}

// Contexts lists the render contexts used so far, sorted.
func (e *Engine) Contexts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.machines))
	for name := range e.machines {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Load starts chained content in the modal context. It implements ports.ContentLoader.
// Content launched by an action replaces the modal experience on screen.
func (e *Engine) Load(ctx context.Context, contentID string, published bool, trigger domain.Trigger) error {
	if !published {
		e.logger.Debug("loading unpublished content", "content_id", contentID)
	}
	if trigger.Kind == domain.TriggerLaunchExperienceAction {
		switch e.State(ModalContext).(type) {
		case lifecycle.RenderingStep, lifecycle.Failing:
			if err := e.Dismiss(ctx, ModalContext, false); err != nil {
				return err
			}
		}
	}
	return e.Start(ctx, ModalContext, contentID, trigger)
}

// machine returns the machine of renderContext, creating it on first use.
func (e *Engine) machine(renderContext string) (*runtime.Machine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if m, ok := e.machines[renderContext]; ok {
		return m, nil
	}
	builder, ok := e.builders[renderContext]
	if !ok {
		builder = e.builder
	}
	if builder == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContext, renderContext)
	}

	m := runtime.NewMachine(builder,
		runtime.WithLogger(e.logger.With("render_context", renderContext)),
		runtime.WithQueue(e.queue),
		runtime.WithContentLoader(e),
		runtime.WithServices(actions.Services{Analytics: e.publisher, Links: e.links}),
		runtime.WithTokens(e.tokens),
	)
	e.machines[renderContext] = m
	return m, nil
}

func (e *Engine) existing(renderContext string) (*runtime.Machine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.machines[renderContext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContext, renderContext)
	}
	return m, nil
}

// attach installs the engine observers, which a fatal error detaches.
func (e *Engine) attach(m *runtime.Machine) {
	if m.ObserverCount() > 0 {
		return
	}
	if e.analytics != nil {
		m.AddObserver(e.analytics.Observe)
	}
	if e.metrics != nil {
		m.AddObserver(e.metrics.Observe)
	}
	for _, fn := range e.observers {
		m.AddObserver(fn)
	}
}
