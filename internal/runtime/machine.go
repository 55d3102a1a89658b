package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/lantern/internal/logging"
	"github.com/aretw0/lantern/pkg/actions"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/lifecycle"
	"github.com/aretw0/lantern/pkg/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the machine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithQueue sets the action pipeline used for navigate actions and triggers.
func WithQueue(q *actions.Queue) Option {
	return func(m *Machine) {
		m.queue = q
	}
}

// WithContentLoader sets the loader asked to chain next content on completion.
func WithContentLoader(loader ports.ContentLoader) Option {
	return func(m *Machine) {
		m.content = loader
	}
}

// WithServices sets the collaborators handed to actions. The navigator is always the machine.
func WithServices(s actions.Services) Option {
	return func(m *Machine) {
		m.services = s
	}
}

// WithTokens sets the runtime tokens visible to token clauses.
func WithTokens(tokens map[string]string) Option {
	return func(m *Machine) {
		m.tokens = tokens
	}
}

// WithTracer overrides the tracer used for transition spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Machine) {
		m.tracer = tracer
	}
}

type observerEntry struct {
	id int
	fn lifecycle.Observer
}

type pendingCommand struct {
	ctx context.Context
	run func(context.Context) error
}

// Machine is the experience lifecycle state machine for one presentation context.
//
// Commands are serialized: a transition, including the navigate actions it waits for,
// completes before the next command is processed. Commands issued by actions running in
// the pipeline while a transition is in progress are deferred and applied, in order, by
// the goroutine holding the machine once its transition completes.
//
// Observers are called synchronously while the machine is held and must not issue
// commands themselves except from another goroutine.
type Machine struct {
	builder  ports.PresentationBuilder
	queue    *actions.Queue
	content  ports.ContentLoader
	services actions.Services
	tokens   map[string]string
	logger   *slog.Logger
	tracer   trace.Tracer

	mu sync.Mutex // held for the duration of a command

	stateMu   sync.RWMutex
	state     lifecycle.State
	observers []observerEntry
	nextObsID int

	pendingMu sync.Mutex
	pending   []pendingCommand
	after     []func()

	// Fields below are only touched with mu held.
	presented ports.PresentationPackage
	reported  error
}

// NewMachine creates an idle machine presenting through builder.
func NewMachine(builder ports.PresentationBuilder, opts ...Option) *Machine {
	m := &Machine{
		builder: builder,
		state:   lifecycle.Idling{},
		logger:  logging.NewNop(),
		tracer:  otel.Tracer("github.com/aretw0/lantern/internal/runtime"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.queue == nil {
		m.queue = actions.NewQueue(actions.NewRegistry(m.logger), actions.WithLogger(m.logger))
	}
	m.services.Navigator = m
	if m.services.Content == nil {
		m.services.Content = m.content
	}
	return m
}

// State returns the current state.
func (m *Machine) State() lifecycle.State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// Queue returns the action pipeline the machine enqueues on.
func (m *Machine) Queue() *actions.Queue {
	return m.queue
}

// AddObserver registers fn and returns a function that removes it.
func (m *Machine) AddObserver(fn lifecycle.Observer) (remove func()) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.nextObsID++
	id := m.nextObsID
	m.observers = append(m.observers, observerEntry{id: id, fn: fn})
	return func() {
		m.stateMu.Lock()
		defer m.stateMu.Unlock()
		for i, o := range m.observers {
			if o.id == id {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

// RemoveAllObservers detaches every observer.
func (m *Machine) RemoveAllObservers() {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.observers = nil
}

// ObserverCount returns the number of attached observers.
func (m *Machine) ObserverCount() int {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return len(m.observers)
}

// Transition applies a command. It returns a *lifecycle.NoTransitionError or
// lifecycle.ErrExperienceAlreadyActive when the command is not valid in the current state,
// and the *domain.ExperienceError of any failure reported while applying it.
// A command deferred because it was issued from the action pipeline returns nil.
func (m *Machine) Transition(ctx context.Context, action lifecycle.Action) error {
	return m.exec(ctx, func(ctx context.Context) error {
		return m.transition(ctx, action)
	})
}

// StartStep moves to another step. It implements actions.Navigator.
func (m *Machine) StartStep(ctx context.Context, ref domain.StepReference) error {
	return m.Transition(ctx, lifecycle.StartStep{Ref: ref})
}

// EndExperience ends the active experience. It implements actions.Navigator.
func (m *Machine) EndExperience(ctx context.Context, markComplete bool) error {
	return m.Transition(ctx, lifecycle.EndExperience{MarkComplete: markComplete})
}

// Enqueue builds the actions of the current step keyed to trigger and appends them to the pipeline.
// The returned channel is closed once they have all run or been discarded.
func (m *Machine) Enqueue(ctx context.Context, trigger string, decls []domain.Action) <-chan struct{} {
	st := m.State()
	exp := lifecycle.ExperienceOf(st)
	idx, _ := lifecycle.StepIndexOf(st)

	var matching []domain.Action
	for _, d := range decls {
		if d.Trigger == trigger {
			matching = append(matching, d)
		}
	}
	return m.queue.Enqueue(ctx, matching, m.actionContext(exp, idx, trigger))
}

func (m *Machine) actionContext(exp *domain.ExperienceData, idx domain.StepIndex, trigger string) *actions.Context {
	logger := m.logger
	if exp != nil {
		logger = logger.With("experience_id", exp.ID, "instance_id", exp.InstanceID, "step", idx.String())
	}
	return &actions.Context{
		Experience: exp,
		StepIndex:  idx,
		Trigger:    trigger,
		Tokens:     m.tokens,
		Services:   m.services,
		Logger:     logger,
	}
}

// exec runs fn with the machine held.
func (m *Machine) exec(ctx context.Context, fn func(context.Context) error) error {
	if actions.InPipeline(ctx) {
		if !m.mu.TryLock() {
			m.pendingMu.Lock()
			m.pending = append(m.pending, pendingCommand{ctx: ctx, run: fn})
			m.pendingMu.Unlock()
			m.logger.Debug("deferred command issued during a transition")
			// The holder may have released the machine before seeing the command.
			if m.mu.TryLock() {
				m.release()
			}
			return nil
		}
	} else {
		m.mu.Lock()
	}

	err := fn(ctx)
	m.release()
	return err
}

// release drains deferred commands, unlocks the machine and runs post-transition hooks.
// Must be called with mu held.
func (m *Machine) release() {
	for {
		for {
			cmd, ok := m.popPending()
			if !ok {
				break
			}
			if err := cmd.run(cmd.ctx); err != nil {
				m.logger.Debug("deferred command failed", "err", err)
			}
		}

		after := m.after
		m.after = nil
		m.mu.Unlock()

		for _, fn := range after {
			fn()
		}

		if !m.hasPending() || !m.mu.TryLock() {
			return
		}
	}
}

func (m *Machine) popPending() (pendingCommand, bool) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	if len(m.pending) == 0 {
		return pendingCommand{}, false
	}
	cmd := m.pending[0]
	m.pending = m.pending[1:]
	return cmd, true
}

func (m *Machine) hasPending() bool {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	return len(m.pending) > 0
}

// transition applies action and every command it chains. Must be called with mu held.
func (m *Machine) transition(ctx context.Context, action lifecycle.Action) error {
	from := m.State()
	ctx, span := m.tracer.Start(ctx, "lifecycle.transition", trace.WithAttributes(
		attribute.String("lifecycle.action", action.Name()),
		attribute.String("lifecycle.from", from.Name()),
	))
	defer span.End()

	m.reported = nil
	next := action
	var err error
	for next != nil {
		next, err = m.apply(ctx, next)
		if err != nil {
			break
		}
	}
	// A reported error fails the command that led to it, not the report itself.
	_, isReport := action.(lifecycle.ReportError)
	switch {
	case isReport && err != nil && err == m.reported:
		err = nil
	case !isReport && err == nil && m.reported != nil:
		err = m.reported
	}
	m.reported = nil

	to := m.State()
	span.SetAttributes(attribute.String("lifecycle.to", to.Name()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// enter moves to st and notifies observers.
func (m *Machine) enter(ctx context.Context, st lifecycle.State) {
	m.stateMu.Lock()
	from := m.state
	m.state = st
	m.stateMu.Unlock()

	m.logger.Debug("transition", "from", from.Name(), "to", lifecycle.Describe(st))
	m.publish(ctx, lifecycle.Result{State: st})
}

func (m *Machine) publish(ctx context.Context, r lifecycle.Result) {
	m.stateMu.RLock()
	observers := make([]lifecycle.Observer, len(m.observers))
	for i, o := range m.observers {
		observers[i] = o.fn
	}
	m.stateMu.RUnlock()

	for _, fn := range observers {
		fn(ctx, r)
	}
}

// reject notifies observers of an invalid command and returns its error.
func (m *Machine) reject(ctx context.Context, err error) error {
	m.logger.Debug("command rejected", "err", err)
	m.publish(ctx, lifecycle.Result{Err: err})
	return err
}

// afterRelease schedules fn to run once the machine has been released.
func (m *Machine) afterRelease(fn func()) {
	m.after = append(m.after, fn)
}
