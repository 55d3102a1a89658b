package actions

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/aretw0/lantern/internal/logging"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ExecutionEvent describes one finished action execution.
type ExecutionEvent struct {
	Type     string
	Owner    uuid.UUID
	Duration time.Duration
	Err      error
}

// Hooks are observability callbacks invoked by the run loop.
type Hooks struct {
	OnExecute func(context.Context, ExecutionEvent)
	OnDiscard func(ctx context.Context, actionType string, owner uuid.UUID)
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithLogger sets the queue logger.
func WithLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks Hooks) QueueOption {
	return func(q *Queue) {
		q.hooks = hooks
	}
}

// WithTracer overrides the tracer used for action spans.
func WithTracer(tracer trace.Tracer) QueueOption {
	return func(q *Queue) {
		q.tracer = tracer
	}
}

type batch struct {
	pending int
	done    chan struct{}
}

// finish must be called with the queue locked.
func (b *batch) finish() {
	b.pending--
	if b.pending == 0 {
		close(b.done)
	}
}

type entry struct {
	action      Action
	actionType  string
	actx        *Context
	batch       *batch
	transformed bool
	started     bool
	finished    bool
}

// Queue is the single ordered pipeline actions execute on.
// At most one run loop drains it; actions never execute concurrently.
type Queue struct {
	registry *Registry
	logger   *slog.Logger
	hooks    Hooks
	tracer   trace.Tracer

	mu      sync.Mutex
	entries []*entry
	cursor  int
	running bool
}

// NewQueue creates a queue building actions with registry.
func NewQueue(registry *Registry, opts ...QueueOption) *Queue {
	q := &Queue{
		registry: registry,
		logger:   logging.NewNop(),
		tracer:   otel.Tracer("github.com/aretw0/lantern/pkg/actions"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Registry returns the registry the queue builds actions with.
func (q *Queue) Registry() *Registry {
	return q.registry
}

// Enqueue builds decls and appends the resulting instances to the tail of the pipeline.
// The returned channel is closed once every action of this batch has run or been discarded.
func (q *Queue) Enqueue(ctx context.Context, decls []domain.Action, actx *Context) <-chan struct{} {
	return q.EnqueueActions(ctx, q.registry.Build(decls, actx), actx)
}

// EnqueueActions appends already built instances to the tail of the pipeline.
// Enqueueing never interrupts an action in flight.
func (q *Queue) EnqueueActions(ctx context.Context, actions []Action, actx *Context) <-chan struct{} {
	b := &batch{done: make(chan struct{})}

	q.mu.Lock()
	for _, a := range actions {
		q.entries = append(q.entries, &entry{
			action:     a,
			actionType: TypeOf(a),
			actx:       actx,
			batch:      b,
		})
		b.pending++
	}
	if b.pending == 0 {
		close(b.done)
	}
	start := !q.running && q.cursor < len(q.entries)
	if start {
		q.running = true
	}
	q.mu.Unlock()

	if start {
		go q.run(context.WithoutCancel(ctx))
	}
	return b.done
}

// Pending returns the number of actions not yet started.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, e := range q.entries[q.cursor:] {
		if !e.started {
			n++
		}
	}
	return n
}

// Discard drops the not-yet-started actions owned by an experience instance.
// An action already executing runs to completion.
func (q *Queue) Discard(ctx context.Context, owner uuid.UUID) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.entries[:q.cursor:q.cursor]
	dropped := 0
	for _, e := range q.entries[q.cursor:] {
		if !e.started && e.actx.Owner() == owner {
			q.finish(e)
			dropped++
			if q.hooks.OnDiscard != nil {
				q.hooks.OnDiscard(ctx, e.actionType, owner)
			}
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	if dropped > 0 {
		q.logger.Debug("discarded queued actions", "instance_id", owner, "count", dropped)
	}
	return dropped
}

func (q *Queue) run(ctx context.Context) {
	ctx = withPipeline(ctx, q)
	for {
		q.mu.Lock()
		if q.cursor >= len(q.entries) {
			q.entries = nil
			q.cursor = 0
			q.running = false
			q.mu.Unlock()
			return
		}

		e := q.entries[q.cursor]
		if t, ok := e.action.(Transformer); ok && !e.transformed {
			e.transformed = true
			q.transform(e, t)
			q.mu.Unlock()
			continue
		}
		e.started = true
		q.mu.Unlock()

		q.execute(ctx, e)

		q.mu.Lock()
		q.finish(e)
		// The entry may have moved if a Discard ran while it executed.
		for i := q.cursor; i < len(q.entries); i++ {
			if q.entries[i] == e {
				q.cursor = i + 1
				break
			}
		}
		q.mu.Unlock()
	}
}

// transform replaces the queue with the transformer's result. Must be called with the queue locked.
// Entries before the cursor already ran and are kept as they are; the transformer's result past
// that prefix is matched in order against the remaining entries, so only new actions get entries.
func (q *Queue) transform(current *entry, t Transformer) {
	snapshot := make([]Action, len(q.entries))
	for i, e := range q.entries {
		snapshot[i] = e.action
	}

	replaced, err := safeTransform(t, snapshot, q.cursor, current.actx)
	if err != nil {
		q.logger.Warn("queue transform failed", "action_type", current.actionType, "err", err)
		return
	}
	if len(replaced) < q.cursor {
		q.logger.Warn("queue transform dropped executed actions", "action_type", current.actionType)
		return
	}

	tail := q.entries[q.cursor:]
	next := make([]*entry, 0, len(replaced))
	next = append(next, q.entries[:q.cursor]...)

	j := 0
	for _, a := range replaced[q.cursor:] {
		if k := matchEntry(tail, j, a); k >= 0 {
			for _, skipped := range tail[j:k] {
				q.finish(skipped)
			}
			next = append(next, tail[k])
			j = k + 1
			continue
		}
		current.batch.pending++
		next = append(next, &entry{
			action:     a,
			actionType: TypeOf(a),
			actx:       current.actx,
			batch:      current.batch,
		})
	}
	for _, e := range tail[j:] {
		q.finish(e)
	}
	q.entries = next
}

// matchEntry returns the index of the first entry at or after from holding a, or -1.
func matchEntry(entries []*entry, from int, a Action) int {
	for k := from; k < len(entries); k++ {
		if sameAction(entries[k].action, a) {
			return k
		}
	}
	return -1
}

// sameAction reports whether b is the instance a. Values of a type that cannot be compared
// match any value of the same type.
func sameAction(a, b Action) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == nil || ta != tb {
		return false
	}
	if !ta.Comparable() {
		return true
	}
	return a == b
}

// finish completes an entry exactly once. Must be called with the queue locked.
func (q *Queue) finish(e *entry) {
	if e.finished {
		return
	}
	e.finished = true
	e.batch.finish()
}

func (q *Queue) execute(ctx context.Context, e *entry) {
	ctx, span := q.tracer.Start(ctx, "action.execute", trace.WithAttributes(
		attribute.String("action.type", e.actionType),
		attribute.String("experience.instance_id", e.actx.Owner().String()),
	))
	defer span.End()

	start := time.Now()
	err := safeExecute(ctx, e.action)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		q.logger.Warn("action failed", "action_type", e.actionType, "err", err)
	} else {
		q.logger.Debug("action executed", "action_type", e.actionType, "duration", duration)
	}

	if q.hooks.OnExecute != nil {
		q.hooks.OnExecute(ctx, ExecutionEvent{
			Type:     e.actionType,
			Owner:    e.actx.Owner(),
			Duration: duration,
			Err:      err,
		})
	}
}

func safeExecute(ctx context.Context, a Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return a.Execute(ctx)
}

func safeTransform(t Transformer, queue []Action, index int, actx *Context) (out []Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	return t.TransformQueue(queue, index, actx), nil
}
