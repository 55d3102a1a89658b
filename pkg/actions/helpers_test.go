package actions_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/aretw0/lantern/pkg/actions"
)

// recorder collects the names of executed actions in completion order.
type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

type recordAction struct {
	name    string
	rec     *recorder
	started chan struct{}
	release chan struct{}
	err     error
	panics  bool
}

func (a *recordAction) ActionType() string { return "test/" + a.name }

func (a *recordAction) Execute(ctx context.Context) error {
	if a.started != nil {
		close(a.started)
	}
	if a.release != nil {
		<-a.release
	}
	a.rec.add(a.name)
	if a.panics {
		panic("boom")
	}
	return a.err
}

func named(rec *recorder, names ...string) []actions.Action {
	out := make([]actions.Action, 0, len(names))
	for _, n := range names {
		out = append(out, &recordAction{name: n, rec: rec})
	}
	return out
}

// gate drops every action behind it unless open is set.
type gate struct {
	recordAction
	open bool
}

func (g *gate) TransformQueue(queue []actions.Action, index int, actx *actions.Context) []actions.Action {
	if g.open {
		return queue
	}
	return queue[:index+1]
}

var errAction = errors.New("action failed")

// ping has a value receiver, so equal pings are indistinguishable.
type ping struct {
	name string
	rec  *recorder
}

func (p ping) Execute(context.Context) error {
	p.rec.add(p.name)
	return nil
}

// blank is zero-sized; every *blank may share one address.
type blank struct{}

var blankRuns atomic.Int32

func (*blank) Execute(context.Context) error {
	blankRuns.Add(1)
	return nil
}

// splice replaces itself with expansion.
type splice struct {
	expansion []actions.Action
}

func (*splice) Execute(context.Context) error { return nil }

func (s *splice) TransformQueue(queue []actions.Action, index int, _ *actions.Context) []actions.Action {
	out := append([]actions.Action{}, queue[:index]...)
	out = append(out, s.expansion...)
	return append(out, queue[index+1:]...)
}
