// Package modelactor serializes every read and write against the graph
// onto a single goroutine, the same way a desktop modeling tool confines
// all mutation to its UI thread. Every other package reaches the model
// exclusively through Do/DoRead; nothing else is allowed to hold a
// *model.Model across a yield point.
package modelactor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"archiplane/internal/model"
)

// job is a unit of work dispatched onto the actor goroutine. Exactly one
// of mutate/read is set.
type job struct {
	mutate func(*model.Model) error
	read   func(*model.Model) (any, error)
	result chan jobResult
}

type jobResult struct {
	value any
	err   error
}

// Actor owns the single *model.Model instance and runs its dispatch loop
// on a dedicated goroutine.
type Actor struct {
	m      *model.Model
	jobs   chan job
	stopCh chan struct{}
	logger *zap.Logger
}

// New starts a new Actor wrapping the given model and begins its dispatch
// loop. The queue depth bounds how many callers can be waiting on the
// actor at once before Do/DoRead block; it plays the same role as the
// batcher's pending-request map in the teacher's loader package, but here
// every request is served strictly in submission order rather than
// coalesced.
func New(m *model.Model, queueDepth int, logger *zap.Logger) *Actor {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	a := &Actor{
		m:      m,
		jobs:   make(chan job, queueDepth),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	go a.run()
	return a
}

func (a *Actor) run() {
	for {
		select {
		case j := <-a.jobs:
			a.execute(j)
		case <-a.stopCh:
			return
		}
	}
}

func (a *Actor) execute(j job) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("model actor job panicked", zap.Any("panic", r))
			j.result <- jobResult{err: fmt.Errorf("model actor job panicked: %v", r)}
		}
	}()
	if j.mutate != nil {
		err := j.mutate(a.m)
		j.result <- jobResult{err: err}
		return
	}
	v, err := j.read(a.m)
	j.result <- jobResult{value: v, err: err}
}

// Do runs fn against the live model on the actor goroutine and waits for
// it to finish. fn may mutate the model; it must not retain the *model.Model
// pointer past its own return.
func (a *Actor) Do(ctx context.Context, fn func(*model.Model) error) error {
	j := job{mutate: fn, result: make(chan jobResult, 1)}
	select {
	case a.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-a.stopCh:
		return fmt.Errorf("model actor stopped")
	}
	select {
	case res := <-j.result:
		return res.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DoRead runs fn against the live model on the actor goroutine and returns
// its result. Prefer Snapshot for anything that escapes the actor's
// lifetime (e.g. handed to a render goroutine); DoRead is for queries whose
// result is consumed before returning.
func (a *Actor) DoRead(ctx context.Context, fn func(*model.Model) (any, error)) (any, error) {
	j := job{read: fn, result: make(chan jobResult, 1)}
	select {
	case a.jobs <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-a.stopCh:
		return nil, fmt.Errorf("model actor stopped")
	}
	select {
	case res := <-j.result:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot returns a deep, read-consistent copy of the model taken on the
// actor goroutine (spec.md §5: "Reads are served from a point-in-time
// snapshot taken on the UI thread").
func (a *Actor) Snapshot(ctx context.Context) (*model.Model, error) {
	v, err := a.DoRead(ctx, func(m *model.Model) (any, error) {
		return m.Snapshot(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Model), nil
}

// Stop terminates the dispatch loop. Any jobs already queued are dropped;
// callers waiting on them will see ctx.Done() if they pass a cancelable
// context, or block forever otherwise, so Stop should only be called
// during process shutdown after in-flight requests have drained.
func (a *Actor) Stop() { close(a.stopCh) }
