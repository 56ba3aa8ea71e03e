package opqueue

import (
	"context"
	"sync"
	"time"

	"archiplane/internal/apperr"
	"archiplane/internal/model"
)

// waiters broadcasts terminal-state notifications for operations so a
// caller that wants a synchronous response (apply with no async flag) can
// block until the operation finishes instead of polling the Store.
type waiters struct {
	mu sync.Mutex
	ch map[model.OperationID]chan struct{}
}

func newWaiters() *waiters {
	return &waiters{ch: map[model.OperationID]chan struct{}{}}
}

func (w *waiters) register(id model.OperationID) chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.ch[id]; ok {
		return c
	}
	c := make(chan struct{})
	w.ch[id] = c
	return c
}

func (w *waiters) signal(id model.OperationID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.ch[id]; ok {
		close(c)
		delete(w.ch, id)
	}
}

// Notifier pairs a Store with its waiter registry so FinishAndNotify wakes
// any goroutine blocked in Wait; RecordChunk and a plain Finish do not.
type Notifier struct {
	*Store
	w *waiters
}

// NewNotifier wraps store with wake-on-finish support.
func NewNotifier(store *Store) *Notifier {
	return &Notifier{Store: store, w: newWaiters()}
}

// FinishAndNotify finishes the operation and wakes any Wait callers.
func (n *Notifier) FinishAndNotify(id model.OperationID, digest *Digest, finishErr *apperr.Error, now time.Time) error {
	if err := n.Store.Finish(id, digest, finishErr, now); err != nil {
		return err
	}
	n.w.signal(id)
	return nil
}

// Wait blocks until the operation reaches a terminal state, ctx is done, or
// the operation doesn't exist (returns immediately in that last case since
// there is nothing to wait for).
func (n *Notifier) Wait(ctx context.Context, id model.OperationID) (*Operation, error) {
	op, ok := n.Get(id)
	if !ok || op.Status.Terminal() {
		return op, ctxCheck(ctx)
	}
	c := n.w.register(id)
	select {
	case <-c:
		op, _ = n.Get(id)
		return op, nil
	case <-ctx.Done():
		return op, ctx.Err()
	}
}

func ctxCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
