// Package undo maintains an append-only log of undoable compound commands
// applied to the model. Each compound captures, for every primitive
// mutation it performs, a forward closure and its inverse; undo replays
// inverses in reverse order and redo replays forwards in original order —
// the same compensate-in-reverse-order discipline the teacher's saga
// package uses to unwind a failed multi-step operation, applied here to
// user-triggered undo rather than failure recovery.
package undo

import (
	"context"
	"fmt"
	"sync"

	"archiplane/internal/model"
)

// Step mutates m; used for both the forward and inverse half of a capture.
type Step func(m *model.Model) error

type step struct {
	forward Step
	inverse Step
}

// Compound is one entry in the undo log: a named, atomic group of
// primitive mutations (e.g. one BOM chunk) along with the inverses needed
// to unwind it completely.
type Compound struct {
	Label string
	steps []step
}

// Capture appends one primitive mutation's forward and inverse closures.
// forward has already run by the time Capture is called; it is retained
// only so Redo can replay it later.
func (c *Compound) Capture(forward, inverse Step) {
	c.steps = append(c.steps, step{forward: forward, inverse: inverse})
}

// Len reports how many primitive steps the compound holds.
func (c *Compound) Len() int { return len(c.steps) }

// Unwind replays every captured inverse in reverse order against m without
// touching the log — used by the Apply Engine to roll back a chunk that
// failed partway through and was never committed.
func (c *Compound) Unwind(m *model.Model) error {
	for i := len(c.steps) - 1; i >= 0; i-- {
		if err := c.steps[i].inverse(m); err != nil {
			return fmt.Errorf("unwind %q: step %d: %w", c.Label, i, err)
		}
	}
	return nil
}

// Log is an append-only sequence of compounds with an undo/redo cursor,
// analogous to the teacher's saga completedSteps list but retained after
// the saga finishes so the user can step back through it.
type Log struct {
	mu        sync.Mutex
	compounds []*Compound
	cursor    int // index one past the last applied compound
}

// NewLog returns an empty undo log.
func NewLog() *Log {
	return &Log{}
}

// Begin starts a new compound; the caller must call Capture for every
// primitive mutation it performs, then Commit.
func (l *Log) Begin(label string) *Compound {
	return &Compound{Label: label}
}

// Commit appends a completed compound to the log, truncating any redo
// history beyond the current cursor (the same rule a text editor's undo
// stack follows once a new edit happens after an undo). A compound with no
// captured steps is discarded rather than recorded.
func (l *Log) Commit(c *Compound) {
	if c.Len() == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.compounds = l.compounds[:l.cursor]
	l.compounds = append(l.compounds, c)
	l.cursor = len(l.compounds)
}

// CanUndo reports whether there is a compound to undo.
func (l *Log) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor > 0
}

// CanRedo reports whether there is a compound to redo.
func (l *Log) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor < len(l.compounds)
}

// Undo replays the most recent compound's inverses in reverse order
// against m, on the caller's goroutine; the caller is responsible for
// invoking this only from within the model actor.
func (l *Log) Undo(ctx context.Context, m *model.Model) (label string, err error) {
	l.mu.Lock()
	if l.cursor == 0 {
		l.mu.Unlock()
		return "", fmt.Errorf("nothing to undo")
	}
	l.cursor--
	c := l.compounds[l.cursor]
	l.mu.Unlock()

	for i := len(c.steps) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return c.Label, ctx.Err()
		}
		if err := c.steps[i].inverse(m); err != nil {
			return c.Label, fmt.Errorf("undo %q: step %d: %w", c.Label, i, err)
		}
	}
	return c.Label, nil
}

// Redo re-applies a previously undone compound's forward closures in
// original order.
func (l *Log) Redo(ctx context.Context, m *model.Model) (label string, err error) {
	l.mu.Lock()
	if l.cursor >= len(l.compounds) {
		l.mu.Unlock()
		return "", fmt.Errorf("nothing to redo")
	}
	c := l.compounds[l.cursor]
	l.cursor++
	l.mu.Unlock()

	for i, s := range c.steps {
		if ctx.Err() != nil {
			return c.Label, ctx.Err()
		}
		if err := s.forward(m); err != nil {
			return c.Label, fmt.Errorf("redo %q: step %d: %w", c.Label, i, err)
		}
	}
	return c.Label, nil
}

// Timeline returns the label of every committed compound in application
// order, with an index marking the current undo/redo cursor.
func (l *Log) Timeline() (labels []string, cursor int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	labels = make([]string, len(l.compounds))
	for i, c := range l.compounds {
		labels[i] = c.Label
	}
	return labels, l.cursor
}
