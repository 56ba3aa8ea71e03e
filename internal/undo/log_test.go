package undo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archiplane/internal/model"
	"archiplane/internal/undo"
)

func TestUndoRedo_CreateElementRoundtrip(t *testing.T) {
	m := model.New()
	log := undo.NewLog()
	ctx := context.Background()

	c := log.Begin("create Alice")
	e, err := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")
	require.NoError(t, err)
	id := e.ID
	c.Capture(
		func(m *model.Model) error {
			_, err := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")
			return err
		},
		func(m *model.Model) error {
			_, _, err := m.DeleteElement(id, true)
			return err
		},
	)
	log.Commit(c)

	assert.True(t, log.CanUndo())
	assert.False(t, log.CanRedo())

	label, err := log.Undo(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, "create Alice", label)
	_, ok := m.GetElement(id)
	assert.False(t, ok)

	assert.True(t, log.CanRedo())
	_, err = log.Redo(ctx, m)
	require.NoError(t, err)

	_, ok = m.FindElementByIdentity(model.ElementIdentity{Type: model.ElementBusinessActor, Name: "Alice"})
	assert.True(t, ok)
}

func TestCommit_DropsEmptyCompoundAndTruncatesRedoHistory(t *testing.T) {
	log := undo.NewLog()
	empty := log.Begin("noop")
	log.Commit(empty)
	assert.False(t, log.CanUndo())

	m := model.New()
	c1 := log.Begin("first")
	c1.Capture(func(m *model.Model) error { return nil }, func(m *model.Model) error { return nil })
	log.Commit(c1)

	ctx := context.Background()
	_, err := log.Undo(ctx, m)
	require.NoError(t, err)
	assert.True(t, log.CanRedo())

	c2 := log.Begin("second")
	c2.Capture(func(m *model.Model) error { return nil }, func(m *model.Model) error { return nil })
	log.Commit(c2)

	assert.False(t, log.CanRedo(), "committing after an undo must drop redo history")
	labels, cursor := log.Timeline()
	assert.Equal(t, []string{"second"}, labels)
	assert.Equal(t, 1, cursor)
}
