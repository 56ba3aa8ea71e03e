package viewcompose_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archiplane/internal/model"
	"archiplane/internal/undo"
	"archiplane/internal/viewcompose"
)

func setup(t *testing.T) (*model.Model, *model.Element, *model.View) {
	t.Helper()
	m := model.New()
	e, err := m.CreateElement(model.ElementBusinessActor, "Customer", "", nil, "")
	require.NoError(t, err)
	v, err := m.CreateView("Context", "Business Process Cooperation", "")
	require.NoError(t, err)
	return m, e, v
}

func TestAddToView_RejectsUnknownParentVisual(t *testing.T) {
	m, e, v := setup(t)
	c := undo.NewLog().Begin("add")
	_, err := viewcompose.AddToView(m, c, v.ID, e.ID, 0, 0, 10, 10, model.VisualID("missing"), model.Style{})
	assert.Error(t, err)
}

func TestNestInView_RejectsCycle(t *testing.T) {
	m, e, v := setup(t)
	c := undo.NewLog().Begin("add")
	obj, err := viewcompose.AddToView(m, c, v.ID, e.ID, 0, 0, 10, 10, "", model.Style{})
	require.NoError(t, err)
	err = viewcompose.NestInView(m, c, v.ID, obj.ID, obj.ID, 0, 0)
	assert.Error(t, err, "nesting a visual under itself must be rejected")
}

func TestAddConnectionToView_EnforcesDirectionConsistency(t *testing.T) {
	m, e, v := setup(t)
	target, err := m.CreateElement(model.ElementApplicationComponent, "Billing", "", nil, "")
	require.NoError(t, err)
	rel, err := m.CreateRelationship(model.RelAssignment, e.ID, target.ID, "", nil, model.AccessGeneric, "", "")
	require.NoError(t, err)

	c := undo.NewLog().Begin("compose")
	srcVis, err := viewcompose.AddToView(m, c, v.ID, e.ID, 0, 0, 10, 10, "", model.Style{})
	require.NoError(t, err)
	tgtVis, err := viewcompose.AddToView(m, c, v.ID, target.ID, 100, 0, 10, 10, "", model.Style{})
	require.NoError(t, err)

	// reversed visuals must be rejected: rel goes e -> target, not target -> e
	_, err = viewcompose.AddConnectionToView(m, c, v.ID, rel.ID, tgtVis.ID, srcVis.ID, model.Style{})
	assert.Error(t, err)

	conn, err := viewcompose.AddConnectionToView(m, c, v.ID, rel.ID, srcVis.ID, tgtVis.ID, model.Style{})
	require.NoError(t, err)

	_, err = viewcompose.AddConnectionToView(m, c, v.ID, rel.ID, srcVis.ID, tgtVis.ID, model.Style{})
	assert.Error(t, err, "duplicate (relationship, source, target) triple must be rejected")

	require.NoError(t, viewcompose.DeleteConnectionFromView(m, c, v.ID, conn.ID))
	reloaded, _ := m.GetView(v.ID)
	assert.Empty(t, reloaded.Connections)
}

func TestMoveViewObject_UndoRestoresPosition(t *testing.T) {
	m, e, v := setup(t)
	log := undo.NewLog()
	c := log.Begin("add+move")
	obj, err := viewcompose.AddToView(m, c, v.ID, e.ID, 0, 0, 10, 10, "", model.Style{})
	require.NoError(t, err)
	require.NoError(t, viewcompose.MoveViewObject(m, c, v.ID, obj.ID, 50, 60))
	log.Commit(c)

	reloaded, _ := m.GetView(v.ID)
	assert.Equal(t, 50.0, reloaded.Objects[obj.ID].X)

	_, err = log.Undo(context.Background(), m)
	require.NoError(t, err)
	reloaded, _ = m.GetView(v.ID)
	assert.Empty(t, reloaded.Objects, "undo of the whole compound removes the visual entirely")
}
