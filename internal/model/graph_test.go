package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archiplane/internal/model"
)

func TestCreateElement_RejectsUnknownType(t *testing.T) {
	m := model.New()
	_, err := m.CreateElement(model.ElementType("not-a-type"), "X", "", nil, "")
	require.Error(t, err)
}

func TestCreateRelationship_EnforcesMatrixAndSelfLoop(t *testing.T) {
	m := model.New()
	a, err := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")
	require.NoError(t, err)

	_, err = m.CreateRelationship(model.RelSpecialization, a.ID, a.ID, "", nil, "", "", "")
	assert.Error(t, err, "specialization does not permit self-loops")

	_, err = m.CreateRelationship(model.RelAssociation, a.ID, a.ID, "", nil, "", "", "")
	assert.NoError(t, err, "association permits self-loops")
}

func TestDeleteElement_CascadesRelationshipsAndVisuals(t *testing.T) {
	m := model.New()
	a, _ := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")
	b, _ := m.CreateElement(model.ElementBusinessRole, "Role", "", nil, "")
	rel, err := m.CreateRelationship(model.RelAssignment, a.ID, b.ID, "", nil, "", "", "")
	require.NoError(t, err)

	v, _ := m.CreateView("Overview", "", "")
	obj := &model.VisualObject{ID: model.NewVisualID(), ElementID: a.ID, ViewID: v.ID, Width: 100, Height: 60}
	v.Objects[obj.ID] = obj

	removedRels, removedVisuals, err := m.DeleteElement(a.ID, true)
	require.NoError(t, err)
	assert.Len(t, removedRels, 1)
	assert.Equal(t, rel.ID, removedRels[0].ID)
	assert.Len(t, removedVisuals, 1)

	_, ok := m.GetElement(a.ID)
	assert.False(t, ok)
	_, ok = m.GetRelationship(rel.ID)
	assert.False(t, ok)
}

func TestDeleteElement_WithoutCascadeRejectsWhenReferenced(t *testing.T) {
	m := model.New()
	a, _ := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")
	b, _ := m.CreateElement(model.ElementBusinessRole, "Role", "", nil, "")
	_, err := m.CreateRelationship(model.RelAssignment, a.ID, b.ID, "", nil, "", "", "")
	require.NoError(t, err)

	_, _, err = m.DeleteElement(a.ID, false)
	assert.Error(t, err)
}

func TestSnapshot_IsIndependentCopy(t *testing.T) {
	m := model.New()
	a, _ := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")

	snap := m.Snapshot()
	_, _, err := m.DeleteElement(a.ID, true)
	require.NoError(t, err)

	_, ok := snap.GetElement(a.ID)
	assert.True(t, ok, "snapshot must not observe later mutation of the live model")
}

func TestFindElementByIdentity_DetectsDuplicates(t *testing.T) {
	m := model.New()
	a, _ := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")

	found, ok := m.FindElementByIdentity(model.ElementIdentity{Type: model.ElementBusinessActor, Name: "Alice"})
	require.True(t, ok)
	assert.Equal(t, a.ID, found.ID)

	_, ok = m.FindElementByIdentity(model.ElementIdentity{Type: model.ElementBusinessActor, Name: "Bob"})
	assert.False(t, ok)
}

func TestAllowedMatrix_DefaultPermitsCompositionEverywhere(t *testing.T) {
	matrix := model.DefaultAllowedMatrix()
	assert.True(t, matrix.Allows(model.ElementBusinessActor, model.RelComposition, model.ElementApplicationComponent))
}

func TestPoint_ResolveAndRelativeToRoundtrip(t *testing.T) {
	parent, err := model.NewAbsolutePoint(100, 200)
	require.NoError(t, err)
	rel, err := model.NewParentRelativePoint(10, 20)
	require.NoError(t, err)

	abs := rel.Resolve(parent)
	assert.Equal(t, 110.0, abs.X)
	assert.Equal(t, 220.0, abs.Y)

	back := abs.RelativeTo(parent)
	assert.Equal(t, rel, back)
}

func TestPoint_RejectsNonFiniteCoordinates(t *testing.T) {
	var zero float64
	_, err := model.NewAbsolutePoint(1, zero/zero)
	assert.Error(t, err, "NaN is not a finite coordinate")
}
