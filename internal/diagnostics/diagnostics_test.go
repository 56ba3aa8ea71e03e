package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archiplane/internal/model"
)

func TestRun_DetectsOrphanElement(t *testing.T) {
	m := model.New()
	e, err := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "missing-folder")
	require.NoError(t, err)

	report := Run(m)

	var found bool
	for _, f := range report.Findings {
		if f.Kind == KindOrphan && f.Subject == string(e.ID) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRun_DetectsGhostVisual(t *testing.T) {
	m := model.New()
	v, err := m.CreateView("Context", "", "")
	require.NoError(t, err)
	v.Objects["vis1"] = &model.VisualObject{ID: "vis1", ElementID: "missing-element", ViewID: v.ID}

	report := Run(m)

	var found bool
	for _, f := range report.Findings {
		if f.Kind == KindGhost && f.Subject == "vis1" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRun_DetectsDuplicateElements(t *testing.T) {
	m := model.New()
	_, err := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")
	require.NoError(t, err)
	_, err = m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")
	require.NoError(t, err)

	report := Run(m)

	var count int
	for _, f := range report.Findings {
		if f.Kind == KindDuplicate {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestRun_DetectsMatrixViolationAfterMatrixTightened(t *testing.T) {
	m := model.New()
	alice, err := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")
	require.NoError(t, err)
	goal, err := m.CreateElement(model.ElementGoal, "Grow Revenue", "", nil, "")
	require.NoError(t, err)
	_, err = m.CreateRelationship(model.RelAssociation, alice.ID, goal.ID, "", nil, "", "", "")
	require.NoError(t, err)

	m.Matrix = &model.AllowedMatrix{} // no rules at all: everything now violates

	report := Run(m)

	var found bool
	for _, f := range report.Findings {
		if f.Kind == KindMatrixViolation {
			found = true
		}
	}
	assert.True(t, found)
}

func TestStatsOf_ReportsCounts(t *testing.T) {
	m := model.New()
	_, err := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")
	require.NoError(t, err)

	stats := StatsOf(m)
	assert.Equal(t, 1, stats.Elements)
}
