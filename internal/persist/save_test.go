package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archiplane/internal/model"
)

func TestSave_WritesFileAndRecordsPath(t *testing.T) {
	m := model.New()
	_, err := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")

	require.NoError(t, Save(m, path))
	assert.Equal(t, path, m.SavePath())

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, doc.Elements, 1)
	assert.Equal(t, documentVersion, doc.Version)
}

func TestSave_EmptyPathReusesPreviousSavePath(t *testing.T) {
	m := model.New()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "graph.json")

	require.NoError(t, Save(m, path))
	require.NoError(t, Save(m, ""))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, doc.Elements)
}

func TestSave_NoPathAndNeverSavedReturnsError(t *testing.T) {
	m := model.New()
	err := Save(m, "")
	assert.Error(t, err)
}

func TestRestore_RoundTripsEntities(t *testing.T) {
	m := model.New()
	e, err := m.CreateElement(model.ElementBusinessActor, "Alice", "", nil, "")
	require.NoError(t, err)
	e2, err := m.CreateElement(model.ElementGoal, "Grow Revenue", "", nil, "")
	require.NoError(t, err)
	_, err = m.CreateRelationship(model.RelAssociation, e.ID, e2.ID, "", nil, "", "", "")
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	require.NoError(t, Save(m, path))

	doc, err := Load(path)
	require.NoError(t, err)

	restored := model.New()
	Restore(restored, doc)

	elements, relationships, views, folders := restored.Counts()
	origElements, origRelationships, origViews, origFolders := m.Counts()
	assert.Equal(t, origElements, elements)
	assert.Equal(t, origRelationships, relationships)
	assert.Equal(t, origViews, views)
	assert.Equal(t, origFolders, folders)
}
