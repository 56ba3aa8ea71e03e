package bom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archiplane/internal/bom"
)

func TestParseDocument_DecodesHeterogeneousChanges(t *testing.T) {
	doc, err := bom.ParseDocument([]byte(`{
		"version": "1.0",
		"changes": [
			{"op":"createElement","type":"business-actor","name":"Customer","tempId":"t1"},
			{"op":"createRelationship","type":"assignment","sourceId":"t1","targetId":"t1"}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, doc.Changes, 2)

	assert.Equal(t, bom.OpCreateElement, doc.Changes[0].Op)
	assert.Equal(t, "t1", doc.Changes[0].TempID)
	fields, ok := doc.Changes[0].Fields.(bom.CreateElementFields)
	require.True(t, ok)
	assert.Equal(t, "Customer", fields.Name)

	assert.Equal(t, bom.OpCreateRelationship, doc.Changes[1].Op)
}

func TestParseDocument_RejectsUnknownOp(t *testing.T) {
	_, err := bom.ParseDocument([]byte(`{"version":"1.0","changes":[{"op":"frobnicate"}]}`))
	assert.Error(t, err)
}

func TestParseDocument_RejectsMissingRequiredField(t *testing.T) {
	_, err := bom.ParseDocument([]byte(`{"version":"1.0","changes":[{"op":"createElement","name":"X"}]}`))
	assert.Error(t, err, "type is required on createElement")
}

func TestParseDocument_RejectsIncludesOutsideFileLoad(t *testing.T) {
	_, err := bom.ParseDocument([]byte(`{"version":"1.0","includes":["other.json"],"changes":[]}`))
	assert.Error(t, err)
}

func TestIsCreationOp(t *testing.T) {
	assert.True(t, bom.IsCreationOp(bom.OpCreateElement))
	assert.True(t, bom.IsCreationOp(bom.OpAddToView))
	assert.False(t, bom.IsCreationOp(bom.OpUpdateElement))
}
