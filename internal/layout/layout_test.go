package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archiplane/internal/model"
)

func newView() *model.View {
	return &model.View{
		ID:          "view1",
		Objects:     map[model.VisualID]*model.VisualObject{},
		Connections: map[model.VisualID]*model.VisualConnection{},
		Notes:       map[model.VisualID]*model.Note{},
		Groups:      map[model.VisualID]*model.Group{},
	}
}

func TestRun_LinearChainRanksInOrder(t *testing.T) {
	v := newView()
	v.Objects["a"] = &model.VisualObject{ID: "a", Width: 100, Height: 40}
	v.Objects["b"] = &model.VisualObject{ID: "b", Width: 100, Height: 40}
	v.Objects["c"] = &model.VisualObject{ID: "c", Width: 100, Height: 40}
	v.Connections["c1"] = &model.VisualConnection{ID: "c1", SourceVisualID: "a", TargetVisualID: "b"}
	v.Connections["c2"] = &model.VisualConnection{ID: "c2", SourceVisualID: "b", TargetVisualID: "c"}

	require.NoError(t, Run(v, DefaultOptions()))

	assert.Less(t, v.Objects["a"].Y, v.Objects["b"].Y)
	assert.Less(t, v.Objects["b"].Y, v.Objects["c"].Y)
}

func TestRun_LeftRightDirectionRanksOnX(t *testing.T) {
	v := newView()
	v.Objects["a"] = &model.VisualObject{ID: "a", Width: 100, Height: 40}
	v.Objects["b"] = &model.VisualObject{ID: "b", Width: 100, Height: 40}
	v.Connections["c1"] = &model.VisualConnection{ID: "c1", SourceVisualID: "a", TargetVisualID: "b"}

	opts := DefaultOptions()
	opts.Direction = DirLeftRight
	require.NoError(t, Run(v, opts))

	assert.Less(t, v.Objects["a"].X, v.Objects["b"].X)
}

func TestRun_NestedChildrenStayWithinParentAndParentGrows(t *testing.T) {
	v := newView()
	v.Objects["parent"] = &model.VisualObject{ID: "parent", Width: 10, Height: 10}
	v.Objects["child1"] = &model.VisualObject{ID: "child1", ParentVisualID: "parent", Width: 50, Height: 30}
	v.Objects["child2"] = &model.VisualObject{ID: "child2", ParentVisualID: "parent", Width: 50, Height: 30}
	v.Connections["cc"] = &model.VisualConnection{ID: "cc", SourceVisualID: "child1", TargetVisualID: "child2"}

	require.NoError(t, Run(v, DefaultOptions()))

	assert.Greater(t, v.Objects["parent"].Width, 10.0)
	assert.Greater(t, v.Objects["parent"].Height, 10.0)
	assert.GreaterOrEqual(t, v.Objects["child1"].X, 0.0)
	assert.GreaterOrEqual(t, v.Objects["child1"].Y, 0.0)
}
