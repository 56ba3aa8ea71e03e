package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archiplane/internal/model"
)

func TestExport_ProducesDecodablePNG(t *testing.T) {
	m := model.New()
	v := &model.View{
		ID: "view1",
		Objects: map[model.VisualID]*model.VisualObject{
			"o1": {ID: "o1", X: 0, Y: 0, Width: 100, Height: 50, Style: model.Style{FillColor: "#ff0000"}},
			"o2": {ID: "o2", X: 200, Y: 200, Width: 100, Height: 50},
		},
		Connections: map[model.VisualID]*model.VisualConnection{
			"c1": {ID: "c1", SourceVisualID: "o1", TargetVisualID: "o2"},
		},
		Notes:  map[model.VisualID]*model.Note{},
		Groups: map[model.VisualID]*model.Group{},
	}

	data, err := Export(m, v, Options{Format: FormatPNG, Scale: 1.0, Margin: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
	assert.Greater(t, img.Bounds().Dy(), 0)
}

func TestExport_RejectsOutOfRangeScale(t *testing.T) {
	m := model.New()
	v := &model.View{ID: "v1", Objects: map[model.VisualID]*model.VisualObject{}, Connections: map[model.VisualID]*model.VisualConnection{}, Notes: map[model.VisualID]*model.Note{}, Groups: map[model.VisualID]*model.Group{}}

	_, err := Export(m, v, Options{Format: FormatPNG, Scale: 10})
	assert.Error(t, err)
}
