package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archiplane/internal/model"
	"archiplane/internal/undo"
)

func TestSetRouterStyle_ChangesStyleAndUndoes(t *testing.T) {
	m := model.New()
	v, err := m.CreateView("Context", "", "")
	require.NoError(t, err)
	assert.Equal(t, model.RouterStraight, v.RouterStyle)

	log := undo.NewLog()
	c := log.Begin("set router style")
	require.NoError(t, SetRouterStyle(m, c, v.ID, model.RouterManhattan))
	log.Commit(c)

	got, _ := m.GetView(v.ID)
	assert.Equal(t, model.RouterManhattan, got.RouterStyle)

	_, err = log.Undo(context.Background(), m)
	require.NoError(t, err)
	got, _ = m.GetView(v.ID)
	assert.Equal(t, model.RouterStraight, got.RouterStyle)
}

func TestSetRouterStyle_RejectsUnknownStyle(t *testing.T) {
	m := model.New()
	v, err := m.CreateView("Context", "", "")
	require.NoError(t, err)

	log := undo.NewLog()
	c := log.Begin("bad style")
	err = SetRouterStyle(m, c, v.ID, "diagonal")
	assert.Error(t, err)
}

func TestSetRouterStyle_UnknownViewErrors(t *testing.T) {
	m := model.New()
	log := undo.NewLog()
	c := log.Begin("missing view")
	err := SetRouterStyle(m, c, "missing", model.RouterManhattan)
	assert.Error(t, err)
}
