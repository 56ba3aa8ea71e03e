// Package routing implements the Router half of Save / Export / Router
// (C9): setting a view's connection-routing preset. Grounded on
// internal/adapter's wrapper shape — a mutation plus a captured
// forward/inverse undo pair — applied to the one field (View.RouterStyle)
// this operation touches.
package routing

import (
	"fmt"

	"archiplane/internal/model"
	"archiplane/internal/undo"
)

// SetRouterStyle changes view's connection-routing preset (straight with
// bendpoints, or manhattan right-angle) and captures the previous style
// for undo. It does not itself move any Bendpoints: existing connections
// keep whatever points they already have until a subsequent edit or
// layout run repositions them under the new preset.
func SetRouterStyle(m *model.Model, c *undo.Compound, id model.ViewID, style model.RouterStyle) error {
	if style != model.RouterStraight && style != model.RouterManhattan {
		return fmt.Errorf("unknown router style %q", style)
	}
	v, ok := m.GetView(id)
	if !ok {
		return fmt.Errorf("view %s not found", id)
	}
	previous := v.RouterStyle
	v.RouterStyle = style
	c.Capture(
		func(m *model.Model) error {
			v, ok := m.GetView(id)
			if !ok {
				return fmt.Errorf("view %s not found", id)
			}
			v.RouterStyle = style
			return nil
		},
		func(m *model.Model) error {
			v, ok := m.GetView(id)
			if !ok {
				return fmt.Errorf("view %s not found", id)
			}
			v.RouterStyle = previous
			return nil
		},
	)
	return nil
}
