// Package viewcompose implements the diagram-specific change ops (C6):
// addToView, nestInView, addConnectionToView and friends. It mutates a
// View's owned Visual Object/Connection/Note/Group maps directly (Views are
// not part of the allowed-relationships-matrix-guarded graph C1 protects,
// so these primitives live in their own component per spec.md §4.6) while
// still capturing undo inverses the same way internal/adapter does for the
// Model Adapter, so a view op participates in the same compound as any
// concept-level change in its chunk.
package viewcompose

import (
	"fmt"

	"archiplane/internal/apperr"
	"archiplane/internal/model"
	"archiplane/internal/undo"
)

// AddToView creates a Visual Object referencing elementID at (x, y, w, h).
// When parentVisualID is non-empty, (x, y) are parent-relative; otherwise
// they are relative to the view root.
func AddToView(m *model.Model, c *undo.Compound, viewID model.ViewID, elementID model.ElementID, x, y, w, h float64, parentVisualID model.VisualID, style model.Style) (*model.VisualObject, error) {
	v, ok := m.GetView(viewID)
	if !ok {
		return nil, apperr.NewNotFound(fmt.Sprintf("view %s not found", viewID))
	}
	if _, ok := m.GetElement(elementID); !ok {
		return nil, apperr.NewResolution(fmt.Sprintf("element %s not found", elementID))
	}
	if parentVisualID != "" {
		if _, ok := v.Objects[parentVisualID]; !ok {
			return nil, apperr.NewValidation(fmt.Sprintf("parent visual %s does not exist in view %s", parentVisualID, viewID))
		}
	}
	obj := &model.VisualObject{
		ID: model.NewVisualID(), ElementID: elementID, ViewID: viewID,
		ParentVisualID: parentVisualID, X: x, Y: y, Width: w, Height: h, Style: style,
	}
	v.Objects[obj.ID] = obj
	id := obj.ID
	c.Capture(
		func(m *model.Model) error {
			if vv, ok := m.GetView(viewID); ok {
				vv.Objects[id] = obj.Clone()
			}
			return nil
		},
		func(m *model.Model) error {
			if vv, ok := m.GetView(viewID); ok {
				delete(vv.Objects, id)
			}
			return nil
		},
	)
	return obj, nil
}

// NestInView reparents an existing visual into a new parent visual,
// rewriting its geometry to be parent-relative.
func NestInView(m *model.Model, c *undo.Compound, viewID model.ViewID, visualID, parentVisualID model.VisualID, x, y float64) error {
	v, ok := m.GetView(viewID)
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("view %s not found", viewID))
	}
	obj, ok := v.Objects[visualID]
	if !ok {
		return apperr.NewResolution(fmt.Sprintf("visual %s does not exist in view %s", visualID, viewID))
	}
	if _, ok := v.Objects[parentVisualID]; !ok {
		return apperr.NewValidation(fmt.Sprintf("parent visual %s does not exist in view %s", parentVisualID, viewID))
	}
	if wouldCycle(v, parentVisualID, visualID) {
		return apperr.NewValidation("nesting would create a cycle")
	}
	before := obj.Clone()
	obj.ParentVisualID = parentVisualID
	obj.X, obj.Y = x, y
	after := obj.Clone()
	c.Capture(
		func(m *model.Model) error {
			if vv, ok := m.GetView(viewID); ok {
				if o, ok := vv.Objects[visualID]; ok {
					*o = *after.Clone()
				}
			}
			return nil
		},
		func(m *model.Model) error {
			if vv, ok := m.GetView(viewID); ok {
				if o, ok := vv.Objects[visualID]; ok {
					*o = *before.Clone()
				}
			}
			return nil
		},
	)
	return nil
}

// wouldCycle reports whether making child a descendant of candidate would
// create a cycle, by walking candidate's ancestor chain.
func wouldCycle(v *model.View, candidate, child model.VisualID) bool {
	seen := map[model.VisualID]bool{}
	cur := candidate
	for cur != "" {
		if cur == child {
			return true
		}
		if seen[cur] {
			return true // existing cycle; treat defensively as unsafe
		}
		seen[cur] = true
		obj, ok := v.Objects[cur]
		if !ok {
			break
		}
		cur = obj.ParentVisualID
	}
	return false
}

// AddConnectionToView creates a Visual Connection between two visuals,
// enforcing direction-consistency against relationshipID's source/target
// and the no-duplicate-triple invariant.
func AddConnectionToView(m *model.Model, c *undo.Compound, viewID model.ViewID, relationshipID model.RelationshipID, sourceVisualID, targetVisualID model.VisualID, style model.Style) (*model.VisualConnection, error) {
	v, ok := m.GetView(viewID)
	if !ok {
		return nil, apperr.NewNotFound(fmt.Sprintf("view %s not found", viewID))
	}
	rel, ok := m.GetRelationship(relationshipID)
	if !ok {
		return nil, apperr.NewResolution(fmt.Sprintf("relationship %s not found", relationshipID))
	}
	srcVis, ok := v.Objects[sourceVisualID]
	if !ok {
		return nil, apperr.NewValidation(fmt.Sprintf("source visual %s does not exist in view %s", sourceVisualID, viewID))
	}
	tgtVis, ok := v.Objects[targetVisualID]
	if !ok {
		return nil, apperr.NewValidation(fmt.Sprintf("target visual %s does not exist in view %s", targetVisualID, viewID))
	}
	if srcVis.ElementID != rel.SourceID || tgtVis.ElementID != rel.TargetID {
		return nil, apperr.NewValidation("sourceVisualId/targetVisualId do not match the underlying relationship's direction")
	}
	identity := model.ConnectionIdentity{RelationshipID: relationshipID, SourceVisualID: sourceVisualID, TargetVisualID: targetVisualID}
	for _, existing := range v.Connections {
		if existing.IdentityKey() == identity {
			return nil, apperr.NewConflict("a visual connection with this (relationship, source, target) triple already exists in the view")
		}
	}
	conn := &model.VisualConnection{
		ID: model.NewVisualID(), RelationshipID: relationshipID, ViewID: viewID,
		SourceVisualID: sourceVisualID, TargetVisualID: targetVisualID, Style: style,
	}
	v.Connections[conn.ID] = conn
	id := conn.ID
	c.Capture(
		func(m *model.Model) error {
			if vv, ok := m.GetView(viewID); ok {
				vv.Connections[id] = conn.Clone()
			}
			return nil
		},
		func(m *model.Model) error {
			if vv, ok := m.GetView(viewID); ok {
				delete(vv.Connections, id)
			}
			return nil
		},
	)
	return conn, nil
}

// DeleteConnectionFromView removes a visual connection.
func DeleteConnectionFromView(m *model.Model, c *undo.Compound, viewID model.ViewID, id model.VisualID) error {
	v, ok := m.GetView(viewID)
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("view %s not found", viewID))
	}
	conn, ok := v.Connections[id]
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("connection %s not found in view %s", id, viewID))
	}
	snapshot := conn.Clone()
	delete(v.Connections, id)
	c.Capture(
		func(m *model.Model) error {
			if vv, ok := m.GetView(viewID); ok {
				delete(vv.Connections, id)
			}
			return nil
		},
		func(m *model.Model) error {
			if vv, ok := m.GetView(viewID); ok {
				vv.Connections[id] = snapshot.Clone()
			}
			return nil
		},
	)
	return nil
}

// MoveViewObject repositions a visual object within its current coordinate
// space (parent-relative if nested, absolute otherwise).
func MoveViewObject(m *model.Model, c *undo.Compound, viewID model.ViewID, id model.VisualID, x, y float64) error {
	v, ok := m.GetView(viewID)
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("view %s not found", viewID))
	}
	obj, ok := v.Objects[id]
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("visual %s not found in view %s", id, viewID))
	}
	beforeX, beforeY := obj.X, obj.Y
	obj.X, obj.Y = x, y
	c.Capture(
		func(m *model.Model) error { return setXY(m, viewID, id, x, y) },
		func(m *model.Model) error { return setXY(m, viewID, id, beforeX, beforeY) },
	)
	return nil
}

func setXY(m *model.Model, viewID model.ViewID, id model.VisualID, x, y float64) error {
	v, ok := m.GetView(viewID)
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("view %s not found", viewID))
	}
	if o, ok := v.Objects[id]; ok {
		o.X, o.Y = x, y
	}
	return nil
}

// StyleViewObject overwrites a visual object's style.
func StyleViewObject(m *model.Model, c *undo.Compound, viewID model.ViewID, id model.VisualID, style model.Style) error {
	v, ok := m.GetView(viewID)
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("view %s not found", viewID))
	}
	obj, ok := v.Objects[id]
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("visual %s not found in view %s", id, viewID))
	}
	before := obj.Style
	obj.Style = style
	c.Capture(
		func(m *model.Model) error { return setObjectStyle(m, viewID, id, style) },
		func(m *model.Model) error { return setObjectStyle(m, viewID, id, before) },
	)
	return nil
}

func setObjectStyle(m *model.Model, viewID model.ViewID, id model.VisualID, style model.Style) error {
	v, ok := m.GetView(viewID)
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("view %s not found", viewID))
	}
	if o, ok := v.Objects[id]; ok {
		o.Style = style
	}
	return nil
}

// StyleConnection overwrites a visual connection's style.
func StyleConnection(m *model.Model, c *undo.Compound, viewID model.ViewID, id model.VisualID, style model.Style) error {
	v, ok := m.GetView(viewID)
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("view %s not found", viewID))
	}
	conn, ok := v.Connections[id]
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("connection %s not found in view %s", id, viewID))
	}
	before := conn.Style
	conn.Style = style
	c.Capture(
		func(m *model.Model) error { return setConnStyle(m, viewID, id, style) },
		func(m *model.Model) error { return setConnStyle(m, viewID, id, before) },
	)
	return nil
}

func setConnStyle(m *model.Model, viewID model.ViewID, id model.VisualID, style model.Style) error {
	v, ok := m.GetView(viewID)
	if !ok {
		return apperr.NewNotFound(fmt.Sprintf("view %s not found", viewID))
	}
	if o, ok := v.Connections[id]; ok {
		o.Style = style
	}
	return nil
}

// CreateNote creates a free-text diagram decoration.
func CreateNote(m *model.Model, c *undo.Compound, viewID model.ViewID, content string, x, y, w, h float64) (*model.Note, error) {
	v, ok := m.GetView(viewID)
	if !ok {
		return nil, apperr.NewNotFound(fmt.Sprintf("view %s not found", viewID))
	}
	note := &model.Note{ID: model.NewVisualID(), ViewID: viewID, Content: content, X: x, Y: y, Width: w, Height: h}
	v.Notes[note.ID] = note
	id := note.ID
	c.Capture(
		func(m *model.Model) error {
			if vv, ok := m.GetView(viewID); ok {
				n := *note
				vv.Notes[id] = &n
			}
			return nil
		},
		func(m *model.Model) error {
			if vv, ok := m.GetView(viewID); ok {
				delete(vv.Notes, id)
			}
			return nil
		},
	)
	return note, nil
}

// CreateGroup creates a grouping diagram decoration.
func CreateGroup(m *model.Model, c *undo.Compound, viewID model.ViewID, name string, x, y, w, h float64) (*model.Group, error) {
	v, ok := m.GetView(viewID)
	if !ok {
		return nil, apperr.NewNotFound(fmt.Sprintf("view %s not found", viewID))
	}
	group := &model.Group{ID: model.NewVisualID(), ViewID: viewID, Name: name, X: x, Y: y, Width: w, Height: h}
	v.Groups[group.ID] = group
	id := group.ID
	c.Capture(
		func(m *model.Model) error {
			if vv, ok := m.GetView(viewID); ok {
				g := *group
				vv.Groups[id] = &g
			}
			return nil
		},
		func(m *model.Model) error {
			if vv, ok := m.GetView(viewID); ok {
				delete(vv.Groups, id)
			}
			return nil
		},
	)
	return group, nil
}
