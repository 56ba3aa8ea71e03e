// Package adapter is the only code that invokes model.Model's mutation
// primitives (spec.md §4.1: "the adapter is the only code that touches the
// underlying graph mutation APIs; all other components operate on its
// contract"). Every mutating call also captures a forward/inverse pair on
// the supplied undo.Compound, so a BOM chunk's primitives collapse to one
// undoable unit. Callers needing read-only access use model.Model's query
// methods directly — those carry no undo obligation.
package adapter

import (
	"fmt"

	"archiplane/internal/model"
	"archiplane/internal/undo"
)

// CreateElement creates an element and captures its inverse (delete).
func CreateElement(m *model.Model, c *undo.Compound, typ model.ElementType, name, doc string, props model.PropertyMap, folder model.FolderID) (*model.Element, error) {
	e, err := m.CreateElement(typ, name, doc, props, folder)
	if err != nil {
		return nil, err
	}
	id := e.ID
	snapshot := e.Clone()
	c.Capture(
		func(m *model.Model) error { m.InsertElement(snapshot); return nil },
		func(m *model.Model) error { _, _, err := m.DeleteElement(id, true); return err },
	)
	return e, nil
}

// UpdateElement applies fn and captures the pre-mutation state as the
// inverse.
func UpdateElement(m *model.Model, c *undo.Compound, id model.ElementID, fn func(*model.Element)) error {
	before, err := m.UpdateElement(id, fn)
	if err != nil {
		return err
	}
	after, _ := m.GetElement(id)
	afterSnapshot := after.Clone()
	c.Capture(
		func(m *model.Model) error { _, err := m.UpdateElement(id, func(e *model.Element) { *e = *afterSnapshot.Clone() }); return err },
		func(m *model.Model) error { _, err := m.UpdateElement(id, func(e *model.Element) { *e = *before.Clone() }); return err },
	)
	return nil
}

// DeleteElement deletes an element (cascading by default) and captures the
// full re-creation of everything removed as the inverse.
func DeleteElement(m *model.Model, c *undo.Compound, id model.ElementID, cascade bool) error {
	e, ok := m.GetElement(id)
	if !ok {
		return fmt.Errorf("element %s not found", id)
	}
	snapshot := e.Clone()
	removedRels, removedVisuals, err := m.DeleteElement(id, cascade)
	if err != nil {
		return err
	}
	c.Capture(
		func(m *model.Model) error { _, _, err := m.DeleteElement(id, true); return err },
		func(m *model.Model) error {
			m.InsertElement(snapshot)
			for _, r := range removedRels {
				m.InsertRelationship(r)
			}
			for _, v := range m.ListViews() {
				for _, vis := range removedVisuals {
					if vis.ViewID == v.ID {
						v.Objects[vis.ID] = vis.Clone()
					}
				}
			}
			return nil
		},
	)
	return nil
}

// CreateRelationship creates a relationship and captures its inverse.
func CreateRelationship(m *model.Model, c *undo.Compound, typ model.RelationshipType, srcID, tgtID model.ElementID, name string, props model.PropertyMap, access model.AccessVariant, strength model.InfluenceStrength, folder model.FolderID) (*model.Relationship, error) {
	r, err := m.CreateRelationship(typ, srcID, tgtID, name, props, access, strength, folder)
	if err != nil {
		return nil, err
	}
	id := r.ID
	snapshot := r.Clone()
	c.Capture(
		func(m *model.Model) error { m.InsertRelationship(snapshot); return nil },
		func(m *model.Model) error { _, err := m.DeleteRelationship(id); return err },
	)
	return r, nil
}

// UpdateRelationship applies fn and captures the pre-mutation state.
func UpdateRelationship(m *model.Model, c *undo.Compound, id model.RelationshipID, fn func(*model.Relationship)) error {
	before, err := m.UpdateRelationship(id, fn)
	if err != nil {
		return err
	}
	after, _ := m.GetRelationship(id)
	afterSnapshot := after.Clone()
	c.Capture(
		func(m *model.Model) error {
			_, err := m.UpdateRelationship(id, func(r *model.Relationship) { *r = *afterSnapshot.Clone() })
			return err
		},
		func(m *model.Model) error {
			_, err := m.UpdateRelationship(id, func(r *model.Relationship) { *r = *before.Clone() })
			return err
		},
	)
	return nil
}

// DeleteRelationship deletes a relationship and captures its inverse.
func DeleteRelationship(m *model.Model, c *undo.Compound, id model.RelationshipID) error {
	r, ok := m.GetRelationship(id)
	if !ok {
		return fmt.Errorf("relationship %s not found", id)
	}
	snapshot := r.Clone()
	removedVisuals, err := m.DeleteRelationship(id)
	if err != nil {
		return err
	}
	c.Capture(
		func(m *model.Model) error { _, err := m.DeleteRelationship(id); return err },
		func(m *model.Model) error {
			m.InsertRelationship(snapshot)
			for _, v := range m.ListViews() {
				for _, vis := range removedVisuals {
					if vis.ViewID == v.ID {
						v.Connections[vis.ID] = vis.Clone()
					}
				}
			}
			return nil
		},
	)
	return nil
}

// SetProperty sets or clears a property and captures its previous value.
func SetProperty(m *model.Model, c *undo.Compound, elementID model.ElementID, relationshipID model.RelationshipID, key string, value *string) error {
	old, err := m.SetProperty(elementID, relationshipID, key, value)
	if err != nil {
		return err
	}
	c.Capture(
		func(m *model.Model) error { _, err := m.SetProperty(elementID, relationshipID, key, value); return err },
		func(m *model.Model) error { _, err := m.SetProperty(elementID, relationshipID, key, old); return err },
	)
	return nil
}

// CreateFolder creates a folder and captures its inverse.
func CreateFolder(m *model.Model, c *undo.Compound, name string, typ model.Layer, parent model.FolderID) (*model.Folder, error) {
	f, err := m.CreateFolder(name, typ, parent)
	if err != nil {
		return nil, err
	}
	snapshot := f.Clone()
	c.Capture(
		func(m *model.Model) error { m.InsertFolder(snapshot); return nil },
		func(m *model.Model) error { return nil }, // folders are never deleted by the BOM op set
	)
	return f, nil
}

// MoveToFolder reassigns an element or relationship's folder and captures
// the previous folder for undo.
func MoveToFolder(m *model.Model, c *undo.Compound, elementID model.ElementID, relationshipID model.RelationshipID, folder model.FolderID) error {
	previous, err := m.MoveToFolder(elementID, relationshipID, folder)
	if err != nil {
		return err
	}
	c.Capture(
		func(m *model.Model) error { _, err := m.MoveToFolder(elementID, relationshipID, folder); return err },
		func(m *model.Model) error { _, err := m.MoveToFolder(elementID, relationshipID, previous); return err },
	)
	return nil
}

// CreateView creates a view and captures its inverse (delete).
func CreateView(m *model.Model, c *undo.Compound, name, viewpoint string, folder model.FolderID) (*model.View, error) {
	v, err := m.CreateView(name, viewpoint, folder)
	if err != nil {
		return nil, err
	}
	id := v.ID
	snapshot := v.Clone()
	c.Capture(
		func(m *model.Model) error { m.InsertView(snapshot); return nil },
		func(m *model.Model) error { _, err := m.DeleteView(id); return err },
	)
	return v, nil
}

// DeleteView deletes a view and captures its full restoration as the
// inverse.
func DeleteView(m *model.Model, c *undo.Compound, id model.ViewID) error {
	removed, err := m.DeleteView(id)
	if err != nil {
		return err
	}
	c.Capture(
		func(m *model.Model) error { _, err := m.DeleteView(id); return err },
		func(m *model.Model) error { m.InsertView(removed); return nil },
	)
	return nil
}
