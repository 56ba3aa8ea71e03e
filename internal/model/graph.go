package model

import (
	"fmt"
	"regexp"
)

// Model is the in-memory ArchiMate graph. It exclusively owns Elements,
// Relationships, Views, and Folders (spec.md §3). Model is not safe for
// concurrent use directly — all access happens through the model actor
// (internal/modelactor), which serializes every read and write onto a
// single goroutine, matching the host editor's single-threaded UI thread
// that spec.md §5 describes.
type Model struct {
	Matrix *AllowedMatrix

	elements      map[ElementID]*Element
	relationships map[RelationshipID]*Relationship
	views         map[ViewID]*View
	folders       map[FolderID]*Folder

	savePath string
}

// New returns an empty Model using the default allowed-relationships
// matrix.
func New() *Model {
	return &Model{
		Matrix:        DefaultAllowedMatrix(),
		elements:      make(map[ElementID]*Element),
		relationships: make(map[RelationshipID]*Relationship),
		views:         make(map[ViewID]*View),
		folders:       make(map[FolderID]*Folder),
	}
}

// ---------------------------------------------------------------------
// Element primitives
// ---------------------------------------------------------------------

// CreateElement inserts a new element and returns its assigned ID.
func (m *Model) CreateElement(typ ElementType, name, doc string, props PropertyMap, folder FolderID) (*Element, error) {
	if !IsValidElementType(typ) {
		return nil, fmt.Errorf("unknown element type %q", typ)
	}
	e := &Element{
		ID:            NewElementID(),
		Type:          typ,
		Name:          name,
		Documentation: doc,
		Properties:    props.Clone(),
		FolderID:      folder,
	}
	m.elements[e.ID] = e
	return e, nil
}

// InsertElement inserts a fully-formed element, used by undo replay.
func (m *Model) InsertElement(e *Element) { m.elements[e.ID] = e.Clone() }

// GetElement returns the element with the given ID.
func (m *Model) GetElement(id ElementID) (*Element, bool) {
	e, ok := m.elements[id]
	return e, ok
}

// UpdateElement applies fn to a copy of the element and stores it back,
// returning the pre-mutation copy for undo capture.
func (m *Model) UpdateElement(id ElementID, fn func(*Element)) (before *Element, err error) {
	e, ok := m.elements[id]
	if !ok {
		return nil, fmt.Errorf("element %s not found", id)
	}
	before = e.Clone()
	fn(e)
	return before, nil
}

// DeleteElement removes an element and, when cascade is true (the default),
// every relationship and visual object referencing it.
func (m *Model) DeleteElement(id ElementID, cascade bool) (removedRels []*Relationship, removedVisuals []*VisualObject, err error) {
	if _, ok := m.elements[id]; !ok {
		return nil, nil, fmt.Errorf("element %s not found", id)
	}
	if !cascade {
		for _, r := range m.relationships {
			if r.SourceID == id || r.TargetID == id {
				return nil, nil, fmt.Errorf("element %s has dependent relationships; cascade=false", id)
			}
		}
	}
	for _, r := range m.relationships {
		if r.SourceID == id || r.TargetID == id {
			removedRels = append(removedRels, r.Clone())
			delete(m.relationships, r.ID)
		}
	}
	for _, v := range m.views {
		for _, obj := range v.Objects {
			if obj.ElementID == id {
				removedVisuals = append(removedVisuals, obj.Clone())
				delete(v.Objects, obj.ID)
			}
		}
	}
	delete(m.elements, id)
	return removedRels, removedVisuals, nil
}

// SetProperty sets or deletes (when value is nil) a property key on an
// element or relationship.
func (m *Model) SetProperty(elementID ElementID, relationshipID RelationshipID, key string, value *string) (oldValue *string, err error) {
	setOn := func(props PropertyMap) (PropertyMap, *string) {
		if props == nil {
			props = PropertyMap{}
		}
		old, had := props[key]
		var oldPtr *string
		if had {
			oldPtr = &old
		}
		if value == nil {
			delete(props, key)
		} else {
			props[key] = *value
		}
		return props, oldPtr
	}

	switch {
	case elementID != "":
		e, ok := m.elements[elementID]
		if !ok {
			return nil, fmt.Errorf("element %s not found", elementID)
		}
		e.Properties, oldValue = setOn(e.Properties)
	case relationshipID != "":
		r, ok := m.relationships[relationshipID]
		if !ok {
			return nil, fmt.Errorf("relationship %s not found", relationshipID)
		}
		r.Properties, oldValue = setOn(r.Properties)
	default:
		return nil, fmt.Errorf("setProperty requires an elementId or relationshipId")
	}
	return oldValue, nil
}

// FindElementByIdentity looks up an element by its (type, name) identity,
// used for duplicate detection and name-fallback resolution.
func (m *Model) FindElementByIdentity(key ElementIdentity) (*Element, bool) {
	for _, e := range m.elements {
		if e.IdentityKey() == key {
			return e, true
		}
	}
	return nil, false
}

// FindElementByName looks up an element by exact name, optionally
// constrained to a type. Used by the Reference Resolver's name fallback.
func (m *Model) FindElementByName(name string, typ ElementType) (*Element, bool) {
	var match *Element
	for _, e := range m.elements {
		if e.Name != name {
			continue
		}
		if typ != "" && e.Type != typ {
			continue
		}
		if match != nil {
			return nil, false // ambiguous
		}
		match = e
	}
	if match == nil {
		return nil, false
	}
	return match, true
}

// SearchElements returns elements matching the given filters. An empty
// filter field means "don't filter on this dimension".
func (m *Model) SearchElements(typ ElementType, nameRegex string, props PropertyMap) ([]*Element, error) {
	var re *regexp.Regexp
	var err error
	if nameRegex != "" {
		re, err = regexp.Compile(nameRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid name regex: %w", err)
		}
	}
	var out []*Element
	for _, e := range m.elements {
		if typ != "" && e.Type != typ {
			continue
		}
		if re != nil && !re.MatchString(e.Name) {
			continue
		}
		if !propsMatch(e.Properties, props) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func propsMatch(have, want PropertyMap) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------
// Relationship primitives
// ---------------------------------------------------------------------

// CreateRelationship inserts a new relationship after checking the element
// endpoints exist, self-loop rules, and the allowed-relationships matrix.
func (m *Model) CreateRelationship(typ RelationshipType, srcID, tgtID ElementID, name string, props PropertyMap, access AccessVariant, strength InfluenceStrength, folder FolderID) (*Relationship, error) {
	if !IsValidRelationshipType(typ) {
		return nil, fmt.Errorf("unknown relationship type %q", typ)
	}
	src, ok := m.elements[srcID]
	if !ok {
		return nil, fmt.Errorf("source element %s not found", srcID)
	}
	tgt, ok := m.elements[tgtID]
	if !ok {
		return nil, fmt.Errorf("target element %s not found", tgtID)
	}
	if srcID == tgtID && !AllowsSelfLoop(typ) {
		return nil, fmt.Errorf("relationship type %s does not permit self-loops", typ)
	}
	if !m.Matrix.Allows(src.Type, typ, tgt.Type) {
		return nil, fmt.Errorf("relationship %s from %s to %s violates the allowed-relationships matrix", typ, src.Type, tgt.Type)
	}
	r := &Relationship{
		ID: NewRelationshipID(), Type: typ, SourceID: srcID, TargetID: tgtID,
		Name: name, Properties: props.Clone(), AccessType: access, Strength: strength,
		FolderID: folder,
	}
	m.relationships[r.ID] = r
	return r, nil
}

// InsertRelationship inserts a fully-formed relationship, used by undo
// replay.
func (m *Model) InsertRelationship(r *Relationship) { m.relationships[r.ID] = r.Clone() }

// GetRelationship returns the relationship with the given ID.
func (m *Model) GetRelationship(id RelationshipID) (*Relationship, bool) {
	r, ok := m.relationships[id]
	return r, ok
}

// UpdateRelationship applies fn to a copy of the relationship and stores it
// back, returning the pre-mutation copy for undo capture.
func (m *Model) UpdateRelationship(id RelationshipID, fn func(*Relationship)) (before *Relationship, err error) {
	r, ok := m.relationships[id]
	if !ok {
		return nil, fmt.Errorf("relationship %s not found", id)
	}
	before = r.Clone()
	fn(r)
	return before, nil
}

// DeleteRelationship removes a relationship and any visual connections
// representing it.
func (m *Model) DeleteRelationship(id RelationshipID) (removedVisuals []*VisualConnection, err error) {
	if _, ok := m.relationships[id]; !ok {
		return nil, fmt.Errorf("relationship %s not found", id)
	}
	for _, v := range m.views {
		for _, conn := range v.Connections {
			if conn.RelationshipID == id {
				removedVisuals = append(removedVisuals, conn.Clone())
				delete(v.Connections, conn.ID)
			}
		}
	}
	delete(m.relationships, id)
	return removedVisuals, nil
}

// FindRelationshipByIdentity looks up a relationship by its duplicate-
// detection identity.
func (m *Model) FindRelationshipByIdentity(key RelationshipIdentity) (*Relationship, bool) {
	for _, r := range m.relationships {
		if r.IdentityKey() == key {
			return r, true
		}
	}
	return nil, false
}

// ---------------------------------------------------------------------
// Folder primitives
// ---------------------------------------------------------------------

// CreateFolder inserts a new folder.
func (m *Model) CreateFolder(name string, typ Layer, parent FolderID) (*Folder, error) {
	f := &Folder{ID: NewFolderID(), Name: name, Type: typ, ParentID: parent}
	m.folders[f.ID] = f
	if parent != "" {
		if p, ok := m.folders[parent]; ok {
			p.Children = append(p.Children, f.ID)
		}
	}
	return f, nil
}

// InsertFolder inserts a fully-formed folder, used by undo replay.
func (m *Model) InsertFolder(f *Folder) { m.folders[f.ID] = f.Clone() }

// GetFolder returns the folder with the given ID.
func (m *Model) GetFolder(id FolderID) (*Folder, bool) {
	f, ok := m.folders[id]
	return f, ok
}

// ListFolders returns every folder in the model.
func (m *Model) ListFolders() []*Folder {
	out := make([]*Folder, 0, len(m.folders))
	for _, f := range m.folders {
		out = append(out, f)
	}
	return out
}

// MoveToFolder reassigns an element or relationship's folder, returning the
// previous folder ID for undo capture.
func (m *Model) MoveToFolder(elementID ElementID, relationshipID RelationshipID, folder FolderID) (previous FolderID, err error) {
	switch {
	case elementID != "":
		e, ok := m.elements[elementID]
		if !ok {
			return "", fmt.Errorf("element %s not found", elementID)
		}
		previous = e.FolderID
		e.FolderID = folder
	case relationshipID != "":
		r, ok := m.relationships[relationshipID]
		if !ok {
			return "", fmt.Errorf("relationship %s not found", relationshipID)
		}
		previous = r.FolderID
		r.FolderID = folder
	default:
		return "", fmt.Errorf("moveToFolder requires an elementId or relationshipId")
	}
	return previous, nil
}

// ---------------------------------------------------------------------
// View primitives
// ---------------------------------------------------------------------

// CreateView inserts a new, empty view.
func (m *Model) CreateView(name, viewpoint string, folder FolderID) (*View, error) {
	v := &View{
		ID: NewViewID(), Name: name, Viewpoint: viewpoint, FolderID: folder,
		Objects:     make(map[VisualID]*VisualObject),
		Connections: make(map[VisualID]*VisualConnection),
		Notes:       make(map[VisualID]*Note),
		Groups:      make(map[VisualID]*Group),
		RouterStyle: RouterStraight,
	}
	m.views[v.ID] = v
	return v, nil
}

// InsertView inserts a fully-formed view, used by undo replay.
func (m *Model) InsertView(v *View) { m.views[v.ID] = v.Clone() }

// GetView returns the view with the given ID.
func (m *Model) GetView(id ViewID) (*View, bool) {
	v, ok := m.views[id]
	return v, ok
}

// ListViews returns every view in the model.
func (m *Model) ListViews() []*View {
	out := make([]*View, 0, len(m.views))
	for _, v := range m.views {
		out = append(out, v)
	}
	return out
}

// DeleteView removes a view and everything it owns.
func (m *Model) DeleteView(id ViewID) (*View, error) {
	v, ok := m.views[id]
	if !ok {
		return nil, fmt.Errorf("view %s not found", id)
	}
	removed := v.Clone()
	delete(m.views, id)
	return removed, nil
}

// ---------------------------------------------------------------------
// Diagnostics support
// ---------------------------------------------------------------------

// Counts returns the total number of elements, relationships, views, and
// folders, used by /model/stats and by chunk-atomicity tests.
func (m *Model) Counts() (elements, relationships, views, folders int) {
	return len(m.elements), len(m.relationships), len(m.views), len(m.folders)
}

// AllElements returns every element, for snapshot and diagnostics use.
func (m *Model) AllElements() []*Element {
	out := make([]*Element, 0, len(m.elements))
	for _, e := range m.elements {
		out = append(out, e)
	}
	return out
}

// AllRelationships returns every relationship, for snapshot and
// diagnostics use.
func (m *Model) AllRelationships() []*Relationship {
	out := make([]*Relationship, 0, len(m.relationships))
	for _, r := range m.relationships {
		out = append(out, r)
	}
	return out
}

// SavePath returns the most recent path the model was saved to, or "".
func (m *Model) SavePath() string { return m.savePath }

// SetSavePath records the path the model was last saved to.
func (m *Model) SetSavePath(p string) { m.savePath = p }

// Snapshot returns a deep, read-consistent copy of the entire model,
// suitable for handing to a goroutine outside the model actor (spec.md
// §4.8, §5: "Reads are served from a point-in-time snapshot").
func (m *Model) Snapshot() *Model {
	c := New()
	c.Matrix = m.Matrix
	c.savePath = m.savePath
	for id, e := range m.elements {
		c.elements[id] = e.Clone()
	}
	for id, r := range m.relationships {
		c.relationships[id] = r.Clone()
	}
	for id, v := range m.views {
		c.views[id] = v.Clone()
	}
	for id, f := range m.folders {
		c.folders[id] = f.Clone()
	}
	return c
}
