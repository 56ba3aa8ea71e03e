package model

// View is a named diagram containing Visual Objects and Visual Connections.
type View struct {
	ID        ViewID
	Name      string
	Viewpoint string
	FolderID  FolderID

	Objects     map[VisualID]*VisualObject
	Connections map[VisualID]*VisualConnection
	Notes       map[VisualID]*Note
	Groups      map[VisualID]*Group

	// RouterStyle is the connection-routing preset (C9): straight or
	// manhattan, set by PUT /views/{id}/router.
	RouterStyle RouterStyle
}

// RouterStyle selects the connection-routing preset for a view.
type RouterStyle string

const (
	RouterStraight  RouterStyle = "straight-with-bendpoints"
	RouterManhattan RouterStyle = "manhattan"
)

// Style carries the visual styling attributes shared by objects and
// connections.
type Style struct {
	FillColor    string
	LineColor    string
	FontColor    string
	LineWidth    float64
	Opacity      float64
	TextAlignment string
}

// VisualObject is a diagram instance of an Element inside a specific view.
type VisualObject struct {
	ID        VisualID
	ElementID ElementID
	ViewID    ViewID

	// ParentVisualID, when non-empty, means X/Y are parent-relative;
	// otherwise they are relative to the view root (absolute).
	ParentVisualID VisualID
	X, Y           float64
	Width, Height  float64
	Style          Style
}

// IsNested reports whether the object has a parent visual.
func (v *VisualObject) IsNested() bool { return v.ParentVisualID != "" }

// Clone returns a deep copy suitable for snapshotting.
func (v *VisualObject) Clone() *VisualObject {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// VisualConnection is a diagram instance of a Relationship on a view.
type VisualConnection struct {
	ID               VisualID
	RelationshipID   RelationshipID
	ViewID           ViewID
	SourceVisualID   VisualID
	TargetVisualID   VisualID
	Style            Style
	Bendpoints       []AbsolutePoint
}

// Clone returns a deep copy suitable for snapshotting.
func (c *VisualConnection) Clone() *VisualConnection {
	if c == nil {
		return nil
	}
	out := *c
	out.Bendpoints = append([]AbsolutePoint(nil), c.Bendpoints...)
	return &out
}

// IdentityKey is the duplicate-detection key for connections: a view must
// not contain the same (relationshipId, sourceVisualId, targetVisualId)
// triple twice.
func (c *VisualConnection) IdentityKey() ConnectionIdentity {
	return ConnectionIdentity{
		RelationshipID: c.RelationshipID,
		SourceVisualID: c.SourceVisualID,
		TargetVisualID: c.TargetVisualID,
	}
}

// ConnectionIdentity is the duplicate-detection key for visual connections.
type ConnectionIdentity struct {
	RelationshipID RelationshipID
	SourceVisualID VisualID
	TargetVisualID VisualID
}

// Note is a diagram decoration carrying free text, not a model concept.
type Note struct {
	ID                         VisualID
	ViewID                     ViewID
	Content                    string
	X, Y, Width, Height        float64
	Style                      Style
}

// Group is a diagram decoration that visually groups other visuals, not a
// model concept.
type Group struct {
	ID                  VisualID
	ViewID              ViewID
	Name                string
	X, Y, Width, Height float64
	Style               Style
}

// Clone returns a deep copy of the view and everything it owns
// (VisualObjects and VisualConnections are exclusively owned by their
// view per spec.md §3).
func (v *View) Clone() *View {
	if v == nil {
		return nil
	}
	c := &View{
		ID: v.ID, Name: v.Name, Viewpoint: v.Viewpoint, FolderID: v.FolderID,
		RouterStyle: v.RouterStyle,
		Objects:     make(map[VisualID]*VisualObject, len(v.Objects)),
		Connections: make(map[VisualID]*VisualConnection, len(v.Connections)),
		Notes:       make(map[VisualID]*Note, len(v.Notes)),
		Groups:      make(map[VisualID]*Group, len(v.Groups)),
	}
	for id, o := range v.Objects {
		c.Objects[id] = o.Clone()
	}
	for id, conn := range v.Connections {
		c.Connections[id] = conn.Clone()
	}
	for id, n := range v.Notes {
		nc := *n
		c.Notes[id] = &nc
	}
	for id, g := range v.Groups {
		gc := *g
		c.Groups[id] = &gc
	}
	return c
}
