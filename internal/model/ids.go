// Package model defines the ArchiMate data model archiplane serves: the
// element/relationship/view/folder graph, its closed type catalogs, and the
// allowed-relationships matrix. Mutation primitives live on *Model in
// graph.go; everything in this package is pure data plus validation.
package model

import "archiplane/internal/idgen"

// ElementID is the durable, immutable real ID of an Element.
type ElementID string

// RelationshipID is the durable, immutable real ID of a Relationship.
type RelationshipID string

// ViewID is the durable, immutable real ID of a View.
type ViewID string

// FolderID is the durable, immutable real ID of a Folder.
type FolderID string

// VisualID identifies a diagram instance (Visual Object or Visual
// Connection) on a specific View, distinct from the concept ID it
// represents.
type VisualID string

// TempID is a caller-chosen symbolic identifier attached to a creation op.
// It resolves to a real ID after execution and never appears in the model
// itself.
type TempID string

// OperationID identifies a single /model/apply submission and its outcomes.
type OperationID string

func NewElementID() ElementID         { return ElementID(idgen.NewPrefixed("elem")) }
func NewRelationshipID() RelationshipID { return RelationshipID(idgen.NewPrefixed("rel")) }
func NewViewID() ViewID               { return ViewID(idgen.NewPrefixed("view")) }
func NewFolderID() FolderID           { return FolderID(idgen.NewPrefixed("folder")) }
func NewVisualID() VisualID           { return VisualID(idgen.NewPrefixed("vis")) }
func NewOperationID() OperationID     { return OperationID(idgen.NewPrefixed("op")) }
