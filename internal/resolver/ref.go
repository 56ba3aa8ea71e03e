// Package resolver resolves the symbolic references embedded in a BOM
// (tempIds, idFile entries, and optional name fallback) into real IDs
// before the Apply Engine dispatches any chunk. Ref is the tagged union
// spec.md §9 calls for: `Ref = TempId(string) | RealId(string) |
// Name(string)`; downstream code (the Apply Engine's execution loop) works
// exclusively with the Kind-discriminated Ref, never a bare string.
package resolver

import (
	"fmt"

	"archiplane/internal/apperr"
	"archiplane/internal/bom"
	"archiplane/internal/model"
)

// Kind discriminates a Ref.
type Kind string

const (
	RefTempID Kind = "temp"
	RefRealID Kind = "real"
	RefName   Kind = "name"
)

// Ref is a resolved-or-pending symbolic reference. TempID refs are not yet
// real IDs — the Apply Engine substitutes them from its own running
// tempId→realId map at the point the referenced entity has been created.
type Ref struct {
	Kind  Kind
	Value string // the tempId, the real ID, or (for RefName) the real ID already found by name
}

// Resolver classifies raw BOM reference strings. It is built once per
// submission from the full set of tempIds the batch defines and any
// preloaded idFile maps, then consulted for every symbolic field on every
// Change.
type Resolver struct {
	tempIDs      map[string]bool
	idFileMap    map[string]string
	resolveNames bool
}

// New returns a Resolver seeded with preloaded idFile mappings (priority 2)
// and whether name fallback (priority 3) is enabled.
func New(idFileMap map[string]string, resolveNames bool) *Resolver {
	if idFileMap == nil {
		idFileMap = map[string]string{}
	}
	return &Resolver{tempIDs: map[string]bool{}, idFileMap: idFileMap, resolveNames: resolveNames}
}

// RegisterTempIDs scans every change in doc and records the tempIds the
// batch itself defines (priority 1).
func (r *Resolver) RegisterTempIDs(doc *bom.Document) {
	for _, c := range doc.Changes {
		if c.TempID != "" {
			r.tempIDs[c.TempID] = true
		}
	}
}

// Classify determines what kind of reference raw is, without requiring the
// referenced entity to exist yet (a tempId is classified even though its
// real ID isn't known until execution). exists reports whether the model
// already has an element/relationship/view/folder with ID raw.
func (r *Resolver) Classify(raw bom.RefField, exists func(id string) bool) (Ref, error) {
	s := string(raw)
	if s == "" {
		return Ref{}, apperr.NewResolution("empty reference")
	}
	if r.tempIDs[s] {
		return Ref{Kind: RefTempID, Value: s}, nil
	}
	if real, ok := r.idFileMap[s]; ok {
		return Ref{Kind: RefRealID, Value: real}, nil
	}
	if exists(s) {
		return Ref{Kind: RefRealID, Value: s}, nil
	}
	return Ref{}, apperr.NewResolution(fmt.Sprintf("reference %q does not resolve to a tempId, idFile entry, or existing id", s))
}

// ClassifyElement classifies an element reference, adding the optional
// name-fallback lookup (priority 3) against m's elements.
func (r *Resolver) ClassifyElement(raw bom.RefField, expectedType model.ElementType, m *model.Model) (Ref, error) {
	ref, err := r.Classify(raw, func(id string) bool {
		_, ok := m.GetElement(model.ElementID(id))
		return ok
	})
	if err == nil {
		return ref, nil
	}
	if r.resolveNames {
		if e, ok := m.FindElementByName(string(raw), expectedType); ok {
			return Ref{Kind: RefName, Value: string(e.ID)}, nil
		}
	}
	return Ref{}, err
}

// ClassifyRelationship classifies a relationship reference (no name
// fallback — relationships aren't looked up by name).
func (r *Resolver) ClassifyRelationship(raw bom.RefField, m *model.Model) (Ref, error) {
	return r.Classify(raw, func(id string) bool {
		_, ok := m.GetRelationship(model.RelationshipID(id))
		return ok
	})
}

// ClassifyView classifies a view reference.
func (r *Resolver) ClassifyView(raw bom.RefField, m *model.Model) (Ref, error) {
	return r.Classify(raw, func(id string) bool {
		_, ok := m.GetView(model.ViewID(id))
		return ok
	})
}

// ClassifyFolder classifies a folder reference. An empty raw is valid (the
// root folder) and classifies as an already-resolved empty real ID.
func (r *Resolver) ClassifyFolder(raw bom.RefField, m *model.Model) (Ref, error) {
	if raw == "" {
		return Ref{Kind: RefRealID, Value: ""}, nil
	}
	return r.Classify(raw, func(id string) bool {
		_, ok := m.GetFolder(model.FolderID(id))
		return ok
	})
}

// ClassifyVisual classifies a visual reference scoped to one view (tempId
// or a real visual id already present in that view; no name fallback).
func (r *Resolver) ClassifyVisual(raw bom.RefField, viewID model.ViewID, m *model.Model) (Ref, error) {
	return r.Classify(raw, func(id string) bool {
		v, ok := m.GetView(viewID)
		if !ok {
			return false
		}
		if _, ok := v.Objects[model.VisualID(id)]; ok {
			return true
		}
		_, ok = v.Connections[model.VisualID(id)]
		return ok
	})
}

// Bind converts a Ref into a concrete ID string using tempToReal, the Apply
// Engine's running map of tempId to realId built up as earlier changes in
// the submission execute. It is an error to Bind a TempID ref whose
// creation hasn't executed yet — the chunk planner is responsible for
// ordering changes so this never happens for a well-formed plan.
func Bind(ref Ref, tempToReal map[string]string) (string, error) {
	switch ref.Kind {
	case RefRealID, RefName:
		return ref.Value, nil
	case RefTempID:
		real, ok := tempToReal[ref.Value]
		if !ok {
			return "", apperr.NewResolution(fmt.Sprintf("tempId %q referenced before its creation executed", ref.Value))
		}
		return real, nil
	default:
		return "", apperr.NewResolution("unresolvable reference")
	}
}
