// Package validate implements the BOM schema and semantic validation layer
// (C2): catalog membership, the allowed-relationships matrix, nested-parent
// existence, and duplicate detection under the caller's duplicate policy.
// Schema-level field validation already happened during bom.DecodeChange
// via struct tags (go-playground/validator/v10); this package is the
// semantic pass that needs the model and the resolver to run.
package validate

import (
	"fmt"
	"math"

	"archiplane/internal/apperr"
	"archiplane/internal/bom"
	"archiplane/internal/model"
	"archiplane/internal/resolver"
)

// DuplicatePolicy controls what happens when a createElement/
// createRelationship op collides with an existing (type, name) or
// (type, source, target, accessType, strength) identity.
type DuplicatePolicy string

const (
	DuplicateError  DuplicatePolicy = "error"
	DuplicateReuse  DuplicatePolicy = "reuse"
	DuplicateRename DuplicatePolicy = "rename"
)

// Issue is one semantic violation found during preflight, shaped for
// apperr.Error's (changeIndex, tempId) attribution.
type Issue struct {
	ChangeIndex int
	Op          bom.Op
	TempID      string
	Cause       string
}

// Result is the outcome of a full-batch preflight pass.
type Result struct {
	Issues []Issue
	// Refs carries the classified Ref for every symbolic field on every
	// change, keyed by change index then field name, so the Apply Engine
	// doesn't have to re-run classification during execution.
	Refs map[int]map[string]resolver.Ref
}

func (r *Result) fail(idx int, op bom.Op, tempID, cause string) {
	r.Issues = append(r.Issues, Issue{ChangeIndex: idx, Op: op, TempID: tempID, Cause: cause})
}

// Preflight validates every change in doc against the catalog, the allowed
// matrix, nesting, and duplicate rules, returning every violation found
// (haltOnFirst=false mirrors "the engine may surface one or all violations
// depending on mode" from spec.md §4.2). It also returns the resolver's
// classification for every reference, consumed by internal/apply.
func Preflight(doc *bom.Document, m *model.Model, res *resolver.Resolver, policy DuplicatePolicy, haltOnFirst bool) (*Result, error) {
	result := &Result{Refs: map[int]map[string]resolver.Ref{}}

	batchType := map[string]model.ElementType{}   // tempId -> type, for elements created in this batch
	seenElems := map[model.ElementIdentity]string{}      // identity -> tempId/realId owning it
	seenRels := map[model.RelationshipIdentity]string{}  // identity -> tempId/realId owning it
	seenConns := map[model.ConnectionIdentity]bool{}

	resolveElementType := func(ref resolver.Ref) (model.ElementType, bool) {
		if ref.Kind == resolver.RefTempID {
			t, ok := batchType[ref.Value]
			return t, ok
		}
		e, ok := m.GetElement(model.ElementID(ref.Value))
		if !ok {
			return "", false
		}
		return e.Type, true
	}

	setRef := func(idx int, field string, ref resolver.Ref) {
		if result.Refs[idx] == nil {
			result.Refs[idx] = map[string]resolver.Ref{}
		}
		result.Refs[idx][field] = ref
	}

	for _, c := range doc.Changes {
		if haltOnFirst && len(result.Issues) > 0 {
			break
		}
		switch f := c.Fields.(type) {
		case bom.CreateElementFields:
			if !model.IsValidElementType(model.ElementType(f.Type)) {
				result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("unknown element type %q", f.Type))
				continue
			}
			identity := model.ElementIdentity{Type: model.ElementType(f.Type), Name: f.Name}
			if owner, dup := seenElems[identity]; dup && c.Op == bom.OpCreateElement {
				if policy == DuplicateError {
					result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("duplicate element (type=%s, name=%s), already defined by %s", f.Type, f.Name, owner))
					continue
				}
			}
			if _, exists := m.FindElementByIdentity(identity); exists && c.Op == bom.OpCreateElement && policy == DuplicateError {
				result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("duplicate element (type=%s, name=%s) already present in model", f.Type, f.Name))
				continue
			}
			if policy == DuplicateRename && c.Op == bom.OpCreateElement {
				// rename is only meaningful against a genuine collision; record
				// nothing here, the Apply Engine performs the actual rename.
			}
			seenElems[identity] = owningKey(c.TempID, c.Index)
			if c.TempID != "" {
				batchType[c.TempID] = model.ElementType(f.Type)
			}
			if f.FolderID != "" {
				ref, err := res.ClassifyFolder(f.FolderID, m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, err.Error())
					continue
				}
				setRef(c.Index, "folderId", ref)
			}

		case bom.CreateRelationshipFields:
			if !model.IsValidRelationshipType(model.RelationshipType(f.Type)) {
				result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("unknown relationship type %q", f.Type))
				continue
			}
			srcRef, err := res.ClassifyElement(f.SourceID, "", m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			tgtRef, err := res.ClassifyElement(f.TargetID, "", m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "sourceId", srcRef)
			setRef(c.Index, "targetId", tgtRef)

			if srcRef.Kind != resolver.RefTempID && tgtRef.Kind != resolver.RefTempID && srcRef.Value == tgtRef.Value &&
				!model.AllowsSelfLoop(model.RelationshipType(f.Type)) {
				result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("relationship type %s does not permit self-loops", f.Type))
				continue
			}
			if srcType, ok := resolveElementType(srcRef); ok {
				if tgtType, ok := resolveElementType(tgtRef); ok {
					if !m.Matrix.Allows(srcType, model.RelationshipType(f.Type), tgtType) {
						result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("relationship %s from %s to %s violates the allowed-relationships matrix", f.Type, srcType, tgtType))
						continue
					}
				}
			}
			identity := model.RelationshipIdentity{
				Type: model.RelationshipType(f.Type), SourceID: model.ElementID(srcRef.Value), TargetID: model.ElementID(tgtRef.Value),
				AccessType: model.AccessVariant(f.AccessType), Strength: model.InfluenceStrength(f.Strength),
			}
			if srcRef.Kind != resolver.RefTempID && tgtRef.Kind != resolver.RefTempID {
				if owner, dup := seenRels[identity]; dup && c.Op == bom.OpCreateRelationship && policy == DuplicateError {
					result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("duplicate relationship, already defined by %s", owner))
					continue
				}
				if _, exists := m.FindRelationshipByIdentity(identity); exists && c.Op == bom.OpCreateRelationship && policy == DuplicateError {
					result.fail(c.Index, c.Op, c.TempID, "duplicate relationship already present in model")
					continue
				}
				if policy == DuplicateRename {
					result.fail(c.Index, c.Op, c.TempID, "rename duplicate policy is not valid for relationships")
					continue
				}
				seenRels[identity] = owningKey(c.TempID, c.Index)
			}
			if f.FolderID != "" {
				ref, err := res.ClassifyFolder(f.FolderID, m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, err.Error())
					continue
				}
				setRef(c.Index, "folderId", ref)
			}

		case bom.UpdateElementFields:
			ref, err := res.ClassifyElement(f.ID, "", m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "id", ref)

		case bom.UpdateRelationshipFields:
			ref, err := res.ClassifyRelationship(f.ID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "id", ref)

		case bom.DeleteElementFields:
			ref, err := res.ClassifyElement(f.ID, "", m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "id", ref)

		case bom.DeleteRelationshipFields:
			ref, err := res.ClassifyRelationship(f.ID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "id", ref)

		case bom.SetPropertyFields:
			if f.ElementID == "" && f.RelationshipID == "" {
				result.fail(c.Index, c.Op, c.TempID, "setProperty requires elementId or relationshipId")
				continue
			}
			if f.ElementID != "" {
				ref, err := res.ClassifyElement(f.ElementID, "", m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, err.Error())
					continue
				}
				setRef(c.Index, "elementId", ref)
			}
			if f.RelationshipID != "" {
				ref, err := res.ClassifyRelationship(f.RelationshipID, m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, err.Error())
					continue
				}
				setRef(c.Index, "relationshipId", ref)
			}

		case bom.MoveToFolderFields:
			if f.ElementID != "" {
				ref, err := res.ClassifyElement(f.ElementID, "", m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, err.Error())
					continue
				}
				setRef(c.Index, "elementId", ref)
			}
			if f.RelationshipID != "" {
				ref, err := res.ClassifyRelationship(f.RelationshipID, m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, err.Error())
					continue
				}
				setRef(c.Index, "relationshipId", ref)
			}
			ref, err := res.ClassifyFolder(f.FolderID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "folderId", ref)

		case bom.CreateFolderFields:
			if f.ParentID != "" {
				ref, err := res.ClassifyFolder(f.ParentID, m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, err.Error())
					continue
				}
				setRef(c.Index, "parentId", ref)
			}

		case bom.CreateViewFields:
			if f.FolderID != "" {
				ref, err := res.ClassifyFolder(f.FolderID, m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, err.Error())
					continue
				}
				setRef(c.Index, "folderId", ref)
			}

		case bom.DeleteViewFields:
			ref, err := res.ClassifyView(f.ID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "id", ref)

		case bom.AddToViewFields:
			viewRef, err := res.ClassifyView(f.ViewID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "viewId", viewRef)
			elemRef, err := res.ClassifyElement(f.ElementID, "", m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "elementId", elemRef)
			if f.ParentVisualID != "" {
				if viewRef.Kind == resolver.RefTempID {
					result.fail(c.Index, c.Op, c.TempID, "nesting under a parent visual in a not-yet-created view is not supported")
					continue
				}
				parentRef, err := res.ClassifyVisual(f.ParentVisualID, model.ViewID(viewRef.Value), m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("parent visual %q does not exist in view", f.ParentVisualID))
					continue
				}
				setRef(c.Index, "parentVisualId", parentRef)
			}
			if !finite(f.X) || !finite(f.Y) || !finite(f.Width) || !finite(f.Height) {
				result.fail(c.Index, c.Op, c.TempID, "geometry must be finite")
				continue
			}

		case bom.NestInViewFields:
			viewRef, err := res.ClassifyView(f.ViewID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "viewId", viewRef)
			if viewRef.Kind != resolver.RefTempID {
				visRef, err := res.ClassifyVisual(f.VisualID, model.ViewID(viewRef.Value), m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, err.Error())
					continue
				}
				setRef(c.Index, "visualId", visRef)
				parentRef, err := res.ClassifyVisual(f.ParentVisualID, model.ViewID(viewRef.Value), m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("parent visual %q does not exist in view", f.ParentVisualID))
					continue
				}
				setRef(c.Index, "parentVisualId", parentRef)
			}

		case bom.AddConnectionToViewFields:
			viewRef, err := res.ClassifyView(f.ViewID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "viewId", viewRef)
			relRef, err := res.ClassifyRelationship(f.RelationshipID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "relationshipId", relRef)
			if viewRef.Kind == resolver.RefTempID {
				continue // view itself not yet created; direction/dup checks deferred to execution time
			}
			srcVisRef, err := res.ClassifyVisual(f.SourceVisualID, model.ViewID(viewRef.Value), m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("source visual %q does not exist in view", f.SourceVisualID))
				continue
			}
			tgtVisRef, err := res.ClassifyVisual(f.TargetVisualID, model.ViewID(viewRef.Value), m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("target visual %q does not exist in view", f.TargetVisualID))
				continue
			}
			setRef(c.Index, "sourceVisualId", srcVisRef)
			setRef(c.Index, "targetVisualId", tgtVisRef)

			if relRef.Kind != resolver.RefTempID && srcVisRef.Kind != resolver.RefTempID && tgtVisRef.Kind != resolver.RefTempID {
				rel, ok := m.GetRelationship(model.RelationshipID(relRef.Value))
				v, vok := m.GetView(model.ViewID(viewRef.Value))
				if ok && vok {
					srcVis := v.Objects[model.VisualID(srcVisRef.Value)]
					tgtVis := v.Objects[model.VisualID(tgtVisRef.Value)]
					if srcVis != nil && tgtVis != nil {
						if srcVis.ElementID != rel.SourceID || tgtVis.ElementID != rel.TargetID {
							result.fail(c.Index, c.Op, c.TempID, "sourceVisualId/targetVisualId do not match the relationship's direction")
							continue
						}
					}
					connIdentity := model.ConnectionIdentity{RelationshipID: model.RelationshipID(relRef.Value), SourceVisualID: model.VisualID(srcVisRef.Value), TargetVisualID: model.VisualID(tgtVisRef.Value)}
					if seenConns[connIdentity] {
						result.fail(c.Index, c.Op, c.TempID, "duplicate visual connection in this batch")
						continue
					}
					for _, existing := range v.Connections {
						if existing.IdentityKey() == connIdentity {
							result.fail(c.Index, c.Op, c.TempID, "duplicate visual connection already present in view")
							continue
						}
					}
					seenConns[connIdentity] = true
				}
			}

		case bom.DeleteConnectionFromViewFields:
			viewRef, err := res.ClassifyView(f.ViewID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "viewId", viewRef)
			if viewRef.Kind != resolver.RefTempID {
				idRef, err := res.ClassifyVisual(f.ID, model.ViewID(viewRef.Value), m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("connection %q does not exist in view", f.ID))
					continue
				}
				setRef(c.Index, "id", idRef)
			}

		case bom.StyleViewObjectFields:
			viewRef, err := res.ClassifyView(f.ViewID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "viewId", viewRef)
			if viewRef.Kind != resolver.RefTempID {
				idRef, err := res.ClassifyVisual(f.ID, model.ViewID(viewRef.Value), m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("visual %q does not exist in view", f.ID))
					continue
				}
				setRef(c.Index, "id", idRef)
			}

		case bom.StyleConnectionFields:
			viewRef, err := res.ClassifyView(f.ViewID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "viewId", viewRef)
			if viewRef.Kind != resolver.RefTempID {
				idRef, err := res.ClassifyVisual(f.ID, model.ViewID(viewRef.Value), m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("connection %q does not exist in view", f.ID))
					continue
				}
				setRef(c.Index, "id", idRef)
			}

		case bom.MoveViewObjectFields:
			viewRef, err := res.ClassifyView(f.ViewID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "viewId", viewRef)
			if !finite(f.X) || !finite(f.Y) {
				result.fail(c.Index, c.Op, c.TempID, "geometry must be finite")
				continue
			}
			if viewRef.Kind != resolver.RefTempID {
				idRef, err := res.ClassifyVisual(f.ID, model.ViewID(viewRef.Value), m)
				if err != nil {
					result.fail(c.Index, c.Op, c.TempID, fmt.Sprintf("visual %q does not exist in view", f.ID))
					continue
				}
				setRef(c.Index, "id", idRef)
			}

		case bom.CreateNoteFields:
			viewRef, err := res.ClassifyView(f.ViewID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "viewId", viewRef)

		case bom.CreateGroupFields:
			viewRef, err := res.ClassifyView(f.ViewID, m)
			if err != nil {
				result.fail(c.Index, c.Op, c.TempID, err.Error())
				continue
			}
			setRef(c.Index, "viewId", viewRef)
		}
	}

	if len(result.Issues) > 0 {
		first := result.Issues[0]
		return result, apperr.NewValidation(first.Cause).WithChangeIndex(first.ChangeIndex).WithTempID(first.TempID).
			WithDetail("issueCount", len(result.Issues))
	}
	return result, nil
}

func owningKey(tempID string, index int) string {
	if tempID != "" {
		return tempID
	}
	return fmt.Sprintf("change[%d]", index)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
