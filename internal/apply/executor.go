package apply

import (
	"fmt"

	"archiplane/internal/adapter"
	"archiplane/internal/apperr"
	"archiplane/internal/bom"
	"archiplane/internal/model"
	"archiplane/internal/resolver"
	"archiplane/internal/undo"
	"archiplane/internal/validate"
	"archiplane/internal/viewcompose"
)

// bind resolves a field's classified Ref (looked up by field name in refs)
// into a concrete ID string, treating a missing/empty ref as "" (optional
// field left unset).
func bind(refs map[string]resolver.Ref, field string, tempToReal map[string]string) (string, error) {
	ref, ok := refs[field]
	if !ok {
		return "", nil
	}
	return resolver.Bind(ref, tempToReal)
}

// executeChange dispatches one change to the Model Adapter or View
// Composer, updating tempToReal with any newly minted real ID and
// returning the change's Outcome. Rename/reuse duplicate-policy handling
// for the two createOrGet*/create* op families happens here since it
// needs the live model state at execution time, not preflight time.
func executeChange(m *model.Model, c *undo.Compound, ch bom.Change, refs map[string]resolver.Ref, tempToReal map[string]string, policy validate.DuplicatePolicy) (Outcome, error) {
	out := Outcome{Index: ch.Index, Op: string(ch.Op), TempID: ch.TempID}

	remember := func(id string) {
		out.RealID = id
		if ch.TempID != "" {
			tempToReal[ch.TempID] = id
		}
	}

	switch f := ch.Fields.(type) {
	case bom.CreateElementFields:
		folder, err := bind(refs, "folderId", tempToReal)
		if err != nil {
			return out, err
		}
		typ := model.ElementType(f.Type)
		identity := model.ElementIdentity{Type: typ, Name: f.Name}
		reuse := ch.Op == bom.OpCreateOrGetElement || policy == validate.DuplicateReuse
		if reuse {
			if existing, ok := m.FindElementByIdentity(identity); ok {
				out.Status = OutcomeReused
				remember(string(existing.ID))
				return out, nil
			}
		}
		name := f.Name
		if policy == validate.DuplicateRename && ch.Op == bom.OpCreateElement {
			if _, ok := m.FindElementByIdentity(identity); ok {
				name = renameCandidate(name, func(n string) bool {
					_, exists := m.FindElementByIdentity(model.ElementIdentity{Type: typ, Name: n})
					return exists
				})
				out.Status = OutcomeRenamed
			}
		}
		e, err := adapter.CreateElement(m, c, typ, name, f.Documentation, model.PropertyMap(f.Properties), model.FolderID(folder))
		if err != nil {
			return out, err
		}
		if out.Status == "" {
			out.Status = OutcomeCreated
		}
		remember(string(e.ID))
		return out, nil

	case bom.CreateRelationshipFields:
		srcID, err := bind(refs, "sourceId", tempToReal)
		if err != nil {
			return out, err
		}
		tgtID, err := bind(refs, "targetId", tempToReal)
		if err != nil {
			return out, err
		}
		folder, err := bind(refs, "folderId", tempToReal)
		if err != nil {
			return out, err
		}
		typ := model.RelationshipType(f.Type)
		access := model.AccessVariant(f.AccessType)
		strength := model.InfluenceStrength(f.Strength)
		identity := model.RelationshipIdentity{Type: typ, SourceID: model.ElementID(srcID), TargetID: model.ElementID(tgtID), AccessType: access, Strength: strength}
		reuse := ch.Op == bom.OpCreateOrGetRelationship || policy == validate.DuplicateReuse
		if reuse {
			if existing, ok := m.FindRelationshipByIdentity(identity); ok {
				out.Status = OutcomeReused
				remember(string(existing.ID))
				return out, nil
			}
		}
		r, err := adapter.CreateRelationship(m, c, typ, model.ElementID(srcID), model.ElementID(tgtID), f.Name, model.PropertyMap(f.Properties), access, strength, model.FolderID(folder))
		if err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(string(r.ID))
		return out, nil

	case bom.UpdateElementFields:
		id, err := bind(refs, "id", tempToReal)
		if err != nil {
			return out, err
		}
		err = adapter.UpdateElement(m, c, model.ElementID(id), func(e *model.Element) {
			if f.Name != nil {
				e.Name = *f.Name
			}
			if f.Documentation != nil {
				e.Documentation = *f.Documentation
			}
			for k, v := range f.Properties {
				if e.Properties == nil {
					e.Properties = model.PropertyMap{}
				}
				e.Properties[k] = v
			}
		})
		if err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(id)
		return out, nil

	case bom.UpdateRelationshipFields:
		id, err := bind(refs, "id", tempToReal)
		if err != nil {
			return out, err
		}
		err = adapter.UpdateRelationship(m, c, model.RelationshipID(id), func(r *model.Relationship) {
			if f.Name != nil {
				r.Name = *f.Name
			}
			for k, v := range f.Properties {
				if r.Properties == nil {
					r.Properties = model.PropertyMap{}
				}
				r.Properties[k] = v
			}
		})
		if err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(id)
		return out, nil

	case bom.DeleteElementFields:
		id, err := bind(refs, "id", tempToReal)
		if err != nil {
			return out, err
		}
		if err := adapter.DeleteElement(m, c, model.ElementID(id), f.CascadeOrDefault()); err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(id)
		return out, nil

	case bom.DeleteRelationshipFields:
		id, err := bind(refs, "id", tempToReal)
		if err != nil {
			return out, err
		}
		if err := adapter.DeleteRelationship(m, c, model.RelationshipID(id)); err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(id)
		return out, nil

	case bom.SetPropertyFields:
		elemID, err := bind(refs, "elementId", tempToReal)
		if err != nil {
			return out, err
		}
		relID, err := bind(refs, "relationshipId", tempToReal)
		if err != nil {
			return out, err
		}
		if err := adapter.SetProperty(m, c, model.ElementID(elemID), model.RelationshipID(relID), f.Key, f.Value); err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		return out, nil

	case bom.MoveToFolderFields:
		elemID, err := bind(refs, "elementId", tempToReal)
		if err != nil {
			return out, err
		}
		relID, err := bind(refs, "relationshipId", tempToReal)
		if err != nil {
			return out, err
		}
		folder, err := bind(refs, "folderId", tempToReal)
		if err != nil {
			return out, err
		}
		if err := adapter.MoveToFolder(m, c, model.ElementID(elemID), model.RelationshipID(relID), model.FolderID(folder)); err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		return out, nil

	case bom.CreateFolderFields:
		parent, err := bind(refs, "parentId", tempToReal)
		if err != nil {
			return out, err
		}
		folder, err := adapter.CreateFolder(m, c, f.Name, model.Layer(f.Type), model.FolderID(parent))
		if err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(string(folder.ID))
		return out, nil

	case bom.CreateViewFields:
		folder, err := bind(refs, "folderId", tempToReal)
		if err != nil {
			return out, err
		}
		v, err := adapter.CreateView(m, c, f.Name, f.Viewpoint, model.FolderID(folder))
		if err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(string(v.ID))
		return out, nil

	case bom.DeleteViewFields:
		id, err := bind(refs, "id", tempToReal)
		if err != nil {
			return out, err
		}
		if err := adapter.DeleteView(m, c, model.ViewID(id)); err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(id)
		return out, nil

	case bom.AddToViewFields:
		viewID, err := bind(refs, "viewId", tempToReal)
		if err != nil {
			return out, err
		}
		out.ViewID = viewID
		elemID, err := bind(refs, "elementId", tempToReal)
		if err != nil {
			return out, err
		}
		parent, err := bind(refs, "parentVisualId", tempToReal)
		if err != nil {
			return out, err
		}
		obj, err := viewcompose.AddToView(m, c, model.ViewID(viewID), model.ElementID(elemID), f.X, f.Y, f.Width, f.Height, model.VisualID(parent), model.Style{})
		if err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(string(obj.ID))
		return out, nil

	case bom.NestInViewFields:
		viewID, err := bind(refs, "viewId", tempToReal)
		if err != nil {
			return out, err
		}
		out.ViewID = viewID
		visID, err := bind(refs, "visualId", tempToReal)
		if err != nil {
			return out, err
		}
		parentID, err := bind(refs, "parentVisualId", tempToReal)
		if err != nil {
			return out, err
		}
		if err := viewcompose.NestInView(m, c, model.ViewID(viewID), model.VisualID(visID), model.VisualID(parentID), f.X, f.Y); err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(visID)
		return out, nil

	case bom.AddConnectionToViewFields:
		viewID, err := bind(refs, "viewId", tempToReal)
		if err != nil {
			return out, err
		}
		out.ViewID = viewID
		relID, err := bind(refs, "relationshipId", tempToReal)
		if err != nil {
			return out, err
		}
		srcVis, err := bind(refs, "sourceVisualId", tempToReal)
		if err != nil {
			return out, err
		}
		tgtVis, err := bind(refs, "targetVisualId", tempToReal)
		if err != nil {
			return out, err
		}
		conn, err := viewcompose.AddConnectionToView(m, c, model.ViewID(viewID), model.RelationshipID(relID), model.VisualID(srcVis), model.VisualID(tgtVis), model.Style{})
		if err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(string(conn.ID))
		return out, nil

	case bom.DeleteConnectionFromViewFields:
		viewID, err := bind(refs, "viewId", tempToReal)
		if err != nil {
			return out, err
		}
		out.ViewID = viewID
		id, err := bind(refs, "id", tempToReal)
		if err != nil {
			return out, err
		}
		if err := viewcompose.DeleteConnectionFromView(m, c, model.ViewID(viewID), model.VisualID(id)); err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(id)
		return out, nil

	case bom.StyleViewObjectFields:
		viewID, err := bind(refs, "viewId", tempToReal)
		if err != nil {
			return out, err
		}
		out.ViewID = viewID
		id, err := bind(refs, "id", tempToReal)
		if err != nil {
			return out, err
		}
		if err := viewcompose.StyleViewObject(m, c, model.ViewID(viewID), model.VisualID(id), f.Style); err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(id)
		return out, nil

	case bom.StyleConnectionFields:
		viewID, err := bind(refs, "viewId", tempToReal)
		if err != nil {
			return out, err
		}
		out.ViewID = viewID
		id, err := bind(refs, "id", tempToReal)
		if err != nil {
			return out, err
		}
		if err := viewcompose.StyleConnection(m, c, model.ViewID(viewID), model.VisualID(id), f.Style); err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(id)
		return out, nil

	case bom.MoveViewObjectFields:
		viewID, err := bind(refs, "viewId", tempToReal)
		if err != nil {
			return out, err
		}
		out.ViewID = viewID
		id, err := bind(refs, "id", tempToReal)
		if err != nil {
			return out, err
		}
		if err := viewcompose.MoveViewObject(m, c, model.ViewID(viewID), model.VisualID(id), f.X, f.Y); err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(id)
		return out, nil

	case bom.CreateNoteFields:
		viewID, err := bind(refs, "viewId", tempToReal)
		if err != nil {
			return out, err
		}
		out.ViewID = viewID
		note, err := viewcompose.CreateNote(m, c, model.ViewID(viewID), f.Content, f.X, f.Y, f.Width, f.Height)
		if err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(string(note.ID))
		return out, nil

	case bom.CreateGroupFields:
		viewID, err := bind(refs, "viewId", tempToReal)
		if err != nil {
			return out, err
		}
		out.ViewID = viewID
		group, err := viewcompose.CreateGroup(m, c, model.ViewID(viewID), f.Name, f.X, f.Y, f.Width, f.Height)
		if err != nil {
			return out, err
		}
		out.Status = OutcomeCreated
		remember(string(group.ID))
		return out, nil

	default:
		return out, apperr.NewFatal(fmt.Sprintf("unhandled op %s", ch.Op), nil)
	}
}

// renameCandidate appends " (n)" suffixes, starting at 2, until taken
// reports the name is free.
func renameCandidate(base string, taken func(string) bool) string {
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
