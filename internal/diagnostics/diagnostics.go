// Package diagnostics implements the Diagnostics & Snapshot component
// (C8): a read-consistent structural copy of the model for query/search/
// stats endpoints, plus an on-demand sweep detecting orphans, ghosts,
// matrix violations, and duplicates. Grounded on the teacher's
// domain/services/graph_analyzer.go validation-pass shape: walk the whole
// graph once, classify every entity, accumulate findings rather than
// stopping at the first one.
package diagnostics

import (
	"fmt"
	"sort"

	"archiplane/internal/model"
)

// Severity ranks a Finding's urgency.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Kind is the closed set of diagnostic categories spec.md §4.8 names.
type Kind string

const (
	KindOrphan          Kind = "orphan"
	KindGhost           Kind = "ghost"
	KindMatrixViolation Kind = "matrixViolation"
	KindDuplicate       Kind = "duplicate"
)

// Finding is one diagnostic result, carrying a remediation hint per
// spec.md §4.8.
type Finding struct {
	Kind        Kind     `json:"kind"`
	Severity    Severity `json:"severity"`
	Subject     string   `json:"subject"` // the entity ID the finding concerns
	Description string   `json:"description"`
	Remediation string   `json:"remediation"`
}

// Report is a full sweep's result, deterministic for a given snapshot
// (findings are sorted by kind then subject so repeated runs against an
// unchanged model compare equal).
type Report struct {
	Findings []Finding `json:"findings"`
}

// Run sweeps m (expected to be a snapshot already taken on the model
// actor, per spec.md §4.8's atomicity requirement) and returns every
// finding across all four categories.
func Run(m *model.Model) *Report {
	r := &Report{}
	r.Findings = append(r.Findings, findOrphans(m)...)
	r.Findings = append(r.Findings, findGhosts(m)...)
	r.Findings = append(r.Findings, findMatrixViolations(m)...)
	r.Findings = append(r.Findings, findDuplicates(m)...)

	sort.Slice(r.Findings, func(i, j int) bool {
		if r.Findings[i].Kind != r.Findings[j].Kind {
			return r.Findings[i].Kind < r.Findings[j].Kind
		}
		return r.Findings[i].Subject < r.Findings[j].Subject
	})
	return r
}

// findOrphans reports elements and relationships whose FolderID names a
// folder that no longer exists — concepts reachable in the graph (still
// present in m.elements/m.relationships) but missing from the folder
// structure, per spec.md §4.8's definition.
func findOrphans(m *model.Model) []Finding {
	var out []Finding
	for _, e := range m.AllElements() {
		if e.FolderID == "" {
			continue
		}
		if _, ok := m.GetFolder(e.FolderID); !ok {
			out = append(out, Finding{
				Kind: KindOrphan, Severity: SeverityWarning, Subject: string(e.ID),
				Description: fmt.Sprintf("element %s references missing folder %s", e.ID, e.FolderID),
				Remediation: "move the element to an existing folder or recreate the folder",
			})
		}
	}
	for _, rel := range m.AllRelationships() {
		if rel.FolderID == "" {
			continue
		}
		if _, ok := m.GetFolder(rel.FolderID); !ok {
			out = append(out, Finding{
				Kind: KindOrphan, Severity: SeverityWarning, Subject: string(rel.ID),
				Description: fmt.Sprintf("relationship %s references missing folder %s", rel.ID, rel.FolderID),
				Remediation: "move the relationship to an existing folder or recreate the folder",
			})
		}
	}
	return out
}

// findGhosts reports visuals, connections, and folder parent links that
// point at an element/relationship/visual that was never actually
// created (or was deleted without the dependent reference being cleaned
// up) — the signature of an aborted sub-command spec.md §4.8 describes.
func findGhosts(m *model.Model) []Finding {
	var out []Finding
	for _, f := range m.ListFolders() {
		if f.ParentID == "" {
			continue
		}
		if _, ok := m.GetFolder(f.ParentID); !ok {
			out = append(out, Finding{
				Kind: KindGhost, Severity: SeverityCritical, Subject: string(f.ID),
				Description: fmt.Sprintf("folder %s has parent %s which does not exist", f.ID, f.ParentID),
				Remediation: "re-parent the folder to an existing folder or to root",
			})
		}
	}

	for _, v := range m.ListViews() {
		for _, obj := range v.Objects {
			if _, ok := m.GetElement(obj.ElementID); !ok {
				out = append(out, Finding{
					Kind: KindGhost, Severity: SeverityCritical, Subject: string(obj.ID),
					Description: fmt.Sprintf("visual object %s in view %s references missing element %s", obj.ID, v.ID, obj.ElementID),
					Remediation: "delete the visual object or restore the underlying element",
				})
			}
			if obj.ParentVisualID != "" {
				if _, ok := v.Objects[obj.ParentVisualID]; !ok {
					out = append(out, Finding{
						Kind: KindGhost, Severity: SeverityCritical, Subject: string(obj.ID),
						Description: fmt.Sprintf("visual object %s nests under missing parent visual %s", obj.ID, obj.ParentVisualID),
						Remediation: "un-nest the visual object or restore its parent",
					})
				}
			}
		}
		for _, conn := range v.Connections {
			if _, ok := m.GetRelationship(conn.RelationshipID); !ok {
				out = append(out, Finding{
					Kind: KindGhost, Severity: SeverityCritical, Subject: string(conn.ID),
					Description: fmt.Sprintf("visual connection %s in view %s references missing relationship %s", conn.ID, v.ID, conn.RelationshipID),
					Remediation: "delete the visual connection or restore the underlying relationship",
				})
				continue
			}
			if _, ok := v.Objects[conn.SourceVisualID]; !ok {
				out = append(out, Finding{
					Kind: KindGhost, Severity: SeverityCritical, Subject: string(conn.ID),
					Description: fmt.Sprintf("visual connection %s has missing source visual %s", conn.ID, conn.SourceVisualID),
					Remediation: "delete the visual connection",
				})
			}
			if _, ok := v.Objects[conn.TargetVisualID]; !ok {
				out = append(out, Finding{
					Kind: KindGhost, Severity: SeverityCritical, Subject: string(conn.ID),
					Description: fmt.Sprintf("visual connection %s has missing target visual %s", conn.ID, conn.TargetVisualID),
					Remediation: "delete the visual connection",
				})
			}
		}
	}
	return out
}

// findMatrixViolations reports existing relationships that the model's
// current AllowedMatrix would no longer permit — a sign the matrix was
// swapped out or tightened after the relationship was created.
func findMatrixViolations(m *model.Model) []Finding {
	var out []Finding
	for _, rel := range m.AllRelationships() {
		src, srcOK := m.GetElement(rel.SourceID)
		tgt, tgtOK := m.GetElement(rel.TargetID)
		if !srcOK || !tgtOK {
			continue // already reported as a ghost
		}
		if !m.Matrix.Allows(src.Type, rel.Type, tgt.Type) {
			out = append(out, Finding{
				Kind: KindMatrixViolation, Severity: SeverityCritical, Subject: string(rel.ID),
				Description: fmt.Sprintf("relationship %s (%s) from %s to %s is not permitted by the current allowed-relationships matrix", rel.ID, rel.Type, src.Type, tgt.Type),
				Remediation: "delete or retype the relationship, or relax the allowed matrix",
			})
		}
	}
	return out
}

// findDuplicates reports elements sharing a (type, name) identity and
// relationships sharing a (type, source, target, accessType, strength)
// identity — the same identity keys internal/validate enforces against
// new changes, applied here retrospectively against the whole model.
func findDuplicates(m *model.Model) []Finding {
	var out []Finding

	seenElems := map[model.ElementIdentity][]model.ElementID{}
	for _, e := range m.AllElements() {
		key := e.IdentityKey()
		seenElems[key] = append(seenElems[key], e.ID)
	}
	for key, ids := range seenElems {
		if len(ids) < 2 {
			continue
		}
		for _, id := range ids {
			out = append(out, Finding{
				Kind: KindDuplicate, Severity: SeverityWarning, Subject: string(id),
				Description: fmt.Sprintf("element %s duplicates (type=%s, name=%s) with %d other element(s)", id, key.Type, key.Name, len(ids)-1),
				Remediation: "merge or rename one of the duplicate elements",
			})
		}
	}

	seenRels := map[model.RelationshipIdentity][]model.RelationshipID{}
	for _, rel := range m.AllRelationships() {
		key := rel.IdentityKey()
		seenRels[key] = append(seenRels[key], rel.ID)
	}
	for _, ids := range seenRels {
		if len(ids) < 2 {
			continue
		}
		for _, id := range ids {
			out = append(out, Finding{
				Kind: KindDuplicate, Severity: SeverityWarning, Subject: string(id),
				Description: fmt.Sprintf("relationship %s duplicates another relationship with the same type/source/target/access/strength", id),
				Remediation: "remove one of the duplicate relationships",
			})
		}
	}

	return out
}
