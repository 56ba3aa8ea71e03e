package apply

import (
	"fmt"

	"archiplane/internal/apperr"
	"archiplane/internal/bom"
	"archiplane/internal/model"
)

// verifyGhostFree confirms every outcome's created realId is actually
// retrievable from m, guarding against "ghost" objects the host silently
// dropped mid-compound (spec.md §4.4). Skipped entirely in throughput
// mode by the caller.
func verifyGhostFree(m *model.Model, chunk Chunk, outcomes []Outcome) error {
	for i, o := range outcomes {
		if o.Status != OutcomeCreated || o.RealID == "" {
			continue
		}
		op := chunk.Changes[i].Op
		if !objectExists(m, op, o.RealID) {
			return apperr.NewExecution(fmt.Sprintf("ghost object: change %d (%s) reported realId %s but it is not retrievable", o.Index, op, o.RealID), nil)
		}
	}
	return nil
}

func objectExists(m *model.Model, op bom.Op, id string) bool {
	switch op {
	case bom.OpCreateElement, bom.OpCreateOrGetElement, bom.OpUpdateElement:
		_, ok := m.GetElement(model.ElementID(id))
		return ok
	case bom.OpCreateRelationship, bom.OpCreateOrGetRelationship, bom.OpUpdateRelationship:
		_, ok := m.GetRelationship(model.RelationshipID(id))
		return ok
	case bom.OpCreateView:
		_, ok := m.GetView(model.ViewID(id))
		return ok
	case bom.OpCreateFolder:
		_, ok := m.GetFolder(model.FolderID(id))
		return ok
	default:
		// visuals, connections, notes, groups and mutation-only ops carry no
		// independent retrievability check worth the cost here; their
		// existence is implied by the adapter/viewcompose call not erroring.
		return true
	}
}
