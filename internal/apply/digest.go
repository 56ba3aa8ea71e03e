package apply

import (
	"archiplane/internal/apperr"
	"archiplane/internal/bom"
	"archiplane/internal/opqueue"
)

// computeDigest folds a finished submission's outcomes into the summary
// counts reported on the Operation.
func computeDigest(outcomes []Outcome) *opqueue.Digest {
	d := &opqueue.Digest{}
	for _, o := range outcomes {
		switch bom.Op(o.Op) {
		case bom.OpCreateElement, bom.OpCreateOrGetElement:
			if o.Status == OutcomeCreated || o.Status == OutcomeRenamed {
				d.ElementsCreated++
			}
		case bom.OpUpdateElement:
			d.ElementsUpdated++
		case bom.OpDeleteElement:
			d.ElementsDeleted++
		case bom.OpCreateRelationship, bom.OpCreateOrGetRelationship:
			if o.Status == OutcomeCreated || o.Status == OutcomeRenamed {
				d.RelationshipsCreated++
			}
		case bom.OpUpdateRelationship:
			d.RelationshipsUpdated++
		case bom.OpDeleteRelationship:
			d.RelationshipsDeleted++
		case bom.OpCreateView, bom.OpDeleteView, bom.OpAddToView, bom.OpNestInView,
			bom.OpAddConnectionToView, bom.OpDeleteConnectionFromView, bom.OpStyleViewObject,
			bom.OpStyleConnection, bom.OpMoveViewObject, bom.OpCreateNote, bom.OpCreateGroup:
			d.ViewsTouched++
			if o.Op == string(bom.OpAddToView) && o.Status == OutcomeCreated {
				d.VisualsCreated++
			}
		}
	}
	return d
}

// retryHintError attaches the sub-list of failed outcomes (the minimal
// payload fragment spec.md §4.4 describes) to firstFailure's Details so a
// continueOnError caller can retry exactly those changes.
func retryHintError(firstFailure *apperr.Error, outcomes []Outcome) *apperr.Error {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Status == OutcomeFailed {
			failed = append(failed, o)
		}
	}
	if len(failed) == 0 {
		return firstFailure
	}
	return firstFailure.WithDetail("retryHints", failed)
}
