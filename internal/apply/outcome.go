package apply

import (
	"archiplane/internal/apperr"
	"archiplane/internal/opqueue"
)

// OutcomeStatus is the closed set of per-change results spec.md §4.4 names.
type OutcomeStatus string

const (
	OutcomeCreated OutcomeStatus = "created"
	OutcomeReused  OutcomeStatus = "reused"
	OutcomeRenamed OutcomeStatus = "renamed"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome records what happened to one Change.
type Outcome struct {
	Index      int           `json:"index"`
	Op         string        `json:"op"`
	TempID     string        `json:"tempId,omitempty"`
	RealID     string        `json:"realId,omitempty"`
	Status     OutcomeStatus `json:"status"`
	SkipReason string        `json:"skipReason,omitempty"`
	Error      *apperr.Error `json:"error,omitempty"`
	// ViewID is set by changes that mutate a view's visuals, so a
	// post-apply pass (Config.LayoutAfter) knows which views to re-lay-out
	// without re-deriving it from the change's own Fields.
	ViewID string `json:"-"`
}

// Result is the deterministic result of one apply submission.
type Result struct {
	Outcomes   []Outcome         `json:"outcomes"`
	TempToReal map[string]string `json:"tempToReal"`
	RetryHints []Outcome         `json:"retryHints,omitempty"`
}

// tempToRealMap derives the union of every outcome carrying both a tempId
// and a realId, per spec.md §4.4: "The Operation's tempId map is the union
// of outcomes with both tempId and realId present."
func tempToRealMap(outcomes []Outcome) map[string]string {
	out := map[string]string{}
	for _, o := range outcomes {
		if o.TempID != "" && o.RealID != "" {
			out[o.TempID] = o.RealID
		}
	}
	return out
}

// toChangeOutcomes converts apply's internal Outcome slice into the
// opqueue-owned wire shape recorded on the Operation.
func toChangeOutcomes(outcomes []Outcome) []opqueue.ChangeOutcome {
	out := make([]opqueue.ChangeOutcome, len(outcomes))
	for i, o := range outcomes {
		out[i] = opqueue.ChangeOutcome{
			Index: o.Index, Op: o.Op, TempID: o.TempID, RealID: o.RealID,
			Status: string(o.Status), SkipReason: o.SkipReason, Error: o.Error,
		}
	}
	return out
}

// BuildResult reassembles the deterministic per-submission Result from a
// finished Operation's recorded chunks, for handlers that need the full
// outcome array rather than just the Operation's summary fields.
func BuildResult(op *opqueue.Operation) *Result {
	r := &Result{TempToReal: op.TempToReal}
	for _, chunk := range op.Chunks {
		for _, co := range chunk.Changes {
			o := Outcome{Index: co.Index, Op: co.Op, TempID: co.TempID, RealID: co.RealID, Status: OutcomeStatus(co.Status), SkipReason: co.SkipReason, Error: co.Error}
			r.Outcomes = append(r.Outcomes, o)
			if o.Status == OutcomeFailed {
				r.RetryHints = append(r.RetryHints, o)
			}
		}
	}
	return r
}
