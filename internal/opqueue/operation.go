// Package opqueue tracks the async lifecycle of submitted BOM applications
// (C5): queued -> processing -> complete | error, keyed by operation ID with
// a secondary index on client-supplied idempotency keys, grounded on the
// teacher's repository.InMemoryIdempotencyStore (internal/repository/idempotency.go)
// generalized from a single Get/Store pair into a full status machine with
// timeline, digest, and TTL-based garbage collection.
package opqueue

import (
	"time"

	"archiplane/internal/apperr"
	"archiplane/internal/model"
)

// Status is a closed set of lifecycle states an Operation passes through.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Terminal reports whether no further status transition is possible.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// ChunkOutcome records what happened to one chunk of the apply plan.
type ChunkOutcome struct {
	Index      int               `json:"index"`
	Label      string            `json:"label"`
	Status     Status            `json:"status"`
	TempToReal map[string]string `json:"tempToReal,omitempty"`
	Error      *apperr.Error     `json:"error,omitempty"`
	RetryHint  string            `json:"retryHint,omitempty"`
	Changes    []ChangeOutcome   `json:"changes,omitempty"`
}

// ChangeOutcome is the per-change result spec.md §4.4 calls an "outcome":
// `{ index, op, tempId?, realId?, status, skipReason?, error? }`. It is
// defined here rather than in internal/apply so the Operation record can
// carry it without an import cycle (apply depends on opqueue, not the
// reverse).
type ChangeOutcome struct {
	Index      int           `json:"index"`
	Op         string        `json:"op"`
	TempID     string        `json:"tempId,omitempty"`
	RealID     string        `json:"realId,omitempty"`
	Status     string        `json:"status"`
	SkipReason string        `json:"skipReason,omitempty"`
	Error      *apperr.Error `json:"error,omitempty"`
}

// Digest summarizes an Operation's effect on the model once it reaches a
// terminal state: counts of entities touched, grouped by kind.
type Digest struct {
	ElementsCreated     int `json:"elementsCreated"`
	ElementsUpdated     int `json:"elementsUpdated"`
	ElementsDeleted     int `json:"elementsDeleted"`
	RelationshipsCreated int `json:"relationshipsCreated"`
	RelationshipsUpdated int `json:"relationshipsUpdated"`
	RelationshipsDeleted int `json:"relationshipsDeleted"`
	ViewsTouched        int `json:"viewsTouched"`
	VisualsCreated      int `json:"visualsCreated"`
}

// Operation is one submitted BOM application's tracked state.
type Operation struct {
	ID             model.OperationID `json:"id"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
	Status         Status            `json:"status"`
	SubmittedAt    time.Time         `json:"submittedAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	TotalChunks    int               `json:"totalChunks"`
	Chunks         []ChunkOutcome    `json:"chunks"`
	TempToReal     map[string]string `json:"tempToReal,omitempty"`
	Digest         *Digest           `json:"digest,omitempty"`
	Error          *apperr.Error     `json:"error,omitempty"`
	ContinueOnErr  bool              `json:"continueOnError"`
}

// Timeline renders a compact per-chunk progress view for polling clients.
func (o *Operation) Timeline() []string {
	out := make([]string, len(o.Chunks))
	for i, c := range o.Chunks {
		out[i] = string(c.Status)
	}
	return out
}
