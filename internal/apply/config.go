// Package apply implements the Apply Engine (C4): it plans a BOM into
// bounded ordered chunks, dispatches each chunk as one atomic undoable
// compound onto the model actor, enforces idempotency and duplicate
// policy, verifies against ghost objects, and yields a deterministic
// per-operation result. It is the component that wires together
// internal/bom, internal/resolver, internal/validate, internal/adapter,
// internal/viewcompose, internal/undo, internal/modelactor and
// internal/opqueue.
package apply

import (
	"fmt"
	"time"

	"archiplane/internal/apperr"
	"archiplane/internal/layout"
	"archiplane/internal/validate"
)

const (
	MinChunkSize        = 1
	MaxChunkSize        = 50
	DefaultChunkSize    = 1
	ThroughputChunkSize = 20
)

// interChunkDelay is the pause the engine inserts between chunk dispatches
// when throttling is active, keeping a large multi-chunk submission from
// monopolizing the model actor's single-writer goroutine ahead of other
// callers' requests.
const interChunkDelay = 50 * time.Millisecond

// Config configures one apply submission. Zero-value fields are filled in
// by Normalize.
type Config struct {
	ChunkSize         int
	DuplicateStrategy validate.DuplicatePolicy
	ContinueOnError   bool
	IdempotencyKey    string
	ResolveNames      bool
	LayoutAfter       bool
	LayoutAlgorithm   layout.Algorithm // only consulted when LayoutAfter is set
	SkipExisting      bool             // legacy alias of DuplicateStrategy=reuse scoped to elements only
	Fast              bool             // throughput mode: chunkSize=20, verify disabled, no throttling
}

// Normalize applies defaults and legacy-alias resolution, and validates the
// chunk size bound.
func (c Config) Normalize() (Config, error) {
	out := c
	if out.DuplicateStrategy == "" {
		out.DuplicateStrategy = validate.DuplicateError
	}
	if out.SkipExisting && out.DuplicateStrategy == validate.DuplicateError {
		out.DuplicateStrategy = validate.DuplicateReuse
	}
	if out.Fast {
		out.ChunkSize = ThroughputChunkSize
	}
	if out.ChunkSize == 0 {
		out.ChunkSize = DefaultChunkSize
	}
	if out.ChunkSize < MinChunkSize || out.ChunkSize > MaxChunkSize {
		return Config{}, apperr.NewUsage(fmt.Sprintf("chunkSize must be between %d and %d, got %d", MinChunkSize, MaxChunkSize, out.ChunkSize))
	}
	if out.LayoutAfter && out.LayoutAlgorithm == "" {
		out.LayoutAlgorithm = layout.DefaultOptions().Algorithm
	}
	return out, nil
}

// verifyGhosts reports whether the engine should run the post-chunk
// retrievability check. Disabled in throughput mode per spec.
func (c Config) verifyGhosts() bool {
	return !c.Fast
}

// throttle reports whether the engine should pause between chunk
// dispatches. Disabled in throughput mode per spec.
func (c Config) throttle() bool {
	return !c.Fast
}

// layoutOptions builds the post-apply layout pass's Options from the
// submission's requested algorithm, falling back to the engine default for
// every other knob.
func (c Config) layoutOptions() layout.Options {
	opts := layout.DefaultOptions()
	if c.LayoutAlgorithm != "" {
		opts.Algorithm = c.LayoutAlgorithm
	}
	return opts
}
