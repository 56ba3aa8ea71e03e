package apply

import (
	"crypto/sha256"
	"fmt"
)

// ChunkKey derives the deterministic per-chunk sub-key spec.md §4.4 calls
// for: `H(idempotencyKey, chunkIndex, chunkPayload)`. Hashing the chunk's
// (op, tempId, index) triples the same way the teacher's
// GenerateIdempotencyKey hashes a node's (id, userId, content, keywords,
// version) — a content hash over the fields that determine the chunk's
// effect, not the raw JSON bytes, so equivalent resubmissions with
// insignificant formatting differences still collide on the same key.
func ChunkKey(idempotencyKey string, chunk Chunk) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s:%d:", idempotencyKey, chunk.Index)
	for _, c := range chunk.Changes {
		fmt.Fprintf(h, "%s|%s|%d;", c.Op, c.TempID, c.Index)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// chunkOutcomeCache is the per-submission record of chunk sub-keys already
// executed, letting a retried chunk within the same operation reuse its
// prior outcome instead of re-running a partially-applied compound twice.
type chunkOutcomeCache struct {
	seen map[string][]Outcome
}

func newChunkOutcomeCache() *chunkOutcomeCache {
	return &chunkOutcomeCache{seen: map[string][]Outcome{}}
}

func (c *chunkOutcomeCache) lookup(key string) ([]Outcome, bool) {
	o, ok := c.seen[key]
	return o, ok
}

func (c *chunkOutcomeCache) record(key string, outcomes []Outcome) {
	c.seen[key] = outcomes
}
