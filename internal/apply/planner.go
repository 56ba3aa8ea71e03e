package apply

import (
	"archiplane/internal/apperr"
	"archiplane/internal/bom"
	"archiplane/internal/resolver"
)

// Chunk is an ordered, bounded slice of the submission's changes dispatched
// as one atomic undoable compound.
type Chunk struct {
	Index   int
	Changes []bom.Change
}

// Plan orders and partitions a Document's changes into chunks.
//
// Ordering first: every change that references a tempId is moved to occur
// after the change that defines it, via a stable topological sort over the
// tempId-reference edges recorded in refs (from validate.Preflight). A
// well-formed submission is already in this order and the sort is a no-op;
// a submission that references a tempId before its creation gets
// reordered so the creation executes first — equivalent to "shifting the
// chunk boundary earlier" for whichever chunk would otherwise have split
// them the wrong way, since a topologically sorted list can never place a
// consumer's chunk before its producer's.
//
// Then chunking: the sorted list is grouped into runs of at most
// chunkSize, preserving the sorted order.
func Plan(doc *bom.Document, refs map[int]map[string]resolver.Ref, chunkSize int) ([]Chunk, error) {
	order, err := topoSort(doc.Changes, refs)
	if err != nil {
		return nil, err
	}
	var chunks []Chunk
	for len(order) > 0 {
		n := chunkSize
		if n > len(order) {
			n = len(order)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Changes: order[:n]})
		order = order[n:]
	}
	return chunks, nil
}

// topoSort returns doc's changes reordered so that any change defining a
// tempId precedes every change that references that tempId via refs,
// breaking ties by original index to keep the sort stable and the result
// deterministic.
func topoSort(changes []bom.Change, refs map[int]map[string]resolver.Ref) ([]bom.Change, error) {
	n := len(changes)
	definedAt := map[string]int{}
	for i, c := range changes {
		if c.TempID != "" {
			definedAt[c.TempID] = i
		}
	}

	deps := make([][]int, n) // deps[i] = indices that must come before i
	indegree := make([]int, n)
	for i, c := range changes {
		seen := map[int]bool{}
		for _, ref := range refs[c.Index] {
			if ref.Kind != resolver.RefTempID {
				continue
			}
			producer, ok := definedAt[ref.Value]
			if !ok || producer == i || seen[producer] {
				continue
			}
			seen[producer] = true
			deps[i] = append(deps[i], producer)
			indegree[i]++
		}
	}

	// dependents[p] = changes that depend on p, for indegree decrement.
	dependents := make([][]int, n)
	for i, ps := range deps {
		for _, p := range ps {
			dependents[p] = append(dependents[p], i)
		}
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]bom.Change, 0, n)
	placed := make([]bool, n)
	for len(order) < n {
		if len(ready) == 0 {
			return nil, apperr.NewValidation("tempId reference cycle detected; cannot order changes for execution")
		}
		// stable: always take the smallest original index among ready.
		best := 0
		for i := 1; i < len(ready); i++ {
			if ready[i] < ready[best] {
				best = i
			}
		}
		idx := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, changes[idx])
		placed[idx] = true
		for _, dep := range dependents[idx] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return order, nil
}
