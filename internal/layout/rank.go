package layout

import (
	"sort"

	"archiplane/internal/model"
)

// assignRanks assigns each node the longest-path distance from a source
// (a node with no incoming edge within this graph), the standard
// Sugiyama-family rank-assignment heuristic: it keeps edges pointing
// strictly forward (never within a rank) without needing full topological
// feedback-arc-set removal, which is overkill for the acyclic-in-practice
// graphs a single diagram view produces.
func assignRanks(g *graph) {
	indeg := map[model.VisualID]int{}
	for id := range g.nodes {
		indeg[id] = 0
	}
	adj := map[model.VisualID][]model.VisualID{}
	for _, e := range g.edges {
		indeg[e.to]++
		adj[e.from] = append(adj[e.from], e.to)
	}

	var queue []model.VisualID
	for _, id := range g.order {
		if indeg[id] == 0 {
			queue = append(queue, id)
			g.nodes[id].rank = 0
		}
	}

	visited := map[model.VisualID]bool{}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		for _, next := range adj[id] {
			if g.nodes[next].rank < g.nodes[id].rank+1 {
				g.nodes[next].rank = g.nodes[id].rank + 1
			}
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	// Any node never reached (a cycle, or isolated with only incoming
	// edges from an unvisited cycle) keeps rank 0 rather than being
	// dropped — a diagram is still rendered even if it isn't a DAG.
}

// ranksOf groups node IDs by their assigned rank, each slice ordered by
// the node's current order field (or insertion order on the first call,
// before order has been assigned).
func ranksOf(g *graph) [][]model.VisualID {
	maxRank := 0
	for _, n := range g.nodes {
		if n.rank > maxRank {
			maxRank = n.rank
		}
	}
	byRank := make([][]model.VisualID, maxRank+1)
	for _, id := range g.order {
		r := g.nodes[id].rank
		byRank[r] = append(byRank[r], id)
	}
	for _, ids := range byRank {
		sort.SliceStable(ids, func(i, j int) bool { return g.nodes[ids[i]].order < g.nodes[ids[j]].order })
	}
	return byRank
}

// assignOrder runs a few passes of the barycenter heuristic to
// reduce edge crossings between adjacent ranks, then records each node's
// final order within its rank.
func assignOrder(g *graph) {
	ranks := ranksOf(g)
	for i, ids := range ranks {
		for j, id := range ids {
			_ = i
			g.nodes[id].order = j
		}
	}

	predecessors := map[model.VisualID][]model.VisualID{}
	successors := map[model.VisualID][]model.VisualID{}
	for _, e := range g.edges {
		successors[e.from] = append(successors[e.from], e.to)
		predecessors[e.to] = append(predecessors[e.to], e.from)
	}

	const passes = 4
	for pass := 0; pass < passes; pass++ {
		downward := pass%2 == 0
		if downward {
			for r := 1; r < len(ranks); r++ {
				reorderByBarycenter(g, ranks[r], predecessors)
			}
		} else {
			for r := len(ranks) - 2; r >= 0; r-- {
				reorderByBarycenter(g, ranks[r], successors)
			}
		}
	}
}

func reorderByBarycenter(g *graph, rank []model.VisualID, neighbors map[model.VisualID][]model.VisualID) {
	type scored struct {
		id    model.VisualID
		score float64
		has   bool
	}
	scoredIDs := make([]scored, len(rank))
	for i, id := range rank {
		ns := neighbors[id]
		if len(ns) == 0 {
			scoredIDs[i] = scored{id: id, score: float64(g.nodes[id].order), has: false}
			continue
		}
		sum := 0
		for _, n := range ns {
			sum += g.nodes[n].order
		}
		scoredIDs[i] = scored{id: id, score: float64(sum) / float64(len(ns)), has: true}
	}
	sort.SliceStable(scoredIDs, func(i, j int) bool {
		return scoredIDs[i].score < scoredIDs[j].score
	})
	for i, s := range scoredIDs {
		rank[i] = s.id
		g.nodes[s.id].order = i
	}
}
