// Package layout implements the Layout Engine (C7): a from-scratch layered
// (Sugiyama-family) graph layout used by both the "dagre" and "sugiyama"
// algorithm names spec.md §4.7 calls out. No graph-layout library appears
// anywhere in the retrieved corpus — checked across every example repo's
// go.mod and source for dagre/sugiyama/gonum-graph imports, none found —
// so this is implemented on the standard library only; see DESIGN.md for
// the explicit justification entry.
package layout

import "archiplane/internal/model"

// node is the layout engine's internal representation of one laid-out
// visual: either a top-level VisualObject, or one nested inside another
// (tracked separately, laid out in its own sub-graph against its parent's
// interior coordinate space).
type node struct {
	id     model.VisualID
	width  float64
	height float64

	rank  int
	order int

	x, y float64 // computed position, in the coordinate space of this node's own sub-graph
}

type edge struct {
	from, to model.VisualID
}

// graph is one layer of the layout problem: either the view's top-level
// visuals, or the children of one parent visual.
type graph struct {
	nodes map[model.VisualID]*node
	edges []edge
	order []model.VisualID // insertion order, used for stable tie-breaking
}

func newGraph() *graph {
	return &graph{nodes: map[model.VisualID]*node{}}
}

func (g *graph) addNode(id model.VisualID, w, h float64) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{id: id, width: w, height: h}
	g.order = append(g.order, id)
}

func (g *graph) addEdge(from, to model.VisualID) {
	if _, ok := g.nodes[from]; !ok {
		return
	}
	if _, ok := g.nodes[to]; !ok {
		return
	}
	g.edges = append(g.edges, edge{from: from, to: to})
}

// buildGraphs partitions v's visuals into one top-level graph plus one
// sub-graph per nesting parent, and one edge list per graph scoped to
// connections whose endpoints share that scope (a connection crossing
// scopes, e.g. parent to a child of a sibling, is laid out at the
// shallower of the two scopes it touches).
func buildGraphs(v *model.View) (top *graph, children map[model.VisualID]*graph) {
	top = newGraph()
	children = map[model.VisualID]*graph{}

	scopeOf := func(id model.VisualID) model.VisualID {
		obj, ok := v.Objects[id]
		if !ok || !obj.IsNested() {
			return ""
		}
		return obj.ParentVisualID
	}

	for id, obj := range v.Objects {
		if obj.IsNested() {
			g, ok := children[obj.ParentVisualID]
			if !ok {
				g = newGraph()
				children[obj.ParentVisualID] = g
			}
			g.addNode(id, obj.Width, obj.Height)
		} else {
			top.addNode(id, obj.Width, obj.Height)
		}
	}

	for _, c := range v.Connections {
		srcScope := scopeOf(c.SourceVisualID)
		tgtScope := scopeOf(c.TargetVisualID)
		switch {
		case srcScope == "" && tgtScope == "":
			top.addEdge(c.SourceVisualID, c.TargetVisualID)
		case srcScope == tgtScope && srcScope != "":
			children[srcScope].addEdge(c.SourceVisualID, c.TargetVisualID)
		default:
			// cross-scope connection: routed visually but does not
			// constrain either scope's rank assignment.
		}
	}

	return top, children
}
