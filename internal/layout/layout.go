package layout

import (
	"sort"

	"archiplane/internal/model"
)

// Direction is the dagre-style rank-flow direction.
type Direction string

const (
	DirTopBottom Direction = "TB"
	DirBottomTop Direction = "BT"
	DirLeftRight Direction = "LR"
	DirRightLeft Direction = "RL"
)

// Algorithm selects between the two named layout modes spec.md §4.7
// requires. Both names run the same ranked-layered engine with identical
// passes: no pass reads Algorithm, so the two modes produce the same
// layout.
type Algorithm string

const (
	AlgorithmDagre    Algorithm = "dagre"
	AlgorithmSugiyama Algorithm = "sugiyama"
)

// Options parametrizes one layout run.
type Options struct {
	Algorithm Algorithm
	Direction Direction // rank-flow direction, applied under either Algorithm
	NodeSep   float64   // pixel gap between nodes in the same rank
	RankSep   float64   // pixel gap between ranks
	Padding   float64   // interior padding a parent keeps around its nested children
}

// DefaultOptions returns the engine's baseline spacing, adapted from common
// dagre defaults (nodesep/ranksep of 50px): the node gap is narrowed to
// 40px and the rank gap widened to 60px.
func DefaultOptions() Options {
	return Options{
		Algorithm: AlgorithmDagre,
		Direction: DirTopBottom,
		NodeSep:   40,
		RankSep:   60,
		Padding:   20,
	}
}

// Run lays out every Visual Object and Visual Connection in v, mutating
// geometry only (spec.md §4.7: "Output mutates geometry only"). Nested
// children are laid out within their parent's interior first, bottom-up,
// so each parent can then be sized to fit its children before the
// top-level pass positions the parent itself.
func Run(v *model.View, opts Options) error {
	if opts.NodeSep <= 0 {
		opts.NodeSep = DefaultOptions().NodeSep
	}
	if opts.RankSep <= 0 {
		opts.RankSep = DefaultOptions().RankSep
	}
	if opts.Padding < 0 {
		opts.Padding = DefaultOptions().Padding
	}

	top, children := buildGraphs(v)

	// Bottom-up: lay out every nested sub-graph first, deepest parent first,
	// so each parent's size can be computed, then feed that size into the
	// enclosing pass; the top-level graph (key "") goes last. Node sizes are
	// re-read from v because buildGraphs copied them before any resize.
	parents := make([]model.VisualID, 0, len(children))
	depth := map[model.VisualID]int{}
	for parentID := range children {
		parents = append(parents, parentID)
		for p := v.Objects[parentID]; p != nil && p.IsNested() && depth[parentID] < len(v.Objects); p = v.Objects[p.ParentVisualID] {
			depth[parentID]++
		}
	}
	sort.SliceStable(parents, func(i, j int) bool { return depth[parents[i]] > depth[parents[j]] })
	children[""] = top
	for _, parentID := range append(parents, "") {
		g := children[parentID]
		for id, n := range g.nodes {
			n.width, n.height = v.Objects[id].Width, v.Objects[id].Height
		}
		layoutOneGraph(g, opts)
		applyPositions(v, g, parentID, opts)
		resizeParentToFitChildren(v, parentID, opts)
	}

	return nil
}

func layoutOneGraph(g *graph, opts Options) {
	assignRanks(g)
	assignOrder(g)
	assignCoordinates(g, opts)
}

// assignCoordinates places each node at (rank*rankStep, cumulative offset
// across its rank by order), where the rank axis and the order axis swap
// depending on Direction — TB/BT rank downward/upward on Y, LR/RL rank
// across on X.
func assignCoordinates(g *graph, opts Options) {
	ranks := ranksOf(g)

	rankOffset := make([]float64, len(ranks))
	for r, ids := range ranks {
		var maxCross float64
		for _, id := range ids {
			n := g.nodes[id]
			cross := crossAxisSize(n, opts)
			if cross > maxCross {
				maxCross = cross
			}
		}
		if r == 0 {
			rankOffset[r] = 0
		} else {
			rankOffset[r] = rankOffset[r-1] + rankAxisSize(ranks[r-1], g, opts) + opts.RankSep
		}
	}

	for _, ids := range ranks {
		var cursor float64
		for _, id := range ids {
			n := g.nodes[id]
			placeNode(n, rankOffset[n.rank], cursor, opts)
			cursor += crossAxisSize(n, opts) + opts.NodeSep
		}
	}
}

func crossAxisSize(n *node, opts Options) float64 {
	switch opts.Direction {
	case DirLeftRight, DirRightLeft:
		return n.height
	default:
		return n.width
	}
}

func rankAxisSize(ids []model.VisualID, g *graph, opts Options) float64 {
	var maxSize float64
	for _, id := range ids {
		n := g.nodes[id]
		var size float64
		switch opts.Direction {
		case DirLeftRight, DirRightLeft:
			size = n.width
		default:
			size = n.height
		}
		if size > maxSize {
			maxSize = size
		}
	}
	return maxSize
}

func placeNode(n *node, rankPos, crossPos float64, opts Options) {
	switch opts.Direction {
	case DirTopBottom:
		n.x, n.y = crossPos, rankPos
	case DirBottomTop:
		n.x, n.y = crossPos, -rankPos-n.height
	case DirLeftRight:
		n.x, n.y = rankPos, crossPos
	case DirRightLeft:
		n.x, n.y = -rankPos-n.width, crossPos
	default:
		n.x, n.y = crossPos, rankPos
	}
}

// applyPositions writes a graph's computed node positions back onto the
// view's VisualObjects. Top-level nodes (parentID == "") get absolute
// coordinates; nested nodes get parent-relative coordinates offset by the
// padding so children never overlap their parent's border.
func applyPositions(v *model.View, g *graph, parentID model.VisualID, opts Options) {
	for id, n := range g.nodes {
		obj, ok := v.Objects[id]
		if !ok {
			continue
		}
		if parentID == "" {
			obj.X, obj.Y = n.x, n.y
		} else {
			obj.X, obj.Y = n.x+opts.Padding, n.y+opts.Padding
		}
	}
}

// resizeParentToFitChildren grows parent's Width/Height so every laid-out
// child, plus opts.Padding on every side, fits within its interior.
func resizeParentToFitChildren(v *model.View, parentID model.VisualID, opts Options) {
	parent, ok := v.Objects[parentID]
	if !ok {
		return
	}
	var maxX, maxY float64
	for _, obj := range v.Objects {
		if obj.ParentVisualID != parentID {
			continue
		}
		right := obj.X + obj.Width
		bottom := obj.Y + obj.Height
		if right > maxX {
			maxX = right
		}
		if bottom > maxY {
			maxY = bottom
		}
	}
	if maxX+opts.Padding > parent.Width {
		parent.Width = maxX + opts.Padding
	}
	if maxY+opts.Padding > parent.Height {
		parent.Height = maxY + opts.Padding
	}
}
