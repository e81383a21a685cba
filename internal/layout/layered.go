package layout

// Direction is the rank direction for the layered graph layout.
type Direction string

const (
	// TopDown ranks flow from top to bottom.
	TopDown Direction = "TB"
	// LeftRight ranks flow from left to right.
	LeftRight Direction = "LR"
)

// Default separation constants for the layered layout.
const (
	DefaultNodeSep = 90.0
	DefaultRankSep = 70.0
	DefaultMargin  = 40.0
)

// GraphEdge is one directed edge handed to the layered layout.
type GraphEdge struct {
	Key  string
	From string
	To   string
}

// Layered is the layered-graph layout engine: nodes are assigned a rank by
// longest path from the sources, ranks are spread RankSep apart along the
// rank direction, and nodes within a rank are spread NodeSep apart in their
// input order.
type Layered struct {
	NodeSep   float64
	RankSep   float64
	Margin    float64
	Direction Direction
}

// NewLayered returns a layered engine with the default separation constants.
func NewLayered(dir Direction) Layered {
	return Layered{
		NodeSep:   DefaultNodeSep,
		RankSep:   DefaultRankSep,
		Margin:    DefaultMargin,
		Direction: dir,
	}
}

// Layout computes positions and edge curves for the given visible set. Nodes
// keep their input order within a rank, so an unchanged input produces an
// unchanged result. Edges referencing keys absent from nodeIDs are ignored;
// set validation belongs to the model builders and the diff engine.
func (l Layered) Layout(nodeIDs []string, edges []GraphEdge) Result {
	present := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		present[id] = true
	}

	// Longest-path ranking by relaxation; the edge set is acyclic by the
	// time it reaches layout, so this converges in at most len(nodeIDs)
	// passes.
	rank := make(map[string]int, len(nodeIDs))
	for range nodeIDs {
		changed := false
		for _, e := range edges {
			if !present[e.From] || !present[e.To] {
				continue
			}
			if rank[e.To] < rank[e.From]+1 {
				rank[e.To] = rank[e.From] + 1
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	// Index within rank follows input order.
	index := make(map[string]int, len(nodeIDs))
	counts := make(map[int]int)
	maxRank := 0
	maxCount := 0
	for _, id := range nodeIDs {
		r := rank[id]
		index[id] = counts[r]
		counts[r]++
		if r > maxRank {
			maxRank = r
		}
		if counts[r] > maxCount {
			maxCount = counts[r]
		}
	}

	res := Result{}
	centers := make(map[string]Point, len(nodeIDs))
	for _, id := range nodeIDs {
		along := l.Margin + float64(rank[id])*l.RankSep
		across := l.Margin + float64(index[id])*l.NodeSep
		var c Point
		if l.Direction == LeftRight {
			c = Point{X: along, Y: across}
		} else {
			c = Point{X: across, Y: along}
		}
		centers[id] = c
		res.Nodes = append(res.Nodes, Placement{Key: id, Center: c})
	}

	for _, e := range edges {
		from, okF := centers[e.From]
		to, okT := centers[e.To]
		if !okF || !okT {
			continue
		}
		key := e.Key
		if key == "" {
			key = e.From + "->" + e.To
		}
		mid := Point{X: (from.X + to.X) / 2, Y: (from.Y + to.Y) / 2}
		res.Edges = append(res.Edges, Path{Key: key, Points: []Point{from, mid, to}})
	}

	rankExtent := l.Margin*2 + float64(maxRank)*l.RankSep
	acrossExtent := l.Margin * 2
	if maxCount > 0 {
		acrossExtent += float64(maxCount-1) * l.NodeSep
	}
	if l.Direction == LeftRight {
		res.Width, res.Height = rankExtent, acrossExtent
	} else {
		res.Width, res.Height = acrossExtent, rankExtent
	}
	return res
}
