package scene

import (
	"fmt"

	"github.com/vk/dagview/internal/layout"
)

// NodeChange is one node's part in a diff. From and To are the animation
// endpoints: entering nodes travel from their parent's new position (or
// appear in place), exiting nodes travel toward their parent's position
// before removal, updating nodes travel from their previous position.
type NodeChange struct {
	Node Node
	From layout.Point
	To   layout.Point
}

// Diff is the result of reconciling one snapshot against the last committed
// set: three disjoint operations plus the edge changes and the transition
// policy to animate them with.
type Diff struct {
	EnteredNodes []NodeChange
	UpdatedNodes []NodeChange
	ExitedNodes  []NodeChange

	EnteredEdges []Edge
	UpdatedEdges []Edge
	ExitedEdges  []Edge

	Policy TransitionPolicy
}

// Empty reports whether the diff changes nothing structurally or
// positionally.
func (d Diff) Empty() bool {
	return len(d.EnteredNodes) == 0 && len(d.ExitedNodes) == 0 &&
		len(d.EnteredEdges) == 0 && len(d.ExitedEdges) == 0 &&
		len(d.UpdatedNodes) == 0 && len(d.UpdatedEdges) == 0
}

// Apply reconciles the snapshot against the scene's own last committed set
// and commits it. "Previous" is always the scene's committed state, never a
// caller-supplied set, so interleaved mutations cannot produce a stale key
// set. The diff is all-or-nothing: a duplicate stable key or an edge whose
// endpoint is missing from the snapshot refuses the whole diff and leaves
// the committed scene unchanged.
//
// Updated elements take the snapshot's visual attributes wholesale; callers
// layering interaction styling on top reapply it after Apply returns.
func (s *Scene) Apply(snap Snapshot) (Diff, error) {
	newNodes := make(map[string]*Node, len(snap.Nodes))
	newOrder := make([]string, 0, len(snap.Nodes))
	for i := range snap.Nodes {
		n := snap.Nodes[i]
		if _, ok := newNodes[n.Key]; ok {
			return Diff{}, fmt.Errorf("%w: node %q", ErrDuplicateKey, n.Key)
		}
		if n.Opacity == 0 {
			n.Opacity = 1
		}
		newNodes[n.Key] = &n
		newOrder = append(newOrder, n.Key)
	}

	newEdges := make(map[string]*Edge, len(snap.Edges))
	newEdgeOrder := make([]string, 0, len(snap.Edges))
	for i := range snap.Edges {
		e := snap.Edges[i]
		if _, ok := newEdges[e.Key]; ok {
			return Diff{}, fmt.Errorf("%w: edge %q", ErrDuplicateKey, e.Key)
		}
		if _, ok := newNodes[e.From]; !ok {
			return Diff{}, fmt.Errorf("%w: edge %q from %q", ErrDanglingEdge, e.Key, e.From)
		}
		if _, ok := newNodes[e.To]; !ok {
			return Diff{}, fmt.Errorf("%w: edge %q to %q", ErrDanglingEdge, e.Key, e.To)
		}
		if e.Opacity == 0 {
			e.Opacity = 1
		}
		newEdges[e.Key] = &e
		newEdgeOrder = append(newEdgeOrder, e.Key)
	}

	diff := Diff{Policy: s.policy}

	for _, key := range newOrder {
		n := newNodes[key]
		if prev, ok := s.nodes[key]; ok {
			diff.UpdatedNodes = append(diff.UpdatedNodes, NodeChange{
				Node: *n,
				From: prev.Pos,
				To:   n.Pos,
			})
			continue
		}
		from := n.Pos
		if parent, ok := newNodes[n.ParentKey]; ok {
			from = parent.Pos
		}
		diff.EnteredNodes = append(diff.EnteredNodes, NodeChange{Node: *n, From: from, To: n.Pos})
	}

	for _, key := range s.order {
		prev := s.nodes[key]
		if _, ok := newNodes[key]; ok {
			continue
		}
		to := prev.Pos
		if parent, ok := newNodes[prev.ParentKey]; ok {
			to = parent.Pos
		}
		diff.ExitedNodes = append(diff.ExitedNodes, NodeChange{Node: *prev, From: prev.Pos, To: to})
	}

	for _, key := range newEdgeOrder {
		e := newEdges[key]
		if _, ok := s.edges[key]; ok {
			diff.UpdatedEdges = append(diff.UpdatedEdges, *e)
		} else {
			diff.EnteredEdges = append(diff.EnteredEdges, *e)
		}
	}
	for _, key := range s.edgeOrder {
		if _, ok := newEdges[key]; !ok {
			diff.ExitedEdges = append(diff.ExitedEdges, *s.edges[key])
		}
	}

	// Commit.
	s.nodes = newNodes
	s.order = newOrder
	s.edges = newEdges
	s.edgeOrder = newEdgeOrder
	s.byTask = make(map[string][]string, len(newNodes))
	for _, key := range newOrder {
		id := newNodes[key].TaskID
		if id != "" {
			s.byTask[id] = append(s.byTask[id], key)
		}
	}

	return diff, nil
}
