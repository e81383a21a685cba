// Package scene is the retained scene graph behind both views and the only
// place visual elements are created, mutated, and removed. Elements are
// matched across renders by stable key (the task id in the graph view, the
// tree-path occurrence key in the tree view) and every change to the
// visible set goes through the enter/update/exit diff in Apply. The state
// overlay and the interaction controller restyle existing elements through
// the setter methods; they never add or remove them.
package scene

import (
	"errors"

	"github.com/vk/dagview/internal/layout"
)

// Structural errors reported by Apply. The scene is left untouched when one
// occurs.
var (
	ErrDuplicateKey = errors.New("duplicate stable key")
	ErrDanglingEdge = errors.New("edge references node absent from snapshot")
)

// Highlight marks a node's role during hover highlighting.
type Highlight int

const (
	HighlightNone Highlight = iota
	HighlightHovered
	HighlightUpstream
	HighlightDownstream
)

func (h Highlight) String() string {
	switch h {
	case HighlightHovered:
		return "hovered"
	case HighlightUpstream:
		return "upstream"
	case HighlightDownstream:
		return "downstream"
	default:
		return "none"
	}
}

// Node is one rendered node element. Key is stable across re-renders for as
// long as the underlying task (graph view) or tree path (tree view)
// persists; TaskID is the back-reference to the logical task and may be
// shared by several nodes in the tree view.
type Node struct {
	Key       string
	TaskID    string
	ParentKey string
	Label     string

	Pos     layout.Point
	Class   string
	Tooltip string

	Opacity   float64
	Emphasis  bool
	Highlight Highlight

	Collapsed     bool
	IsSubworkflow bool
}

// Edge is one rendered edge element, keyed independently of its endpoints'
// positions.
type Edge struct {
	Key     string
	From    string
	To      string
	Points  []layout.Point
	Opacity float64
}

// Snapshot is a full post-layout description of the visible set.
type Snapshot struct {
	Nodes []Node
	Edges []Edge
}

// Scene holds the last committed visible set. It is not safe for concurrent
// use; the session serializes all access.
type Scene struct {
	policy TransitionPolicy

	order  []string
	nodes  map[string]*Node
	byTask map[string][]string

	edgeOrder []string
	edges     map[string]*Edge
}

// New returns an empty scene using the given transition policy for all
// diffs.
func New(policy TransitionPolicy) *Scene {
	return &Scene{
		policy: policy,
		nodes:  make(map[string]*Node),
		byTask: make(map[string][]string),
		edges:  make(map[string]*Edge),
	}
}

// Policy returns the scene's transition policy.
func (s *Scene) Policy() TransitionPolicy {
	return s.policy
}

// Node returns a copy of the committed node with the given key.
func (s *Scene) Node(key string) (Node, bool) {
	n, ok := s.nodes[key]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns copies of all committed nodes in commit order, which follows
// snapshot order and therefore task declaration order.
func (s *Scene) Nodes() []Node {
	out := make([]Node, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.nodes[key])
	}
	return out
}

// KeysForTask returns the committed node keys rendering the given task id,
// in commit order. This is the identity index the overlay and collapse
// fan-out consult.
func (s *Scene) KeysForTask(taskID string) []string {
	keys := s.byTask[taskID]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Edge returns a copy of the committed edge with the given key.
func (s *Scene) Edge(key string) (Edge, bool) {
	e, ok := s.edges[key]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// Edges returns copies of all committed edges in commit order.
func (s *Scene) Edges() []Edge {
	out := make([]Edge, 0, len(s.edgeOrder))
	for _, key := range s.edgeOrder {
		out = append(out, *s.edges[key])
	}
	return out
}

// SetNodeState updates the state class and tooltip of one committed node.
// Returns false if the key is not rendered.
func (s *Scene) SetNodeState(key, class, tooltip string) bool {
	n, ok := s.nodes[key]
	if !ok {
		return false
	}
	n.Class = class
	n.Tooltip = tooltip
	return true
}

// SetNodeStyle updates one committed node's interactive styling.
func (s *Scene) SetNodeStyle(key string, opacity float64, emphasis bool, hl Highlight) bool {
	n, ok := s.nodes[key]
	if !ok {
		return false
	}
	n.Opacity = opacity
	n.Emphasis = emphasis
	n.Highlight = hl
	return true
}

// SetEdgeOpacity updates one committed edge's opacity.
func (s *Scene) SetEdgeOpacity(key string, opacity float64) bool {
	e, ok := s.edges[key]
	if !ok {
		return false
	}
	e.Opacity = opacity
	return true
}

// ResetStyles returns every committed element to full opacity with no
// emphasis or highlight. State classes and tooltips are untouched.
func (s *Scene) ResetStyles() {
	for _, n := range s.nodes {
		n.Opacity = 1
		n.Emphasis = false
		n.Highlight = HighlightNone
	}
	for _, e := range s.edges {
		e.Opacity = 1
	}
}
