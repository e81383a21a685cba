// Package interact owns the view's interaction state: the mutually exclusive
// highlight modes (hover, search, state focus), the collapse/expand state of
// tree subtrees, and the viewport. It translates input events into restyling
// and re-render calls on the scene; it never creates or removes scene
// elements itself.
package interact

import (
	"fmt"
	"strings"

	"github.com/vk/dagview/internal/dag"
	"github.com/vk/dagview/internal/layout"
	"github.com/vk/dagview/internal/model"
	"github.com/vk/dagview/internal/nodekey"
	"github.com/vk/dagview/internal/scene"
	"github.com/vk/dagview/internal/treemodel"
)

// Mode is the single active interaction mode. Modes are mutually exclusive;
// entering one always leaves the previous one first.
type Mode int

const (
	ModeIdle Mode = iota
	ModeHover
	ModeSearch
	ModeStateFocus
)

func (m Mode) String() string {
	switch m {
	case ModeHover:
		return "hover"
	case ModeSearch:
		return "search"
	case ModeStateFocus:
		return "state-focus"
	default:
		return "idle"
	}
}

// DimOpacity is the fixed low opacity applied to de-emphasized elements.
const DimOpacity = 0.2

// Modal is the external dialog collaborator invoked on node click. The call
// carries no further state in this engine.
type Modal interface {
	ShowTaskDetails(taskID, runID string, isSubworkflow bool)
}

// Viewport is the current pan/zoom state. It survives re-renders; only
// search auto-pan moves it programmatically.
type Viewport struct {
	X     float64
	Y     float64
	Scale float64
}

// Rebuilder recomputes the post-layout snapshot for the current visible set.
// The session wires it to the view's model + layout pipeline.
type Rebuilder func() (scene.Snapshot, error)

// Config wires a controller to its view.
type Config struct {
	Scene *scene.Scene
	Graph *dag.Graph
	// Tree is nil for the graph view; collapse/expand is refused without it.
	Tree        *treemodel.Tree
	Modal       Modal
	Rebuild     Rebuilder
	SelectedRun string
}

// Controller is the interaction state machine for one view.
type Controller struct {
	scene   *scene.Scene
	graph   *dag.Graph
	tree    *treemodel.Tree
	modal   Modal
	rebuild Rebuilder

	mode        Mode
	focusState  model.State
	focusPinned bool
	searchTerm  string
	hoverKey    string
	collapsed   map[string]bool
	selectedRun string
	viewport    Viewport
}

// New returns a controller in Idle mode with nothing collapsed.
func New(cfg Config) *Controller {
	return &Controller{
		scene:       cfg.Scene,
		graph:       cfg.Graph,
		tree:        cfg.Tree,
		modal:       cfg.Modal,
		rebuild:     cfg.Rebuild,
		collapsed:   make(map[string]bool),
		selectedRun: cfg.SelectedRun,
		viewport:    Viewport{Scale: 1},
	}
}

// Mode returns the active interaction mode.
func (c *Controller) Mode() Mode { return c.mode }

// FocusedState returns the legend state currently applied (pinned or
// previewed), if any.
func (c *Controller) FocusedState() (model.State, bool) {
	if c.mode != ModeStateFocus {
		return "", false
	}
	return c.focusState, true
}

// Viewport returns the current pan/zoom state.
func (c *Controller) Viewport() Viewport { return c.viewport }

// SetSelectedRun changes the run identifier passed to the modal collaborator.
func (c *Controller) SetSelectedRun(runID string) { c.selectedRun = runID }

// SelectedRun returns the run identifier passed to the modal collaborator.
func (c *Controller) SelectedRun() string { return c.selectedRun }

// Collapsed reports whether the given tree occurrence is collapsed.
func (c *Controller) Collapsed(key string) bool { return c.collapsed[key] }

// reset returns the controller and every element's styling to Idle.
func (c *Controller) reset() {
	c.scene.ResetStyles()
	c.mode = ModeIdle
	c.focusPinned = false
	c.focusState = ""
	c.searchTerm = ""
	c.hoverKey = ""
}

// PointerEnter starts hover highlighting over a node. Hover only engages
// from Idle: a pinned focus or an active search wins over the pointer.
func (c *Controller) PointerEnter(key string) {
	if c.mode != ModeIdle {
		return
	}
	n, ok := c.scene.Node(key)
	if !ok {
		return
	}
	c.mode = ModeHover
	c.hoverKey = key
	c.applyHover(n)
}

// PointerLeave ends hover highlighting, reverting to Idle.
func (c *Controller) PointerLeave(key string) {
	if c.mode != ModeHover || c.hoverKey != key {
		return
	}
	c.reset()
}

func (c *Controller) applyHover(n scene.Node) {
	c.styleTask(n.TaskID, scene.HighlightHovered)
	for _, up := range c.graph.Predecessors(n.TaskID) {
		c.styleTask(up, scene.HighlightUpstream)
	}
	for _, down := range c.graph.Successors(n.TaskID) {
		c.styleTask(down, scene.HighlightDownstream)
	}
}

// styleTask highlights every rendered occurrence of a task id.
func (c *Controller) styleTask(taskID string, hl scene.Highlight) {
	for _, key := range c.scene.KeysForTask(taskID) {
		c.scene.SetNodeStyle(key, 1, true, hl)
	}
}

// SetSearch enters (or updates) search-filter mode for a non-empty term and
// reverts to Idle for an empty one. Matching is a case-sensitive substring
// test on the task id; the viewport pans to the first match in declaration
// order.
func (c *Controller) SetSearch(term string) {
	c.reset()
	if term == "" {
		return
	}
	c.mode = ModeSearch
	c.searchTerm = term

	panned := false
	for _, n := range c.scene.Nodes() {
		if strings.Contains(n.TaskID, term) {
			c.scene.SetNodeStyle(n.Key, 1, true, scene.HighlightNone)
			if !panned {
				c.PanTo(n.Pos)
				panned = true
			}
		} else {
			c.scene.SetNodeStyle(n.Key, DimOpacity, false, scene.HighlightNone)
		}
	}
	c.dimEdges()
}

// SearchTerm returns the active search input, empty outside search mode.
func (c *Controller) SearchTerm() string { return c.searchTerm }

// LegendClick pins (or toggles off) state focus for a legend entry. Clicking
// the pinned entry again clears back to Idle; clicking a different entry
// clears first, then pins the new one.
func (c *Controller) LegendClick(state model.State) {
	wasPinned := c.mode == ModeStateFocus && c.focusPinned && c.focusState == state
	c.reset()
	if wasPinned {
		return
	}
	c.applyFocus(state, true)
}

// LegendHoverEnter previews state focus, but only when nothing is pinned and
// no other mode is active.
func (c *Controller) LegendHoverEnter(state model.State) {
	if c.mode != ModeIdle {
		return
	}
	c.applyFocus(state, false)
}

// LegendHoverLeave ends a preview. A pinned focus stays.
func (c *Controller) LegendHoverLeave() {
	if c.mode == ModeStateFocus && !c.focusPinned {
		c.reset()
	}
}

func (c *Controller) applyFocus(state model.State, pinned bool) {
	c.mode = ModeStateFocus
	c.focusState = state
	c.focusPinned = pinned

	class := string(state)
	for _, n := range c.scene.Nodes() {
		if n.Class == class {
			c.scene.SetNodeStyle(n.Key, 1, true, scene.HighlightNone)
		} else {
			c.scene.SetNodeStyle(n.Key, DimOpacity, false, scene.HighlightNone)
		}
	}
	c.dimEdges()
}

func (c *Controller) dimEdges() {
	for _, e := range c.scene.Edges() {
		c.scene.SetEdgeOpacity(e.Key, DimOpacity)
	}
}

// ClickNode dispatches the node's identity to the modal collaborator. It
// changes no interaction state.
func (c *Controller) ClickNode(key string) {
	n, ok := c.scene.Node(key)
	if !ok || c.modal == nil {
		return
	}
	c.modal.ShowTaskDetails(n.TaskID, c.selectedRun, n.IsSubworkflow)
}

// ToggleCollapse flips the visible-children flag of a tree occurrence and
// every other occurrence of the same task id, then re-renders the visible
// set through the diff engine. Descendants of a collapsed node stay in the
// tree model, so expanding restores the exact previous visible set.
func (c *Controller) ToggleCollapse(key string) error {
	if c.tree == nil {
		return fmt.Errorf("collapse is a tree-view operation")
	}
	k, err := nodekey.Parse(key)
	if err != nil {
		return err
	}
	taskID := k.Leaf()

	occurrences := c.tree.Occurrences(taskID)
	if len(occurrences) == 0 {
		return fmt.Errorf("no tree occurrence for task %q", taskID)
	}
	target := !c.collapsed[key]
	for _, occ := range occurrences {
		c.collapsed[occ] = target
	}

	return c.Rerender()
}

// Rerender recomputes the visible set through the rebuilder, applies it via
// the diff engine, and reapplies the active mode's styling on the surviving
// elements.
func (c *Controller) Rerender() error {
	if c.rebuild == nil {
		return fmt.Errorf("no rebuilder configured")
	}
	snap, err := c.rebuild()
	if err != nil {
		return err
	}
	if _, err := c.scene.Apply(snap); err != nil {
		return err
	}
	c.reapplyMode()
	return nil
}

// Restyle reapplies the active mode's styling against the scene's current
// element attributes. Callers use it after state classes change underneath a
// pinned focus.
func (c *Controller) Restyle() {
	c.reapplyMode()
}

// reapplyMode restores the active mode's styling after a structural
// re-render replaced element attributes.
func (c *Controller) reapplyMode() {
	switch c.mode {
	case ModeHover:
		if n, ok := c.scene.Node(c.hoverKey); ok {
			c.applyHover(n)
		} else {
			c.reset()
		}
	case ModeSearch:
		term := c.searchTerm
		c.SetSearch(term)
	case ModeStateFocus:
		state, pinned := c.focusState, c.focusPinned
		c.scene.ResetStyles()
		c.applyFocus(state, pinned)
	}
}

// VisibleRows walks the tree in preorder, skipping the descendants of
// collapsed occurrences, and returns the layout rows for the visible set.
func (c *Controller) VisibleRows() []layout.Row {
	if c.tree == nil {
		return nil
	}
	var rows []layout.Row
	var walk func(n *treemodel.Node, parentKey string, depth int)
	walk = func(n *treemodel.Node, parentKey string, depth int) {
		key := n.Key.String()
		rows = append(rows, layout.Row{Key: key, ParentKey: parentKey, Depth: depth})
		if c.collapsed[key] {
			return
		}
		for _, child := range n.Children {
			walk(child, key, depth+1)
		}
	}
	walk(c.tree.Root, "", 0)
	return rows
}

// PanTo recenters the viewport on the given position.
func (c *Controller) PanTo(p layout.Point) {
	c.viewport.X = p.X
	c.viewport.Y = p.Y
}
