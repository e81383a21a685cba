// Package session ties one workflow's models, scenes, and controllers
// together behind a single lock. Everything that mutates a scene (diff
// applies, overlay updates, interaction restyling) funnels through the
// session, which is what gives the poller goroutine and the HTTP handlers
// the single-event-loop ordering the engine assumes.
package session

import (
	"fmt"
	"sync"

	"github.com/vk/dagview/internal/config"
	"github.com/vk/dagview/internal/dag"
	"github.com/vk/dagview/internal/interact"
	"github.com/vk/dagview/internal/layout"
	"github.com/vk/dagview/internal/model"
	"github.com/vk/dagview/internal/overlay"
	"github.com/vk/dagview/internal/scene"
	"github.com/vk/dagview/internal/treemodel"
	"github.com/vk/dagview/internal/view"
)

// ViewKind selects which presentation mode an event targets.
type ViewKind int

const (
	GraphView ViewKind = iota
	TreeView
)

// ViewState is a read snapshot of one view for rendering.
type ViewState struct {
	Nodes        []scene.Node
	Edges        []scene.Edge
	Viewport     interact.Viewport
	Mode         interact.Mode
	FocusedState model.State
	SearchTerm   string
	Width        float64
	Height       float64
}

// Config wires a new session.
type Config struct {
	Workflow  *model.Workflow
	Runs      []model.Run
	Instances []model.TaskInstance
	Settings  config.Settings
	Modal     interact.Modal
	Policy    scene.TransitionPolicy
}

// Session owns the rendered state for one workflow page load.
type Session struct {
	mu sync.Mutex

	wf    *model.Workflow
	graph *dag.Graph
	tree  *treemodel.Tree
	runs  []model.Run

	layered   layout.Layered
	grid      layout.TreeGrid
	graphDims [2]float64
	treeDims  [2]float64

	graphScene *scene.Scene
	graphSync  *overlay.Synchronizer
	graphCtrl  *interact.Controller

	treeScene *scene.Scene
	treeSync  *overlay.Synchronizer
	treeCtrl  *interact.Controller

	latest  map[string]model.TaskInstance
	pollErr error
}

// New builds the graph and tree models, performs the initial paint of both
// scenes, and applies the initial instance states.
func New(cfg Config) (*Session, error) {
	g, err := dag.Build(cfg.Workflow.Tasks, cfg.Workflow.Edges)
	if err != nil {
		return nil, fmt.Errorf("building graph model: %w", err)
	}
	tree, err := treemodel.Build(cfg.Workflow, cfg.Runs, cfg.Instances)
	if err != nil {
		return nil, err
	}

	layered := layout.NewLayered(layout.Direction(cfg.Settings.RankDirection))
	if cfg.Settings.NodeSep > 0 {
		layered.NodeSep = cfg.Settings.NodeSep
	}
	if cfg.Settings.RankSep > 0 {
		layered.RankSep = cfg.Settings.RankSep
	}

	s := &Session{
		wf:         cfg.Workflow,
		graph:      g,
		tree:       tree,
		runs:       cfg.Runs,
		layered:    layered,
		grid:       layout.NewTreeGrid(),
		graphScene: scene.New(cfg.Policy),
		treeScene:  scene.New(cfg.Policy),
		latest:     make(map[string]model.TaskInstance),
	}
	s.graphSync = overlay.New(s.graphScene)
	s.treeSync = overlay.New(s.treeScene)

	selectedRun := ""
	if len(cfg.Runs) > 0 {
		selectedRun = cfg.Runs[len(cfg.Runs)-1].ID
	}

	s.graphCtrl = interact.New(interact.Config{
		Scene:       s.graphScene,
		Graph:       g,
		Modal:       cfg.Modal,
		Rebuild:     s.rebuildGraph,
		SelectedRun: selectedRun,
	})
	s.treeCtrl = interact.New(interact.Config{
		Scene:       s.treeScene,
		Graph:       g,
		Tree:        tree,
		Modal:       cfg.Modal,
		Rebuild:     s.rebuildTree,
		SelectedRun: selectedRun,
	})

	if err := s.graphCtrl.Rerender(); err != nil {
		return nil, err
	}
	if err := s.treeCtrl.Rerender(); err != nil {
		return nil, err
	}

	// Initial paint includes the freshest known state per task.
	s.applyLatestLocked(latestByTask(cfg.Runs, cfg.Instances))
	return s, nil
}

// latestByTask keeps, per task, the instance from the most recent run that
// has data.
func latestByTask(runs []model.Run, instances []model.TaskInstance) map[string]model.TaskInstance {
	order := make(map[string]int, len(runs))
	for i, r := range runs {
		order[r.ID] = i
	}
	latest := make(map[string]model.TaskInstance)
	for _, ti := range instances {
		cur, ok := latest[ti.TaskID]
		if !ok || order[ti.RunID] >= order[cur.RunID] {
			latest[ti.TaskID] = ti
		}
	}
	return latest
}

func (s *Session) rebuildGraph() (scene.Snapshot, error) {
	snap, res := view.GraphSnapshot(s.wf, s.graph, s.layered)
	s.graphDims = [2]float64{res.Width, res.Height}
	s.decorateWithLatest(&snap)
	return snap, nil
}

func (s *Session) rebuildTree() (scene.Snapshot, error) {
	snap, res := view.TreeSnapshot(s.tree, s.treeCtrl.VisibleRows(), s.grid, s.treeCtrl.Collapsed)
	s.treeDims = [2]float64{res.Width, res.Height}
	s.decorateWithLatest(&snap)
	return snap, nil
}

// decorateWithLatest stamps the freshest known instance state onto a fresh
// snapshot so re-renders don't flash nodes back to no-status.
func (s *Session) decorateWithLatest(snap *scene.Snapshot) {
	for i := range snap.Nodes {
		n := &snap.Nodes[i]
		ti, ok := s.latest[n.TaskID]
		if !ok {
			continue
		}
		if ti.State.Valid() {
			n.Class = string(ti.State)
		}
		n.Tooltip = overlay.Tooltip(n.TaskID, ti)
	}
}

func (s *Session) ctrl(v ViewKind) *interact.Controller {
	if v == TreeView {
		return s.treeCtrl
	}
	return s.graphCtrl
}

// ApplyInstanceStates merges a successful poll into both scenes and clears
// any prior poll error. Pinned or previewed styling is recomputed against
// the new state classes.
func (s *Session) ApplyInstanceStates(states map[string]model.TaskInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLatestLocked(states)
	s.pollErr = nil
}

func (s *Session) applyLatestLocked(states map[string]model.TaskInstance) {
	for id, ti := range states {
		s.latest[id] = ti
	}
	s.graphSync.ApplyInstanceStates(states)
	s.treeSync.ApplyInstanceStates(states)
	s.graphCtrl.Restyle()
	s.treeCtrl.Restyle()
}

// SetPollError records a transient poll failure for the error banner. Node
// visuals keep their last successful state.
func (s *Session) SetPollError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollErr = err
}

// PollError returns the current banner error, nil when none.
func (s *Session) PollError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollErr
}

// Rearrange re-runs the graph layout with a new rank direction through the
// diff engine, so surviving nodes animate to their new positions.
func (s *Session) Rearrange(dir layout.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir != layout.TopDown && dir != layout.LeftRight {
		return fmt.Errorf("invalid rank direction %q", dir)
	}
	s.layered.Direction = dir
	return s.graphCtrl.Rerender()
}

// Direction returns the graph view's current rank direction.
func (s *Session) Direction() layout.Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layered.Direction
}

// SetSelectedRun changes the run the modal collaborator is invoked with.
func (s *Session) SetSelectedRun(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphCtrl.SetSelectedRun(runID)
	s.treeCtrl.SetSelectedRun(runID)
}

// SelectedRun returns the run the modal collaborator is invoked with.
func (s *Session) SelectedRun() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graphCtrl.SelectedRun()
}

// PointerEnter forwards a node pointer-enter event.
func (s *Session) PointerEnter(v ViewKind, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl(v).PointerEnter(key)
}

// PointerLeave forwards a node pointer-leave event.
func (s *Session) PointerLeave(v ViewKind, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl(v).PointerLeave(key)
}

// Search sets or clears the free-text filter.
func (s *Session) Search(v ViewKind, term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl(v).SetSearch(term)
}

// LegendClick pins or toggles state focus.
func (s *Session) LegendClick(v ViewKind, state model.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl(v).LegendClick(state)
}

// LegendHoverEnter previews state focus.
func (s *Session) LegendHoverEnter(v ViewKind, state model.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl(v).LegendHoverEnter(state)
}

// LegendHoverLeave ends a state-focus preview.
func (s *Session) LegendHoverLeave(v ViewKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl(v).LegendHoverLeave()
}

// ClickNode dispatches a node click to the modal collaborator.
func (s *Session) ClickNode(v ViewKind, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl(v).ClickNode(key)
}

// ToggleCollapse toggles a tree subtree, fanning out to duplicate
// occurrences of the same task id.
func (s *Session) ToggleCollapse(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.treeCtrl.ToggleCollapse(key)
}

// State returns a render snapshot of the given view.
func (s *Session) State(v ViewKind) ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctrl := s.ctrl(v)
	sc := s.graphScene
	dims := s.graphDims
	if v == TreeView {
		sc = s.treeScene
		dims = s.treeDims
	}

	st := ViewState{
		Nodes:      sc.Nodes(),
		Edges:      sc.Edges(),
		Viewport:   ctrl.Viewport(),
		Mode:       ctrl.Mode(),
		SearchTerm: ctrl.SearchTerm(),
		Width:      dims[0],
		Height:     dims[1],
	}
	if state, ok := ctrl.FocusedState(); ok {
		st.FocusedState = state
	}
	return st
}

// Workflow returns the immutable workflow model.
func (s *Session) Workflow() *model.Workflow { return s.wf }

// Tree returns the immutable tree model (cells, scale, runs).
func (s *Session) Tree() *treemodel.Tree { return s.tree }

// Runs returns the run sequence for the run picker.
func (s *Session) Runs() []model.Run { return s.runs }
