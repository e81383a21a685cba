// Package treemodel builds the rooted hierarchy behind the tree view. Each
// node carries an ordered sequence of per-run instance cells aligned to the
// shared run sequence, with explicit no-status placeholders where no instance
// exists. Task ids recur across branches (fan-in dependencies, expanded
// sub-workflows), so nodes are keyed by their tree path, with a secondary
// index from task id to every occurrence.
package treemodel

import (
	"fmt"
	"time"

	"github.com/vk/dagview/internal/dag"
	"github.com/vk/dagview/internal/model"
	"github.com/vk/dagview/internal/nodekey"
)

// maxDepth bounds tree expansion against pathological sub-workflow nesting.
const maxDepth = 50

// Cell is one node's instance record for one run. HasData is false for the
// synthetic placeholder inserted when no TaskInstance exists for the
// task/run pair.
type Cell struct {
	RunID         string
	ExecutionDate time.Time

	State     model.State
	StartDate time.Time
	EndDate   time.Time
	Duration  float64

	RunLabel        string
	ExternalTrigger bool
	HasData         bool
}

// Node is one occurrence of a task in the tree. Task is nil only for the
// synthetic root.
type Node struct {
	Key      nodekey.Key
	Task     *model.Task
	Children []*Node
	Cells    []Cell
}

// Scale is the shared horizontal time axis: the min/max execution timestamps
// taken from the first non-synthetic tree level, so that per-run markers line
// up vertically at every depth.
type Scale struct {
	Min time.Time
	Max time.Time
}

// Span returns the scale width; zero when the scale is empty.
func (s Scale) Span() time.Duration {
	if s.Min.IsZero() || s.Max.IsZero() {
		return 0
	}
	return s.Max.Sub(s.Min)
}

// Tree is the rooted hierarchy for one workflow plus its run axis.
type Tree struct {
	Root          *Node
	Runs          []model.Run
	SyntheticRoot bool
	Scale         Scale

	occurrences map[string][]string
}

// Occurrences returns the keys of every tree occurrence of the given task
// id, in preorder. Collapse/expand toggles fan out across this list.
func (t *Tree) Occurrences(taskID string) []string {
	keys := t.occurrences[taskID]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Node returns the occurrence with the given path key, or nil.
func (t *Tree) Node(key string) *Node {
	var found *Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if found != nil {
			return
		}
		if n.Key.String() == key {
			found = n
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.Root)
	return found
}

type builder struct {
	runs        []model.Run
	instances   map[string]map[string]model.TaskInstance // task id -> run id -> instance
	occurrences map[string][]string
	subGraphs   map[*model.Workflow]*dag.Graph
}

// Build constructs the tree for a workflow. The run sequence defines cell
// order for every node. Structural problems (unknown edge endpoints, cycles,
// excessive sub-workflow nesting) refuse to produce a model.
func Build(wf *model.Workflow, runs []model.Run, instances []model.TaskInstance) (*Tree, error) {
	g, err := dag.Build(wf.Tasks, wf.Edges)
	if err != nil {
		return nil, fmt.Errorf("building tree for workflow %q: %w", wf.ID, err)
	}

	b := &builder{
		runs:        runs,
		instances:   make(map[string]map[string]model.TaskInstance),
		occurrences: make(map[string][]string),
		subGraphs:   make(map[*model.Workflow]*dag.Graph),
	}
	for _, ti := range instances {
		byRun, ok := b.instances[ti.TaskID]
		if !ok {
			byRun = make(map[string]model.TaskInstance)
			b.instances[ti.TaskID] = byRun
		}
		byRun[ti.RunID] = ti
	}

	roots := g.Roots()
	tree := &Tree{Runs: runs, occurrences: b.occurrences}

	switch len(roots) {
	case 0:
		tree.Root = &Node{Key: nodekey.New(wf.ID)}
		tree.SyntheticRoot = true
	case 1:
		root, err := b.node(wf, g, roots[0], nodekey.Key{}, 0)
		if err != nil {
			return nil, err
		}
		tree.Root = root
	default:
		rootKey := nodekey.New(wf.ID)
		root := &Node{Key: rootKey}
		for _, id := range roots {
			child, err := b.node(wf, g, id, rootKey, 1)
			if err != nil {
				return nil, err
			}
			root.Children = append(root.Children, child)
		}
		tree.Root = root
		tree.SyntheticRoot = true
	}

	tree.Scale = firstLevelScale(tree)
	return tree, nil
}

// node builds the occurrence of taskID under parentKey, recursing into
// downstream tasks and, for sub-workflow tasks, into the nested workflow's
// top-level tasks.
func (b *builder) node(wf *model.Workflow, g *dag.Graph, taskID string, parentKey nodekey.Key, depth int) (*Node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("tree deeper than %d levels at task %q, sub-workflow nesting suspected cyclic", maxDepth, taskID)
	}

	key := nodekey.New(taskID)
	if parentKey.Depth() > 0 {
		key = parentKey.Child(taskID)
	}

	task := wf.Task(taskID)
	if task == nil {
		return nil, fmt.Errorf("%w: %q", dag.ErrUnknownTask, taskID)
	}

	n := &Node{
		Key:   key,
		Task:  task,
		Cells: b.cells(taskID),
	}
	b.occurrences[taskID] = append(b.occurrences[taskID], key.String())

	if task.IsSubworkflow && task.Sub != nil {
		sub := task.Sub
		sg, ok := b.subGraphs[sub]
		if !ok {
			var err error
			sg, err = dag.Build(sub.Tasks, sub.Edges)
			if err != nil {
				return nil, fmt.Errorf("building sub-workflow %q: %w", sub.ID, err)
			}
			b.subGraphs[sub] = sg
		}
		for _, id := range sg.Roots() {
			child, err := b.node(sub, sg, id, key, depth+1)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	}

	for _, id := range g.Successors(taskID) {
		child, err := b.node(wf, g, id, key, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}

	return n, nil
}

// cells aligns the task's instances with the run sequence, inserting a
// no-status placeholder for runs the task never executed in.
func (b *builder) cells(taskID string) []Cell {
	out := make([]Cell, 0, len(b.runs))
	byRun := b.instances[taskID]
	for _, run := range b.runs {
		cell := Cell{
			RunID:         run.ID,
			ExecutionDate: run.ExecutionDate,
			State:         model.StateNoStatus,
		}
		if ti, ok := byRun[run.ID]; ok {
			cell.State = ti.State
			cell.StartDate = ti.StartDate
			cell.EndDate = ti.EndDate
			cell.Duration = ti.Duration
			cell.RunLabel = ti.RunLabel
			cell.ExternalTrigger = ti.ExternalTrigger
			cell.HasData = true
		}
		out = append(out, cell)
	}
	return out
}

// firstLevelScale derives the shared time axis from the first non-synthetic
// level: the root itself, or the root's children when the root is synthetic.
func firstLevelScale(t *Tree) Scale {
	level := []*Node{t.Root}
	if t.SyntheticRoot {
		level = t.Root.Children
	}

	var s Scale
	for _, n := range level {
		for _, c := range n.Cells {
			if !c.HasData {
				continue
			}
			if !c.StartDate.IsZero() && (s.Min.IsZero() || c.StartDate.Before(s.Min)) {
				s.Min = c.StartDate
			}
			if !c.EndDate.IsZero() && (s.Max.IsZero() || c.EndDate.After(s.Max)) {
				s.Max = c.EndDate
			}
		}
	}
	return s
}
