// Package dag builds the addressable dependency graph behind the graph view:
// tasks keyed by id with ordered predecessor/successor adjacency. The graph
// is immutable once built; it is rebuilt only on page load and on a manual
// rearrange request.
package dag

import (
	"errors"
	"fmt"

	"github.com/vk/dagview/internal/model"
)

// ErrUnknownTask is returned when an edge references a task id that is not
// part of the workflow. This is a data-integrity error: no graph is produced.
var ErrUnknownTask = errors.New("edge references unknown task")

// Graph is the dependency graph for one workflow. Adjacency sequences are
// unique and ordered: task order follows declaration order, and each node's
// predecessors/successors follow edge declaration order.
type Graph struct {
	order []string
	nodes map[string]*node
}

type node struct {
	id      string
	preds   []string
	succs   []string
	predSet map[string]struct{}
	succSet map[string]struct{}
}

// Build constructs a graph from a task list and an edge list. It fails,
// without producing a partial graph, if an edge endpoint is unknown, if an
// edge is self-referential, or if the edge set contains a cycle.
func Build(tasks []model.Task, edges []model.Edge) (*Graph, error) {
	g := &Graph{nodes: make(map[string]*node, len(tasks))}

	for _, t := range tasks {
		if _, ok := g.nodes[t.ID]; ok {
			return nil, fmt.Errorf("duplicate task id %q", t.ID)
		}
		g.nodes[t.ID] = &node{
			id:      t.ID,
			predSet: make(map[string]struct{}),
			succSet: make(map[string]struct{}),
		}
		g.order = append(g.order, t.ID)
	}

	for _, e := range edges {
		if e.Upstream == e.Downstream {
			return nil, fmt.Errorf("self-referential edge not allowed: %s -> %s", e.Upstream, e.Downstream)
		}
		up, ok := g.nodes[e.Upstream]
		if !ok {
			return nil, fmt.Errorf("%w: %q (upstream of %q)", ErrUnknownTask, e.Upstream, e.Downstream)
		}
		down, ok := g.nodes[e.Downstream]
		if !ok {
			return nil, fmt.Errorf("%w: %q (downstream of %q)", ErrUnknownTask, e.Downstream, e.Upstream)
		}

		if _, dup := up.succSet[down.id]; dup {
			continue
		}
		up.succSet[down.id] = struct{}{}
		up.succs = append(up.succs, down.id)
		down.predSet[up.id] = struct{}{}
		down.preds = append(down.preds, up.id)
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// TaskIDs returns every task id in declaration order.
func (g *Graph) TaskIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Has reports whether the graph contains the given task id.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Predecessors returns the ordered, possibly empty, list of direct upstream
// task ids. Unknown ids yield an empty list.
func (g *Graph) Predecessors(id string) []string {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	out := make([]string, len(n.preds))
	copy(out, n.preds)
	return out
}

// Successors returns the ordered, possibly empty, list of direct downstream
// task ids. Unknown ids yield an empty list.
func (g *Graph) Successors(id string) []string {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	out := make([]string, len(n.succs))
	copy(out, n.succs)
	return out
}

// Roots returns the task ids with no predecessors, in declaration order.
// These are the tree view's top-level tasks.
func (g *Graph) Roots() []string {
	var out []string
	for _, id := range g.order {
		if len(g.nodes[id].preds) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// detectCycles runs a depth-first search over successor edges with the
// classic permanent/temporary marking scheme.
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return fmt.Errorf("cycle detected involving task %q", n.id)
		}
		temporary[n.id] = true
		for _, succ := range n.succs {
			if err := visit(g.nodes[succ]); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range g.order {
		if !permanent[id] {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
	}
	return nil
}
