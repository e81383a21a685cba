// Package view builds post-layout scene snapshots for the two presentation
// modes. A snapshot is a pure function of the model and the visible set; the
// scene's diff engine decides what actually enters, moves, or exits.
package view

import (
	"github.com/vk/dagview/internal/dag"
	"github.com/vk/dagview/internal/layout"
	"github.com/vk/dagview/internal/model"
	"github.com/vk/dagview/internal/scene"
	"github.com/vk/dagview/internal/treemodel"
)

// GraphSnapshot lays out the full graph and returns its snapshot. Node keys
// are task ids; edge keys are "up->down".
func GraphSnapshot(wf *model.Workflow, g *dag.Graph, eng layout.Layered) (scene.Snapshot, layout.Result) {
	ids := g.TaskIDs()
	edges := make([]layout.GraphEdge, 0, len(wf.Edges))
	for _, e := range wf.Edges {
		edges = append(edges, layout.GraphEdge{From: e.Upstream, To: e.Downstream})
	}
	res := eng.Layout(ids, edges)

	var snap scene.Snapshot
	for _, id := range ids {
		pos, _ := res.Node(id)
		task := wf.Task(id)
		n := scene.Node{
			Key:    id,
			TaskID: id,
			Label:  id,
			Pos:    pos.Center,
			Class:  string(model.StateNoStatus),
		}
		if task != nil {
			n.IsSubworkflow = task.IsSubworkflow
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	seen := make(map[string]bool, len(wf.Edges))
	for _, e := range wf.Edges {
		key := e.Upstream + "->" + e.Downstream
		if seen[key] {
			continue
		}
		seen[key] = true
		path, _ := pathFor(res, key)
		snap.Edges = append(snap.Edges, scene.Edge{
			Key:    key,
			From:   e.Upstream,
			To:     e.Downstream,
			Points: path,
		})
	}
	return snap, res
}

func pathFor(res layout.Result, key string) ([]layout.Point, bool) {
	for _, p := range res.Edges {
		if p.Key == key {
			return p.Points, true
		}
	}
	return nil, false
}

// TreeSnapshot lays out the given visible rows and returns their snapshot.
// Node keys are occurrence keys; link keys reuse the child's occurrence key.
// A row's state class comes from its most recent run cell, so a fresh
// snapshot matches what the overlay would recompute.
func TreeSnapshot(tree *treemodel.Tree, rows []layout.Row, grid layout.TreeGrid, collapsed func(string) bool) (scene.Snapshot, layout.Result) {
	res := grid.Layout(rows)
	byKey := indexTree(tree)

	var snap scene.Snapshot
	for _, row := range rows {
		pos, _ := res.Node(row.Key)
		n := scene.Node{
			Key:       row.Key,
			ParentKey: row.ParentKey,
			Pos:       pos.Center,
			Class:     string(model.StateNoStatus),
		}
		if tn, ok := byKey[row.Key]; ok {
			if tn.Task != nil {
				n.TaskID = tn.Task.ID
				n.Label = tn.Task.ID
				n.IsSubworkflow = tn.Task.IsSubworkflow
			} else {
				n.Label = "[workflow]"
			}
			if len(tn.Cells) > 0 {
				last := tn.Cells[len(tn.Cells)-1]
				if last.HasData {
					n.Class = string(last.State)
				}
			}
		}
		if collapsed != nil {
			n.Collapsed = collapsed(row.Key)
		}
		snap.Nodes = append(snap.Nodes, n)
	}

	for _, p := range res.Edges {
		// Link keyed by the child row; its parent is recorded in the row.
		var parent string
		for _, row := range rows {
			if row.Key == p.Key {
				parent = row.ParentKey
				break
			}
		}
		snap.Edges = append(snap.Edges, scene.Edge{
			Key:    "link:" + p.Key,
			From:   parent,
			To:     p.Key,
			Points: p.Points,
		})
	}
	return snap, res
}

func indexTree(tree *treemodel.Tree) map[string]*treemodel.Node {
	out := make(map[string]*treemodel.Node)
	var walk func(n *treemodel.Node)
	walk = func(n *treemodel.Node) {
		out[n.Key.String()] = n
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree.Root)
	return out
}
