package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayered_ChainRanks(t *testing.T) {
	l := NewLayered(TopDown)
	res := l.Layout([]string{"a", "b", "c"}, []GraphEdge{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
	})

	a, ok := res.Node("a")
	require.True(t, ok)
	b, _ := res.Node("b")
	c, _ := res.Node("c")

	// Ranks descend top-down; one node per rank shares the same x.
	assert.Less(t, a.Center.Y, b.Center.Y)
	assert.Less(t, b.Center.Y, c.Center.Y)
	assert.Equal(t, a.Center.X, b.Center.X)

	require.Len(t, res.Edges, 2)
	assert.Equal(t, "a->b", res.Edges[0].Key)
	assert.Len(t, res.Edges[0].Points, 3)
}

func TestLayered_LongestPathRanking(t *testing.T) {
	// d is reachable via both a->d and a->b->c->d: it must sit below c.
	l := NewLayered(TopDown)
	res := l.Layout([]string{"a", "b", "c", "d"}, []GraphEdge{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
		{From: "c", To: "d"},
		{From: "a", To: "d"},
	})
	c, _ := res.Node("c")
	d, _ := res.Node("d")
	assert.Less(t, c.Center.Y, d.Center.Y)
}

func TestLayered_DirectionSwapsAxes(t *testing.T) {
	nodes := []string{"a", "b"}
	edges := []GraphEdge{{From: "a", To: "b"}}

	tb := NewLayered(TopDown).Layout(nodes, edges)
	lr := NewLayered(LeftRight).Layout(nodes, edges)

	aTB, _ := tb.Node("a")
	bTB, _ := tb.Node("b")
	aLR, _ := lr.Node("a")
	bLR, _ := lr.Node("b")

	assert.Less(t, aTB.Center.Y, bTB.Center.Y)
	assert.Less(t, aLR.Center.X, bLR.Center.X)
	assert.Equal(t, aLR.Center.Y, bLR.Center.Y)
}

func TestLayered_Idempotent(t *testing.T) {
	nodes := []string{"a", "b", "c", "d"}
	edges := []GraphEdge{
		{From: "a", To: "b"},
		{From: "a", To: "c"},
		{From: "b", To: "d"},
		{From: "c", To: "d"},
	}
	l := NewLayered(LeftRight)
	first := l.Layout(nodes, edges)
	second := l.Layout(nodes, edges)
	assert.Empty(t, cmp.Diff(first, second))
}

func TestTreeGrid_RowsAndElbows(t *testing.T) {
	g := NewTreeGrid()
	rows := []Row{
		{Key: "a", Depth: 0},
		{Key: "a/b", ParentKey: "a", Depth: 1},
		{Key: "a/b/c", ParentKey: "a/b", Depth: 2},
	}
	res := g.Layout(rows)

	a, _ := res.Node("a")
	b, _ := res.Node("a/b")
	c, _ := res.Node("a/b/c")

	assert.Equal(t, a.Center.Y+g.RowHeight, b.Center.Y)
	assert.Equal(t, b.Center.Y+g.RowHeight, c.Center.Y)
	assert.Equal(t, a.Center.X+g.Indent, b.Center.X)

	require.Len(t, res.Edges, 2)
	link := res.Edges[0]
	assert.Equal(t, "a/b", link.Key)
	require.Len(t, link.Points, 3)
	// Elbow: down from the parent, then across to the child.
	assert.Equal(t, a.Center.X, link.Points[1].X)
	assert.Equal(t, b.Center.Y, link.Points[1].Y)
}

func TestTreeGrid_Idempotent(t *testing.T) {
	g := NewTreeGrid()
	rows := []Row{
		{Key: "a", Depth: 0},
		{Key: "a/b", ParentKey: "a", Depth: 1},
	}
	assert.Empty(t, cmp.Diff(g.Layout(rows), g.Layout(rows)))
}
