package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/dagview/internal/layout"
	"github.com/vk/dagview/internal/model"
	"github.com/vk/dagview/internal/scene"
)

func TestGraphPage(t *testing.T) {
	r := New()
	var buf bytes.Buffer

	err := r.Graph(&buf, GraphPage{
		WorkflowID: "etl",
		Nodes: []scene.Node{
			{Key: "extract", TaskID: "extract", Label: "extract", Class: "success", Opacity: 1, Pos: layout.Point{X: 100, Y: 55}},
			{Key: "load", TaskID: "load", Label: "load", Class: "running", Opacity: 0.2, Pos: layout.Point{X: 100, Y: 125}},
		},
		Edges: []scene.Edge{
			{Key: "extract->load", Opacity: 1, Points: []layout.Point{{X: 100, Y: 55}, {X: 100, Y: 125}}},
		},
		Width:      200,
		Height:     180,
		Mode:       "idle",
		Direction:  layout.TopDown,
		Transition: 500 * time.Millisecond,
		Legend:     Legend(),
		Runs:       []RunOption{{ID: "r1", Label: "2024-03-01", Selected: true}},
		Operators:  []OperatorEntry{{Name: "BashOperator", Color: "#b4e0e4"}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<title>etl — dagview</title>")
	assert.Contains(t, out, model.StateSuccess.Color())
	assert.Contains(t, out, `points="100.0,55.0 100.0,125.0"`)
	assert.Contains(t, out, `data-transition-ms="500"`)
	assert.Contains(t, out, "BashOperator")
	assert.NotContains(t, out, "State refresh failed")
}

func TestGraphPage_ErrorBanner(t *testing.T) {
	r := New()
	var buf bytes.Buffer
	require.NoError(t, r.Graph(&buf, GraphPage{WorkflowID: "etl", PollError: "connection refused"}))

	out := buf.String()
	assert.Contains(t, out, "State refresh failed: connection refused")
	assert.Contains(t, out, `action="/refresh"`)
}

func TestTreePage(t *testing.T) {
	r := New()
	var buf bytes.Buffer

	err := r.Tree(&buf, TreePage{
		WorkflowID: "etl",
		Rows: []TreeRow{
			{Key: "extract", Label: "extract", Opacity: 1, HasChildren: true, Pos: layout.Point{X: 40, Y: 40}, Class: "success",
				Cells: []Cell{{State: model.StateSuccess, HasData: true, Tooltip: "extract"}}},
			{Key: "extract/load", Label: "load", Depth: 1, Opacity: 1, Pos: layout.Point{X: 65, Y: 65}, Class: "no_status",
				Cells: []Cell{{State: model.StateNoStatus}}},
		},
		Links: []scene.Edge{
			{Key: "link:extract/load", Opacity: 1, Points: []layout.Point{{X: 40, Y: 40}, {X: 40, Y: 65}, {X: 65, Y: 65}}},
		},
		RunDates: []time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		Width:    300,
		Height:   120,
		Mode:     "idle",
		Legend:   Legend(),
		BaseDate: "2024-03-01",
		NumRuns:  25,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `href="/tree/toggle?key=extract"`)
	assert.Contains(t, out, "Mar 1 00:00")
	assert.Contains(t, out, `fill-opacity="0.35"`, "placeholder cells render dimmed")
	assert.Contains(t, out, "▾")
	assert.Contains(t, out, `action="/window"`)
	assert.Contains(t, out, `name="num_runs" value="25"`)
}

func TestLegend_CoversAllStates(t *testing.T) {
	entries := Legend()
	require.Len(t, entries, len(model.AllStates()))
	for _, e := range entries {
		assert.NotEmpty(t, e.Color)
	}
}
