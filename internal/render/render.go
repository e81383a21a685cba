// Package render produces the server-side HTML for the graph and tree pages.
// Handlers assemble a page struct from the session's current state and hand it
// here; all markup lives in template constants next to this file.
package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/vk/dagview/internal/interact"
	"github.com/vk/dagview/internal/layout"
	"github.com/vk/dagview/internal/model"
	"github.com/vk/dagview/internal/scene"
)

// LegendEntry is one clickable state swatch under a view.
type LegendEntry struct {
	State model.State
	Color string
}

// Legend returns the fixed legend entries in display order.
func Legend() []LegendEntry {
	states := model.AllStates()
	entries := make([]LegendEntry, 0, len(states))
	for _, s := range states {
		entries = append(entries, LegendEntry{State: s, Color: s.Color()})
	}
	return entries
}

// RunOption is one entry of the run picker.
type RunOption struct {
	ID       string
	Label    string
	Selected bool
}

// Cell is one run-state square of a tree row strip.
type Cell struct {
	State   model.State
	Tooltip string
	HasData bool
}

// TreeRow is one visible tree row with its per-run cells.
type TreeRow struct {
	Key         string
	Label       string
	Depth       int
	Pos         layout.Point
	Class       string
	Opacity     float64
	Emphasis    bool
	Collapsed   bool
	HasChildren bool
	Synthetic   bool
	Cells       []Cell
}

// GraphPage carries everything the graph template needs.
type GraphPage struct {
	WorkflowID   string
	Nodes        []scene.Node
	Edges        []scene.Edge
	Width        float64
	Height       float64
	Viewport     interact.Viewport
	Mode         string
	SearchTerm   string
	FocusedState model.State
	Direction    layout.Direction
	Transition   time.Duration
	Runs         []RunOption
	Legend       []LegendEntry
	Operators    []OperatorEntry
	PollError    string
}

// OperatorEntry is one operator swatch of the graph legend.
type OperatorEntry struct {
	Name  string
	Color string
}

// TreePage carries everything the tree template needs.
type TreePage struct {
	WorkflowID   string
	Rows         []TreeRow
	Links        []scene.Edge
	RunDates     []time.Time
	Width        float64
	Height       float64
	Mode         string
	SearchTerm   string
	FocusedState model.State
	Transition   time.Duration
	Legend       []LegendEntry
	BaseDate     string
	NumRuns      int
	PollError    string
}

// Renderer holds the parsed page templates.
type Renderer struct {
	graph *template.Template
	tree  *template.Template
}

// New parses the page templates once. A parse failure is a programming error
// and panics at startup.
func New() *Renderer {
	return &Renderer{
		graph: template.Must(template.New("graph").Funcs(funcMap).Parse(tmplBase + tmplGraph)),
		tree:  template.Must(template.New("tree").Funcs(funcMap).Parse(tmplBase + tmplTree)),
	}
}

// Graph writes the graph page.
func (r *Renderer) Graph(w io.Writer, p GraphPage) error {
	if err := r.graph.ExecuteTemplate(w, "base", p); err != nil {
		return fmt.Errorf("rendering graph page: %w", err)
	}
	return nil
}

// Tree writes the tree page.
func (r *Renderer) Tree(w io.Writer, p TreePage) error {
	if err := r.tree.ExecuteTemplate(w, "base", p); err != nil {
		return fmt.Errorf("rendering tree page: %w", err)
	}
	return nil
}

var funcMap = template.FuncMap{
	"stateColor": func(class string) string {
		s := model.State(class)
		if !s.Valid() {
			s = model.StateNoStatus
		}
		return s.Color()
	},
	"fmtDate": func(t time.Time) string {
		if t.IsZero() {
			return "—"
		}
		return t.Format("Jan 2 15:04")
	},
	"fmtMillis": func(d time.Duration) int64 { return d.Milliseconds() },
	"points": func(pts []layout.Point) string {
		parts := make([]string, 0, len(pts))
		for _, p := range pts {
			parts = append(parts, fmt.Sprintf("%.1f,%.1f", p.X, p.Y))
		}
		return strings.Join(parts, " ")
	},
	"truncate": func(s string, n int) string {
		s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
		if len(s) > n {
			return s[:n] + "…"
		}
		return s
	},
	"half":  func(v float64) float64 { return v / 2 },
	"mul":   func(a float64, b int) float64 { return a * float64(b) },
	"addf":  func(a, b float64) float64 { return a + b },
	"title": func(s string) string { return strings.ReplaceAll(s, "_", " ") },
}
