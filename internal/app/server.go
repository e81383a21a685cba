package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/vk/dagview/internal/layout"
	"github.com/vk/dagview/internal/model"
	"github.com/vk/dagview/internal/overlay"
	"github.com/vk/dagview/internal/poll"
	"github.com/vk/dagview/internal/render"
	"github.com/vk/dagview/internal/session"
)

// Handler returns the application's HTTP routes. Exposed for tests.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/graph", http.StatusFound)
	})
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /graph", a.handleGraph)
	mux.HandleFunc("GET /tree", a.handleTree)
	mux.HandleFunc("GET /tree/toggle", a.handleToggle)
	mux.HandleFunc("GET /task", a.handleTask)
	mux.HandleFunc("POST /rearrange", a.handleRearrange)
	mux.HandleFunc("POST /refresh", a.handleRefresh)
	mux.HandleFunc("POST /run", a.handleRun)
	mux.HandleFunc("POST /window", a.handleWindow)
	return mux
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// applyQueryMode maps the page URL's query onto the view's interaction mode.
// The URL is the source of truth on page loads: a search term enters search
// mode, a focus param pins a legend state, and a bare URL returns to idle.
func applyQueryMode(s *session.Session, v session.ViewKind, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("search")
	focus := model.State(q.Get("focus"))

	if term != "" {
		s.Search(v, term)
		return
	}
	st := s.State(v)
	if focus.Valid() {
		if st.FocusedState != focus {
			s.LegendClick(v, focus)
		}
		return
	}
	if st.SearchTerm != "" {
		s.Search(v, "")
	}
	if st.FocusedState != "" {
		s.LegendClick(v, st.FocusedState)
	}
}

func (a *App) handleGraph(w http.ResponseWriter, r *http.Request) {
	s := a.Session()
	applyQueryMode(s, session.GraphView, r)
	if err := a.renderer.Graph(w, a.graphPage(s)); err != nil {
		a.logger.Error("Graph page rendering failed.", "error", err)
	}
}

func (a *App) handleTree(w http.ResponseWriter, r *http.Request) {
	s := a.Session()
	applyQueryMode(s, session.TreeView, r)
	if err := a.renderer.Tree(w, a.treePage(s)); err != nil {
		a.logger.Error("Tree page rendering failed.", "error", err)
	}
}

func (a *App) handleToggle(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := a.Session().ToggleCollapse(key); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/tree", http.StatusSeeOther)
}

func (a *App) handleTask(w http.ResponseWriter, r *http.Request) {
	v := session.GraphView
	if r.URL.Query().Get("view") == "tree" {
		v = session.TreeView
	}
	key := r.URL.Query().Get("key")

	s := a.Session()
	d := a.modal.capture(func() { s.ClickNode(v, key) })
	if d == nil {
		http.Error(w, fmt.Sprintf("no node with key %q", key), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(d); err != nil {
		a.logger.Error("Task details encoding failed.", "error", err)
	}
}

func (a *App) handleRearrange(w http.ResponseWriter, r *http.Request) {
	dir := layout.Direction(r.FormValue("dir"))
	if err := a.Session().Rearrange(dir); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/graph", http.StatusSeeOther)
}

func (a *App) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if a.poller != nil {
		if err := a.poller.RefreshNow(r.Context()); err != nil && !errors.Is(err, poll.ErrInFlight) {
			a.logger.Warn("Manual refresh failed.", "error", err)
		}
	}
	http.Redirect(w, r, backRef(r), http.StatusSeeOther)
}

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	runID := r.FormValue("run_id")
	s := a.Session()
	for _, run := range s.Runs() {
		if run.ID == runID {
			s.SetSelectedRun(runID)
			http.Redirect(w, r, backRef(r), http.StatusSeeOther)
			return
		}
	}
	http.Error(w, fmt.Sprintf("unknown run %q", runID), http.StatusBadRequest)
}

// handleWindow changes the tree view's run window: the base date bounding the
// run sequence and how many of the most recent runs to show.
func (a *App) handleWindow(w http.ResponseWriter, r *http.Request) {
	baseDate := r.FormValue("base_date")
	if baseDate != "" {
		if _, err := time.Parse("2006-01-02", baseDate); err != nil {
			http.Error(w, fmt.Sprintf("invalid base_date %q: want YYYY-MM-DD", baseDate), http.StatusBadRequest)
			return
		}
	}
	_, numRuns := a.window()
	if v := r.FormValue("num_runs"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, fmt.Sprintf("invalid num_runs %q: want a positive integer", v), http.StatusBadRequest)
			return
		}
		numRuns = n
	}

	if err := a.resetWindow(r.Context(), baseDate, numRuns); err != nil {
		a.logger.Warn("Run window change failed.", "error", err)
		a.Session().SetPollError(err)
	}
	http.Redirect(w, r, "/tree", http.StatusSeeOther)
}

// backRef sends form posts back to the page they came from.
func backRef(r *http.Request) string {
	if ref := r.Referer(); ref != "" {
		return ref
	}
	return "/graph"
}

func (a *App) graphPage(s *session.Session) render.GraphPage {
	st := s.State(session.GraphView)
	wf := s.Workflow()

	p := render.GraphPage{
		WorkflowID:   wf.ID,
		Nodes:        st.Nodes,
		Edges:        st.Edges,
		Width:        st.Width,
		Height:       st.Height,
		Viewport:     st.Viewport,
		Mode:         st.Mode.String(),
		SearchTerm:   st.SearchTerm,
		FocusedState: st.FocusedState,
		Direction:    s.Direction(),
		Transition:   a.settings.Transition,
		Legend:       render.Legend(),
	}
	selected := s.SelectedRun()
	for _, run := range s.Runs() {
		p.Runs = append(p.Runs, render.RunOption{
			ID:       run.ID,
			Label:    run.ExecutionDate.Format("2006-01-02 15:04"),
			Selected: run.ID == selected,
		})
	}
	for _, t := range wf.Operators() {
		p.Operators = append(p.Operators, render.OperatorEntry{Name: t.Operator, Color: t.Color})
	}
	if err := s.PollError(); err != nil {
		p.PollError = err.Error()
	}
	return p
}

func (a *App) treePage(s *session.Session) render.TreePage {
	st := s.State(session.TreeView)
	tree := s.Tree()
	baseDate, numRuns := a.window()

	p := render.TreePage{
		WorkflowID:   s.Workflow().ID,
		Links:        st.Edges,
		Width:        st.Width,
		Height:       st.Height,
		Mode:         st.Mode.String(),
		SearchTerm:   st.SearchTerm,
		FocusedState: st.FocusedState,
		Transition:   a.settings.Transition,
		Legend:       render.Legend(),
		BaseDate:     baseDate,
		NumRuns:      numRuns,
	}
	for _, run := range tree.Runs {
		p.RunDates = append(p.RunDates, run.ExecutionDate)
	}
	for _, n := range st.Nodes {
		row := render.TreeRow{
			Key:       n.Key,
			Label:     n.Label,
			Pos:       n.Pos,
			Class:     n.Class,
			Opacity:   n.Opacity,
			Emphasis:  n.Emphasis,
			Collapsed: n.Collapsed,
		}
		if tn := tree.Node(n.Key); tn != nil {
			row.Depth = tn.Key.Depth() - 1
			row.HasChildren = len(tn.Children) > 0
			row.Synthetic = tn.Task == nil
			for _, c := range tn.Cells {
				cell := render.Cell{State: c.State, HasData: c.HasData}
				if c.HasData && tn.Task != nil {
					cell.Tooltip = overlay.Tooltip(tn.Task.ID, model.TaskInstance{
						TaskID:          tn.Task.ID,
						RunID:           c.RunID,
						State:           c.State,
						StartDate:       c.StartDate,
						EndDate:         c.EndDate,
						Duration:        c.Duration,
						RunLabel:        c.RunLabel,
						ExternalTrigger: c.ExternalTrigger,
					})
				}
				row.Cells = append(row.Cells, cell)
			}
		}
		p.Rows = append(p.Rows, row)
	}
	if err := s.PollError(); err != nil {
		p.PollError = err.Error()
	}
	return p
}
