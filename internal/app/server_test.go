package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/dagview/internal/config"
	"github.com/vk/dagview/internal/interact"
	"github.com/vk/dagview/internal/layout"
	"github.com/vk/dagview/internal/session"
)

const testWorkflowHCL = `
workflow "etl" {
  task "extract" {
    operator = "BashOperator"
  }
  task "transform" {
    upstream = ["extract"]
  }
  task "load" {
    upstream = ["transform"]
  }
}
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wf.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = writeTestConfig(t, testWorkflowHCL)
	}
	appConfig, err := NewConfig(cfg)
	require.NoError(t, err)
	return NewApp(io.Discard, appConfig, config.NewLoader())
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func postForm(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewApp_PanicsOnInvalidConfig(t *testing.T) {
	path := writeTestConfig(t, `workflow "broken" {`)
	appConfig, err := NewConfig(Config{ConfigPath: path})
	require.NoError(t, err)

	require.Panics(t, func() {
		NewApp(io.Discard, appConfig, config.NewLoader())
	})
}

func TestNewApp_PanicsOnUnknownWorkflow(t *testing.T) {
	path := writeTestConfig(t, testWorkflowHCL)
	appConfig, err := NewConfig(Config{ConfigPath: path, WorkflowID: "nope"})
	require.NoError(t, err)

	require.Panics(t, func() {
		NewApp(io.Discard, appConfig, config.NewLoader())
	})
}

func TestHandler_Health(t *testing.T) {
	a := newTestApp(t, Config{})
	rec := get(t, a.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
}

func TestHandler_GraphPage(t *testing.T) {
	a := newTestApp(t, Config{})
	rec := get(t, a.Handler(), "/graph")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "etl")
	assert.Contains(t, body, "extract")
	assert.Contains(t, body, "BashOperator")
	assert.Contains(t, body, "mode: idle")
}

func TestHandler_SearchQuery(t *testing.T) {
	a := newTestApp(t, Config{})
	h := a.Handler()

	rec := get(t, h, "/graph?search=trans")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mode: search")
	assert.Equal(t, interact.ModeSearch, a.Session().State(session.GraphView).Mode)

	// A bare page load returns the view to idle.
	get(t, h, "/graph")
	assert.Equal(t, interact.ModeIdle, a.Session().State(session.GraphView).Mode)
}

func TestHandler_FocusQuery(t *testing.T) {
	a := newTestApp(t, Config{})
	h := a.Handler()

	get(t, h, "/graph?focus=failed")
	st := a.Session().State(session.GraphView)
	assert.Equal(t, interact.ModeStateFocus, st.Mode)
	assert.Equal(t, "failed", string(st.FocusedState))

	get(t, h, "/graph")
	assert.Equal(t, interact.ModeIdle, a.Session().State(session.GraphView).Mode)
}

func TestHandler_Rearrange(t *testing.T) {
	a := newTestApp(t, Config{})
	h := a.Handler()

	rec := postForm(t, h, "/rearrange", url.Values{"dir": {"LR"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, layout.LeftRight, a.Session().Direction())

	rec = postForm(t, h, "/rearrange", url.Values{"dir": {"diagonal"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ToggleCollapse(t *testing.T) {
	a := newTestApp(t, Config{})
	h := a.Handler()

	rec := get(t, h, "/tree/toggle?key="+url.QueryEscape("extract/transform"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	var keys []string
	for _, n := range a.Session().State(session.TreeView).Nodes {
		keys = append(keys, n.Key)
	}
	assert.Contains(t, keys, "extract/transform")
	assert.NotContains(t, keys, "extract/transform/load")
	assert.Equal(t, http.StatusOK, get(t, h, "/tree").Code)

	rec = get(t, h, "/tree/toggle?key=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_TaskDetails(t *testing.T) {
	a := newTestApp(t, Config{})
	h := a.Handler()

	rec := get(t, h, "/task?key=extract")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"task_id":"extract","run_id":"","is_subworkflow":false}`, rec.Body.String())

	rec = get(t, h, "/task?key=missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApp_BackendBootstrapAndRefresh(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/runs" {
			w.Write([]byte(`[{"run_id":"r1","execution_date":"2024-03-01T00:00:00Z"}]`))
			return
		}
		w.Write([]byte(`{"extract":{"task_id":"extract","run_id":"r1","state":"success"}}`))
	}))
	defer backend.Close()

	a := newTestApp(t, Config{BackendURL: backend.URL, PollInterval: time.Minute})
	require.Len(t, a.Session().Runs(), 1)
	assert.NoError(t, a.Session().PollError())

	body := get(t, a.Handler(), "/graph").Body.String()
	assert.NotContains(t, body, "State refresh failed")

	rec := postForm(t, a.Handler(), "/refresh", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestHandler_Window(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/runs" {
			if r.URL.Query().Get("base_date") == "2024-03-02" {
				w.Write([]byte(`[{"run_id":"r1","execution_date":"2024-03-01T00:00:00Z"},{"run_id":"r2","execution_date":"2024-03-02T00:00:00Z"}]`))
			} else {
				w.Write([]byte(`[{"run_id":"r1","execution_date":"2024-03-01T00:00:00Z"},{"run_id":"r2","execution_date":"2024-03-02T00:00:00Z"},{"run_id":"r3","execution_date":"2024-03-03T00:00:00Z"}]`))
			}
			return
		}
		w.Write([]byte(`{"extract":{"task_id":"extract","run_id":"r1","state":"success"}}`))
	}))
	defer backend.Close()

	a := newTestApp(t, Config{BackendURL: backend.URL, PollInterval: time.Minute})
	h := a.Handler()
	require.Len(t, a.Session().Runs(), 3)

	// Narrowing the base date swaps in a session built from the refetched runs.
	rec := postForm(t, h, "/window", url.Values{"base_date": {"2024-03-02"}, "num_runs": {"2"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/tree", rec.Header().Get("Location"))

	runs := a.Session().Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[1].ID)

	body := get(t, h, "/tree").Body.String()
	assert.Contains(t, body, `value="2024-03-02"`)

	// The run cap trims to the most recent runs.
	postForm(t, h, "/window", url.Values{"num_runs": {"1"}})
	runs = a.Session().Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, "r3", runs[0].ID)

	rec = postForm(t, h, "/window", url.Values{"base_date": {"yesterday"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = postForm(t, h, "/window", url.Values{"num_runs": {"0"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_WindowFetchFailureKeepsSession(t *testing.T) {
	healthy := true
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/runs" {
			w.Write([]byte(`[{"run_id":"r1","execution_date":"2024-03-01T00:00:00Z"}]`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer backend.Close()

	a := newTestApp(t, Config{BackendURL: backend.URL, PollInterval: time.Minute})
	require.Len(t, a.Session().Runs(), 1)

	healthy = false
	rec := postForm(t, a.Handler(), "/window", url.Values{"base_date": {"2024-02-01"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	// Old session survives with its runs; the failure shows as a banner.
	require.Len(t, a.Session().Runs(), 1)
	assert.Error(t, a.Session().PollError())
}

func TestApp_BackendFailureShowsBanner(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer backend.Close()

	a := newTestApp(t, Config{BackendURL: backend.URL})
	assert.Error(t, a.Session().PollError())

	body := get(t, a.Handler(), "/graph").Body.String()
	assert.Contains(t, body, "State refresh failed")
}
