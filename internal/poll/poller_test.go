package poll

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/dagview/internal/ctxlog"
	"github.com/vk/dagview/internal/model"
	"github.com/vk/dagview/internal/testutil"
)

func TestClient_FetchInstanceStates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "etl", r.URL.Query().Get("workflow_id"))
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("base_date"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"a":{"task_id":"a","run_id":"r1","state":"success"},"b":{"task_id":"b","run_id":"r1","state":"running"}}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, WorkflowID: "etl"}
	c.SetBaseDate("2024-03-01")
	states, err := c.FetchInstanceStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, model.StateSuccess, states["a"].State)
	assert.Equal(t, model.StateRunning, states["b"].State)
}

func TestClient_FetchRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/runs", r.URL.Path)
		assert.Equal(t, "etl", r.URL.Query().Get("workflow_id"))
		assert.Equal(t, "2024-03-02", r.URL.Query().Get("base_date"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"run_id":"r1","execution_date":"2024-03-01T00:00:00Z"},{"run_id":"r2","execution_date":"2024-03-02T00:00:00Z"}]`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, WorkflowID: "etl"}
	c.SetBaseDate("2024-03-02")
	runs, err := c.FetchRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r1", runs[0].ID)
	assert.Equal(t, 2024, runs[1].ExecutionDate.Year())
}

func TestClient_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, WorkflowID: "etl"}
	_, err := c.FetchInstanceStates(context.Background())
	assert.ErrorContains(t, err, "500")
}

func TestPoller_SuccessAppliesStates(t *testing.T) {
	fetch := func(ctx context.Context) (map[string]model.TaskInstance, error) {
		return map[string]model.TaskInstance{"a": {TaskID: "a", State: model.StateSuccess}}, nil
	}
	p := New(fetch, time.Minute)

	var got map[string]model.TaskInstance
	p.OnStates = func(s map[string]model.TaskInstance) { got = s }

	require.NoError(t, p.RefreshNow(context.Background()))
	require.NotNil(t, got)
	assert.Equal(t, model.StateSuccess, got["a"].State)
	assert.False(t, p.Paused())
}

func TestPoller_FailurePausesUntilManualRefresh(t *testing.T) {
	var mu sync.Mutex
	fail := true
	calls := 0
	fetch := func(ctx context.Context) (map[string]model.TaskInstance, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if fail {
			return nil, errors.New("network down")
		}
		return map[string]model.TaskInstance{}, nil
	}
	p := New(fetch, time.Minute)

	var polledErr error
	p.OnError = func(err error) { polledErr = err }

	require.Error(t, p.RefreshNow(context.Background()))
	assert.ErrorContains(t, polledErr, "network down")
	assert.True(t, p.Paused())

	// While paused, automatic ticks do nothing.
	require.NoError(t, p.poll(context.Background(), false))
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()

	// A manual refresh bypasses the pause and, on success, re-enables
	// automatic polling.
	mu.Lock()
	fail = false
	mu.Unlock()
	require.NoError(t, p.RefreshNow(context.Background()))
	assert.False(t, p.Paused())
}

func TestPoller_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fetch := func(ctx context.Context) (map[string]model.TaskInstance, error) {
		close(started)
		<-release
		return map[string]model.TaskInstance{}, nil
	}
	p := New(fetch, time.Minute)

	done := make(chan error, 1)
	go func() { done <- p.RefreshNow(context.Background()) }()

	<-started
	assert.True(t, p.InFlight())
	err := p.RefreshNow(context.Background())
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, p.InFlight())
}

func TestPoller_RunLogsFailure(t *testing.T) {
	fetch := func(ctx context.Context) (map[string]model.TaskInstance, error) {
		return nil, errors.New("backend unreachable")
	}
	p := New(fetch, 5*time.Millisecond)

	buf := &testutil.SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))
	ctx, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(), logger))

	stopped := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, p.Paused, time.Second, 5*time.Millisecond)
	cancel()
	<-stopped

	assert.Contains(t, buf.String(), "Poll failed, automatic polling paused.")
	assert.Contains(t, buf.String(), "backend unreachable")
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	fetch := func(ctx context.Context) (map[string]model.TaskInstance, error) {
		return map[string]model.TaskInstance{}, nil
	}
	p := New(fetch, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(stopped)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}
