package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vk/dagview/internal/config"
	"github.com/vk/dagview/internal/ctxlog"
	"github.com/vk/dagview/internal/model"
	"github.com/vk/dagview/internal/poll"
	"github.com/vk/dagview/internal/render"
	"github.com/vk/dagview/internal/scene"
	"github.com/vk/dagview/internal/session"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	settings config.Settings

	wf       *model.Workflow
	client   *poll.Client
	policy   scene.TransitionPolicy
	poller   *poll.Poller
	renderer *render.Renderer
	modal    *modalRecorder

	// mu guards the session pointer and the run window: changing the
	// base date or run count swaps in a freshly built session.
	mu       sync.Mutex
	sess     *session.Session
	baseDate string
	numRuns  int

	httpServer *http.Server
}

// initialFetchTimeout bounds the startup fetch of runs and instance states.
const initialFetchTimeout = 10 * time.Second

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and session. Failures
// to load configuration or build the models are fatal startup errors and
// panic; callers recover at the entrypoint.
func NewApp(outW io.Writer, appConfig *Config, loader *config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	settings := cfgModel.Settings
	if appConfig.ListenPort > 0 {
		settings.ListenPort = appConfig.ListenPort
	}
	if appConfig.BackendURL != "" {
		settings.BackendURL = appConfig.BackendURL
	}
	if appConfig.PollInterval > 0 {
		settings.PollInterval = appConfig.PollInterval
	}

	wf, err := selectWorkflow(cfgModel, appConfig.WorkflowID)
	if err != nil {
		panic(err)
	}
	logger.Debug("Workflow selected.", "workflow", wf.ID, "tasks", len(wf.Tasks))

	var (
		client     *poll.Client
		runs       []model.Run
		instances  []model.TaskInstance
		initialErr error
	)
	if settings.BackendURL != "" {
		client = &poll.Client{BaseURL: settings.BackendURL, WorkflowID: wf.ID}
		fetchCtx, cancel := context.WithTimeout(ctx, initialFetchTimeout)
		defer cancel()

		if rs, err := client.FetchRuns(fetchCtx); err != nil {
			initialErr = err
			logger.Warn("Initial run fetch failed.", "error", err)
		} else {
			runs = rs
		}
		if states, err := client.FetchInstanceStates(fetchCtx); err != nil {
			initialErr = err
			logger.Warn("Initial instance-state fetch failed.", "error", err)
		} else {
			for _, ti := range states {
				instances = append(instances, ti)
			}
		}
	}
	if len(runs) > settings.NumRuns {
		runs = runs[len(runs)-settings.NumRuns:]
	}

	modal := &modalRecorder{}
	policy := scene.TransitionPolicy{Duration: settings.Transition, Easing: "ease"}
	sess, err := session.New(session.Config{
		Workflow:  wf,
		Runs:      runs,
		Instances: instances,
		Settings:  settings,
		Modal:     modal,
		Policy:    policy,
	})
	if err != nil {
		panic(fmt.Errorf("failed to build session for workflow %q: %w", wf.ID, err))
	}
	if initialErr != nil {
		sess.SetPollError(initialErr)
	}
	logger.Debug("Session initialized.", "runs", len(runs), "instances", len(instances))

	a := &App{
		outW:     outW,
		logger:   logger,
		settings: settings,
		wf:       wf,
		client:   client,
		policy:   policy,
		sess:     sess,
		numRuns:  settings.NumRuns,
		renderer: render.New(),
		modal:    modal,
	}
	if client != nil {
		a.poller = poll.New(client.FetchInstanceStates, settings.PollInterval)
		a.poller.OnStates = func(s map[string]model.TaskInstance) { a.Session().ApplyInstanceStates(s) }
		a.poller.OnError = func(err error) { a.Session().SetPollError(err) }
	}
	return a
}

// selectWorkflow resolves which configured workflow this instance serves.
func selectWorkflow(m *config.Model, id string) (*model.Workflow, error) {
	if id != "" {
		wf := m.Workflow(id)
		if wf == nil {
			return nil, fmt.Errorf("workflow %q not found in configuration", id)
		}
		return wf, nil
	}
	switch len(m.Workflows) {
	case 0:
		return nil, fmt.Errorf("no workflow blocks found in configuration")
	case 1:
		return m.Workflows[0], nil
	default:
		return nil, fmt.Errorf("%d workflows configured, select one with -workflow", len(m.Workflows))
	}
}

// Session returns the current session. Handlers and poller callbacks take it
// once per request so a concurrent window change cannot swap it mid-flight.
func (a *App) Session() *session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess
}

// window returns the current base-date filter and run-count cap.
func (a *App) window() (string, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.baseDate, a.numRuns
}

// resetWindow refetches the run sequence under the new base date, rebuilds
// the session around it, and swaps it in. On fetch failure the current
// session stays and the error is returned for the banner.
func (a *App) resetWindow(ctx context.Context, baseDate string, numRuns int) error {
	var (
		runs      []model.Run
		instances []model.TaskInstance
	)
	if a.client != nil {
		a.client.SetBaseDate(baseDate)
		rs, err := a.client.FetchRuns(ctx)
		if err != nil {
			return fmt.Errorf("refetching runs: %w", err)
		}
		states, err := a.client.FetchInstanceStates(ctx)
		if err != nil {
			return fmt.Errorf("refetching instance states: %w", err)
		}
		runs = rs
		for _, ti := range states {
			instances = append(instances, ti)
		}
	}
	if len(runs) > numRuns {
		runs = runs[len(runs)-numRuns:]
	}

	sess, err := session.New(session.Config{
		Workflow:  a.wf,
		Runs:      runs,
		Instances: instances,
		Settings:  a.settings,
		Modal:     a.modal,
		Policy:    a.policy,
	})
	if err != nil {
		return fmt.Errorf("rebuilding session: %w", err)
	}

	a.mu.Lock()
	a.sess = sess
	a.baseDate = baseDate
	a.numRuns = numRuns
	a.mu.Unlock()
	a.logger.Debug("Run window changed.", "base_date", baseDate, "num_runs", numRuns, "runs", len(runs))
	return nil
}

// modalRecorder implements the modal collaborator by recording the last
// dispatched task identity, which the task-details endpoint then serves.
type modalRecorder struct {
	mu   sync.Mutex
	last *taskDetails
}

type taskDetails struct {
	TaskID        string `json:"task_id"`
	RunID         string `json:"run_id"`
	IsSubworkflow bool   `json:"is_subworkflow"`
}

func (m *modalRecorder) ShowTaskDetails(taskID, runID string, isSubworkflow bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &taskDetails{TaskID: taskID, RunID: runID, IsSubworkflow: isSubworkflow}
}

// capture runs fn and returns the details it dispatched, if any.
func (m *modalRecorder) capture(fn func()) *taskDetails {
	m.mu.Lock()
	m.last = nil
	m.mu.Unlock()

	fn()

	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.last
	m.last = nil
	return d
}
