// Package poll refreshes task-instance state from the backend. At most one
// request is ever outstanding: the ticker skips while a fetch is in flight,
// and a failed fetch pauses automatic polling until an explicit manual
// refresh. Responses are applied in arrival order, which is trivially the
// request order given the single-flight rule.
package poll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/vk/dagview/internal/ctxlog"
	"github.com/vk/dagview/internal/model"
)

// ErrInFlight is returned by RefreshNow while a poll is already outstanding;
// the refresh control is disabled during flight.
var ErrInFlight = errors.New("a poll is already in flight")

// Client fetches the task-id-keyed instance-state mapping from the backend's
// poll endpoint.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	WorkflowID string

	mu       sync.Mutex
	baseDate string
}

// SetBaseDate changes the base-date window sent with every request. The
// base-date selector mutates it while the poller goroutine reads it.
func (c *Client) SetBaseDate(d string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseDate = d
}

// BaseDate returns the current base-date window, empty for "latest".
func (c *Client) BaseDate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseDate
}

// FetchInstanceStates performs one poll request.
func (c *Client) FetchInstanceStates(ctx context.Context) (map[string]model.TaskInstance, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	q := u.Query()
	q.Set("workflow_id", c.WorkflowID)
	if bd := c.BaseDate(); bd != "" {
		q.Set("base_date", bd)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll endpoint returned %s", resp.Status)
	}

	var states map[string]model.TaskInstance
	if err := json.NewDecoder(resp.Body).Decode(&states); err != nil {
		return nil, fmt.Errorf("decoding poll response: %w", err)
	}
	return states, nil
}

// FetchRuns retrieves the workflow's run sequence, oldest first. The tree
// view's cell strips are aligned to this order.
func (c *Client) FetchRuns(ctx context.Context) ([]model.Run, error) {
	u, err := url.JoinPath(c.BaseURL, "runs")
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	u += "?workflow_id=" + url.QueryEscape(c.WorkflowID)
	if bd := c.BaseDate(); bd != "" {
		u += "&base_date=" + url.QueryEscape(bd)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("runs endpoint returned %s", resp.Status)
	}

	var runs []model.Run
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		return nil, fmt.Errorf("decoding runs response: %w", err)
	}
	return runs, nil
}

// Fetch is the poll operation; swapped for a stub in tests.
type Fetch func(ctx context.Context) (map[string]model.TaskInstance, error)

// Poller drives periodic fetches and hands results to the session callbacks.
type Poller struct {
	fetch    Fetch
	interval time.Duration

	// OnStates receives each successful mapping; it runs on the poller's
	// goroutine and is expected to take the session lock itself.
	OnStates func(map[string]model.TaskInstance)
	// OnError receives each transient failure.
	OnError func(error)

	mu       sync.Mutex
	inFlight bool
	paused   bool
}

// New returns a poller using the given fetch and interval.
func New(fetch Fetch, interval time.Duration) *Poller {
	return &Poller{fetch: fetch, interval: interval}
}

// Paused reports whether automatic polling is halted after a failure.
func (p *Poller) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// InFlight reports whether a poll is currently outstanding.
func (p *Poller) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Run polls on the interval until the context is cancelled. Ticks are
// skipped while paused or while a previous fetch is still outstanding.
func (p *Poller) Run(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Poller stopping.", "reason", ctx.Err())
			return
		case <-ticker.C:
			if err := p.poll(ctx, false); err != nil && !errors.Is(err, ErrInFlight) {
				logger.Warn("Poll failed, automatic polling paused.", "error", err)
			}
		}
	}
}

// RefreshNow performs one immediate poll on behalf of the manual refresh
// control. It re-enables automatic polling on success and returns ErrInFlight
// if a poll is already outstanding.
func (p *Poller) RefreshNow(ctx context.Context) error {
	return p.poll(ctx, true)
}

func (p *Poller) poll(ctx context.Context, manual bool) error {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return ErrInFlight
	}
	if p.paused && !manual {
		p.mu.Unlock()
		return nil
	}
	p.inFlight = true
	p.mu.Unlock()

	states, err := p.fetch(ctx)

	p.mu.Lock()
	p.inFlight = false
	p.paused = err != nil
	p.mu.Unlock()

	if err != nil {
		if p.OnError != nil {
			p.OnError(err)
		}
		return err
	}
	if p.OnStates != nil {
		p.OnStates(states)
	}
	return nil
}
