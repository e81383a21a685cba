// Package config loads workflow definitions and viewer settings from HCL
// files and translates them into the format-agnostic model the builders
// consume.
package config

import (
	"time"

	"github.com/vk/dagview/internal/model"
)

// Default viewer settings, used when the settings block omits a field.
const (
	DefaultListenPort    = 8080
	DefaultPollInterval  = 30 * time.Second
	DefaultRankDirection = "TB"
	DefaultTransition    = 500 * time.Millisecond
	DefaultNumRuns       = 25
)

// Settings holds the viewer-wide knobs from the `settings` block.
type Settings struct {
	ListenPort    int
	BackendURL    string
	PollInterval  time.Duration
	NodeSep       float64
	RankSep       float64
	RankDirection string
	Transition    time.Duration
	// NumRuns caps how many of the most recent runs the tree view shows.
	NumRuns int
}

// Model is the loaded configuration: every workflow definition found across
// the config paths plus the merged settings.
type Model struct {
	Workflows []*model.Workflow
	Settings  Settings
}

// Workflow returns the workflow with the given id, or nil.
func (m *Model) Workflow(id string) *model.Workflow {
	for _, wf := range m.Workflows {
		if wf.ID == id {
			return wf
		}
	}
	return nil
}
