// Package overlay merges freshly polled task-instance state into the
// rendered scene. It only restyles nodes that already exist, with no layout
// and no enter/exit, which is what keeps polling cheap and flicker-free.
package overlay

import (
	"fmt"
	"strings"
	"time"

	"github.com/vk/dagview/internal/model"
	"github.com/vk/dagview/internal/scene"
)

// Synchronizer applies instance-state mappings onto one scene.
type Synchronizer struct {
	scene *scene.Scene
}

// New returns a synchronizer bound to the given scene.
func New(sc *scene.Scene) *Synchronizer {
	return &Synchronizer{scene: sc}
}

// ApplyInstanceStates looks up each task id's rendered node(s) by identity
// and updates their state class and tooltip. Task ids with no rendered node
// are skipped; instances with missing timestamps or duration render those
// tooltip fields blank. Returns the number of nodes restyled.
func (s *Synchronizer) ApplyInstanceStates(states map[string]model.TaskInstance) int {
	updated := 0
	for taskID, ti := range states {
		keys := s.scene.KeysForTask(taskID)
		if len(keys) == 0 {
			continue
		}
		class := string(ti.State)
		if !ti.State.Valid() {
			class = string(model.StateNoStatus)
		}
		tip := Tooltip(taskID, ti)
		for _, key := range keys {
			if s.scene.SetNodeState(key, class, tip) {
				updated++
			}
		}
	}
	return updated
}

// Tooltip renders the hover text for one task instance. Missing fields are
// omitted rather than shown as errors.
func Tooltip(taskID string, ti model.TaskInstance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", taskID)
	if ti.RunID != "" {
		fmt.Fprintf(&b, "Run: %s", ti.RunID)
		if ti.RunLabel != "" {
			fmt.Fprintf(&b, " (%s)", ti.RunLabel)
		}
		if ti.ExternalTrigger {
			b.WriteString(" [external]")
		}
		b.WriteString("\n")
	}
	state := ti.State
	if !state.Valid() {
		state = model.StateNoStatus
	}
	fmt.Fprintf(&b, "State: %s\n", state)
	fmt.Fprintf(&b, "Started: %s\n", fmtTime(ti.StartDate))
	fmt.Fprintf(&b, "Ended: %s\n", fmtTime(ti.EndDate))
	fmt.Fprintf(&b, "Duration: %s", fmtDuration(ti.Duration))
	return b.String()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func fmtDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	return fmt.Sprintf("%.1fm", seconds/60)
}
