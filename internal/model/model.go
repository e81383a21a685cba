// Package model defines the workflow entities shared by the graph and tree
// views: tasks, dependency edges, runs, and per-run task instances. Task and
// Edge sets are immutable for the lifetime of a page load; instance state is
// the only mutable part and is refreshed by polling.
package model

import "time"

// Task is a single unit of work in the workflow graph.
type Task struct {
	// ID is unique within one workflow.
	ID string
	// Operator is the task's operator/type name, e.g. "BashOperator".
	Operator string
	// Color and TextColor are the fill and foreground colors assigned to the
	// operator type.
	Color     string
	TextColor string

	Owner         string
	Retries       int
	DependsOnPast bool

	StartDate time.Time
	EndDate   time.Time

	// IsSubworkflow marks a task that encapsulates a nested workflow. Sub is
	// nil unless IsSubworkflow is set.
	IsSubworkflow bool
	Sub           *Workflow
}

// Edge is an ordered dependency pair: Downstream runs after Upstream.
type Edge struct {
	Upstream   string
	Downstream string
}

// Workflow is one DAG: its tasks in declaration order and its edge set.
// Declaration order is significant: it defines the stable traversal order
// used for search auto-pan and within-rank layout ordering.
type Workflow struct {
	ID    string
	Tasks []Task
	Edges []Edge
}

// Task returns the task with the given id, or nil.
func (w *Workflow) Task(id string) *Task {
	for i := range w.Tasks {
		if w.Tasks[i].ID == id {
			return &w.Tasks[i]
		}
	}
	return nil
}

// Operators returns the distinct operator names across the workflow's tasks,
// in declaration order, for the legend.
func (w *Workflow) Operators() []Task {
	seen := make(map[string]bool)
	var out []Task
	for _, t := range w.Tasks {
		if t.Operator == "" || seen[t.Operator] {
			continue
		}
		seen[t.Operator] = true
		out = append(out, t)
	}
	return out
}

// Run identifies one execution of the whole workflow.
type Run struct {
	ID            string    `json:"run_id"`
	ExecutionDate time.Time `json:"execution_date"`
}

// TaskInstance records one task's execution during one run. Identity is
// (TaskID, RunID) and never changes; state and timestamps are refreshed by
// polling. Zero timestamps and duration mean "not available" and render
// blank.
type TaskInstance struct {
	TaskID string `json:"task_id"`
	RunID  string `json:"run_id"`

	State     State     `json:"state"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	// Duration is in seconds.
	Duration float64 `json:"duration"`

	// RunLabel is set for manually triggered runs to distinguish them from
	// scheduled ones.
	RunLabel        string `json:"run_label,omitempty"`
	ExternalTrigger bool   `json:"external_trigger,omitempty"`
}
