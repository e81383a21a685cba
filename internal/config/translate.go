package config

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/dagview/internal/ctxlog"
	"github.com/vk/dagview/internal/model"
	"github.com/vk/dagview/internal/nodekey"
)

// Default display attributes for tasks that do not set their own.
const (
	defaultOperator  = "Operator"
	defaultColor     = "#f0ede4"
	defaultTextColor = "#000000"
)

const dateLayout = "2006-01-02"

// translateWorkflow converts a decoded workflow block into the model,
// deriving the edge set from each task's upstream list.
func (l *Loader) translateWorkflow(ctx context.Context, wb *workflowBlock) (*model.Workflow, error) {
	logger := ctxlog.FromContext(ctx).With("workflow", wb.ID)
	logger.Debug("Translating workflow block to internal model.")

	wf := &model.Workflow{ID: wb.ID}
	for _, tb := range wb.Tasks {
		task, err := l.translateTask(ctx, wb.ID, tb)
		if err != nil {
			return nil, err
		}
		wf.Tasks = append(wf.Tasks, *task)
		for _, up := range tb.Upstream {
			wf.Edges = append(wf.Edges, model.Edge{Upstream: up, Downstream: tb.ID})
		}
	}
	logger.Debug("Workflow translated.", "tasks", len(wf.Tasks), "edges", len(wf.Edges))
	return wf, nil
}

func (l *Loader) translateTask(ctx context.Context, wfID string, tb *taskBlock) (*model.Task, error) {
	if !nodekey.Valid(tb.ID) {
		return nil, fmt.Errorf("workflow %q: invalid task id %q", wfID, tb.ID)
	}

	task := &model.Task{
		ID:        tb.ID,
		Operator:  defaultOperator,
		Color:     defaultColor,
		TextColor: defaultTextColor,
	}
	if tb.Operator != nil {
		task.Operator = *tb.Operator
	}
	if tb.Owner != nil {
		task.Owner = *tb.Owner
	}
	if tb.Retries != nil {
		task.Retries = *tb.Retries
	}
	if tb.DependsOnPast != nil {
		task.DependsOnPast = *tb.DependsOnPast
	}

	var err error
	if task.Color, err = evalString(tb.Color, task.Color); err != nil {
		return nil, fmt.Errorf("task %q color: %w", tb.ID, err)
	}
	if task.TextColor, err = evalString(tb.TextColor, task.TextColor); err != nil {
		return nil, fmt.Errorf("task %q text_color: %w", tb.ID, err)
	}

	if tb.StartDate != nil {
		if task.StartDate, err = time.Parse(dateLayout, *tb.StartDate); err != nil {
			return nil, fmt.Errorf("task %q start_date: %w", tb.ID, err)
		}
	}
	if tb.EndDate != nil {
		if task.EndDate, err = time.Parse(dateLayout, *tb.EndDate); err != nil {
			return nil, fmt.Errorf("task %q end_date: %w", tb.ID, err)
		}
	}

	if tb.Sub != nil {
		subID := tb.ID
		if tb.Sub.ID != nil {
			subID = *tb.Sub.ID
		}
		sub := &workflowBlock{ID: subID, Tasks: tb.Sub.Tasks}
		subWf, err := l.translateWorkflow(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("task %q subworkflow: %w", tb.ID, err)
		}
		task.IsSubworkflow = true
		task.Sub = subWf
	}

	return task, nil
}

// evalString evaluates an optional HCL expression to a string, returning the
// fallback when the attribute was omitted. The HCL decoder populates omitted
// optional expressions with zero-width placeholders, so presence is checked
// via the source range rather than nil.
func evalString(expr hcl.Expression, fallback string) (string, error) {
	if !exprDefined(expr) {
		return fallback, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	v, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	if v.IsNull() {
		return fallback, nil
	}
	return v.AsString(), nil
}

func exprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}
