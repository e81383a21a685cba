package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/dagview/internal/model"
	"github.com/vk/dagview/internal/scene"
)

func chainScene(t *testing.T) *scene.Scene {
	t.Helper()
	sc := scene.New(scene.Instant())
	_, err := sc.Apply(scene.Snapshot{
		Nodes: []scene.Node{
			{Key: "a", TaskID: "a", Class: "no_status"},
			{Key: "b", TaskID: "b", Class: "no_status"},
			{Key: "c", TaskID: "c", Class: "no_status"},
		},
		Edges: []scene.Edge{
			{Key: "a->b", From: "a", To: "b"},
			{Key: "b->c", From: "b", To: "c"},
		},
	})
	require.NoError(t, err)
	return sc
}

func TestApplyInstanceStates_ChainScenario(t *testing.T) {
	sc := chainScene(t)
	sync := New(sc)

	n := sync.ApplyInstanceStates(map[string]model.TaskInstance{
		"a": {TaskID: "a", RunID: "r1", State: model.StateSuccess},
		"b": {TaskID: "b", RunID: "r1", State: model.StateRunning},
	})
	assert.Equal(t, 2, n)

	a, _ := sc.Node("a")
	b, _ := sc.Node("b")
	c, _ := sc.Node("c")
	assert.Equal(t, "success", a.Class)
	assert.Equal(t, "running", b.Class)
	assert.Equal(t, "no_status", c.Class, "task with no data keeps the placeholder class")
	assert.Len(t, sc.Edges(), 2)
}

func TestApplyInstanceStates_EmptyMappingChangesNothing(t *testing.T) {
	sc := chainScene(t)
	before := sc.Nodes()

	n := New(sc).ApplyInstanceStates(map[string]model.TaskInstance{})
	assert.Zero(t, n)
	assert.Equal(t, before, sc.Nodes())
}

func TestApplyInstanceStates_UnknownTaskSkipped(t *testing.T) {
	sc := chainScene(t)
	n := New(sc).ApplyInstanceStates(map[string]model.TaskInstance{
		"ghost": {TaskID: "ghost", State: model.StateFailed},
	})
	assert.Zero(t, n)
}

func TestApplyInstanceStates_FansOutToDuplicates(t *testing.T) {
	sc := scene.New(scene.Instant())
	_, err := sc.Apply(scene.Snapshot{Nodes: []scene.Node{
		{Key: "a/b/d", TaskID: "d"},
		{Key: "a/c/d", TaskID: "d"},
	}})
	require.NoError(t, err)

	n := New(sc).ApplyInstanceStates(map[string]model.TaskInstance{
		"d": {TaskID: "d", State: model.StateFailed},
	})
	assert.Equal(t, 2, n)
	one, _ := sc.Node("a/b/d")
	two, _ := sc.Node("a/c/d")
	assert.Equal(t, "failed", one.Class)
	assert.Equal(t, "failed", two.Class)
}

func TestTooltip_MissingFieldsRenderBlank(t *testing.T) {
	tip := Tooltip("b", model.TaskInstance{TaskID: "b", RunID: "r1", State: model.StateQueued})
	assert.Contains(t, tip, "Task: b")
	assert.Contains(t, tip, "State: queued")
	assert.Contains(t, tip, "Started: \n")
	assert.Contains(t, tip, "Duration: ")
	assert.NotContains(t, tip, "0001-01-01")
}

func TestTooltip_FullInstance(t *testing.T) {
	start := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	tip := Tooltip("b", model.TaskInstance{
		TaskID:          "b",
		RunID:           "manual__2024-03-01",
		State:           model.StateSuccess,
		StartDate:       start,
		EndDate:         start.Add(90 * time.Second),
		Duration:        90,
		RunLabel:        "manual",
		ExternalTrigger: true,
	})
	assert.Contains(t, tip, "Run: manual__2024-03-01 (manual) [external]")
	assert.Contains(t, tip, "Started: 2024-03-01 06:00:00")
	assert.Contains(t, tip, "Duration: 1.5m")
}

func TestTooltip_InvalidStateFallsBackToNoStatus(t *testing.T) {
	tip := Tooltip("x", model.TaskInstance{State: "bogus"})
	assert.Contains(t, tip, "State: no_status")
}
