package model

// State is the lifecycle state of a single task instance.
type State string

const (
	// StateNoStatus is the synthetic placeholder used when no instance record
	// exists for a task/run pair. It is not reported by the backend.
	StateNoStatus    State = "no_status"
	StateQueued      State = "queued"
	StateRetry       State = "up_for_retry"
	StateRescheduled State = "up_for_reschedule"
	StateSkipped     State = "skipped"
	StateFailed      State = "failed"
	StateRunning     State = "running"
	StateSuccess     State = "success"
)

// AllStates lists every state in legend order. The legend and the model
// builders must agree on this enumeration.
func AllStates() []State {
	return []State{
		StateSuccess,
		StateRunning,
		StateFailed,
		StateRetry,
		StateRescheduled,
		StateQueued,
		StateSkipped,
		StateNoStatus,
	}
}

// stateColors maps each state to the fill color used for matching nodes and
// legend entries.
var stateColors = map[State]string{
	StateNoStatus:    "#e8e8e8",
	StateQueued:      "#808080",
	StateRetry:       "#ffd700",
	StateRescheduled: "#6bd5e4",
	StateSkipped:     "#ffc0cb",
	StateFailed:      "#ff0000",
	StateRunning:     "#00ff00",
	StateSuccess:     "#008000",
}

// Color returns the legend fill color for the state. Unknown states fall back
// to the no-status color.
func (s State) Color() string {
	if c, ok := stateColors[s]; ok {
		return c
	}
	return stateColors[StateNoStatus]
}

// Valid reports whether s is one of the known lifecycle states.
func (s State) Valid() bool {
	_, ok := stateColors[s]
	return ok
}
