package agent

import "fmt"

// State is the lifecycle state of an engine run.
type State int

const (
	// StateIdle means the engine is ready to accept a run.
	StateIdle State = iota
	// StateRunning means a run is in flight.
	StateRunning
	// StateFinished means a terminal tool completed the run.
	StateFinished
	// StateError means the run aborted on an unrecoverable error.
	StateError
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state ends the engine's life. A finished or
// errored engine refuses further runs.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateError
}

// InvalidStateError reports a Run invoked while the engine was not idle.
type InvalidStateError struct {
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot run agent from state: %s", e.State)
}
