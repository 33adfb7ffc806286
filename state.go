package lensing

import "fmt"

// State is the render state of a Driver.
type State int32

const (
	// StateAwaitingRestart waits for the next Tick to start a render.
	StateAwaitingRestart State = iota

	// StateInitializing writes the initial rays. Lasts one Tick.
	StateInitializing

	// StateAdvancing steps the rays once per Tick.
	StateAdvancing

	// StateComplete holds a finished frame. No more dispatches.
	StateComplete
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateAwaitingRestart:
		return "AwaitingRestart"
	case StateInitializing:
		return "Initializing"
	case StateAdvancing:
		return "Advancing"
	case StateComplete:
		return "Complete"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
