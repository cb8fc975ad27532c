package loop

import "sync/atomic"

// State is the lifecycle state of a Loop.
//
//	StateIdle        → StateRunning      [Start]
//	StateRunning     → StateTerminating  [Stop]
//	StateTerminating → StateIdle         [worker exited, observed by Stop]
//
// A worker that dies from a failure stays in StateRunning until Stop joins it.
type State uint32

const (
	// StateIdle means no worker exists; Start may be called.
	StateIdle State = iota
	// StateRunning means a worker exists and has not been asked to stop.
	StateRunning
	// StateTerminating means Stop signalled the worker but has not yet seen it exit.
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateTerminating:
		return "Terminating"
	default:
		return "Unknown"
	}
}

type atomicState struct {
	v atomic.Uint32
}

func (s *atomicState) Load() State       { return State(s.v.Load()) }
func (s *atomicState) Store(state State) { s.v.Store(uint32(state)) }
