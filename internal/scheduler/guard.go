package scheduler

import "sync/atomic"

// JobState is the run state of one job.
type JobState int32

const (
	Idle JobState = iota
	Running
)

func (s JobState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Guard allows at most one run of a job at a time. The zero value is Idle.
type Guard struct {
	state atomic.Int32
}

// TryAcquire switches Idle to Running and reports whether it did.
func (g *Guard) TryAcquire() bool {
	return g.state.CompareAndSwap(int32(Idle), int32(Running))
}

// Release returns the guard to Idle.
func (g *Guard) Release() {
	g.state.Store(int32(Idle))
}

// State returns the current state.
func (g *Guard) State() JobState {
	return JobState(g.state.Load())
}
