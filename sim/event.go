package sim

import "github.com/sirupsen/logrus"

// Event priorities. Lower values execute first among events that share a
// timestamp; equal priorities fall back to insertion order.
const (
	PriorityUrgent = 0 // process starts and resource grants
	PriorityNormal = 1 // timeouts
)

// Event defines the interface for all simulation events.
// Each event has a Timestamp (virtual time), a Priority used to break
// timestamp ties, and an Execute method that advances simulation state.
type Event interface {
	Timestamp() float64
	Priority() int
	Execute(*Simulator)
}

// StartEvent runs a newly spawned process up to its first suspension point.
type StartEvent struct {
	time float64
	proc *Process
}

func (e *StartEvent) Timestamp() float64 { return e.time }
func (e *StartEvent) Priority() int       { return PriorityUrgent }

// Execute hands the execution token to the process for the first time.
func (e *StartEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< Start: %s at %.3f", e.proc.ID, e.time)
	sim.transfer(e.proc)
}

// ResumeEvent wakes a suspended process, either because its timeout expired
// or because a resource slot was handed to it.
type ResumeEvent struct {
	time     float64
	priority int
	proc     *Process
}

func (e *ResumeEvent) Timestamp() float64 { return e.time }
func (e *ResumeEvent) Priority() int       { return e.priority }

// Execute resumes the suspended process.
func (e *ResumeEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< Resume: %s at %.3f", e.proc.ID, e.time)
	sim.transfer(e.proc)
}

// CallbackEvent runs an arbitrary function at its timestamp. It backs
// ScheduleAfter for callers that do not need a full process.
type CallbackEvent struct {
	time     float64
	priority int
	fn       func(*Simulator)
}

func (e *CallbackEvent) Timestamp() float64    { return e.time }
func (e *CallbackEvent) Priority() int          { return e.priority }
func (e *CallbackEvent) Execute(sim *Simulator) { e.fn(sim) }
