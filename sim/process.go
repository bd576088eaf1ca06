package sim

import (
	"fmt"
	"runtime"
)

// ProcessState represents the lifecycle state of a process.
type ProcessState string

const (
	StateCreated   ProcessState = "created"
	StateRunning   ProcessState = "running"
	StateSuspended ProcessState = "suspended"
	StateFinished  ProcessState = "finished"
	// StateAbandoned marks a process cut off by the horizon.
	StateAbandoned ProcessState = "abandoned"
)

// Waitable is a suspension point: something a process can wait on.
// Timeout, Until and *Request are the implementations.
type Waitable interface {
	// arm registers p to be resumed when the condition holds. It returns
	// true when the condition already holds and p must not suspend.
	arm(p *Process) bool
	// cancel withdraws a pending wait for a process that is being abandoned.
	cancel(p *Process)
}

// Timeout suspends a process for a relative amount of virtual time.
type Timeout float64

func (d Timeout) arm(p *Process) bool {
	if d < 0 {
		violate("process "+p.ID, "negative timeout %v", float64(d))
	}
	p.sim.Schedule(&ResumeEvent{time: p.sim.Clock + float64(d), priority: PriorityNormal, proc: p})
	return false
}

func (Timeout) cancel(*Process) {}

// Until suspends a process until an absolute virtual time.
type Until float64

func (t Until) arm(p *Process) bool {
	if float64(t) < p.sim.Clock {
		violate("process "+p.ID, "wait until %v which is before %v", float64(t), p.sim.Clock)
	}
	p.sim.Schedule(&ResumeEvent{time: float64(t), priority: PriorityNormal, proc: p})
	return false
}

func (Until) cancel(*Process) {}

type signal struct {
	done     bool
	panicVal any
}

// Process is a suspendable unit of work. Its body runs on a dedicated
// goroutine but only while it holds the simulator's execution token; every
// call to Wait hands the token back to the engine.
type Process struct {
	ID string

	sim     *Simulator
	idx     int64
	body    func(*Process)
	state   ProcessState
	started bool
	killed  bool
	waiting Waitable

	resume chan struct{}
	yield  chan signal
}

func newProcess(sim *Simulator, id string, idx int64, body func(*Process)) *Process {
	if id == "" {
		id = fmt.Sprintf("proc_%d", idx)
	}
	return &Process{
		ID:     id,
		sim:    sim,
		idx:    idx,
		body:   body,
		state:  StateCreated,
		resume: make(chan struct{}),
		yield:  make(chan signal),
	}
}

func (p *Process) loop() {
	<-p.resume
	defer func() {
		// recover returns nil on normal return and on runtime.Goexit.
		p.yield <- signal{done: true, panicVal: recover()}
	}()
	if p.killed {
		return
	}
	p.body(p)
}

// State returns the current lifecycle state.
func (p *Process) State() ProcessState { return p.state }

// Sim returns the simulator that owns p.
func (p *Process) Sim() *Simulator { return p.sim }

// Now returns the current virtual time.
func (p *Process) Now() float64 { return p.sim.Clock }

// Wait suspends p until w is satisfied. It returns immediately when w
// already holds, e.g. a resource request that can be granted on the spot.
// If the simulation ends while p is suspended, Wait does not return:
// the goroutine exits after running p's deferred calls.
func (p *Process) Wait(w Waitable) {
	if p.sim.current != p {
		violate("process "+p.ID, "Wait called without holding the execution token")
	}
	if w.arm(p) {
		return
	}
	p.waiting = w
	p.yield <- signal{}
	<-p.resume
	p.waiting = nil
	if p.killed {
		w.cancel(p)
		runtime.Goexit()
	}
}

// Timeout suspends p for d units of virtual time.
func (p *Process) Timeout(d float64) { p.Wait(Timeout(d)) }

// Acquire requests a slot on pool with the given priority and suspends
// until it is granted. The caller owns the returned Request and must
// Release it, normally with defer.
func (p *Process) Acquire(pool *ResourcePool, priority int) *Request {
	req := pool.Request(priority)
	p.Wait(req)
	return req
}

// Spawn starts a child process at the current instant.
func (p *Process) Spawn(id string, body func(*Process)) *Process {
	return p.sim.Spawn(id, body)
}
