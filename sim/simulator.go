// sim/simulator.go
package sim

import (
	"math"
	"slices"

	"github.com/sirupsen/logrus"
)

// Simulator is the core object that holds virtual time, the pending event
// set and the processes that are still alive. It is single-threaded in the
// cooperative sense: exactly one of the engine loop or one process body
// holds the execution token at any moment, so state mutated between
// suspension points needs no locking.
type Simulator struct {
	Clock   float64
	Horizon float64
	// EventQueue has all the pending events, ordered by (time, priority, seqID)
	EventQueue EventQueue

	nextSeqID   int64
	nextProcIdx int64
	live        map[int64]*Process // alive processes by spawn index
	current     *Process           // process holding the execution token, nil while the engine runs
	executed    int64
	dropped     int
	ended       bool
}

// NewSimulator creates a simulator that stops once the next pending event
// lies strictly after horizon. Use math.Inf(1) to run until the event set
// drains.
func NewSimulator(horizon float64) (*Simulator, error) {
	if math.IsNaN(horizon) || horizon < 0 {
		return nil, configErrorf("horizon must be a non-negative number, got %v", horizon)
	}
	return &Simulator{
		Horizon:    horizon,
		EventQueue: make(EventQueue, 0),
		live:       make(map[int64]*Process),
	}, nil
}

// Now returns the current virtual time.
func (sim *Simulator) Now() float64 { return sim.Clock }

// Schedule pushes an event into the EventQueue. Events in the past are an
// engine bug and abort the run.
func (sim *Simulator) Schedule(ev Event) {
	ts := ev.Timestamp()
	if math.IsNaN(ts) || ts < sim.Clock {
		violate("event queue", "event %T at %v scheduled before current time %v", ev, ts, sim.Clock)
	}
	sim.EventQueue.push(ev, sim.nextSeqID)
	sim.nextSeqID++
}

// ScheduleAfter runs fn at Clock+delay. Zero delay is legal and keeps FIFO
// order among events inserted at the same instant with the same priority.
func (sim *Simulator) ScheduleAfter(delay float64, priority int, fn func(*Simulator)) {
	if math.IsNaN(delay) || delay < 0 {
		violate("event queue", "negative delay %v", delay)
	}
	sim.Schedule(&CallbackEvent{time: sim.Clock + delay, priority: priority, fn: fn})
}

// Spawn registers a new process whose body starts running at the current
// virtual time, after events already scheduled for this instant with the
// same priority.
func (sim *Simulator) Spawn(id string, body func(*Process)) *Process {
	if body == nil {
		panic("Spawn: body must not be nil")
	}
	p := newProcess(sim, id, sim.nextProcIdx, body)
	sim.nextProcIdx++
	sim.live[p.idx] = p
	sim.Schedule(&StartEvent{time: sim.Clock, proc: p})
	return p
}

// Run processes events in (time, priority, insertion) order until the
// queue is empty or the next event lies after the horizon. Unprocessed
// events are discarded and processes still alive are abandoned: their
// deferred cleanup runs but they never reach completion.
func (sim *Simulator) Run() {
	if sim.ended {
		logrus.Warnf("Run called on a simulator that already ended at %.3f", sim.Clock)
		return
	}
	defer sim.shutdown()

	for len(sim.EventQueue) > 0 {
		if sim.EventQueue.Peek().Timestamp() > sim.Horizon {
			break
		}
		ev := sim.EventQueue.pop()
		if ev.Timestamp() < sim.Clock {
			violate("clock", "time moved backwards from %v to %v", sim.Clock, ev.Timestamp())
		}
		sim.Clock = ev.Timestamp()
		logrus.Tracef("[t %010.3f] Executing %T", sim.Clock, ev)
		ev.Execute(sim)
		sim.executed++
	}
	sim.dropped = len(sim.EventQueue)
	logrus.Infof("[t %010.3f] Simulation ended: %d events executed, %d discarded, %d processes in flight",
		sim.Clock, sim.executed, sim.dropped, len(sim.live))
}

// EventsExecuted returns the number of events processed by Run.
func (sim *Simulator) EventsExecuted() int64 { return sim.executed }

// EventsDiscarded returns the number of events left unprocessed because
// they were scheduled after the horizon.
func (sim *Simulator) EventsDiscarded() int { return sim.dropped }

// Live returns the number of processes that have not terminated.
func (sim *Simulator) Live() int { return len(sim.live) }

// Ended reports whether Run has returned.
func (sim *Simulator) Ended() bool { return sim.ended }

// transfer hands the execution token to p and blocks until p suspends or
// terminates. A panic inside p is re-raised here, on the engine goroutine.
func (sim *Simulator) transfer(p *Process) {
	if p.state == StateFinished || p.state == StateAbandoned {
		violate("scheduler", "resumed terminated process %s", p.ID)
	}
	if sim.current != nil {
		violate("scheduler", "process %s resumed while %s holds the execution token", p.ID, sim.current.ID)
	}
	sim.current = p
	p.state = StateRunning
	if !p.started {
		p.started = true
		go p.loop()
	}
	p.resume <- struct{}{}
	sig := <-p.yield
	sim.current = nil

	if !sig.done {
		p.state = StateSuspended
		return
	}
	if p.killed {
		p.state = StateAbandoned
	} else {
		p.state = StateFinished
	}
	delete(sim.live, p.idx)
	if sig.panicVal != nil {
		panic(sig.panicVal)
	}
}

// shutdown abandons every live process, in spawn order, so that no
// goroutine outlives Run.
func (sim *Simulator) shutdown() {
	sim.ended = true
	sim.current = nil
	for len(sim.live) > 0 {
		idxs := make([]int64, 0, len(sim.live))
		for idx := range sim.live {
			idxs = append(idxs, idx)
		}
		slices.Sort(idxs)
		for _, idx := range idxs {
			p, ok := sim.live[idx]
			if !ok {
				continue
			}
			p.killed = true
			if !p.started {
				p.state = StateAbandoned
				delete(sim.live, idx)
				continue
			}
			sim.transfer(p)
		}
	}
	sim.EventQueue = sim.EventQueue[:0]
}
