package sim

import (
	"container/heap"

	"github.com/sirupsen/logrus"
)

// requestHeap orders waiting requests by (Priority, seqID).
type requestHeap []*Request

func (h requestHeap) Len() int { return len(h) }

func (h requestHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seqID < h[j].seqID
}

func (h requestHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *requestHeap) Push(x any) {
	r := x.(*Request)
	r.index = len(*h)
	*h = append(*h, r)
}

func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.index = -1
	*h = old[:n-1]
	return r
}

// PoolStats aggregates counters about a ResourcePool over a run.
type PoolStats struct {
	Requests    int64   // submitted requests
	Grants      int64   // slots handed out
	Releases    int64   // slots returned
	Withdrawals int64   // queued requests withdrawn before grant
	PeakInUse   int     // max simultaneous holders
	MaxQueueLen int     // max simultaneous waiters
	TotalWait   float64 // sum of queueing delay over granted requests
}

// ResourcePool is a bounded pool of identical slots with a priority-ordered
// wait queue. Lower priority values are served first; equal priorities are
// served in submission order. Invariant: 0 <= InUse() <= Capacity().
type ResourcePool struct {
	Name string

	sim      *Simulator
	capacity int
	inUse    int
	waiting  requestHeap
	seq      int64
	stats    PoolStats

	lastChange float64 // time of the last in_use change
	busyArea   float64 // integral of in_use over time up to lastChange
}

// NewResourcePool creates a pool with the given number of slots.
// A capacity below one would starve every request and is rejected.
func NewResourcePool(sim *Simulator, name string, capacity int) (*ResourcePool, error) {
	if sim == nil {
		return nil, configErrorf("pool %q: simulator must not be nil", name)
	}
	if capacity < 1 {
		return nil, configErrorf("pool %q: capacity must be >= 1, got %d", name, capacity)
	}
	return &ResourcePool{
		Name:     name,
		sim:      sim,
		capacity: capacity,
	}, nil
}

// Request creates a pending request. Pass it to Process.Wait (or use
// Process.Acquire) to submit it.
func (rp *ResourcePool) Request(priority int) *Request {
	return &Request{
		Priority: priority,
		pool:     rp,
		state:    RequestPending,
		index:    -1,
	}
}

// Capacity returns the number of slots.
func (rp *ResourcePool) Capacity() int { return rp.capacity }

// InUse returns the number of granted, unreleased slots.
func (rp *ResourcePool) InUse() int { return rp.inUse }

// QueueLen returns the number of requests waiting for a slot.
func (rp *ResourcePool) QueueLen() int { return len(rp.waiting) }

// Stats returns a copy of the pool counters.
func (rp *ResourcePool) Stats() PoolStats { return rp.stats }

// Utilization returns the time-averaged fraction of busy slots from time 0
// up to the current virtual time. After Run that is the time of the last
// executed event, not the horizon: an idle tail with no events before the
// horizon is not counted.
func (rp *ResourcePool) Utilization() float64 {
	now := rp.sim.Clock
	if now <= 0 {
		return 0
	}
	area := rp.busyArea + float64(rp.inUse)*(now-rp.lastChange)
	return area / (float64(rp.capacity) * now)
}

func (rp *ResourcePool) submit(r *Request) bool {
	r.ArrivalTime = rp.sim.Clock
	r.seqID = rp.seq
	rp.seq++
	rp.stats.Requests++
	if rp.inUse < rp.capacity {
		rp.grant(r)
		return true
	}
	r.state = RequestQueued
	heap.Push(&rp.waiting, r)
	rp.stats.MaxQueueLen = max(rp.stats.MaxQueueLen, len(rp.waiting))
	logrus.Debugf("[%s] %s queued at %.3f (in_use=%d, waiting=%d)", rp.Name, r.RequesterID, rp.sim.Clock, rp.inUse, len(rp.waiting))
	return false
}

func (rp *ResourcePool) grant(r *Request) {
	rp.accumulate()
	rp.inUse++
	rp.check()
	r.state = RequestGranted
	r.GrantTime = rp.sim.Clock
	rp.stats.Grants++
	rp.stats.TotalWait += r.GrantTime - r.ArrivalTime
	rp.stats.PeakInUse = max(rp.stats.PeakInUse, rp.inUse)
	logrus.Debugf("[%s] %s granted at %.3f (in_use=%d)", rp.Name, r.RequesterID, rp.sim.Clock, rp.inUse)
}

func (rp *ResourcePool) release(r *Request) {
	rp.accumulate()
	rp.inUse--
	rp.check()
	r.state = RequestReleased
	rp.stats.Releases++
	logrus.Debugf("[%s] %s released at %.3f (in_use=%d)", rp.Name, r.RequesterID, rp.sim.Clock, rp.inUse)

	// Once the run has ended, waiters are abandoned rather than served: each
	// one withdraws itself when its own process is torn down.
	if len(rp.waiting) == 0 || rp.sim.ended {
		return
	}
	next := heap.Pop(&rp.waiting).(*Request)
	rp.grant(next)
	rp.sim.Schedule(&ResumeEvent{time: rp.sim.Clock, priority: PriorityUrgent, proc: next.proc})
}

func (rp *ResourcePool) withdraw(r *Request) {
	if r.index < 0 || r.index >= len(rp.waiting) || rp.waiting[r.index] != r {
		violate("pool "+rp.Name, "withdrawn request %s is not in the wait queue", r)
	}
	heap.Remove(&rp.waiting, r.index)
	r.state = RequestCancelled
	rp.stats.Withdrawals++
}

func (rp *ResourcePool) accumulate() {
	now := rp.sim.Clock
	rp.busyArea += float64(rp.inUse) * (now - rp.lastChange)
	rp.lastChange = now
}

func (rp *ResourcePool) check() {
	if rp.inUse < 0 || rp.inUse > rp.capacity {
		violate("pool "+rp.Name, "in_use=%d outside [0, %d]", rp.inUse, rp.capacity)
	}
}
