// Defines the Request struct that models one acquisition of a ResourcePool slot.
// Tracks who asked, when, with which priority, and when the slot was granted.

package sim

import "fmt"

// RequestState represents the lifecycle state of a resource request.
type RequestState string

const (
	RequestPending   RequestState = "pending"   // created, not yet submitted
	RequestQueued    RequestState = "queued"    // waiting for a free slot
	RequestGranted   RequestState = "granted"   // holds a slot
	RequestReleased  RequestState = "released"  // slot returned
	RequestCancelled RequestState = "cancelled" // withdrawn before grant
)

// Request is a handle for one slot of a ResourcePool. It is a Waitable:
// Process.Wait(req) suspends until the slot is granted. Release is
// idempotent and safe on every exit path, which makes
//
//	req := p.Acquire(pool, prio)
//	defer req.Release()
//
// the canonical scoped-acquisition pattern.
type Request struct {
	RequesterID string
	Priority    int     // lower value = served first
	ArrivalTime float64 // virtual time the request was submitted
	GrantTime   float64 // virtual time the slot was granted

	pool  *ResourcePool
	proc  *Process
	state RequestState
	seqID int64
	index int // position in the pool's wait heap, -1 when not queued
}

// State returns the lifecycle state of the request.
func (r *Request) State() RequestState { return r.state }

// Pool returns the pool the request targets.
func (r *Request) Pool() *ResourcePool { return r.pool }

// QueueDelay returns how long the request sat in the queue; zero until granted.
func (r *Request) QueueDelay() float64 {
	if r.state != RequestGranted && r.state != RequestReleased {
		return 0
	}
	return r.GrantTime - r.ArrivalTime
}

func (r *Request) String() string {
	return fmt.Sprintf("%s@%s(prio=%d,%s)", r.RequesterID, r.pool.Name, r.Priority, r.state)
}

func (r *Request) arm(p *Process) bool {
	if r.state != RequestPending {
		violate("pool "+r.pool.Name, "request %s submitted twice", r)
	}
	r.proc = p
	r.RequesterID = p.ID
	return r.pool.submit(r)
}

func (r *Request) cancel(*Process) {
	r.Release()
}

// Release returns the slot to the pool, handing it directly to the
// highest-priority waiter if there is one. Releasing a queued request
// withdraws it. Further calls are no-ops.
func (r *Request) Release() {
	switch r.state {
	case RequestGranted:
		r.pool.release(r)
	case RequestQueued:
		r.pool.withdraw(r)
	case RequestPending:
		r.state = RequestCancelled
	}
}
