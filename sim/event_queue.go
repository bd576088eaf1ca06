package sim

import "container/heap"

// eventEntry wraps an Event with a sequence ID for deterministic FIFO
// tie-breaking when timestamp and priority are equal.
type eventEntry struct {
	event Event
	seqID int64
}

// EventQueue is a min-heap ordered by (Timestamp, Priority, seqID).
// Implements heap.Interface; use Simulator.Schedule rather than pushing directly.
type EventQueue []eventEntry

func (q EventQueue) Len() int { return len(q) }

func (q EventQueue) Less(i, j int) bool {
	if q[i].event.Timestamp() != q[j].event.Timestamp() {
		return q[i].event.Timestamp() < q[j].event.Timestamp()
	}
	if q[i].event.Priority() != q[j].event.Priority() {
		return q[i].event.Priority() < q[j].event.Priority()
	}
	return q[i].seqID < q[j].seqID
}

func (q EventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *EventQueue) Push(x any) {
	*q = append(*q, x.(eventEntry))
}

func (q *EventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = eventEntry{}
	*q = old[:n-1]
	return item
}

// Peek returns the next event without removing it, or nil when empty.
func (q EventQueue) Peek() Event {
	if len(q) == 0 {
		return nil
	}
	return q[0].event
}

func (q *EventQueue) push(e Event, seqID int64) {
	heap.Push(q, eventEntry{event: e, seqID: seqID})
}

func (q *EventQueue) pop() Event {
	return heap.Pop(q).(eventEntry).event
}
