// Package metrics collects per-request latency records emitted by the
// simulation and turns them into summaries and exportable metrics.
// The simulation core depends only on the Collector interface.
package metrics

import "fmt"

// LatencyRecord is the measurement of one completed request/response cycle.
// TotalTime == WaitTime + ProcessTime by construction.
type LatencyRecord struct {
	Device      string  `json:"device"`
	StartTime   float64 `json:"start_time"`
	WaitTime    float64 `json:"wait_time"`
	ProcessTime float64 `json:"process_time"`
	TotalTime   float64 `json:"total_time"`
	Escalated   bool    `json:"escalated"`
}

// NewLatencyRecord derives a record from the three timestamps of a request:
// when it was sent, when a gateway slot was granted, and when it was answered.
func NewLatencyRecord(device string, start, processed, answered float64, escalated bool) LatencyRecord {
	wait := processed - start
	process := answered - processed
	return LatencyRecord{
		Device:      device,
		StartTime:   start,
		WaitTime:    wait,
		ProcessTime: process,
		TotalTime:   wait + process,
		Escalated:   escalated,
	}
}

// Validate checks the non-negativity and additivity of the record.
func (r LatencyRecord) Validate() error {
	if r.WaitTime < 0 || r.ProcessTime < 0 || r.TotalTime < 0 {
		return fmt.Errorf("record %s has negative component: wait=%v process=%v total=%v",
			r.Device, r.WaitTime, r.ProcessTime, r.TotalTime)
	}
	if r.TotalTime != r.WaitTime+r.ProcessTime {
		return fmt.Errorf("record %s: total %v != wait %v + process %v",
			r.Device, r.TotalTime, r.WaitTime, r.ProcessTime)
	}
	return nil
}

// Collector receives one LatencyRecord per completed request.
type Collector interface {
	Record(LatencyRecord)
}

// CollectorFunc adapts a function to the Collector interface.
type CollectorFunc func(LatencyRecord)

// Record implements Collector.
func (f CollectorFunc) Record(r LatencyRecord) { f(r) }
