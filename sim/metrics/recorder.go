package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Summary aggregates the records held by a Recorder.
type Summary struct {
	Completed int
	Escalated int
	Wait      Distribution
	Process   Distribution
	Total     Distribution
}

// Recorder is the default Collector. It keeps the ordered record sequence
// and mirrors each record into Prometheus histograms on a private registry,
// so that several recorders (e.g. in tests) never collide.
type Recorder struct {
	records []LatencyRecord

	registry    *prometheus.Registry
	waitHist    prometheus.Histogram
	processHist prometheus.Histogram
	totalHist   prometheus.Histogram
	completed   *prometheus.CounterVec
}

// latencyBuckets spans single service times up to long queueing backlogs.
var latencyBuckets = prometheus.ExponentialBuckets(1, 2, 14)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	r := &Recorder{
		records:  make([]LatencyRecord, 0),
		registry: prometheus.NewRegistry(),
		waitHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "iotsim_request_wait_time",
			Help:    "Virtual time a request waited for a gateway slot",
			Buckets: latencyBuckets,
		}),
		processHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "iotsim_request_process_time",
			Help:    "Virtual time between gateway grant and answer",
			Buckets: latencyBuckets,
		}),
		totalHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "iotsim_request_total_time",
			Help:    "Virtual end-to-end time of a request",
			Buckets: latencyBuckets,
		}),
		completed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iotsim_requests_completed_total",
				Help: "Completed requests by serving tier",
			},
			[]string{"tier"},
		),
	}
	r.registry.MustRegister(r.waitHist, r.processHist, r.totalHist, r.completed)
	return r
}

// Record implements Collector. An invalid record means the engine produced
// impossible timestamps and aborts the run.
func (r *Recorder) Record(rec LatencyRecord) {
	if err := rec.Validate(); err != nil {
		panic(err)
	}
	r.records = append(r.records, rec)
	r.waitHist.Observe(rec.WaitTime)
	r.processHist.Observe(rec.ProcessTime)
	r.totalHist.Observe(rec.TotalTime)
	r.completed.WithLabelValues(tierLabel(rec.Escalated)).Inc()
	logrus.Debugf("record %s: wait=%.3f process=%.3f total=%.3f", rec.Device, rec.WaitTime, rec.ProcessTime, rec.TotalTime)
}

func tierLabel(escalated bool) string {
	if escalated {
		return "cloud"
	}
	return "gateway"
}

// Len returns the number of records collected so far.
func (r *Recorder) Len() int { return len(r.records) }

// Records returns a copy of the ordered record sequence.
func (r *Recorder) Records() []LatencyRecord {
	out := make([]LatencyRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Registry exposes the private Prometheus registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Completed returns the Prometheus counter for the given tier ("gateway" or "cloud").
func (r *Recorder) Completed(tier string) prometheus.Counter {
	return r.completed.WithLabelValues(tier)
}

// Summarize computes distributions over all records.
func (r *Recorder) Summarize() Summary {
	waits := make([]float64, len(r.records))
	procs := make([]float64, len(r.records))
	totals := make([]float64, len(r.records))
	s := Summary{Completed: len(r.records)}
	for i, rec := range r.records {
		waits[i] = rec.WaitTime
		procs[i] = rec.ProcessTime
		totals[i] = rec.TotalTime
		if rec.Escalated {
			s.Escalated++
		}
	}
	s.Wait = NewDistribution(waits)
	s.Process = NewDistribution(procs)
	s.Total = NewDistribution(totals)
	return s
}

// Print writes a human-readable summary of the run.
func (r *Recorder) Print(w io.Writer) {
	s := r.Summarize()
	fmt.Fprintln(w, "=== Latency Metrics ===")
	fmt.Fprintf(w, "Completed Requests   : %d\n", s.Completed)
	fmt.Fprintf(w, "Escalated to Cloud   : %d\n", s.Escalated)
	if s.Completed == 0 {
		return
	}
	for _, row := range []struct {
		name string
		d    Distribution
	}{{"Wait", s.Wait}, {"Process", s.Process}, {"Total", s.Total}} {
		fmt.Fprintf(w, "%-8s mean=%8.2f std=%8.2f p50=%8.2f p95=%8.2f p99=%8.2f max=%8.2f\n",
			row.name, row.d.Mean, row.d.StdDev, row.d.P50, row.d.P95, row.d.P99, row.d.Max)
	}
}

// SaveRecords writes the ordered record sequence as JSON.
func (r *Recorder) SaveRecords(fileName string) error {
	data, err := json.MarshalIndent(r.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	if err := os.WriteFile(fileName, data, 0o644); err != nil {
		return fmt.Errorf("writing records to %s: %w", fileName, err)
	}
	logrus.Debugf("Successfully wrote %d records to '%s'", len(r.records), fileName)
	return nil
}

// WritePrometheus writes the registry in the Prometheus text exposition format.
func (r *Recorder) WritePrometheus(fileName string) error {
	if err := prometheus.WriteToTextfile(fileName, r.registry); err != nil {
		return fmt.Errorf("writing prometheus metrics to %s: %w", fileName, err)
	}
	return nil
}
