package iot

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/iot-sim/iot-sim/sim"
	"github.com/iot-sim/iot-sim/sim/metrics"
	"github.com/iot-sim/iot-sim/sim/trace"
)

// Model wires the arrival process, gateway and cloud tiers onto one
// simulator. Build it with NewModel and execute it once with Run.
type Model struct {
	Scenario Scenario
	Sim      *sim.Simulator
	Gateway  *Gateway
	Cloud    *Cloud
	Arrival  *Arrival
	Trace    *trace.SimulationTrace

	collector metrics.Collector
	spawned   int
	completed int
}

// Result summarizes a finished run. Latency records live in the collector.
type Result struct {
	EndTime            float64 // time of the last executed event; utilizations are averaged up to it
	EventsExecuted     int64
	EventsDiscarded    int
	DevicesSpawned     int
	Completed          int
	InFlight           int // devices abandoned at the horizon
	Local              int64
	Escalated          int64
	Gateway            sim.PoolStats
	Cloud              sim.PoolStats
	GatewayUtilization float64
	CloudUtilization   float64
}

// NewModel validates sc and builds the model. Records are sent to
// collector; tr may be nil to disable decision tracing.
func NewModel(sc Scenario, collector metrics.Collector, tr *trace.SimulationTrace) (*Model, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if collector == nil {
		return nil, sim.ConfigErrorf("a metrics collector is required")
	}
	s, err := sim.NewSimulator(sc.Horizon)
	if err != nil {
		return nil, err
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(sc.Seed))

	cloud, err := NewCloud(s, sc.Cloud)
	if err != nil {
		return nil, err
	}
	policy, err := NewRoutingPolicy(sc.Routing, rng.ForSubsystem(sim.SubsystemRouter))
	if err != nil {
		return nil, err
	}
	gateway, err := NewGateway(s, sc.Gateway, cloud, policy, tr)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Scenario:  sc,
		Sim:       s,
		Gateway:   gateway,
		Cloud:     cloud,
		Trace:     tr,
		collector: collector,
	}
	m.Arrival, err = NewArrival(sc.Arrival, rng.ForSubsystem(sim.SubsystemArrival), m.spawnDevice)
	if err != nil {
		return nil, err
	}
	s.Spawn("arrival", m.Arrival.Run)
	return m, nil
}

func (m *Model) spawnDevice(index int, name string) {
	d := NewDevice(name, index%m.Scenario.Gateway.PriorityLevels)
	m.spawned++
	m.Sim.Spawn(name, func(p *sim.Process) {
		d.Run(p, m.Gateway, m.collector)
		// Not reached when the device is abandoned at the horizon.
		m.completed++
	})
}

// Spawned returns the number of devices created so far.
func (m *Model) Spawned() int { return m.spawned }

// Completed returns the number of devices that received their answer.
func (m *Model) Completed() int { return m.completed }

// Run executes the simulation up to the horizon.
func (m *Model) Run() Result {
	logrus.Infof("Starting IoT simulation: servers=%d machines=%d policy=%s horizon=%.2f seed=%d",
		m.Scenario.Gateway.Servers, m.Scenario.Cloud.Machines, m.Gateway.Policy().Name(), m.Scenario.Horizon, m.Scenario.Seed)
	m.Sim.Run()

	res := Result{
		EndTime:            m.Sim.Clock,
		EventsExecuted:     m.Sim.EventsExecuted(),
		EventsDiscarded:    m.Sim.EventsDiscarded(),
		DevicesSpawned:     m.spawned,
		Completed:          m.completed,
		InFlight:           m.spawned - m.completed,
		Local:              m.Gateway.Local(),
		Escalated:          m.Gateway.Escalated(),
		Gateway:            m.Gateway.Pool().Stats(),
		Cloud:              m.Cloud.Pool().Stats(),
		GatewayUtilization: m.Gateway.Pool().Utilization(),
		CloudUtilization:   m.Cloud.Pool().Utilization(),
	}
	if res.InFlight > 0 {
		logrus.Warnf("%d requests still in flight at the horizon were abandoned", res.InFlight)
	}
	return res
}

// Print writes the run summary.
func (r Result) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Summary ===")
	fmt.Fprintf(w, "Ended at             : %.2f\n", r.EndTime)
	fmt.Fprintf(w, "Events executed      : %d (discarded %d)\n", r.EventsExecuted, r.EventsDiscarded)
	fmt.Fprintf(w, "Devices spawned      : %d\n", r.DevicesSpawned)
	fmt.Fprintf(w, "Completed / in flight: %d / %d\n", r.Completed, r.InFlight)
	fmt.Fprintf(w, "Local / escalated    : %d / %d\n", r.Local, r.Escalated)
	fmt.Fprintf(w, "Gateway utilization  : %.3f (peak %d, max queue %d)\n", r.GatewayUtilization, r.Gateway.PeakInUse, r.Gateway.MaxQueueLen)
	fmt.Fprintf(w, "Cloud utilization    : %.3f (peak %d, max queue %d)\n", r.CloudUtilization, r.Cloud.PeakInUse, r.Cloud.MaxQueueLen)
}
