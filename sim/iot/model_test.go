package iot

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iot-sim/iot-sim/sim"
	"github.com/iot-sim/iot-sim/sim/metrics"
	"github.com/iot-sim/iot-sim/sim/trace"
)

// burstScenario sends n devices at t=0 and nothing else before the horizon.
func burstScenario(n int, horizon float64) Scenario {
	sc := DefaultScenario()
	sc.Horizon = horizon
	sc.Arrival = ArrivalConfig{Mode: ArrivalJitter, InitialBurst: n, MeanInterval: 1e9}
	sc.Routing = RoutingConfig{Policy: PolicyLocal}
	return sc
}

func runModel(t *testing.T, sc Scenario, tr *trace.SimulationTrace) (*Model, Result, *metrics.Recorder) {
	t.Helper()
	rec := metrics.NewRecorder()
	m, err := NewModel(sc, rec, tr)
	require.NoError(t, err)
	res := m.Run()
	return m, res, rec
}

func TestModel_TwoDevicesOneSlot_SecondWaits(t *testing.T) {
	// GIVEN one gateway slot, two devices at t=0, 5 units of local work
	sc := burstScenario(2, 100)
	sc.Gateway.Servers = 1
	sc.Gateway.ProcessTime = 5

	// WHEN run
	_, res, rec := runModel(t, sc, nil)

	// THEN A completes at 5 without waiting and B completes at 10 after waiting 5
	recs := rec.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, metrics.NewLatencyRecord("IOT 0", 0, 0, 5, false), recs[0])
	assert.Equal(t, metrics.NewLatencyRecord("IOT 1", 0, 5, 10, false), recs[1])
	assert.Equal(t, 2, res.Completed)
	assert.Equal(t, 0, res.InFlight)
	assert.Equal(t, 1, res.Gateway.PeakInUse)
}

func TestModel_AlwaysEscalate_ProcessTimeIsCloudTime(t *testing.T) {
	// GIVEN escalation probability 1, local 8, cloud 1000, one device
	sc := burstScenario(1, 5000)
	sc.Gateway.ProcessTime = 8
	sc.Cloud.ProcessTime = 1000
	sc.Routing = RoutingConfig{Policy: PolicyProbabilistic, Probability: 1.0}

	// WHEN run without and with a handoff cost
	_, res, rec := runModel(t, sc, nil)
	sc.Cloud.Handoff = true
	sc.Cloud.HandoffTime = 3
	_, _, recHandoff := runModel(t, sc, nil)

	// THEN process time is the cloud time, plus the handoff when enabled
	require.Equal(t, 1, rec.Len())
	assert.Equal(t, 1000.0, rec.Records()[0].ProcessTime)
	assert.True(t, rec.Records()[0].Escalated)
	assert.Equal(t, int64(1), res.Escalated)
	assert.Equal(t, int64(1), res.Cloud.Grants)
	require.Equal(t, 1, recHandoff.Len())
	assert.Equal(t, 1003.0, recHandoff.Records()[0].ProcessTime)
}

func TestModel_CloudContention_QueuesEscalations(t *testing.T) {
	// GIVEN two gateway servers, one cloud machine, and every request escalated
	sc := burstScenario(2, 100)
	sc.Gateway.Servers = 2
	sc.Cloud.ProcessTime = 10
	sc.Routing = RoutingConfig{Policy: PolicyCounter, EveryN: 1}

	// WHEN run
	_, res, rec := runModel(t, sc, nil)

	// THEN both hold a gateway slot at once but the second waits for the machine
	recs := rec.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, 10.0, recs[0].ProcessTime)
	assert.Equal(t, 0.0, recs[1].WaitTime)
	assert.Equal(t, 20.0, recs[1].ProcessTime)
	assert.Equal(t, 2, res.Gateway.PeakInUse)
	assert.Equal(t, 1, res.Cloud.MaxQueueLen)
}

func TestModel_CounterPolicy_EscalatesEveryTenth(t *testing.T) {
	// GIVEN a steady stream served quickly, escalating every 10th request
	sc := DefaultScenario()
	sc.Horizon = 5000
	sc.Routing = RoutingConfig{Policy: PolicyCounter, EveryN: 10}
	tr := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})

	// WHEN run
	_, res, _ := runModel(t, sc, tr)

	// THEN exactly floor(decisions/10) requests escalated
	summary := trace.Summarize(tr)
	require.GreaterOrEqual(t, summary.TotalDecisions, 10)
	assert.Equal(t, summary.TotalDecisions/10, summary.EscalatedCount)
	assert.Equal(t, int64(summary.EscalatedCount), res.Escalated)
	assert.Equal(t, int64(summary.LocalCount), res.Local)
}

func TestModel_ProbabilisticPolicy_ObservedFraction(t *testing.T) {
	// GIVEN p=0.3 and enough instantaneous requests for >= 10,000 decisions
	sc := burstScenario(12000, 1)
	sc.Gateway.Servers = 12000
	sc.Gateway.ProcessTime = 0
	sc.Cloud.ProcessTime = 0
	sc.Routing = RoutingConfig{Policy: PolicyProbabilistic, Probability: 0.3}
	tr := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})

	// WHEN run
	runModel(t, sc, tr)

	// THEN the escalated fraction is 0.3 within 0.02
	summary := trace.Summarize(tr)
	require.Equal(t, 12000, summary.TotalDecisions)
	assert.InDelta(t, 0.3, summary.EscalationFraction, 0.02)
}

func TestModel_Horizon_AbandonedDevicesAreInFlight(t *testing.T) {
	// GIVEN one slot, three devices at t=0 and 5 units of work, cut off at t=7
	sc := burstScenario(3, 7)
	sc.Gateway.Servers = 1
	sc.Gateway.ProcessTime = 5

	// WHEN run
	m, res, rec := runModel(t, sc, nil)

	// THEN only the first device completes; the one in service and the one queued are in flight
	assert.Equal(t, 3, res.DevicesSpawned)
	assert.Equal(t, 1, res.Completed)
	assert.Equal(t, 2, res.InFlight)
	assert.Equal(t, 1, rec.Len())
	assert.Equal(t, 1, m.Completed())

	// AND the queued device is withdrawn at the cut-off rather than granted
	assert.Equal(t, int64(2), res.Gateway.Grants)
	assert.Equal(t, int64(1), res.Gateway.Withdrawals)
	assert.Equal(t, 5.0, res.Gateway.TotalWait)
}

func TestModel_SingleSlot_NoStarvation(t *testing.T) {
	// GIVEN capacity 1, 20 requests of 5 units each and a horizon beyond 20*5
	sc := burstScenario(20, 20*5+1)
	sc.Gateway.Servers = 1

	// WHEN run
	m, res, rec := runModel(t, sc, nil)

	// THEN every request completed, in FIFO order, each waiting 5 more than the last
	assert.Equal(t, 20, res.Completed)
	recs := rec.Records()
	require.Len(t, recs, 20)
	for i, r := range recs {
		assert.Equal(t, float64(5*i), r.WaitTime, "request %d", i)
	}
	assert.Equal(t, 20, m.Spawned())
	assert.Equal(t, 20, m.Completed())
	assert.Zero(t, res.InFlight)
}

func TestModel_PriorityLevels_ServeHigherPriorityFirst(t *testing.T) {
	// GIVEN one slot, two priority levels and four devices at t=0
	sc := burstScenario(4, 100)
	sc.Gateway.Servers = 1
	sc.Gateway.PriorityLevels = 2

	// WHEN run
	_, _, rec := runModel(t, sc, nil)

	// THEN even-indexed (priority 0) devices overtake odd-indexed ones
	var order []string
	for _, r := range rec.Records() {
		order = append(order, r.Device)
	}
	assert.Equal(t, []string{"IOT 0", "IOT 2", "IOT 1", "IOT 3"}, order)
}

func TestModel_SameSeed_IdenticalRecords(t *testing.T) {
	// GIVEN the default scenario under the probabilistic policy
	sc := DefaultScenario()
	sc.Horizon = 3000
	sc.Arrival.MeanInterval = 4
	sc.Arrival.Jitter = 2
	sc.Routing = RoutingConfig{Policy: PolicyProbabilistic, Probability: 0.3}

	// WHEN run twice with the same seed
	_, res1, rec1 := runModel(t, sc, nil)
	_, res2, rec2 := runModel(t, sc, nil)

	// THEN the ordered records and the summary are identical
	require.NotZero(t, rec1.Len())
	assert.Equal(t, rec1.Records(), rec2.Records())
	assert.Equal(t, res1, res2)

	// AND a different seed changes the outcome
	sc.Seed = 43
	_, _, rec3 := runModel(t, sc, nil)
	assert.NotEqual(t, rec1.Records(), rec3.Records())
}

func TestModel_RecordsAndResourcesStayConsistent(t *testing.T) {
	// GIVEN an overloaded system with escalations and a handoff
	sc := DefaultScenario()
	sc.Horizon = 2000
	sc.Arrival.MeanInterval = 3
	sc.Arrival.Jitter = 2
	sc.Cloud.Handoff = true
	sc.Cloud.HandoffTime = 1
	sc.Routing = RoutingConfig{Policy: PolicyProbabilistic, Probability: 0.4}

	// WHEN run
	m, res, rec := runModel(t, sc, nil)

	// THEN every record is non-negative and additive
	for _, r := range rec.Records() {
		assert.NoError(t, r.Validate())
		assert.Equal(t, r.WaitTime+r.ProcessTime, r.TotalTime)
	}
	// AND neither pool exceeded its capacity; abandoned requests left nothing behind
	assert.LessOrEqual(t, res.Gateway.PeakInUse, sc.Gateway.Servers)
	assert.LessOrEqual(t, res.Cloud.PeakInUse, sc.Cloud.Machines)
	assert.Equal(t, 0, m.Gateway.Pool().InUse())
	assert.Equal(t, 0, m.Cloud.Pool().InUse())
	assert.Equal(t, 0, m.Sim.Live())
	assert.Greater(t, res.InFlight, 0, "an overloaded run leaves requests in flight")
	assert.Equal(t, res.DevicesSpawned, res.Completed+res.InFlight)
	assert.Equal(t, rec.Len(), res.Completed)
}

func TestNewModel_InvalidScenario(t *testing.T) {
	sc := DefaultScenario()
	sc.Gateway.Servers = 0
	_, err := NewModel(sc, metrics.NewRecorder(), nil)
	assert.True(t, errors.Is(err, sim.ErrConfiguration))

	_, err = NewModel(DefaultScenario(), nil, nil)
	assert.True(t, errors.Is(err, sim.ErrConfiguration))
}

func TestResult_Print(t *testing.T) {
	_, res, _ := runModel(t, DefaultScenario(), nil)
	var buf bytes.Buffer
	res.Print(&buf)
	assert.Contains(t, buf.String(), "Devices spawned")
}
