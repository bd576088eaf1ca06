package iot

import (
	"github.com/iot-sim/iot-sim/sim"
	"github.com/iot-sim/iot-sim/sim/trace"
)

// Gateway is the server farm devices talk to. Each accepted request is
// either served locally for a fixed time or escalated to the Cloud,
// as decided by the RoutingPolicy.
type Gateway struct {
	pool        *sim.ResourcePool
	processTime float64
	cloud       *Cloud
	policy      RoutingPolicy
	trace       *trace.SimulationTrace

	local     int64
	escalated int64
}

// NewGateway creates the gateway tier on s. tr may be nil.
func NewGateway(s *sim.Simulator, cfg GatewayConfig, cloud *Cloud, policy RoutingPolicy, tr *trace.SimulationTrace) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cloud == nil || policy == nil {
		return nil, sim.ConfigErrorf("gateway needs a cloud tier and a routing policy")
	}
	pool, err := sim.NewResourcePool(s, "gateway", cfg.Servers)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		pool:        pool,
		processTime: cfg.ProcessTime,
		cloud:       cloud,
		policy:      policy,
		trace:       tr,
	}, nil
}

// Pool returns the server pool.
func (g *Gateway) Pool() *sim.ResourcePool { return g.pool }

// Policy returns the routing policy.
func (g *Gateway) Policy() RoutingPolicy { return g.policy }

// Local returns the number of requests served locally.
func (g *Gateway) Local() int64 { return g.local }

// Escalated returns the number of requests forwarded to the cloud.
func (g *Gateway) Escalated() int64 { return g.escalated }

// Serve processes a request for device d, whose process already holds a
// gateway slot.
func (g *Gateway) Serve(p *sim.Process, d *Device) {
	decision := g.policy.Decide(d.Name)
	g.trace.RecordRouting(trace.RoutingRecord{
		RequestID: d.Name,
		Clock:     p.Now(),
		Policy:    g.policy.Name(),
		Escalated: decision.Escalate,
		Reason:    decision.Reason,
	})

	if !decision.Escalate {
		g.local++
		p.Timeout(g.processTime)
		return
	}
	g.escalated++
	d.Escalated = true
	d.State = DeviceEscalating
	g.cloud.Escalate(p, d.Priority, func() { d.State = DeviceCloudProcessing })
}
