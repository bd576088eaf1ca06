package iot

import (
	"github.com/sirupsen/logrus"

	"github.com/iot-sim/iot-sim/sim"
)

// Cloud is the datacenter tier: a fixed number of machines that each run
// one heavy computation at a time. It has no routing logic of its own.
type Cloud struct {
	pool        *sim.ResourcePool
	processTime float64
	handoff     bool
	handoffTime float64
}

// NewCloud creates the cloud tier on s.
func NewCloud(s *sim.Simulator, cfg CloudConfig) (*Cloud, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := sim.NewResourcePool(s, "cloud", cfg.Machines)
	if err != nil {
		return nil, err
	}
	return &Cloud{
		pool:        pool,
		processTime: cfg.ProcessTime,
		handoff:     cfg.Handoff,
		handoffTime: cfg.HandoffTime,
	}, nil
}

// Pool returns the machine pool.
func (c *Cloud) Pool() *sim.ResourcePool { return c.pool }

// Compute holds a machine for the configured service time. onGrant is
// called once the machine is granted, before the computation starts.
func (c *Cloud) Compute(p *sim.Process, priority int, onGrant func()) {
	req := p.Acquire(c.pool, priority)
	defer req.Release()
	logrus.Debugf("%s computing in the cloud at %.3f (waited %.3f)", p.ID, p.Now(), req.QueueDelay())
	if onGrant != nil {
		onGrant()
	}
	p.Timeout(c.processTime)
}

// Escalate forwards a request from the gateway: it pays the handoff cost
// when configured, then computes on a cloud machine.
func (c *Cloud) Escalate(p *sim.Process, priority int, onGrant func()) {
	if c.handoff {
		p.Timeout(c.handoffTime)
	}
	c.Compute(p, priority, onGrant)
}
