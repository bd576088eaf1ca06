package iot

import (
	"fmt"
	"math/rand"
)

// RoutingDecision is the outcome of one escalation decision.
type RoutingDecision struct {
	Escalate bool
	Reason   string // human-readable explanation, recorded in decision traces
}

// RoutingPolicy decides, for each request a gateway server has accepted,
// whether it is served locally or escalated to the cloud tier.
type RoutingPolicy interface {
	Name() string
	Decide(requestID string) RoutingDecision
}

// LocalOnly never escalates.
type LocalOnly struct{}

func (LocalOnly) Name() string { return PolicyLocal }

// Decide implements RoutingPolicy for LocalOnly.
func (LocalOnly) Decide(string) RoutingDecision {
	return RoutingDecision{Reason: "local-only"}
}

// EveryNth escalates exactly every Nth serviced request. The counter
// resets each time it fires.
type EveryNth struct {
	n     int
	count int
}

// NewEveryNth creates a counter policy that has already counted start requests.
func NewEveryNth(n, start int) *EveryNth {
	if n < 1 {
		panic(fmt.Sprintf("NewEveryNth: n must be >= 1, got %d", n))
	}
	return &EveryNth{n: n, count: start}
}

func (p *EveryNth) Name() string { return PolicyCounter }

// Decide implements RoutingPolicy for EveryNth.
func (p *EveryNth) Decide(string) RoutingDecision {
	p.count++
	if p.count >= p.n {
		p.count = 0
		return RoutingDecision{Escalate: true, Reason: fmt.Sprintf("counter reached %d", p.n)}
	}
	return RoutingDecision{Reason: fmt.Sprintf("counter %d/%d", p.count, p.n)}
}

// Probabilistic escalates each request independently with a fixed
// probability, using one continuous uniform draw per decision.
type Probabilistic struct {
	p   float64
	rng *rand.Rand
}

// NewProbabilistic creates a probabilistic policy drawing from rng.
func NewProbabilistic(p float64, rng *rand.Rand) *Probabilistic {
	if rng == nil {
		panic("NewProbabilistic: rng must not be nil")
	}
	return &Probabilistic{p: p, rng: rng}
}

func (p *Probabilistic) Name() string { return PolicyProbabilistic }

// Decide implements RoutingPolicy for Probabilistic. Float64 lies in
// [0, 1), so p=0 never escalates and p=1 always does.
func (p *Probabilistic) Decide(string) RoutingDecision {
	u := p.rng.Float64()
	return RoutingDecision{
		Escalate: u < p.p,
		Reason:   fmt.Sprintf("u=%.4f p=%.4f", u, p.p),
	}
}

// NewRoutingPolicy creates a routing policy from its configuration.
// rng is consumed only by the probabilistic policy.
func NewRoutingPolicy(cfg RoutingConfig, rng *rand.Rand) (RoutingPolicy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Policy {
	case PolicyLocal:
		return LocalOnly{}, nil
	case PolicyCounter:
		return NewEveryNth(cfg.EveryN, cfg.CounterStart), nil
	case PolicyProbabilistic:
		return NewProbabilistic(cfg.Probability, rng), nil
	default:
		panic(fmt.Sprintf("unhandled routing policy %q", cfg.Policy))
	}
}
