package iot

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iot-sim/iot-sim/sim"
)

// Routing policy names.
const (
	PolicyLocal         = "local"
	PolicyCounter       = "counter"
	PolicyProbabilistic = "probabilistic"
)

// Arrival modes.
const (
	ArrivalJitter    = "jitter"
	ArrivalFixedRate = "fixed-rate"
)

// ValidRoutingPolicies is the set of recognized routing policy names.
var ValidRoutingPolicies = map[string]bool{PolicyLocal: true, PolicyCounter: true, PolicyProbabilistic: true}

// ValidArrivalModes is the set of recognized arrival modes.
var ValidArrivalModes = map[string]bool{ArrivalJitter: true, ArrivalFixedRate: true}

// Scenario is the complete configuration of one simulation run.
// Loaded from YAML via LoadScenario(path) or built from DefaultScenario().
type Scenario struct {
	Seed    int64         `yaml:"seed"`
	Horizon float64       `yaml:"horizon"`
	Gateway GatewayConfig `yaml:"gateway"`
	Cloud   CloudConfig   `yaml:"cloud"`
	Routing RoutingConfig `yaml:"routing"`
	Arrival ArrivalConfig `yaml:"arrival"`
}

// GatewayConfig sizes the front-tier server farm.
type GatewayConfig struct {
	Servers        int     `yaml:"servers"`
	ProcessTime    float64 `yaml:"process_time"`    // local service time
	PriorityLevels int     `yaml:"priority_levels"` // device i requests with priority i mod levels
}

// CloudConfig sizes the escalation tier.
type CloudConfig struct {
	Machines    int     `yaml:"machines"`
	ProcessTime float64 `yaml:"process_time"`
	Handoff     bool    `yaml:"handoff"`      // charge HandoffTime before acquiring a machine
	HandoffTime float64 `yaml:"handoff_time"` // forwarding cost to the cloud tier
}

// RoutingConfig selects how the gateway decides to escalate.
type RoutingConfig struct {
	Policy       string  `yaml:"policy"`
	EveryN       int     `yaml:"every_n"`       // counter: escalate every Nth serviced request
	CounterStart int     `yaml:"counter_start"` // counter: requests already counted at start
	Probability  float64 `yaml:"probability"`   // probabilistic: escalation probability in [0,1]
}

// ArrivalConfig shapes the stream of devices.
type ArrivalConfig struct {
	Mode         string  `yaml:"mode"`
	InitialBurst int     `yaml:"initial_burst"` // devices created at time 0
	MeanInterval float64 `yaml:"mean_interval"`
	Jitter       float64 `yaml:"jitter"`       // jitter mode: interval drawn from mean±jitter
	Discrete     bool    `yaml:"discrete"`     // jitter mode: integer draws
	DeviceCount  int     `yaml:"device_count"` // fixed-rate mode: interval = mean/count, names round-robin
}

// DefaultScenario mirrors the reference IoT model: one cloud machine, two
// gateway servers, 5/10 time units of local/cloud work, a device every
// 20±2 time units after an initial burst of four, for 400 time units.
func DefaultScenario() Scenario {
	return Scenario{
		Seed:    42,
		Horizon: 400,
		Gateway: GatewayConfig{
			Servers:        2,
			ProcessTime:    5,
			PriorityLevels: 1,
		},
		Cloud: CloudConfig{
			Machines:    1,
			ProcessTime: 10,
			HandoffTime: 0,
		},
		Routing: RoutingConfig{
			Policy:      PolicyCounter,
			EveryN:      10,
			Probability: 0.3,
		},
		Arrival: ArrivalConfig{
			Mode:         ArrivalJitter,
			InitialBurst: 4,
			MeanInterval: 20,
			Jitter:       2,
			Discrete:     true,
			DeviceCount:  1,
		},
	}
}

// LoadScenario reads a YAML scenario file on top of DefaultScenario.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadScenario(path string) (Scenario, error) {
	sc := DefaultScenario()
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("reading scenario: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return sc, fmt.Errorf("parsing scenario: %w", err)
	}
	return sc, nil
}

// YAML encodes the scenario in the same layout LoadScenario reads.
func (sc Scenario) YAML() ([]byte, error) {
	return yaml.Marshal(sc)
}

func nonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return sim.ConfigErrorf("%s must be a finite non-negative number, got %v", name, v)
	}
	return nil
}

// Validate checks capacities, time constants and policy parameters.
// Every returned error wraps sim.ErrConfiguration.
func (sc Scenario) Validate() error {
	if err := nonNegative("horizon", sc.Horizon); err != nil {
		return err
	}
	if err := sc.Gateway.Validate(); err != nil {
		return err
	}
	if err := sc.Cloud.Validate(); err != nil {
		return err
	}
	if err := sc.Routing.Validate(); err != nil {
		return err
	}
	return sc.Arrival.Validate()
}

// Validate checks the gateway parameters.
func (c GatewayConfig) Validate() error {
	if c.Servers < 1 {
		return sim.ConfigErrorf("gateway.servers must be >= 1, got %d", c.Servers)
	}
	if c.PriorityLevels < 1 {
		return sim.ConfigErrorf("gateway.priority_levels must be >= 1, got %d", c.PriorityLevels)
	}
	return nonNegative("gateway.process_time", c.ProcessTime)
}

// Validate checks the cloud parameters.
func (c CloudConfig) Validate() error {
	if c.Machines < 1 {
		return sim.ConfigErrorf("cloud.machines must be >= 1, got %d", c.Machines)
	}
	if err := nonNegative("cloud.process_time", c.ProcessTime); err != nil {
		return err
	}
	return nonNegative("cloud.handoff_time", c.HandoffTime)
}

// Validate checks the routing policy name and its parameter.
func (c RoutingConfig) Validate() error {
	if !ValidRoutingPolicies[c.Policy] {
		return sim.ConfigErrorf("unknown routing policy %q; valid: local, counter, probabilistic", c.Policy)
	}
	switch c.Policy {
	case PolicyCounter:
		if c.EveryN < 1 {
			return sim.ConfigErrorf("routing.every_n must be >= 1, got %d", c.EveryN)
		}
		if c.CounterStart < 0 || c.CounterStart >= c.EveryN {
			return sim.ConfigErrorf("routing.counter_start must be in [0, %d), got %d", c.EveryN, c.CounterStart)
		}
	case PolicyProbabilistic:
		if math.IsNaN(c.Probability) || c.Probability < 0 || c.Probability > 1 {
			return sim.ConfigErrorf("routing.probability must be in [0, 1], got %v", c.Probability)
		}
	}
	return nil
}

// Validate checks the arrival parameters.
func (c ArrivalConfig) Validate() error {
	if !ValidArrivalModes[c.Mode] {
		return sim.ConfigErrorf("unknown arrival mode %q; valid: jitter, fixed-rate", c.Mode)
	}
	if c.InitialBurst < 0 {
		return sim.ConfigErrorf("arrival.initial_burst must be >= 0, got %d", c.InitialBurst)
	}
	if math.IsNaN(c.MeanInterval) || math.IsInf(c.MeanInterval, 0) || c.MeanInterval <= 0 {
		return sim.ConfigErrorf("arrival.mean_interval must be a finite positive number, got %v", c.MeanInterval)
	}
	switch c.Mode {
	case ArrivalJitter:
		if err := nonNegative("arrival.jitter", c.Jitter); err != nil {
			return err
		}
		if c.Jitter > c.MeanInterval {
			return sim.ConfigErrorf("arrival.jitter %v exceeds mean_interval %v", c.Jitter, c.MeanInterval)
		}
		if c.Discrete && math.Floor(c.MeanInterval+c.Jitter) < math.Ceil(c.MeanInterval-c.Jitter) {
			return sim.ConfigErrorf("arrival interval [%v, %v] contains no integer", c.MeanInterval-c.Jitter, c.MeanInterval+c.Jitter)
		}
	case ArrivalFixedRate:
		if c.DeviceCount < 1 {
			return sim.ConfigErrorf("arrival.device_count must be >= 1, got %d", c.DeviceCount)
		}
	}
	return nil
}
