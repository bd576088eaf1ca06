package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the master seed of a run. Equal keys and equal scenarios
// give identical arrivals, routing decisions and latency records.
type SimulationKey int64

// NewSimulationKey wraps seed as a SimulationKey.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Random streams consumed by the IoT model.
const (
	// SubsystemArrival drives the gaps between device spawns. It is seeded
	// with the master seed itself, so it replays rand.New(rand.NewSource(seed)).
	SubsystemArrival = "arrival"

	// SubsystemRouter drives the gateway's probabilistic escalation draws.
	SubsystemRouter = "router"
)

// PartitionedRNG hands out one *rand.Rand per named stream, all derived
// from a single SimulationKey. The arrival stream takes the key as is;
// every other stream is seeded with key XOR FNV-1a(name). Changing how
// often the router draws therefore never moves device arrival times.
//
// Only the holder of the simulator's execution token may draw from it.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates an empty set of streams for key.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream for name, creating it on first use.
// Repeated calls with the same name share one generator.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if r, ok := p.streams[name]; ok {
		return r
	}
	r := rand.New(rand.NewSource(p.seedFor(name)))
	p.streams[name] = r
	return r
}

// Key returns the master key.
func (p *PartitionedRNG) Key() SimulationKey { return p.key }

func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemArrival {
		return int64(p.key)
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(p.key) ^ int64(h.Sum64())
}
