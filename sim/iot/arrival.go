package iot

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/iot-sim/iot-sim/sim"
)

// Arrival generates an unbounded stream of devices: an initial burst at
// time 0, then one device per inter-arrival interval. It never finishes on
// its own; the simulation horizon cuts it off.
type Arrival struct {
	cfg     ArrivalConfig
	rng     *rand.Rand
	spawn   func(index int, name string)
	spawned int
}

// NewArrival creates an arrival process. spawn is called once per device
// with its sequence index and name.
func NewArrival(cfg ArrivalConfig, rng *rand.Rand, spawn func(index int, name string)) (*Arrival, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil || spawn == nil {
		return nil, sim.ConfigErrorf("arrival needs an rng and a spawn function")
	}
	return &Arrival{cfg: cfg, rng: rng, spawn: spawn}, nil
}

// Spawned returns the number of devices created so far.
func (a *Arrival) Spawned() int { return a.spawned }

// Run is the arrival process body.
func (a *Arrival) Run(p *sim.Process) {
	for i := 0; i < a.cfg.InitialBurst; i++ {
		a.next()
	}
	for {
		p.Timeout(a.Interval())
		a.next()
	}
}

func (a *Arrival) next() {
	idx := a.spawned
	a.spawned++
	a.spawn(idx, a.deviceName(idx))
}

func (a *Arrival) deviceName(idx int) string {
	if a.cfg.Mode == ArrivalFixedRate {
		return fmt.Sprintf("IOT %d", idx%a.cfg.DeviceCount)
	}
	return fmt.Sprintf("IOT %d", idx)
}

// Interval returns the next inter-arrival time. Jitter mode consumes
// exactly one draw per call; fixed-rate mode consumes none.
func (a *Arrival) Interval() float64 {
	switch a.cfg.Mode {
	case ArrivalFixedRate:
		return a.cfg.MeanInterval / float64(a.cfg.DeviceCount)
	default:
		lo := a.cfg.MeanInterval - a.cfg.Jitter
		hi := a.cfg.MeanInterval + a.cfg.Jitter
		if a.cfg.Discrete {
			ilo, ihi := int(math.Ceil(lo)), int(math.Floor(hi))
			return float64(ilo + a.rng.Intn(ihi-ilo+1))
		}
		return lo + a.rng.Float64()*(hi-lo)
	}
}
