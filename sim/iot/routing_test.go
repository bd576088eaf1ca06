package iot

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iot-sim/iot-sim/sim"
)

func countEscalations(p RoutingPolicy, n int) int {
	count := 0
	for i := 0; i < n; i++ {
		if p.Decide("d").Escalate {
			count++
		}
	}
	return count
}

func TestEveryNth_EscalatesFloorNOverTen(t *testing.T) {
	for _, n := range []int{9, 10, 11, 25, 100, 999} {
		p := NewEveryNth(10, 0)
		assert.Equal(t, n/10, countEscalations(p, n), "n=%d", n)
	}
}

func TestEveryNth_FiresOnExactlyTheNthAndResets(t *testing.T) {
	p := NewEveryNth(3, 0)
	var got []bool
	for i := 0; i < 7; i++ {
		got = append(got, p.Decide("d").Escalate)
	}
	assert.Equal(t, []bool{false, false, true, false, false, true, false}, got)
}

func TestEveryNth_CounterStart_ShiftsFirstEscalation(t *testing.T) {
	// GIVEN a counter that has already seen 8 of 10 requests
	p := NewEveryNth(10, 8)

	// THEN the 2nd request escalates and then every 10th after it
	assert.False(t, p.Decide("a").Escalate)
	assert.True(t, p.Decide("b").Escalate)
	assert.Equal(t, 1, countEscalations(p, 10))
}

func TestProbabilistic_FractionWithinTolerance(t *testing.T) {
	// GIVEN p=0.3 and 20,000 independent draws
	p := NewProbabilistic(0.3, rand.New(rand.NewSource(99)))
	n := 20000

	// WHEN counting escalations
	frac := float64(countEscalations(p, n)) / float64(n)

	// THEN the fraction lies within 0.02 of 0.3 (about six standard errors)
	assert.InDelta(t, 0.3, frac, 0.02)
}

func TestProbabilistic_Extremes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, 0, countEscalations(NewProbabilistic(0, rng), 1000))
	assert.Equal(t, 1000, countEscalations(NewProbabilistic(1, rng), 1000))
}

func TestNewRoutingPolicy(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		cfg  RoutingConfig
		name string
	}{
		{RoutingConfig{Policy: PolicyLocal}, PolicyLocal},
		{RoutingConfig{Policy: PolicyCounter, EveryN: 5}, PolicyCounter},
		{RoutingConfig{Policy: PolicyProbabilistic, Probability: 0.5}, PolicyProbabilistic},
	}
	for _, tt := range tests {
		p, err := NewRoutingPolicy(tt.cfg, rng)
		require.NoError(t, err)
		assert.Equal(t, tt.name, p.Name())
	}

	_, err := NewRoutingPolicy(RoutingConfig{Policy: "sometimes"}, rng)
	assert.True(t, errors.Is(err, sim.ErrConfiguration))
}

func TestLocalOnly_NeverEscalates(t *testing.T) {
	assert.Equal(t, 0, countEscalations(LocalOnly{}, 100))
}
