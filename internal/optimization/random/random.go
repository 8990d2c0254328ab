// Package random provides uniform samplers over half-open intervals.
//
// Every sampler owns its generator. Unless a seed or generator is injected,
// the generator is seeded from the wall clock at construction, so two
// samplers built in the same process draw independent streams.
package random

import (
	"math/rand"
	"sync/atomic"
	"time"
)

// seedCounter decorrelates samplers constructed within the same clock tick.
var seedCounter atomic.Int64

// Uniform draws reals uniformly from [Lower, Upper).
type Uniform struct {
	lower, upper float64
	rng          *rand.Rand
}

// New returns a time-seeded sampler over [l, u).
func New(l, u float64) *Uniform {
	return NewFrom(l, u, NewRand(0))
}

// NewSeeded returns a sampler over [l, u) with a fixed seed.
func NewSeeded(l, u float64, seed int64) *Uniform {
	return NewFrom(l, u, rand.New(rand.NewSource(seed)))
}

// NewFrom returns a sampler over [l, u) drawing from rng. Samplers sharing
// rng share its stream; rng must not be used concurrently.
func NewFrom(l, u float64, rng *rand.Rand) *Uniform {
	if rng == nil {
		rng = NewRand(0)
	}
	return &Uniform{lower: l, upper: u, rng: rng}
}

// NewRand returns a generator for seed, or a time-seeded one when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano() + seedCounter.Add(1)
	}
	return rand.New(rand.NewSource(seed))
}

// Generate returns the next sample.
func (s *Uniform) Generate() float64 {
	return s.lower + (s.upper-s.lower)*s.rng.Float64()
}

// Lower returns the inclusive lower end of the interval.
func (s *Uniform) Lower() float64 { return s.lower }

// Upper returns the exclusive upper end of the interval.
func (s *Uniform) Upper() float64 { return s.upper }

// Fill overwrites x with samples.
func (s *Uniform) Fill(x []float64) []float64 {
	for i := range x {
		x[i] = s.Generate()
	}
	return x
}
