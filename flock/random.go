package flock

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// Random is the uniform random source used for placement.
type Random interface {
	// RandomInRange returns a uniform sample from [min, max).
	RandomInRange(min, max float64) float64
	// RandomUnitDirection returns a direction uniformly distributed on the unit sphere.
	RandomUnitDirection() r3.Vec
}

// Rand adapts a *rand.Rand to Random.
type Rand struct {
	rng *rand.Rand
}

// NewRand wraps rng.
func NewRand(rng *rand.Rand) *Rand {
	return &Rand{rng: rng}
}

// NewSeededRand returns a Random seeded with seed.
func NewSeededRand(seed int64) *Rand {
	return NewRand(rand.New(rand.NewSource(seed)))
}

// RandomInRange implements Random.
func (r *Rand) RandomInRange(min, max float64) float64 {
	return min + r.rng.Float64()*(max-min)
}

// RandomUnitDirection implements Random. A normalised Gaussian triple is
// isotropic, so the result is uniform on the sphere.
func (r *Rand) RandomUnitDirection() r3.Vec {
	for {
		v := r3.Vec{X: r.rng.NormFloat64(), Y: r.rng.NormFloat64(), Z: r.rng.NormFloat64()}
		if n := r3.Norm(v); n > 1e-12 {
			return r3.Scale(1/n, v)
		}
	}
}
