package flock

import "gonum.org/v1/gonum/spatial/r3"

// MustValidBounds panics if any axis has min >= max. Placement cannot
// produce meaningful positions from such a volume.
func (p *Params) MustValidBounds() {
	if !p.XBounds.Valid() || !p.YBounds.Valid() || !p.ZBounds.Valid() {
		panic("flock: invalid bounds for boid flocking volume")
	}
}

// RandomState samples a position uniformly inside the volume and a velocity
// with a uniform random direction and a magnitude in [0, MaxVelocity].
func (p *Params) RandomState(rng Random) (pos, vel r3.Vec) {
	pos = r3.Vec{
		X: rng.RandomInRange(p.XBounds.Min, p.XBounds.Max),
		Y: rng.RandomInRange(p.YBounds.Min, p.YBounds.Max),
		Z: rng.RandomInRange(p.ZBounds.Min, p.ZBounds.Max),
	}
	vel = r3.Scale(rng.RandomInRange(0, p.MaxVelocity), rng.RandomUnitDirection())
	return pos, vel
}

// Place overwrites the position and velocity of every agent with random
// values. Rotation is left untouched. Panics on invalid bounds.
func Place(p Params, agents []Agent, rng Random) {
	p.MustValidBounds()
	for i := range agents {
		agents[i].Position, agents[i].Velocity = p.RandomState(rng)
	}
}
