// Package flock implements a 3D boid flocking model: per-frame alignment,
// local repulsion, cohesion and boundary forces over a set of agents.
package flock

import (
	"fmt"

	"github.com/pthm-cable/flock/config"
)

// Bounds is the allowed interval on one axis.
type Bounds struct {
	Min, Max float64
}

// Valid reports whether Min < Max.
func (b Bounds) Valid() bool {
	return b.Min < b.Max
}

// Contains reports whether v lies within [Min, Max].
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Params holds the flocking parameters. They are immutable for a run.
type Params struct {
	XBounds, YBounds, ZBounds Bounds

	MaxVelocity     float64
	InertiaFactor   float64 // weight of the flock-average velocity
	ProximityRange  float64 // squared distance below which another boid is a neighbour
	ProximityFactor float64 // repulsion from the local neighbour centre
	PullFactor      float64 // attraction towards the flock-average position
	EdgeForce       float64 // per-axis push back when outside the bounds
}

// ParamsFromConfig converts the flock section of a config.
func ParamsFromConfig(c config.FlockConfig) Params {
	return Params{
		XBounds:         Bounds{Min: c.XBounds.Min, Max: c.XBounds.Max},
		YBounds:         Bounds{Min: c.YBounds.Min, Max: c.YBounds.Max},
		ZBounds:         Bounds{Min: c.ZBounds.Min, Max: c.ZBounds.Max},
		MaxVelocity:     c.MaxVelocity,
		InertiaFactor:   c.InertiaFactor,
		ProximityRange:  c.ProximityRange,
		ProximityFactor: c.ProximityFactor,
		PullFactor:      c.PullFactor,
		EdgeForce:       c.EdgeForce,
	}
}

// Validate checks the volume bounds and the velocity limit.
func (p Params) Validate() error {
	if !p.XBounds.Valid() || !p.YBounds.Valid() || !p.ZBounds.Valid() {
		return fmt.Errorf("invalid bounds for boid flocking volume: x=%v y=%v z=%v", p.XBounds, p.YBounds, p.ZBounds)
	}
	if !(p.MaxVelocity > 0) {
		return fmt.Errorf("max velocity must be positive, got %g", p.MaxVelocity)
	}
	return nil
}

// Inside reports whether a point lies within all three bounds.
func (p Params) Inside(x, y, z float64) bool {
	return p.XBounds.Contains(x) && p.YBounds.Contains(y) && p.ZBounds.Contains(z)
}
