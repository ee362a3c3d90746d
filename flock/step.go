package flock

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/components"
)

// Agent is a read-only snapshot of one boid, taken before a step.
type Agent struct {
	Position r3.Vec
	Velocity r3.Vec
	Rotation components.Basis
}

// Intent holds the computed state for one boid, applied after every
// intent in the step has been computed.
type Intent struct {
	Position r3.Vec
	Velocity r3.Vec
	Rotation components.Basis
	Oriented bool // false if velocity was zero and Rotation is the previous one

	Acceleration r3.Vec
	Neighbors    int
}

// Stats holds the flock-wide averages for one step.
type Stats struct {
	Count        int
	MeanPosition r3.Vec
	MeanVelocity r3.Vec
}

// ComputeStats returns the mean position and velocity of agents.
// Count is zero for an empty slice.
func ComputeStats(agents []Agent) Stats {
	var st Stats
	for i := range agents {
		st.MeanPosition = r3.Add(st.MeanPosition, agents[i].Position)
		st.MeanVelocity = r3.Add(st.MeanVelocity, agents[i].Velocity)
	}
	st.Count = len(agents)
	if st.Count == 0 {
		return st
	}

	inv := 1 / float64(st.Count)
	st.MeanPosition = r3.Scale(inv, st.MeanPosition)
	st.MeanVelocity = r3.Scale(inv, st.MeanVelocity)
	return st
}

// IsNeighbor reports whether two positions are within the squared range.
func IsNeighbor(a, b r3.Vec, rangeSq float64) bool {
	return r3.Norm2(r3.Sub(a, b)) < rangeSq
}

// Neighbors returns the indices of agent i's neighbours. Agent i itself is
// skipped by index, so other agents sharing its position still count.
func Neighbors(agents []Agent, i int, rangeSq float64) []int {
	var out []int
	for j := range agents {
		if j == i {
			continue
		}
		if IsNeighbor(agents[i].Position, agents[j].Position, rangeSq) {
			out = append(out, j)
		}
	}
	return out
}

// localSum accumulates neighbour positions of agent i by scanning every agent.
func localSum(agents []Agent, i int, rangeSq float64) (sum r3.Vec, count int) {
	me := agents[i].Position
	for j := range agents {
		if j == i {
			continue
		}
		if IsNeighbor(me, agents[j].Position, rangeSq) {
			sum = r3.Add(sum, agents[j].Position)
			count++
		}
	}
	return sum, count
}

// ProximityForce pushes a boid away from the centre of its neighbours.
// It is zero when there are no neighbours.
func (p *Params) ProximityForce(pos, neighborSum r3.Vec, count int) r3.Vec {
	if count == 0 {
		return r3.Vec{}
	}
	center := r3.Scale(1/float64(count), neighborSum)
	return r3.Scale(p.ProximityFactor, r3.Sub(pos, center))
}

// EdgeAcceleration returns the boundary correction for a position. On each
// axis at most one of +EdgeForce (below min) or -EdgeForce (above max) applies.
func (p *Params) EdgeAcceleration(pos r3.Vec) r3.Vec {
	return r3.Vec{
		X: edge(pos.X, p.XBounds, p.EdgeForce),
		Y: edge(pos.Y, p.YBounds, p.EdgeForce),
		Z: edge(pos.Z, p.ZBounds, p.EdgeForce),
	}
}

func edge(v float64, b Bounds, force float64) float64 {
	if v < b.Min {
		return force
	} else if v > b.Max {
		return -force
	}
	return 0
}

// Acceleration combines alignment, proximity, pull and edge forces.
func (p *Params) Acceleration(pos r3.Vec, st Stats, alignment, proximity r3.Vec) r3.Vec {
	pull := r3.Scale(p.PullFactor, r3.Sub(st.MeanPosition, pos))
	acc := r3.Add(r3.Add(alignment, proximity), pull)
	return r3.Add(acc, p.EdgeAcceleration(pos))
}

// ClampLength rescales v to length limit if it is longer; otherwise v is returned unchanged.
func ClampLength(v r3.Vec, limit float64) r3.Vec {
	n := r3.Norm(v)
	if n > limit {
		return r3.Scale(limit/n, v)
	}
	return v
}

// Orient derives the basis (right, up, -forward) from a velocity with up
// fixed to world +Z. It returns false for a zero velocity.
func Orient(velocity r3.Vec) (components.Basis, bool) {
	if r3.Norm2(velocity) == 0 {
		return components.Basis{}, false
	}
	forward := r3.Unit(velocity)
	up := components.WorldUp
	right := r3.Cross(forward, up)
	return components.Basis{
		Right: right,
		Up:    up,
		Back:  r3.Scale(-1, forward),
	}, true
}

// integrate advances one boid given its acceleration.
func (p *Params) integrate(a *Agent, acc r3.Vec, dt float64) Intent {
	vel := r3.Add(a.Velocity, r3.Scale(dt, acc))
	vel = ClampLength(vel, p.MaxVelocity)
	pos := r3.Add(a.Position, r3.Scale(dt, vel))

	rot, ok := Orient(vel)
	if !ok {
		rot = a.Rotation
	}

	return Intent{
		Position:     pos,
		Velocity:     vel,
		Rotation:     rot,
		Oriented:     ok,
		Acceleration: acc,
	}
}

// steer computes the intent of agent i from its neighbour sum.
func (p *Params) steer(a *Agent, st Stats, alignment, neighborSum r3.Vec, count int, dt float64) Intent {
	proximity := p.ProximityForce(a.Position, neighborSum, count)
	acc := p.Acceleration(a.Position, st, alignment, proximity)
	in := p.integrate(a, acc, dt)
	in.Neighbors = count
	return in
}

// Apply copies intents back onto agents.
func Apply(agents []Agent, intents []Intent) {
	for i := range intents {
		agents[i].Position = intents[i].Position
		agents[i].Velocity = intents[i].Velocity
		agents[i].Rotation = intents[i].Rotation
	}
}
