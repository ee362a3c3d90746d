// Package components defines ECS components for the flock simulation.
package components

import "gonum.org/v1/gonum/spatial/r3"

// WorldUp is the fixed up axis used when orienting boids.
var WorldUp = r3.Vec{X: 0, Y: 0, Z: 1}

// Basis is an orientation expressed as three axis vectors.
// Back points opposite to the direction of travel.
type Basis struct {
	Right r3.Vec
	Up    r3.Vec
	Back  r3.Vec
}

// IdentityBasis returns the unrotated basis.
func IdentityBasis() Basis {
	return Basis{
		Right: r3.Vec{X: 1},
		Up:    r3.Vec{Y: 1},
		Back:  r3.Vec{Z: 1},
	}
}

// Matrix returns the 3x3 rotation with Right, Up and Back as its columns.
func (b Basis) Matrix() *r3.Mat {
	return r3.NewMat([]float64{
		b.Right.X, b.Up.X, b.Back.X,
		b.Right.Y, b.Up.Y, b.Back.Y,
		b.Right.Z, b.Up.Z, b.Back.Z,
	})
}

// Forward returns the direction of travel encoded by the basis.
func (b Basis) Forward() r3.Vec {
	return r3.Scale(-1, b.Back)
}

// Transform is the spatial state of an entity. It belongs to the host's
// transform layer; the flock system reads and writes it in place.
type Transform struct {
	Position r3.Vec
	Rotation Basis
}

// Boid marks an entity as a flock member and holds its velocity.
type Boid struct {
	Velocity r3.Vec
}
