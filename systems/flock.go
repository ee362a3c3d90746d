// Package systems contains ECS systems for the simulation.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/flock"
)

// FlockSystem drives every entity that carries a Transform and a Boid.
type FlockSystem struct {
	world  *ecs.World
	mapper *ecs.Map2[components.Transform, components.Boid]
	filter *ecs.Filter2[components.Transform, components.Boid]
	sim    *flock.Simulator

	// Reused between frames; index i of agents belongs to entities[i].
	entities []ecs.Entity
	agents   []flock.Agent
}

// NewFlockSystem creates a flock system over w.
func NewFlockSystem(w *ecs.World, sim *flock.Simulator) *FlockSystem {
	return &FlockSystem{
		world:  w,
		mapper: ecs.NewMap2[components.Transform, components.Boid](w),
		filter: ecs.NewFilter2[components.Transform, components.Boid](w),
		sim:    sim,
	}
}

// Simulator returns the underlying simulator.
func (s *FlockSystem) Simulator() *flock.Simulator {
	return s.sim
}

// Spawn creates n boids at the origin with zero velocity and identity rotation.
func (s *FlockSystem) Spawn(n int) []ecs.Entity {
	out := make([]ecs.Entity, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.SpawnAt(components.Transform{Rotation: components.IdentityBasis()}, components.Boid{}))
	}
	return out
}

// SpawnAt creates one boid with the given state.
func (s *FlockSystem) SpawnAt(t components.Transform, b components.Boid) ecs.Entity {
	return s.mapper.NewEntity(&t, &b)
}

// Remove deletes a boid entity.
func (s *FlockSystem) Remove(e ecs.Entity) {
	s.world.RemoveEntity(e)
}

// Count returns the number of boids.
func (s *FlockSystem) Count() int {
	query := s.filter.Query()
	n := query.Count()
	query.Close()
	return n
}

// RandomlyPlaceBoids gives every boid a random position inside the volume
// and a random velocity. Rotations are not touched. Panics if the bounds
// are invalid, before any boid is modified.
func (s *FlockSystem) RandomlyPlaceBoids(rng flock.Random) {
	p := s.sim.Params()
	p.MustValidBounds()

	query := s.filter.Query()
	for query.Next() {
		t, b := query.Get()
		t.Position, b.Velocity = p.RandomState(rng)
	}
}

// Snapshot copies the current state of all boids. The returned slice is
// reused by the next call to Snapshot or Update.
func (s *FlockSystem) Snapshot() []flock.Agent {
	s.entities = s.entities[:0]
	s.agents = s.agents[:0]

	query := s.filter.Query()
	for query.Next() {
		t, b := query.Get()
		s.entities = append(s.entities, query.Entity())
		s.agents = append(s.agents, flock.Agent{
			Position: t.Position,
			Velocity: b.Velocity,
			Rotation: t.Rotation,
		})
	}
	return s.agents
}

// Update advances all boids by dt. All boids are read before any is written.
func (s *FlockSystem) Update(dt float64) {
	s.Apply(s.Step(dt))
}

// Step snapshots the world and computes intents without writing them.
func (s *FlockSystem) Step(dt float64) []flock.Intent {
	return s.sim.Step(s.Snapshot(), dt)
}

// Apply writes intents from the last Step back to the entities.
func (s *FlockSystem) Apply(intents []flock.Intent) {
	for i := range intents {
		t, b := s.mapper.Get(s.entities[i])
		t.Position = intents[i].Position
		t.Rotation = intents[i].Rotation
		b.Velocity = intents[i].Velocity
	}
}

// Entities returns the entity order of the last snapshot.
func (s *FlockSystem) Entities() []ecs.Entity {
	return s.entities
}
