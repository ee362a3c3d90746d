package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/telemetry"
)

// spawnInitialPopulation creates the configured number of boids and
// scatters them through the volume.
func (g *Game) spawnInitialPopulation() {
	g.flock.Spawn(g.cfg.Population.Boids)
	g.flock.RandomlyPlaceBoids(g.rng)

	slog.Info("flock spawned",
		"boids", g.cfg.Population.Boids,
		"search", g.cfg.Flock.NeighborSearch,
	)
}

// restoreSnapshot spawns one boid per snapshot entry and resumes at the
// snapshot tick. The configured params stay in effect.
func (g *Game) restoreSnapshot(path string) error {
	snap, err := telemetry.LoadSnapshot(path)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	for _, a := range snap.Agents() {
		g.flock.SpawnAt(
			components.Transform{Position: a.Position, Rotation: a.Rotation},
			components.Boid{Velocity: a.Velocity},
		)
	}
	g.tick = snap.Tick
	g.collector.StartAt(snap.Tick)

	if snap.Params != g.params {
		slog.Warn("snapshot params differ from config, using config",
			"snapshot", fmt.Sprintf("%+v", snap.Params),
		)
	}
	slog.Info("snapshot restored",
		"path", path,
		"tick", snap.Tick,
		"boids", len(snap.Boids),
		"seed", snap.RNGSeed,
	)
	return nil
}
