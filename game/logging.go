package game

import (
	"log/slog"

	"github.com/pthm-cable/flock/telemetry"
)

// logWorldState logs a one-line summary of the flock.
func (g *Game) logWorldState(msg string) {
	shape := telemetry.MeasureFlock(g.flock.Snapshot(), g.params)
	slog.Info(msg,
		"tick", g.tick,
		"sim_time", float64(g.tick)*g.dt,
		"boids", shape.Count,
		"speed_mean", shape.SpeedMean,
		"polarization", shape.Polarization,
		"spread_mean", shape.SpreadMean,
		"out_of_bounds", shape.OutOfBounds,
	)
}

// logPerfStats logs the rolling performance window.
func (g *Game) logPerfStats() {
	stats := g.perfCollector.Stats()
	slog.Info("perf summary", "tick", g.tick, "perf", stats, "snapshots", g.outputManager.Snapshots())
}
