package game

import "github.com/pthm-cable/flock/telemetry"

// simulationStep advances the flock by one tick.
func (g *Game) simulationStep() {
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseSnapshot)
	agents := g.flock.Snapshot()

	g.perfCollector.StartPhase(telemetry.PhaseCompute)
	intents := g.sim.Step(agents, g.dt)

	g.perfCollector.StartPhase(telemetry.PhaseApply)
	g.flock.Apply(intents)

	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.collector.RecordStep(intents)
	g.flushTelemetry()
	if g.snapshotEvery > 0 && g.tick%g.snapshotEvery == 0 {
		g.saveSnapshot()
	}

	g.perfCollector.EndTick()
}
