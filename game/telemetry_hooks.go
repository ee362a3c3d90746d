package game

import (
	"log/slog"

	"github.com/pthm-cable/flock/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	agents := g.flock.Snapshot()
	stats := g.collector.Flush(g.tick, agents, g.params)
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.outputManager.WriteWindow(stats, perfStats); err != nil {
		slog.Error("failed to write window", "error", err)
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}

		var snap *telemetry.Snapshot
		if g.outputManager.SnapshotsEnabled() {
			snap = g.createSnapshot()
		}
		path, err := g.outputManager.RecordBookmark(bm, snap)
		if err != nil {
			slog.Error("failed to record bookmark", "type", string(bm.Type), "error", err)
			continue
		}
		if path != "" {
			slog.Info("snapshot saved", "path", path, "tick", g.tick, "bookmark", string(bm.Type))
		}
	}
}

// saveSnapshot writes the current flock state if snapshots are enabled.
func (g *Game) saveSnapshot() {
	if !g.outputManager.SnapshotsEnabled() {
		return
	}

	path, err := g.outputManager.SaveSnapshot(g.createSnapshot())
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}

	slog.Info("snapshot saved", "path", path, "tick", g.tick)
}

// createSnapshot builds a snapshot from the current state.
func (g *Game) createSnapshot() *telemetry.Snapshot {
	return telemetry.NewSnapshot(g.rngSeed, g.tick, g.params, g.flock.Snapshot())
}
