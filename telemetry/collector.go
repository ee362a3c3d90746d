// Package telemetry provides flock statistics, bookmarking, and snapshots.
package telemetry

import "github.com/pthm-cable/flock/flock"

// Collector accumulates per-step counters within time windows and produces
// WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Counters for current window
	neighborSum   int
	agentsSampled int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordStep records the neighbour counts of one step.
func (c *Collector) RecordStep(intents []flock.Intent) {
	for i := range intents {
		c.neighborSum += intents[i].Neighbors
	}
	c.agentsSampled += len(intents)
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the flock state at window end and
// resets counters for the next window.
func (c *Collector) Flush(currentTick int32, agents []flock.Agent, p flock.Params) WindowStats {
	shape := MeasureFlock(agents, p)

	var neighborsMean float64
	if c.agentsSampled > 0 {
		neighborsMean = float64(c.neighborSum) / float64(c.agentsSampled)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Boids: shape.Count,

		SpeedMean:    shape.SpeedMean,
		SpeedP10:     shape.SpeedP10,
		SpeedP50:     shape.SpeedP50,
		SpeedP90:     shape.SpeedP90,
		Polarization: shape.Polarization,

		CentroidX: shape.Centroid.X,
		CentroidY: shape.Centroid.Y,
		CentroidZ: shape.Centroid.Z,

		SpreadMean: shape.SpreadMean,
		SpreadStd:  shape.SpreadStd,

		OutOfBounds:   shape.OutOfBounds,
		NeighborsMean: neighborsMean,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.neighborSum = 0
	c.agentsSampled = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}

// StartAt begins the current window at tick, discarding counters. Used when
// resuming from a snapshot.
func (c *Collector) StartAt(tick int32) {
	c.windowStartTick = tick
	c.neighborSum = 0
	c.agentsSampled = 0
}
