package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flock/flock"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Boids int `csv:"boids"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// |mean velocity| / mean speed, 1 when every boid heads the same way
	Polarization float64 `csv:"polarization"`

	CentroidX float64 `csv:"centroid_x"`
	CentroidY float64 `csv:"centroid_y"`
	CentroidZ float64 `csv:"centroid_z"`

	// Spread around the centroid
	SpreadMean float64 `csv:"spread_mean"`
	SpreadStd  float64 `csv:"spread_std"`

	OutOfBounds int `csv:"out_of_bounds"`

	// Averaged over every step in the window
	NeighborsMean float64 `csv:"neighbors_mean"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeDistribution returns the mean and the 10th, 50th and 90th
// percentiles of values. values is sorted in place.
func ComputeDistribution(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	mean = stat.Mean(values, nil)

	sort.Float64s(values)
	p10 = Percentile(values, 0.10)
	p50 = Percentile(values, 0.50)
	p90 = Percentile(values, 0.90)
	return mean, p10, p50, p90
}

// MeanStd returns the population mean and standard deviation of values.
func MeanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(values, nil)
}

// FlockShape holds the instantaneous shape metrics of a flock.
type FlockShape struct {
	Count        int
	SpeedMean    float64
	SpeedP10     float64
	SpeedP50     float64
	SpeedP90     float64
	Polarization float64
	Centroid     r3.Vec
	SpreadMean   float64
	SpreadStd    float64
	OutOfBounds  int
}

// MeasureFlock computes shape metrics for agents. Agents outside the
// params volume are counted in OutOfBounds.
func MeasureFlock(agents []flock.Agent, p flock.Params) FlockShape {
	n := len(agents)
	if n == 0 {
		return FlockShape{}
	}

	st := flock.ComputeStats(agents)
	speeds := make([]float64, n)
	spread := make([]float64, n)
	out := 0
	for i := range agents {
		speeds[i] = r3.Norm(agents[i].Velocity)
		spread[i] = r3.Norm(r3.Sub(agents[i].Position, st.MeanPosition))
		pos := agents[i].Position
		if !p.Inside(pos.X, pos.Y, pos.Z) {
			out++
		}
	}

	shape := FlockShape{
		Count:       n,
		Centroid:    st.MeanPosition,
		OutOfBounds: out,
	}
	shape.SpeedMean, shape.SpeedP10, shape.SpeedP50, shape.SpeedP90 = ComputeDistribution(speeds)
	shape.SpreadMean, shape.SpreadStd = MeanStd(spread)
	if shape.SpeedMean > 0 {
		shape.Polarization = r3.Norm(st.MeanVelocity) / shape.SpeedMean
	}
	return shape
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("boids", s.Boids),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("polarization", s.Polarization),
		slog.Float64("centroid_x", s.CentroidX),
		slog.Float64("centroid_y", s.CentroidY),
		slog.Float64("centroid_z", s.CentroidZ),
		slog.Float64("spread_mean", s.SpreadMean),
		slog.Float64("spread_std", s.SpreadStd),
		slog.Int("out_of_bounds", s.OutOfBounds),
		slog.Float64("neighbors_mean", s.NeighborsMean),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"boids", s.Boids,
		"speed_mean", s.SpeedMean,
		"speed_p10", s.SpeedP10,
		"speed_p50", s.SpeedP50,
		"speed_p90", s.SpeedP90,
		"polarization", s.Polarization,
		"centroid_x", s.CentroidX,
		"centroid_y", s.CentroidY,
		"centroid_z", s.CentroidZ,
		"spread_mean", s.SpreadMean,
		"spread_std", s.SpreadStd,
		"out_of_bounds", s.OutOfBounds,
		"neighbors_mean", s.NeighborsMean,
	)
}
