package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 2.0,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negated mean quality over all seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	// Run all seeds in parallel
	qualities := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			windows, err := fe.runSimulation(cfg, s)
			if err != nil {
				slog.Error("evaluation run failed", "seed", s, "params", x, "error", err)
				return
			}
			qualities[idx] = computeQuality(windows, cfg)
		}(i, seed)
	}
	wg.Wait()

	quality := stat.Mean(qualities, nil)

	fe.mu.Lock()
	fe.lastQuality = quality
	fe.mu.Unlock()

	return -quality
}

// runSimulation executes a single headless run and returns its windows.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) ([]telemetry.WindowStats, error) {
	var windows []telemetry.WindowStats

	g, err := game.NewGameWithOptions(game.Options{
		Config:         cfg,
		Seed:           seed,
		StatsWindowSec: fe.statsWindow,
		StepsPerUpdate: 1,
		StatsCallback: func(stats telemetry.WindowStats) {
			windows = append(windows, stats)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("seed %d: %w", seed, err)
	}
	defer g.Unload()

	for g.Tick() < fe.maxTicks {
		g.UpdateHeadless()
	}
	return windows, nil
}

// Quality component weights.
const (
	qualityWeightContainment = 0.35
	qualityWeightCohesion    = 0.35
	qualityWeightAlignment   = 0.30

	qualityWarmupWindows = 2 // skip first N windows (warmup)

	// Preferred spread as a fraction of the volume's half-diagonal.
	cohesionTarget = 0.3
)

// computeQuality scores a run in [0, 1]: boids stay inside the volume,
// stay together without collapsing, and head the same way.
func computeQuality(windows []telemetry.WindowStats, cfg *config.Config) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	f := cfg.Flock
	halfDiag := 0.5 * r3.Norm(r3.Vec{
		X: f.XBounds.Max - f.XBounds.Min,
		Y: f.YBounds.Max - f.YBounds.Min,
		Z: f.ZBounds.Max - f.ZBounds.Min,
	})
	target := cohesionTarget * halfDiag

	containment := make([]float64, 0, len(valid))
	cohesion := make([]float64, 0, len(valid))
	alignment := make([]float64, 0, len(valid))
	for _, w := range valid {
		if w.Boids == 0 {
			continue
		}
		containment = append(containment, 1-float64(w.OutOfBounds)/float64(w.Boids))

		// Gaussian in log-ratio: both collapse and scatter score low.
		ratio := math.Max(w.SpreadMean, 1e-9) / target
		logErr := math.Log(ratio)
		cohesion = append(cohesion, math.Exp(-logErr*logErr))

		alignment = append(alignment, w.Polarization)
	}
	if len(containment) == 0 {
		return 0
	}

	quality := qualityWeightContainment*stat.Mean(containment, nil) +
		qualityWeightCohesion*stat.Mean(cohesion, nil) +
		qualityWeightAlignment*stat.Mean(alignment, nil)

	return clamp01(quality)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// EvalRecord is one row of optimize_log.csv. Factor columns hold the
// clamped values the run actually used.
type EvalRecord struct {
	Eval            int     `csv:"eval"`
	Fitness         float64 `csv:"fitness"`
	Quality         float64 `csv:"quality"`
	InertiaFactor   float64 `csv:"inertia_factor"`
	ProximityFactor float64 `csv:"proximity_factor"`
	PullFactor      float64 `csv:"pull_factor"`
	EdgeForce       float64 `csv:"edge_force"`
}

// EvalLog records every evaluation to CSV and tracks the best one.
type EvalLog struct {
	params *ParamVector
	file   *os.File
	header bool

	count       int
	bestFitness float64
	best        []float64
}

// NewEvalLog creates the log file at path.
func NewEvalLog(path string, params *ParamVector) (*EvalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating eval log: %w", err)
	}
	return &EvalLog{params: params, file: f, bestFitness: math.Inf(1)}, nil
}

// Record appends one evaluation. raw may lie outside the parameter bounds.
func (l *EvalLog) Record(raw []float64, fitness, quality float64) error {
	clamped := l.params.Clamp(raw)
	l.count++
	if fitness < l.bestFitness {
		l.bestFitness = fitness
		l.best = clamped
	}

	rec := []EvalRecord{{
		Eval:            l.count,
		Fitness:         fitness,
		Quality:         quality,
		InertiaFactor:   clamped[0],
		ProximityFactor: clamped[1],
		PullFactor:      clamped[2],
		EdgeForce:       clamped[3],
	}}
	var err error
	if l.header {
		err = gocsv.MarshalWithoutHeaders(rec, l.file)
	} else {
		err = gocsv.Marshal(rec, l.file)
		l.header = err == nil
	}
	if err != nil {
		return fmt.Errorf("writing eval log: %w", err)
	}

	slog.Info("evaluation",
		"eval", l.count,
		"quality", quality,
		"best_quality", -l.bestFitness,
	)
	return nil
}

// Count returns the number of recorded evaluations.
func (l *EvalLog) Count() int {
	return l.count
}

// Best returns the clamped parameters and fitness of the best evaluation,
// or nil if nothing was recorded.
func (l *EvalLog) Best() ([]float64, float64) {
	return l.best, l.bestFitness
}

// Close closes the log file.
func (l *EvalLog) Close() error {
	return l.file.Close()
}
