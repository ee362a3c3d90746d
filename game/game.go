// Package game runs the headless flock simulation: world setup, the tick
// loop, telemetry and snapshots.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/flock"
	"github.com/pthm-cable/flock/systems"
	"github.com/pthm-cable/flock/telemetry"
)

// Options configures a Game.
type Options struct {
	Config *config.Config // nil = config.Cfg()
	Seed   int64

	LogStats       bool
	StatsWindowSec float64 // 0 = use config
	StepsPerUpdate int     // 0 = use config

	OutputDir     string
	SnapshotDir   string
	SnapshotEvery int32  // ticks between periodic snapshots, 0 = bookmarks only
	RestorePath   string // snapshot to resume from

	// StatsCallback is called with every flushed window.
	StatsCallback func(telemetry.WindowStats)
}

// Game holds the complete simulation state.
type Game struct {
	cfg   *config.Config
	world *ecs.World

	rng     *flock.Rand
	rngSeed int64

	params flock.Params
	sim    *flock.Simulator
	flock  *systems.FlockSystem

	// State
	tick           int32
	dt             float64
	stepsPerUpdate int

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	statsCallback    func(telemetry.WindowStats)
	logStats         bool
	snapshotEvery    int32
}

// NewGameWithOptions creates a game, spawns the initial flock or restores
// it from a snapshot, and opens the output directory.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	params := flock.ParamsFromConfig(cfg.Flock)
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("flock params: %w", err)
	}

	stepsPerUpdate := opts.StepsPerUpdate
	if stepsPerUpdate <= 0 {
		stepsPerUpdate = cfg.Simulation.StepsPerUpdate
	}
	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}

	world := ecs.NewWorld()
	sim := flock.NewSimulator(params, flock.OptionsFromConfig(cfg))

	g := &Game{
		cfg:              cfg,
		world:            world,
		rng:              flock.NewRand(rand.New(rand.NewSource(opts.Seed))),
		rngSeed:          opts.Seed,
		params:           params,
		sim:              sim,
		flock:            systems.NewFlockSystem(world, sim),
		dt:               cfg.Simulation.DT,
		stepsPerUpdate:   stepsPerUpdate,
		collector:        telemetry.NewCollector(statsWindow, cfg.Simulation.DT),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		statsCallback:    opts.StatsCallback,
		logStats:         opts.LogStats,
		snapshotEvery:    opts.SnapshotEvery,
	}

	if opts.RestorePath != "" {
		if err := g.restoreSnapshot(opts.RestorePath); err != nil {
			sim.Close()
			return nil, err
		}
	} else {
		g.spawnInitialPopulation()
	}

	om, err := telemetry.NewOutputManager(telemetry.OutputOptions{
		Dir:         opts.OutputDir,
		SnapshotDir: opts.SnapshotDir,
	})
	if err != nil {
		sim.Close()
		return nil, err
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	g.logWorldState("simulation ready")
	return g, nil
}

// UpdateHeadless runs stepsPerUpdate simulation ticks.
func (g *Game) UpdateHeadless() {
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.simulationStep()
	}
}

// Unload logs a final summary, stops workers and closes output files.
func (g *Game) Unload() {
	g.logWorldState("simulation finished")
	g.logPerfStats()
	g.sim.Close()
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 {
	return g.tick
}

// Flock returns the flock system.
func (g *Game) Flock() *systems.FlockSystem {
	return g.flock
}

// Params returns the flock parameters in use.
func (g *Game) Params() flock.Params {
	return g.params
}
