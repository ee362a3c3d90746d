// Package main provides CMA-ES optimization for finding flock force factors
// that keep the flock contained, cohesive and aligned.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/flock/config"
)

var (
	errMissingOutput = errors.New("-output is required")
	errNoEvaluations = errors.New("no evaluations completed")
)

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int("max-ticks", 1800, "Simulation duration per run in ticks")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(*configPath, *outputDir, *maxTicks, *seeds, *maxEvals, *population); err != nil {
		slog.Error("optimization failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, outputDir string, maxTicks, seeds, maxEvals, population int) error {
	if outputDir == "" {
		return errMissingOutput
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	baseCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	params := NewParamVector()

	evalSeeds := make([]int64, seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, int32(maxTicks), evalSeeds, baseCfg)

	evalLog, err := NewEvalLog(filepath.Join(outputDir, "optimize_log.csv"), params)
	if err != nil {
		return err
	}
	defer evalLog.Close()

	// CMA-ES searches the unit cube; the evaluator sees raw values.
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			fitness := evaluator.Evaluate(raw)
			if err := evalLog.Record(raw, fitness, evaluator.LastQuality()); err != nil {
				slog.Error("failed to log evaluation", "error", err)
			}
			return fitness
		},
	}

	popSize := population
	if popSize == 0 {
		popSize = 4 + int(3.0*math.Log(float64(params.Dim())))
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{FuncEvaluations: maxEvals}

	initX := params.Normalize(params.Clamp(params.ExtractFromConfig(baseCfg)))

	slog.Info("starting optimization",
		"params", params.Dim(),
		"population", popSize,
		"max_evals", maxEvals,
		"seeds", seeds,
		"max_ticks", maxTicks,
	)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}

	best, bestFitness := evalLog.Best()
	if best == nil {
		if result == nil {
			return errNoEvaluations
		}
		best = params.Clamp(params.Denormalize(result.X))
	}

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, best)

	attrs := []any{"evals", evalLog.Count(), "quality", -bestFitness}
	for i, spec := range params.Specs {
		attrs = append(attrs, spec.Name, best[i])
	}
	slog.Info("optimization complete", attrs...)

	configOutPath := filepath.Join(outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		return err
	}
	slog.Info("best config saved", "path", configOutPath)
	return nil
}
