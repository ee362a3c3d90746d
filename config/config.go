// Package config provides configuration loading and access for the simulation.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "config.schema.json"

// Neighbour search strategies.
const (
	SearchBrute = "brute"
	SearchGrid  = "grid"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Population PopulationConfig `yaml:"population"`
	Flock      FlockConfig      `yaml:"flock"`
	Parallel   ParallelConfig   `yaml:"parallel"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds time stepping parameters.
type SimulationConfig struct {
	DT             float64 `yaml:"dt"`               // seconds per tick
	StepsPerUpdate int     `yaml:"steps_per_update"` // ticks per host update call
}

// PopulationConfig holds population parameters.
type PopulationConfig struct {
	Boids int `yaml:"boids"`
}

// Range is a closed interval on one axis.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// FlockConfig holds the flocking parameters.
type FlockConfig struct {
	XBounds Range `yaml:"x_bounds"`
	YBounds Range `yaml:"y_bounds"`
	ZBounds Range `yaml:"z_bounds"`

	MaxVelocity     float64 `yaml:"max_velocity"`
	InertiaFactor   float64 `yaml:"inertia_factor"`   // weight of flock-average velocity
	ProximityRange  float64 `yaml:"proximity_range"`  // squared distance threshold
	ProximityFactor float64 `yaml:"proximity_factor"` // repulsion from local centre
	PullFactor      float64 `yaml:"pull_factor"`      // attraction to flock centre
	EdgeForce       float64 `yaml:"edge_force"`       // push back per axis outside bounds

	NeighborSearch string `yaml:"neighbor_search"` // "brute" or "grid"
}

// ParallelConfig controls the worker pool used by the flock update.
type ParallelConfig struct {
	Workers   int `yaml:"workers"`   // 0 = GOMAXPROCS
	Threshold int `yaml:"threshold"` // minimum boid count for parallel dispatch
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds of simulated time per window
	PerfWindow  int     `yaml:"perf_window"`  // ticks averaged by the perf collector
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ProximityRadius float64 // sqrt(Flock.ProximityRange)
	TicksPerWindow  int32   // Telemetry.StatsWindow / Simulation.DT
}

// global holds the loaded configuration.
var global *Config

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse builds a configuration from the embedded defaults overlaid with data.
// A nil or empty data slice yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := cfg.merge(defaultsYAML); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if len(data) > 0 {
		if err := cfg.merge(data); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge validates a YAML document against the schema and unmarshals it into c.
// Only fields present in the document are overwritten.
func (c *Config) merge(data []byte) error {
	if err := validateDocument(data); err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// validateDocument checks a YAML document against the embedded JSON schema.
func validateDocument(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding yaml: %w", err)
	}
	if doc == nil {
		return nil
	}

	// The validator expects JSON-decoded values (float64 numbers, string keys).
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting yaml to json: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("converting yaml to json: %w", err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to load schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// Validate checks invariants the schema cannot express.
func (c *Config) Validate() error {
	axes := []struct {
		name string
		r    Range
	}{
		{"x", c.Flock.XBounds},
		{"y", c.Flock.YBounds},
		{"z", c.Flock.ZBounds},
	}
	for _, a := range axes {
		if !(a.r.Min < a.r.Max) {
			return fmt.Errorf("flock.%s_bounds: min (%g) must be less than max (%g)", a.name, a.r.Min, a.r.Max)
		}
	}
	switch c.Flock.NeighborSearch {
	case SearchBrute, SearchGrid:
	default:
		return fmt.Errorf("flock.neighbor_search: unknown strategy %q", c.Flock.NeighborSearch)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ProximityRadius = math.Sqrt(math.Max(c.Flock.ProximityRange, 0))

	ticks := int32(1)
	if c.Simulation.DT > 0 {
		ticks = int32(c.Telemetry.StatsWindow / c.Simulation.DT)
	}
	if ticks < 1 {
		ticks = 1
	}
	c.Derived.TicksPerWindow = ticks
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
