package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}

	if cfg.Flock.MaxVelocity <= 0 {
		t.Errorf("max_velocity = %v, want > 0", cfg.Flock.MaxVelocity)
	}
	if cfg.Population.Boids == 0 {
		t.Error("expected a default boid population")
	}
	if cfg.Flock.NeighborSearch != SearchBrute {
		t.Errorf("neighbor_search = %q, want %q", cfg.Flock.NeighborSearch, SearchBrute)
	}

	wantRadius := math.Sqrt(cfg.Flock.ProximityRange)
	if math.Abs(cfg.Derived.ProximityRadius-wantRadius) > 1e-12 {
		t.Errorf("ProximityRadius = %v, want %v", cfg.Derived.ProximityRadius, wantRadius)
	}
	if cfg.Derived.TicksPerWindow < 1 {
		t.Errorf("TicksPerWindow = %d, want >= 1", cfg.Derived.TicksPerWindow)
	}
}

func TestParseOverridesOnlyPresentFields(t *testing.T) {
	defaults, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error: %v", err)
	}

	cfg, err := Parse([]byte("flock:\n  pull_factor: 0.5\n  x_bounds: {min: -5, max: 5}\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if cfg.Flock.PullFactor != 0.5 {
		t.Errorf("pull_factor = %v, want 0.5", cfg.Flock.PullFactor)
	}
	if cfg.Flock.XBounds != (Range{Min: -5, Max: 5}) {
		t.Errorf("x_bounds = %+v, want {-5 5}", cfg.Flock.XBounds)
	}
	if cfg.Flock.EdgeForce != defaults.Flock.EdgeForce {
		t.Errorf("edge_force = %v, want default %v", cfg.Flock.EdgeForce, defaults.Flock.EdgeForce)
	}
	if cfg.Flock.YBounds != defaults.Flock.YBounds {
		t.Errorf("y_bounds = %+v, want default %+v", cfg.Flock.YBounds, defaults.Flock.YBounds)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{"inverted x bounds", "flock:\n  x_bounds: {min: 10, max: -10}\n", "x_bounds"},
		{"degenerate z bounds", "flock:\n  z_bounds: {min: 3, max: 3}\n", "z_bounds"},
		{"zero max velocity", "flock:\n  max_velocity: 0\n", "validation"},
		{"string factor", "flock:\n  pull_factor: strong\n", "validation"},
		{"unknown section", "camera:\n  fov: 60\n", "validation"},
		{"unknown search", "flock:\n  neighbor_search: octree\n", "validation"},
		{"fractional boids", "population:\n  boids: 2.5\n", "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Parse([]byte("population:\n  boids: 42\nflock:\n  neighbor_search: grid\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s) error: %v", path, err)
	}
	if loaded.Population.Boids != 42 {
		t.Errorf("boids = %d, want 42", loaded.Population.Boids)
	}
	if loaded.Flock != cfg.Flock {
		t.Errorf("flock config changed on round trip: %+v != %+v", loaded.Flock, cfg.Flock)
	}
}

func TestLoadMatchesParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"overrides", "flock:\n  proximity_range: 16.0\ntelemetry:\n  stats_window: 2.0\n", false},
		{"inverted bounds", "flock:\n  z_bounds: {min: 5.0, max: -5.0}\n", true},
		{"empty file", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.doc), 0644); err != nil {
				t.Fatal(err)
			}

			loaded, err := Load(path)
			parsed, perr := Parse([]byte(tt.doc))
			if (err != nil) != tt.wantErr || (perr != nil) != tt.wantErr {
				t.Fatalf("Load err = %v, Parse err = %v, wantErr %v", err, perr, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if *loaded != *parsed {
				t.Errorf("Load = %+v, Parse = %+v", loaded, parsed)
			}
		})
	}

	cfg, err := Parse([]byte("flock:\n  proximity_range: 16.0\ntelemetry:\n  stats_window: 2.0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Derived.ProximityRadius != 4 {
		t.Errorf("ProximityRadius = %v, want 4", cfg.Derived.ProximityRadius)
	}
	if want := int32(2.0 / cfg.Simulation.DT); cfg.Derived.TicksPerWindow != want {
		t.Errorf("TicksPerWindow = %d, want %d", cfg.Derived.TicksPerWindow, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	saved := global
	global = nil
	defer func() { global = saved }()

	defer func() {
		if recover() == nil {
			t.Error("expected Cfg() to panic before Init")
		}
	}()
	Cfg()
}
