package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/flock"
)

func TestOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager(OutputOptions{})
	if err != nil {
		t.Fatalf("NewOutputManager error: %v", err)
	}
	if om != nil {
		t.Fatal("expected nil manager when output is disabled")
	}

	// Methods on a nil manager are no-ops.
	if err := om.WriteWindow(WindowStats{}, PerfStats{}); err != nil {
		t.Errorf("WriteWindow on nil: %v", err)
	}
	if path, err := om.RecordBookmark(Bookmark{Type: BookmarkScatter}, &Snapshot{}); err != nil || path != "" {
		t.Errorf("RecordBookmark on nil = %q, %v", path, err)
	}
	if om.SnapshotsEnabled() {
		t.Error("SnapshotsEnabled on nil = true")
	}
	if err := om.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
	if om.Dir() != "" || om.Snapshots() != 0 {
		t.Errorf("Dir/Snapshots = %q/%d, want empty/0", om.Dir(), om.Snapshots())
	}
}

func readCSV[T any](t *testing.T, path string) []T {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var rows []T
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		t.Fatalf("reading %s: %v", filepath.Base(path), err)
	}
	return rows
}

func TestOutputManager_WindowRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(OutputOptions{Dir: dir})
	if err != nil {
		t.Fatalf("NewOutputManager error: %v", err)
	}

	perf := PerfStats{PhasePct: map[string]float64{PhaseCompute: 75}}
	for i := 1; i <= 3; i++ {
		stats := WindowStats{WindowEndTick: int32(i * 600), Boids: 100, Polarization: 0.5}
		if err := om.WriteWindow(stats, perf); err != nil {
			t.Fatalf("WriteWindow: %v", err)
		}
	}
	if _, err := om.RecordBookmark(Bookmark{Type: BookmarkAligned, Tick: 1800, Description: "d"}, nil); err != nil {
		t.Fatalf("RecordBookmark: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	windows := readCSV[WindowStats](t, filepath.Join(dir, "telemetry.csv"))
	if len(windows) != 3 {
		t.Fatalf("got %d telemetry rows, want 3", len(windows))
	}
	if windows[2].WindowEndTick != 1800 || windows[2].Boids != 100 {
		t.Errorf("last telemetry row = %+v", windows[2])
	}

	perfRows := readCSV[PerfStatsCSV](t, filepath.Join(dir, "perf.csv"))
	if len(perfRows) != 3 {
		t.Fatalf("got %d perf rows, want 3", len(perfRows))
	}
	if perfRows[1].WindowEnd != 1200 || perfRows[1].Boids != 100 || perfRows[1].ComputePct != 75 {
		t.Errorf("perf row = %+v, want window 1200 with its boid count", perfRows[1])
	}

	bookmarks := readCSV[Bookmark](t, filepath.Join(dir, "bookmarks.csv"))
	if len(bookmarks) != 1 || bookmarks[0].Type != BookmarkAligned || bookmarks[0].Tick != 1800 {
		t.Errorf("bookmarks = %+v", bookmarks)
	}
}

func TestOutputManager_SnapshotsOnly(t *testing.T) {
	snapDir := filepath.Join(t.TempDir(), "snaps")
	om, err := NewOutputManager(OutputOptions{SnapshotDir: snapDir})
	if err != nil {
		t.Fatalf("NewOutputManager error: %v", err)
	}
	defer om.Close()

	if !om.SnapshotsEnabled() {
		t.Fatal("SnapshotsEnabled = false with a snapshot dir")
	}
	// No CSV logs without an output dir.
	if err := om.WriteWindow(WindowStats{Boids: 1}, PerfStats{}); err != nil {
		t.Errorf("WriteWindow: %v", err)
	}

	p := flock.Params{MaxVelocity: 1}
	agents := []flock.Agent{{Velocity: r3.Vec{X: 1}}}

	path, err := om.SaveSnapshot(NewSnapshot(1, 60, p, agents))
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if filepath.Base(path) != "snapshot_60.json" {
		t.Errorf("periodic snapshot path = %s", path)
	}

	bm := Bookmark{Type: BookmarkCollapse, Tick: 120, Description: "d"}
	path, err = om.RecordBookmark(bm, NewSnapshot(1, 120, p, agents))
	if err != nil {
		t.Fatalf("RecordBookmark: %v", err)
	}
	if filepath.Base(path) != "snapshot_120_collapse.json" {
		t.Errorf("bookmark snapshot path = %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.Bookmark == nil || loaded.Bookmark.Type != BookmarkCollapse {
		t.Errorf("loaded bookmark = %+v, want collapse", loaded.Bookmark)
	}
	if om.Snapshots() != 2 {
		t.Errorf("Snapshots() = %d, want 2", om.Snapshots())
	}
	if _, err := os.Stat(filepath.Join(snapDir, "telemetry.csv")); !os.IsNotExist(err) {
		t.Errorf("telemetry.csv written without an output dir: %v", err)
	}
}

func TestOutputManager_WriteConfig(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(OutputOptions{Dir: dir})
	if err != nil {
		t.Fatalf("NewOutputManager error: %v", err)
	}
	defer om.Close()

	cfg, err := config.Parse(nil)
	if err != nil {
		t.Fatalf("config.Parse: %v", err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
}
