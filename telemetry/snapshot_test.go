package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/flock"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	agents := []flock.Agent{
		{
			Position: r3.Vec{X: 1.5, Y: -2, Z: 3.25},
			Velocity: r3.Vec{X: 0.5, Y: -0.3, Z: 0.1},
			Rotation: components.IdentityBasis(),
		},
		{
			Position: r3.Vec{X: -7, Y: 4, Z: 11},
			Rotation: components.Basis{
				Right: r3.Vec{Y: -1},
				Up:    components.WorldUp,
				Back:  r3.Vec{X: -1},
			},
		},
	}
	snapshot := NewSnapshot(42, 1000, testParams(), agents)
	snapshot.Bookmark = &Bookmark{
		Type:        BookmarkScatter,
		Tick:        1000,
		Description: "Test bookmark",
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Snapshot file not created at %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.RNGSeed != 42 {
		t.Errorf("RNGSeed mismatch: got %d, want 42", loaded.RNGSeed)
	}
	if loaded.Tick != 1000 {
		t.Errorf("Tick mismatch: got %d, want 1000", loaded.Tick)
	}
	if loaded.Params != snapshot.Params {
		t.Errorf("Params mismatch: got %+v, want %+v", loaded.Params, snapshot.Params)
	}
	if loaded.Bookmark == nil {
		t.Error("Bookmark not loaded")
	} else if loaded.Bookmark.Type != BookmarkScatter {
		t.Errorf("Bookmark type mismatch: got %s, want %s", loaded.Bookmark.Type, BookmarkScatter)
	}

	got := loaded.Agents()
	if len(got) != len(agents) {
		t.Fatalf("Boids count mismatch: got %d, want %d", len(got), len(agents))
	}
	for i := range agents {
		if got[i] != agents[i] {
			t.Errorf("boid %d: got %+v, want %+v", i, got[i], agents[i])
		}
	}
}

func TestSnapshotFilename(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version: SnapshotVersion,
		Tick:    5000,
		Bookmark: &Bookmark{
			Type: BookmarkCollapse,
			Tick: 5000,
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	expected := filepath.Join(tmpDir, "snapshot_5000_collapse.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}

	snapshotNoBookmark := &Snapshot{
		Version: SnapshotVersion,
		Tick:    3000,
	}

	path, err = SaveSnapshot(snapshotNoBookmark, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	expected = filepath.Join(tmpDir, "snapshot_3000.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}
}

func TestLoadSnapshotRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "boids": []}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected error for unknown snapshot version")
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
