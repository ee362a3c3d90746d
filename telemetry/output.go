package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/flock/config"
)

// OutputOptions selects where a run writes its files. An empty directory
// disables that output.
type OutputOptions struct {
	Dir         string // telemetry.csv, perf.csv, bookmarks.csv, config.yaml
	SnapshotDir string // JSON flock snapshots
}

// csvLog appends gocsv records to one file. The header goes out with the
// first record.
type csvLog struct {
	f      *os.File
	header bool
}

func createCSV(dir, name string) (*csvLog, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvLog{f: f}, nil
}

func (l *csvLog) append(records any) error {
	if l == nil {
		return nil
	}
	if l.header {
		return gocsv.MarshalWithoutHeaders(records, l.f)
	}
	if err := gocsv.Marshal(records, l.f); err != nil {
		return err
	}
	l.header = true
	return nil
}

func (l *csvLog) close() error {
	if l == nil {
		return nil
	}
	return l.f.Close()
}

// OutputManager owns every file a flock run produces: one telemetry and
// one perf row per stats window, the bookmark log, a copy of the config,
// and state snapshots.
type OutputManager struct {
	dir         string
	snapshotDir string

	windows   *csvLog
	perf      *csvLog
	bookmarks *csvLog

	snapshots int
}

// NewOutputManager opens the CSV logs under opts.Dir. It returns nil when
// both directories are empty. The snapshot directory is created on the
// first save.
func NewOutputManager(opts OutputOptions) (*OutputManager, error) {
	if opts.Dir == "" && opts.SnapshotDir == "" {
		return nil, nil
	}

	om := &OutputManager{dir: opts.Dir, snapshotDir: opts.SnapshotDir}
	if opts.Dir == "" {
		return om, nil
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var err error
	if om.windows, err = createCSV(opts.Dir, "telemetry.csv"); err != nil {
		return nil, err
	}
	if om.perf, err = createCSV(opts.Dir, "perf.csv"); err != nil {
		om.Close()
		return nil, err
	}
	if om.bookmarks, err = createCSV(opts.Dir, "bookmarks.csv"); err != nil {
		om.Close()
		return nil, err
	}
	return om, nil
}

// WriteConfig saves the configuration the run was started with.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil || om.dir == "" {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteWindow appends a flushed stats window to telemetry.csv and the perf
// summary for the same window to perf.csv.
func (om *OutputManager) WriteWindow(stats WindowStats, perf PerfStats) error {
	if om == nil {
		return nil
	}
	if err := om.windows.append([]WindowStats{stats}); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	if err := om.perf.append([]PerfStatsCSV{perf.ToCSV(stats.WindowEndTick, stats.Boids)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// RecordBookmark appends b to bookmarks.csv and saves snap tagged with the
// bookmark. snap may be nil. The returned path is empty if no snapshot was
// written.
func (om *OutputManager) RecordBookmark(b Bookmark, snap *Snapshot) (string, error) {
	if om == nil {
		return "", nil
	}
	if err := om.bookmarks.append([]Bookmark{b}); err != nil {
		return "", fmt.Errorf("writing bookmark: %w", err)
	}
	if snap == nil {
		return "", nil
	}
	snap.Bookmark = &b
	return om.SaveSnapshot(snap)
}

// SnapshotsEnabled reports whether snapshots have somewhere to go.
func (om *OutputManager) SnapshotsEnabled() bool {
	return om != nil && om.snapshotDir != ""
}

// SaveSnapshot writes snap to the snapshot directory and returns its path.
// It is a no-op when snapshots are disabled.
func (om *OutputManager) SaveSnapshot(snap *Snapshot) (string, error) {
	if !om.SnapshotsEnabled() {
		return "", nil
	}
	path, err := SaveSnapshot(snap, om.snapshotDir)
	if err != nil {
		return "", err
	}
	om.snapshots++
	return path, nil
}

// Snapshots returns how many snapshots this run has saved.
func (om *OutputManager) Snapshots() int {
	if om == nil {
		return 0
	}
	return om.snapshots
}

// Dir returns the CSV output directory.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes the CSV logs.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return errors.Join(om.windows.close(), om.perf.close(), om.bookmarks.close())
}
