package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/flock"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the complete flock state for replay.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`
	Tick    int32 `json:"tick"`

	Params flock.Params `json:"params"`
	Boids  []BoidState  `json:"boids"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// BoidState holds one boid's complete state.
type BoidState struct {
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`

	// Orientation basis columns
	Right [3]float64 `json:"right"`
	Up    [3]float64 `json:"up"`
	Back  [3]float64 `json:"back"`
}

func toArray(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func fromArray(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }

// NewSnapshot captures agents at the given tick.
func NewSnapshot(seed int64, tick int32, p flock.Params, agents []flock.Agent) *Snapshot {
	s := &Snapshot{
		Version: SnapshotVersion,
		RNGSeed: seed,
		Tick:    tick,
		Params:  p,
		Boids:   make([]BoidState, len(agents)),
	}
	for i, a := range agents {
		s.Boids[i] = BoidState{
			Position: toArray(a.Position),
			Velocity: toArray(a.Velocity),
			Right:    toArray(a.Rotation.Right),
			Up:       toArray(a.Rotation.Up),
			Back:     toArray(a.Rotation.Back),
		}
	}
	return s
}

// Agents converts the stored boids back to agents.
func (s *Snapshot) Agents() []flock.Agent {
	agents := make([]flock.Agent, len(s.Boids))
	for i, b := range s.Boids {
		agents[i] = flock.Agent{
			Position: fromArray(b.Position),
			Velocity: fromArray(b.Velocity),
			Rotation: components.Basis{
				Right: fromArray(b.Right),
				Up:    fromArray(b.Up),
				Back:  fromArray(b.Back),
			},
		}
	}
	return agents
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk and checks its version.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot %s: version %d, want %d", path, snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
