package flock

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type cellKey struct {
	x, y, z int
}

// Grid is a uniform spatial hash over agent indices. With the cell edge
// equal to the proximity radius, every neighbour of an agent lies in the
// 3x3x3 block of cells around it, so queries match a full scan.
// The grid is unbounded: boids outside the flocking volume still hash.
type Grid struct {
	cellSize float64
	rangeSq  float64
	cells    map[cellKey][]int
}

// NewGrid creates a grid for the given squared proximity range.
func NewGrid(rangeSq float64) *Grid {
	g := &Grid{cells: make(map[cellKey][]int)}
	g.SetRange(rangeSq)
	return g
}

// SetRange updates the squared range and cell size. Call Rebuild afterwards.
func (g *Grid) SetRange(rangeSq float64) {
	g.rangeSq = rangeSq
	cs := math.Sqrt(math.Max(rangeSq, 0))
	// A rounded-down square root lets a pair within range sit two cells apart.
	for cs*cs < rangeSq {
		cs = math.Nextafter(cs, math.Inf(1))
	}
	g.cellSize = cs
	clear(g.cells)
}

// Rebuild indexes the positions of agents. Cell slices keep their capacity
// between frames.
func (g *Grid) Rebuild(agents []Agent) {
	if g.cellSize == 0 {
		return
	}
	// Stale cells accumulate as the flock drifts; drop them once the map is
	// much larger than the population.
	if len(g.cells) > 4*len(agents)+64 {
		clear(g.cells)
	}
	for k := range g.cells {
		g.cells[k] = g.cells[k][:0]
	}
	for i := range agents {
		key := g.key(agents[i].Position)
		g.cells[key] = append(g.cells[key], i)
	}
}

func (g *Grid) key(p r3.Vec) cellKey {
	return cellKey{
		x: int(math.Floor(p.X / g.cellSize)),
		y: int(math.Floor(p.Y / g.cellSize)),
		z: int(math.Floor(p.Z / g.cellSize)),
	}
}

// localSum accumulates neighbour positions of agent i from the 27 cells
// around it. It only reads the grid and agents.
func (g *Grid) localSum(agents []Agent, i int) (sum r3.Vec, count int) {
	if g.cellSize == 0 {
		return sum, 0
	}
	me := agents[i].Position
	c := g.key(me)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				for _, j := range g.cells[cellKey{x: c.x + dx, y: c.y + dy, z: c.z + dz}] {
					if j == i {
						continue
					}
					if IsNeighbor(me, agents[j].Position, g.rangeSq) {
						sum = r3.Add(sum, agents[j].Position)
						count++
					}
				}
			}
		}
	}
	return sum, count
}

// Query returns the indices of agent i's neighbours.
func (g *Grid) Query(agents []Agent, i int) []int {
	if g.cellSize == 0 {
		return nil
	}
	var out []int
	me := agents[i].Position
	c := g.key(me)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				for _, j := range g.cells[cellKey{x: c.x + dx, y: c.y + dy, z: c.z + dz}] {
					if j != i && IsNeighbor(me, agents[j].Position, g.rangeSq) {
						out = append(out, j)
					}
				}
			}
		}
	}
	return out
}
