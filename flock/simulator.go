package flock

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/flock/config"
)

// DefaultParallelThreshold is the minimum agent count for parallel processing.
// Below this, single-threaded is faster due to goroutine overhead.
const DefaultParallelThreshold = 64

// Options controls neighbour search and parallelism.
type Options struct {
	Search    string // config.SearchBrute or config.SearchGrid
	Workers   int    // 0 = GOMAXPROCS
	Threshold int    // 0 = DefaultParallelThreshold
}

// OptionsFromConfig builds Options from a loaded config.
func OptionsFromConfig(c *config.Config) Options {
	return Options{
		Search:    c.Flock.NeighborSearch,
		Workers:   c.Parallel.Workers,
		Threshold: c.Parallel.Threshold,
	}
}

// workChunk represents a range of agents for a worker to process.
type workChunk struct {
	start, end int
	dt         float64
}

// pool holds persistent worker goroutines.
type pool struct {
	numWorkers int

	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool
}

// Simulator advances a flock one step at a time. Every step reads a
// snapshot of all agents and produces one Intent per agent; nothing is
// written until all intents are computed.
type Simulator struct {
	params    Params
	search    string
	grid      *Grid
	threshold int
	pool      pool

	// Per-step state, read-only while workers run.
	agents    []Agent
	stats     Stats
	alignment r3.Vec
	intents   []Intent
}

// NewSimulator creates a simulator. Workers are started lazily on the
// first step that exceeds the parallel threshold.
func NewSimulator(p Params, opts Options) *Simulator {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultParallelThreshold
	}

	s := &Simulator{
		params:    p,
		search:    opts.Search,
		threshold: threshold,
		pool:      pool{numWorkers: workers},
		intents:   make([]Intent, 0, 512),
	}
	if s.search == config.SearchGrid {
		s.grid = NewGrid(p.ProximityRange)
	}
	return s
}

// Params returns the simulation parameters.
func (s *Simulator) Params() Params {
	return s.params
}

// Stats returns the flock averages computed by the last step.
func (s *Simulator) Stats() Stats {
	return s.stats
}

// Step computes the next state of every agent without modifying agents.
// The returned slice is owned by the simulator and reused by the next call.
// Stepping an empty flock returns nil and changes nothing.
func (s *Simulator) Step(agents []Agent, dt float64) []Intent {
	n := len(agents)
	if n == 0 {
		s.stats = Stats{}
		return nil
	}

	// Phase A: flock-wide averages from the snapshot
	s.agents = agents
	s.stats = ComputeStats(agents)
	s.alignment = r3.Scale(s.params.InertiaFactor, s.stats.MeanVelocity)
	if s.grid != nil {
		s.grid.Rebuild(agents)
	}

	if cap(s.intents) < n {
		s.intents = make([]Intent, n)
	}
	s.intents = s.intents[:n]

	// Phase B: per-agent forces, single or parallel based on flock size
	if n < s.threshold || s.pool.numWorkers < 2 {
		s.computeChunk(0, n, dt)
	} else {
		s.computeParallel(n, dt)
	}

	s.agents = nil
	return s.intents
}

// Update steps agents and applies the result in place.
func (s *Simulator) Update(agents []Agent, dt float64) {
	intents := s.Step(agents, dt)
	Apply(agents, intents)
}

// computeChunk processes agents [i0, i1).
func (s *Simulator) computeChunk(i0, i1 int, dt float64) {
	rangeSq := s.params.ProximityRange
	for i := i0; i < i1; i++ {
		var sum r3.Vec
		var count int
		if s.grid != nil {
			sum, count = s.grid.localSum(s.agents, i)
		} else {
			sum, count = localSum(s.agents, i, rangeSq)
		}
		s.intents[i] = s.params.steer(&s.agents[i], s.stats, s.alignment, sum, count, dt)
	}
}

// computeParallel dispatches work to the worker pool and waits for it.
func (s *Simulator) computeParallel(n int, dt float64) {
	if !s.pool.running {
		s.startWorkers()
	}

	numWorkers := s.pool.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	chunksDispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		s.pool.workChan <- workChunk{start: start, end: end, dt: dt}
		chunksDispatched++
	}

	for i := 0; i < chunksDispatched; i++ {
		<-s.pool.doneChan
	}
}

// startWorkers launches persistent worker goroutines.
func (s *Simulator) startWorkers() {
	p := &s.pool
	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go s.worker()
	}
}

// worker processes chunks until stopped.
func (s *Simulator) worker() {
	p := &s.pool
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk.start, chunk.end, chunk.dt)
			p.doneChan <- struct{}{}
		}
	}
}

// Close stops the worker pool. The simulator remains usable and restarts
// workers if needed.
func (s *Simulator) Close() {
	p := &s.pool
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// Neighbors returns agent i's neighbour indices using the configured search.
// It builds its own grid, so the one used by Step is left untouched.
func (s *Simulator) Neighbors(agents []Agent, i int) []int {
	if s.grid != nil {
		g := NewGrid(s.params.ProximityRange)
		g.Rebuild(agents)
		return g.Query(agents, i)
	}
	return Neighbors(agents, i, s.params.ProximityRange)
}
