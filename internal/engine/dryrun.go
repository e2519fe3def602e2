package engine

import (
	"math"
	"math/rand"
	"time"

	"github.com/polymerlab/polymd/internal/forcefield"
	"github.com/polymerlab/polymd/internal/system"
)

// DryRun is the reference Engine: it advances timestep counters, drifts
// particles ballistically, and fires writers on their periods, without
// evaluating any forces. It backs tests and protocol dry runs.
type DryRun struct {
	cfg     *system.Configuration
	box     system.Box
	ts      uint64
	dt      float64
	forces  []*forcefield.Term
	writers []Writer
	method  Method
	opts    MethodOptions
	nlist   NeighborList
	rng     *rand.Rand
	started time.Time
}

// NewDryRun creates a dry-run engine owning cfg.
func NewDryRun(cfg *system.Configuration, box system.Box, dt float64, seed int64) *DryRun {
	return &DryRun{
		cfg:     cfg,
		box:     box,
		dt:      dt,
		rng:     rand.New(rand.NewSource(seed)),
		started: time.Now(),
	}
}

func (d *DryRun) Timestep() uint64 { return d.ts }

// SetTimestep positions the counter, used when resuming from a checkpoint.
func (d *DryRun) SetTimestep(ts uint64) { d.ts = ts }

func (d *DryRun) Box() system.Box                     { return d.box }
func (d *DryRun) SetBox(b system.Box)                 { d.box = b }
func (d *DryRun) Snapshot() *system.Configuration     { return d.cfg.Clone() }
func (d *DryRun) SetSnapshot(c *system.Configuration) { d.cfg = c.Clone() }
func (d *DryRun) Forces() []*forcefield.Term          { return d.forces }
func (d *DryRun) AddWriter(w Writer)                  { d.writers = append(d.writers, w) }

func (d *DryRun) AttachForce(t *forcefield.Term) {
	d.forces = append(d.forces, t)
}

func (d *DryRun) DetachForce(t *forcefield.Term) bool {
	for i, f := range d.forces {
		if f == t {
			d.forces = append(d.forces[:i], d.forces[i+1:]...)
			return true
		}
	}
	return false
}

func (d *DryRun) SetMethod(m Method, opts MethodOptions) {
	d.method = m
	d.opts = opts
}

func (d *DryRun) Method() (Method, MethodOptions) {
	return d.method, d.opts
}

func (d *DryRun) SetNeighborList(n NeighborList) { d.nlist = n }
func (d *DryRun) NeighborList() NeighborList     { return d.nlist }

// Thermalize draws Maxwell-Boltzmann velocities at kT for the group (nil =
// all particles). Massless particles keep zero velocity.
func (d *DryRun) Thermalize(group []int, kT float64) {
	if group == nil {
		group = make([]int, d.cfg.N())
		for i := range group {
			group[i] = i
		}
	}
	for _, i := range group {
		m := d.cfg.Masses[i]
		if m <= 0 {
			continue
		}
		sigma := math.Sqrt(kT / m)
		d.cfg.Velocities[i] = system.Vec3{
			d.rng.NormFloat64() * sigma,
			d.rng.NormFloat64() * sigma,
			d.rng.NormFloat64() * sigma,
		}
	}
}

// Run advances the timestep, free-flighting particle positions and firing
// writers whose period divides the timestep. Writer errors propagate.
func (d *DryRun) Run(steps uint64) error {
	end := d.ts + steps
	for d.ts < end {
		next := end
		for _, w := range d.writers {
			p := w.Period()
			if p == 0 {
				continue
			}
			boundary := (d.ts/p + 1) * p
			if boundary < next {
				next = boundary
			}
		}
		d.drift(next - d.ts)
		d.ts = next
		for _, w := range d.writers {
			if p := w.Period(); p != 0 && d.ts%p == 0 {
				if err := w.Act(d.ts, d); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (d *DryRun) drift(steps uint64) {
	dt := d.dt * float64(steps)
	group := d.opts.Group
	if group == nil {
		for i := range d.cfg.Positions {
			d.cfg.Positions[i] = d.cfg.Positions[i].Add(d.cfg.Velocities[i].Scale(dt))
		}
		return
	}
	for _, i := range group {
		d.cfg.Positions[i] = d.cfg.Positions[i].Add(d.cfg.Velocities[i].Scale(dt))
	}
}

func (d *DryRun) Walltime() time.Duration {
	return time.Since(d.started)
}
