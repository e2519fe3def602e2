// Package protocol drives staged MD simulation protocols: volume shrinking,
// thermal quenching, temperature ramps, multi-stage annealing, and tensile
// testing. It owns the
// ensemble transitions, box-resize scheduling, wall-potential lifecycle, and
// checkpoint discipline; the integration itself is delegated to an
// engine.Engine.
package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/polymerlab/polymd/internal/checkpoint"
	"github.com/polymerlab/polymd/internal/engine"
	"github.com/polymerlab/polymd/internal/forcefield"
	"github.com/polymerlab/polymd/internal/system"
	"github.com/polymerlab/polymd/internal/units"
	"github.com/polymerlab/polymd/internal/walls"
)

// Domain errors.
var (
	// ErrWallsWithPressure indicates a constant-pressure run was requested
	// while wall potentials are active. Boundary walls assume a fixed box;
	// NPT fluctuates it.
	ErrWallsWithPressure = errors.New("protocol: wall potentials can only be used with the NVT ensemble")

	// ErrBoxMismatch indicates the box after shrinking does not equal the
	// target box. This is an engine/protocol desynchronization, not a user
	// error.
	ErrBoxMismatch = errors.New("protocol: final box does not match target after shrink")

	// ErrNoTargetBox indicates shrink was invoked without a target box.
	ErrNoTargetBox = errors.New("protocol: shrink requires a target box")
)

// State names the protocol stage currently driving the engine.
type State int

const (
	Idle State = iota
	Shrinking
	Quenching
	Annealing
	TensileTesting
	TempRamping
)

func (s State) String() string {
	return [...]string{"idle", "shrinking", "quenching", "annealing", "tensile", "temp-ramp"}[s]
}

// boxTol is the component-wise tolerance for the post-shrink box check.
const boxTol = 1e-9

// defaultChunk bounds a single engine.Run call; the wall-clock budget is
// polled between chunks, so a chunk is also the cancellation resolution.
const defaultChunk = 10_000

// Options configures a Simulation. Zero values take the documented defaults.
type Options struct {
	DT            float64       // integration timestep, default 0.0003
	TauKT         float64       // thermostat coupling period, default 0.1
	TauP          float64       // barostat coupling period
	RCut          float64       // pair cutoff, default 2.5
	WallAxis      *system.Axis  // axis normal to confinement walls, nil = none
	TargetBox     system.Box    // shrink target
	WallTimeLimit time.Duration // wall-clock budget, 0 = unlimited
	Checkpoint    string        // checkpoint path, default "restart.ckpt"
	ChunkSize     uint64        // steps per engine.Run call, default 10000

	// OnChunk, when set, observes status between chunks on the driving
	// thread.
	OnChunk func(Status)
}

// Status is a point-in-time view of a running protocol.
type Status struct {
	State    State
	Timestep uint64
	KT       float64
	Box      system.Box
	Walltime time.Duration
}

// Report summarizes one protocol invocation. EarlyStop marks a run cut short
// by the wall-clock budget; that is a valid outcome, not an error, and the
// checkpoint is written either way.
type Report struct {
	Steps     uint64
	EarlyStop bool
}

// Simulation is the protocol state machine. It exclusively owns the engine
// it drives; all calls are synchronous and single-threaded.
type Simulation struct {
	eng       engine.Engine
	ref       units.Reference
	opts      Options
	state     State
	ranShrink bool
	wallForce *forcefield.Term
}

// New binds a protocol state machine to an engine. The reduced-unit
// reference must be fixed before any protocol runs; it cannot change once
// integration starts. When a wall axis is configured, the initial wall pair
// is built from the current box and attached immediately.
func New(eng engine.Engine, ref units.Reference, opts Options) (*Simulation, error) {
	if !ref.Valid() {
		return nil, fmt.Errorf("%w (distance/mass/energy)", units.ErrMissingReference)
	}
	if opts.DT == 0 {
		opts.DT = 0.0003
	}
	if opts.TauKT == 0 {
		opts.TauKT = 0.1
	}
	if opts.RCut == 0 {
		opts.RCut = 2.5
	}
	if opts.Checkpoint == "" {
		opts.Checkpoint = "restart.ckpt"
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = defaultChunk
	}

	s := &Simulation{eng: eng, ref: ref, opts: opts}
	if opts.WallAxis != nil {
		pair := walls.BuildForBox(*opts.WallAxis, eng.Box())
		s.wallForce = forcefield.NewWall(pair)
		eng.AttachForce(s.wallForce)
	}
	return s, nil
}

// SetOnChunk installs the between-chunk status observer. It must not be
// called while a stage is running.
func (s *Simulation) SetOnChunk(fn func(Status)) { s.opts.OnChunk = fn }

// State returns the current protocol stage.
func (s *Simulation) State() State { return s.state }

// RanShrink reports whether a shrink stage has completed.
func (s *Simulation) RanShrink() bool { return s.ranShrink }

// Engine exposes the driven engine, e.g. for wiring writers.
func (s *Simulation) Engine() engine.Engine { return s.eng }

// Reference returns the reduced-unit reference scales.
func (s *Simulation) Reference() units.Reference { return s.ref }

func (s *Simulation) status() Status {
	st := Status{
		State:    s.state,
		Timestep: s.eng.Timestep(),
		Box:      s.eng.Box(),
		Walltime: s.eng.Walltime(),
	}
	if _, mo := s.eng.Method(); mo.KT != nil {
		st.KT = mo.KT.At(st.Timestep)
	}
	return st
}

func (s *Simulation) notify() {
	if s.opts.OnChunk != nil {
		s.opts.OnChunk(s.status())
	}
}

// runChunked advances the engine by steps in bounded chunks, polling the
// wall-clock budget between chunks. An in-flight chunk always completes; the
// run may stop early but never mid-chunk.
func (s *Simulation) runChunked(steps uint64) (ran uint64, earlyStop bool, err error) {
	start := s.eng.Timestep()
	target := start + steps
	for s.eng.Timestep() < target {
		chunk := target - s.eng.Timestep()
		if chunk > s.opts.ChunkSize {
			chunk = s.opts.ChunkSize
		}
		if err := s.eng.Run(chunk); err != nil {
			return s.eng.Timestep() - start, false, err
		}
		s.notify()
		if s.opts.WallTimeLimit > 0 && s.eng.Walltime() >= s.opts.WallTimeLimit {
			return s.eng.Timestep() - start, true, nil
		}
	}
	return s.eng.Timestep() - start, false, nil
}

// writeCheckpoint persists the full engine state. Called from defers so a
// checkpoint lands on every protocol exit path.
func (s *Simulation) writeCheckpoint() error {
	return checkpoint.Write(s.opts.Checkpoint, checkpoint.Snapshot{
		Timestep: s.eng.Timestep(),
		Box:      s.eng.Box(),
		Config:   s.eng.Snapshot(),
	})
}

// finish resets the stage and writes the unconditional checkpoint,
// preserving the first error.
func (s *Simulation) finish(err *error) {
	s.state = Idle
	if cerr := s.writeCheckpoint(); cerr != nil && *err == nil {
		*err = cerr
	}
}

// refreshWalls rebuilds the wall pair for the current box and swaps it into
// the active force list: detach stale, attach fresh. Pairs are regenerated,
// never mutated.
func (s *Simulation) refreshWalls() {
	if s.wallForce == nil {
		return
	}
	pair := walls.BuildForBox(*s.opts.WallAxis, s.eng.Box())
	next := forcefield.NewWall(pair)
	s.eng.DetachForce(s.wallForce)
	s.eng.AttachForce(next)
	s.wallForce = next
}

func (s *Simulation) allIndices() []int {
	n := s.eng.Snapshot().N()
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	return all
}
