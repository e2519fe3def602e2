package protocol

import (
	"fmt"

	"github.com/polymerlab/polymd/internal/engine"
	"github.com/polymerlab/polymd/internal/system"
)

// ShrinkParams configures a volume-shrinking stage.
type ShrinkParams struct {
	Steps   uint64
	KTInit  float64
	KTFinal float64
	Period  uint64 // steps between box updates, default 10

	// TreeNeighborList switches the engine to a tree neighbor list for the
	// duration of the stage, useful for very low starting densities. The
	// previous flavor is restored when the stage ends.
	TreeNeighborList bool
}

// Shrink runs NVT with a linear temperature ramp while shrinking the box to
// the configured target. Every Period steps the box is set from a normalized
// [0,1] ramp; active wall potentials are rebuilt after each resize. The
// stage ends with the box exactly equal to the target; anything else is a
// fatal invariant violation.
func (s *Simulation) Shrink(p ShrinkParams) (r Report, err error) {
	if s.opts.TargetBox == (system.Box{}) {
		return r, ErrNoTargetBox
	}
	if p.Period == 0 {
		p.Period = 10
	}
	s.state = Shrinking
	defer s.finish(&err)

	if p.TreeNeighborList {
		prev := s.eng.NeighborList()
		s.eng.SetNeighborList(engine.TreeList)
		defer s.eng.SetNeighborList(prev)
	}

	ts0 := s.eng.Timestep()
	s.eng.SetMethod(engine.NVT, engine.MethodOptions{
		KT:  engine.Ramp{A: p.KTInit, B: p.KTFinal, TStart: ts0, TRamp: p.Steps},
		Tau: s.opts.TauKT,
	})
	s.eng.Thermalize(nil, p.KTInit)

	boxRamp := engine.Ramp{A: 0, B: 1, TStart: ts0, TRamp: p.Steps}
	initial := s.eng.Box()
	target := s.opts.TargetBox

	for s.eng.Timestep() < ts0+p.Steps {
		step := min(p.Period, ts0+p.Steps-s.eng.Timestep())
		if err := s.eng.Run(step); err != nil {
			return Report{Steps: s.eng.Timestep() - ts0}, err
		}
		s.eng.SetBox(initial.Lerp(target, boxRamp.At(s.eng.Timestep())))
		s.refreshWalls()
		s.notify()
	}
	r.Steps = s.eng.Timestep() - ts0

	if !s.eng.Box().Equal(target, boxTol) {
		return r, fmt.Errorf("%w: got %+v, want %+v", ErrBoxMismatch, s.eng.Box(), target)
	}
	s.ranShrink = true
	return r, nil
}

// QuenchParams configures a constant-setpoint stage. Pressure zero selects
// NVT; any other value selects NPT at that pressure.
type QuenchParams struct {
	Steps    uint64
	KT       float64
	Pressure float64
}

// Quench runs at a single temperature (NVT) or temperature and pressure
// (NPT). Requesting pressure while wall potentials are active fails before
// any engine state mutates. The run is chunked against the wall-clock
// budget; stopping early is a reported outcome, not an error.
func (s *Simulation) Quench(p QuenchParams) (r Report, err error) {
	if s.wallForce != nil && p.Pressure != 0 {
		return r, ErrWallsWithPressure
	}
	s.state = Quenching
	defer s.finish(&err)

	s.setMethod(engine.Constant(p.KT), p.Pressure)
	s.eng.Thermalize(nil, p.KT)

	ran, early, err := s.runChunked(p.Steps)
	return Report{Steps: ran, EarlyStop: early}, err
}

// TempRampParams configures a linear setpoint ramp between two temperatures.
// Pressure zero selects NVT; any other value selects NPT at that pressure.
type TempRampParams struct {
	Steps    uint64
	KTInit   float64
	KTFinal  float64
	Pressure float64
}

// TempRamp runs NVT or NPT with the temperature setpoint ramping linearly
// from KTInit to KTFinal over the stage. Velocities are re-randomized at
// KTInit before the run. The wall/pressure exclusion and the chunked
// wall-clock handling match Quench.
func (s *Simulation) TempRamp(p TempRampParams) (r Report, err error) {
	if s.wallForce != nil && p.Pressure != 0 {
		return r, ErrWallsWithPressure
	}
	s.state = TempRamping
	defer s.finish(&err)

	s.setMethod(engine.Ramp{
		A:      p.KTInit,
		B:      p.KTFinal,
		TStart: s.eng.Timestep(),
		TRamp:  p.Steps,
	}, p.Pressure)
	s.eng.Thermalize(nil, p.KTInit)

	ran, early, err := s.runChunked(p.Steps)
	return Report{Steps: ran, EarlyStop: early}, err
}

// AnnealParams configures a multi-stage anneal. Schedule takes precedence;
// otherwise stages are built from KTInit/KTFinal across StepSequence.
type AnnealParams struct {
	KTInit       float64
	KTFinal      float64
	StepSequence []uint64
	Schedule     Schedule
	Pressure     float64
}

// Anneal iterates temperature stages in order: set the setpoint,
// re-randomize velocities at it, run the stage's steps. The wall/pressure
// exclusion matches Quench. One checkpoint is written at the end of the
// invocation, not per stage.
func (s *Simulation) Anneal(p AnnealParams) (r Report, err error) {
	if s.wallForce != nil && p.Pressure != 0 {
		return r, ErrWallsWithPressure
	}
	sched := p.Schedule
	if len(sched) == 0 {
		sched = BuildSchedule(p.KTInit, p.KTFinal, p.StepSequence)
	}
	if len(sched) == 0 {
		return r, fmt.Errorf("protocol: anneal needs a schedule or a step sequence")
	}
	s.state = Annealing
	defer s.finish(&err)

	for _, stage := range sched {
		s.setMethod(engine.Constant(stage.KT), p.Pressure)
		s.eng.Thermalize(nil, stage.KT)
		ran, early, err := s.runChunked(stage.Steps)
		r.Steps += ran
		if err != nil {
			return r, err
		}
		if early {
			r.EarlyStop = true
			return r, nil
		}
	}
	return r, nil
}

// TensileParams configures a tensile test along one axis.
type TensileParams struct {
	KT           float64
	Strain       float64 // fractional extension of the initial axis length
	Steps        uint64
	ExpandPeriod uint64
	Axis         system.Axis
	FixRatio     float64 // total fixed fraction of the length, split across both slabs, default 0.05
}

// Tensile pulls the box along an axis. Particles within FixRatio/2 of either
// boundary are frozen; the rest integrate under NVE. Every ExpandPeriod
// steps the box extends toward length*(1+strain) and the fixed slabs are
// rigidly translated outward by half the length delta each, keeping them
// centered on the moving boundaries.
func (s *Simulation) Tensile(p TensileParams) (r Report, err error) {
	if p.FixRatio == 0 {
		p.FixRatio = 0.05
	}
	if p.ExpandPeriod == 0 {
		p.ExpandPeriod = 10
	}

	initBox := s.eng.Box()
	initLen := initBox.Length(p.Axis)
	targetLen := initLen * (1 + p.Strain)
	left, right, free := TensileGroups(s.eng.Snapshot(), p.Axis, initBox, p.FixRatio)

	s.state = TensileTesting
	defer s.finish(&err)

	s.eng.SetMethod(engine.NVE, engine.MethodOptions{Group: free})
	s.eng.Thermalize(free, p.KT)

	ts0 := s.eng.Timestep()
	ramp := engine.Ramp{A: 0, B: 1, TStart: ts0, TRamp: p.Steps}
	shift := p.Axis.Vec()
	lastLen := initLen

	for s.eng.Timestep() < ts0+p.Steps {
		step := min(p.ExpandPeriod, ts0+p.Steps-s.eng.Timestep())
		if err := s.eng.Run(step); err != nil {
			return Report{Steps: s.eng.Timestep() - ts0}, err
		}

		newLen := initLen + (targetLen-initLen)*ramp.At(s.eng.Timestep())
		s.eng.SetBox(s.eng.Box().WithLength(p.Axis, newLen))

		half := (newLen - lastLen) / 2
		snap := s.eng.Snapshot()
		for _, i := range left {
			snap.Positions[i] = snap.Positions[i].Sub(shift.Scale(half))
		}
		for _, i := range right {
			snap.Positions[i] = snap.Positions[i].Add(shift.Scale(half))
		}
		s.eng.SetSnapshot(snap)
		lastLen = newLen

		s.notify()
		if s.opts.WallTimeLimit > 0 && s.eng.Walltime() >= s.opts.WallTimeLimit {
			return Report{Steps: s.eng.Timestep() - ts0, EarlyStop: true}, nil
		}
	}
	return Report{Steps: s.eng.Timestep() - ts0}, nil
}

// TensileGroups partitions particle indices along axis into left-fixed,
// right-fixed, and free groups. fixRatio is the total fixed fraction of the
// length, split evenly across the two slabs, so each slab spans
// fixRatio*length/2 from its boundary; the free group is everything else and
// the three groups cover all particles exactly once.
func TensileGroups(cfg *system.Configuration, axis system.Axis, box system.Box, fixRatio float64) (left, right, free []int) {
	length := box.Length(axis)
	fixLen := length * fixRatio / 2
	boxMax := length / 2
	boxMin := -boxMax

	fixed := make(map[int]bool, cfg.N())
	for i, pos := range cfg.Positions {
		c := pos[int(axis)]
		if c < boxMin+fixLen {
			left = append(left, i)
			fixed[i] = true
		}
		if c > boxMax-fixLen {
			right = append(right, i)
			fixed[i] = true
		}
	}
	for i := 0; i < cfg.N(); i++ {
		if !fixed[i] {
			free = append(free, i)
		}
	}
	return left, right, free
}

func (s *Simulation) setMethod(kT engine.Variant, pressure float64) {
	if pressure != 0 {
		s.eng.SetMethod(engine.NPT, engine.MethodOptions{
			KT:       kT,
			Tau:      s.opts.TauKT,
			Pressure: pressure,
			TauS:     s.opts.TauP,
			Couple:   "xyz",
		})
		return
	}
	s.eng.SetMethod(engine.NVT, engine.MethodOptions{
		KT:  kT,
		Tau: s.opts.TauKT,
	})
}
