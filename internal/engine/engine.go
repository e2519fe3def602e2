// Package engine defines the narrow interface the protocol layer requires of
// an MD engine, plus a bookkeeping reference backend. Force evaluation,
// neighbor lists, and parallel dispatch belong to the real engine behind the
// interface and are opaque here.
package engine

import (
	"time"

	"github.com/polymerlab/polymd/internal/forcefield"
	"github.com/polymerlab/polymd/internal/system"
)

// Method selects the integration ensemble.
type Method int

const (
	NVT Method = iota
	NPT
	NVE
)

func (m Method) String() string {
	return [...]string{"NVT", "NPT", "NVE"}[m]
}

// NeighborList selects the pair neighbor-search structure. Cell lists are
// the default; tree lists stay efficient at very low density.
type NeighborList int

const (
	CellList NeighborList = iota
	TreeList
)

func (n NeighborList) String() string {
	return [...]string{"cell", "tree"}[n]
}

// Variant is a scalar re-evaluated at each timestep, used for setpoints that
// ramp over a run.
type Variant interface {
	At(timestep uint64) float64
}

// Constant is a Variant with a fixed value.
type Constant float64

func (c Constant) At(uint64) float64 { return float64(c) }

// Ramp interpolates linearly from A to B over TRamp steps starting at
// TStart, clamping outside the interval.
type Ramp struct {
	A, B   float64
	TStart uint64
	TRamp  uint64
}

func (r Ramp) At(ts uint64) float64 {
	if ts <= r.TStart || r.TRamp == 0 {
		return r.A
	}
	if ts >= r.TStart+r.TRamp {
		return r.B
	}
	f := float64(ts-r.TStart) / float64(r.TRamp)
	return r.A + (r.B-r.A)*f
}

// MethodOptions parameterizes the active integration method. Group is the
// set of particle indices to integrate; nil means all particles.
type MethodOptions struct {
	KT       Variant
	Tau      float64
	Pressure float64
	TauS     float64
	Couple   string
	Group    []int
}

// Writer is a periodic observer fired on timestep multiples of its period.
type Writer interface {
	Period() uint64
	Act(timestep uint64, eng Engine) error
}

// Engine is the surface the protocol layer drives. Implementations own the
// integration loop; calls are synchronous and single-threaded.
type Engine interface {
	Timestep() uint64
	Box() system.Box
	SetBox(system.Box)
	Snapshot() *system.Configuration
	SetSnapshot(*system.Configuration)

	Forces() []*forcefield.Term
	AttachForce(*forcefield.Term)
	DetachForce(*forcefield.Term) bool

	SetMethod(Method, MethodOptions)
	Method() (Method, MethodOptions)
	SetNeighborList(NeighborList)
	NeighborList() NeighborList
	Thermalize(group []int, kT float64)

	Run(steps uint64) error
	Walltime() time.Duration
	AddWriter(Writer)
}
