// Package rigid reduces groups of constituent particles into composite rigid
// bodies: one parent particle per group carrying the aggregate mass, the
// center of mass, and the moment-of-inertia tensor, plus a template of
// constituent offsets in the body frame.
package rigid

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/polymerlab/polymd/internal/system"
)

// Domain errors.
var (
	// ErrZeroMass indicates a rigid group whose constituents sum to zero
	// mass, leaving the center of mass undefined.
	ErrZeroMass = errors.New("rigid: rigid group has zero total mass")
)

// Constituent records one member of a rigid body relative to the body frame.
type Constituent struct {
	Offset      system.Vec3
	Type        string
	Charge      float64
	Orientation system.Quat
	Diameter    float64
}

// Body is one reduced rigid body.
type Body struct {
	Tag          int
	Type         string
	Mass         float64
	COM          system.Vec3
	Inertia      *mat.SymDense
	Constituents []Constituent
	Indices      []int
}

// Reduce computes one Body per distinct non-negative group id and writes the
// reduced parent records into the first len(bodies) particle slots of cfg:
// position becomes the center of mass, mass the constituent sum, the body
// tag links parent and constituents, and the principal moments are stored on
// the parent.
//
// groupIDs holds one entry per constituent particle; entry i describes the
// particle at index i+N where N is the number of distinct groups. The caller
// lays out cfg as {bodies 0..N-1, constituents N..} before reducing. With no
// rigid groups present, Reduce is a no-op.
func Reduce(cfg *system.Configuration, groupIDs []int) ([]Body, error) {
	groups := make(map[int][]int)
	for i, id := range groupIDs {
		if id < 0 {
			continue
		}
		groups[id] = append(groups[id], i)
	}
	if len(groups) == 0 {
		return nil, nil
	}

	n := len(groups)
	if len(groupIDs)+n != cfg.N() {
		return nil, fmt.Errorf("rigid: %d group entries + %d body slots != %d particles",
			len(groupIDs), n, cfg.N())
	}

	tags := make([]int, 0, n)
	for id := range groups {
		tags = append(tags, id)
	}
	sort.Ints(tags)

	bodies := make([]Body, 0, n)
	for slot, tag := range tags {
		inds := make([]int, len(groups[tag]))
		for k, i := range groups[tag] {
			inds[k] = i + n
		}

		var mass float64
		for _, i := range inds {
			mass += cfg.Masses[i]
		}
		if mass == 0 {
			return nil, fmt.Errorf("%w: group %d", ErrZeroMass, tag)
		}

		var com system.Vec3
		for _, i := range inds {
			com = com.Add(cfg.Positions[i].Scale(cfg.Masses[i]))
		}
		com = com.Scale(1 / mass)

		inertia := MomentOfInertia(cfg, inds, com)

		cfg.Positions[slot] = com
		cfg.Masses[slot] = mass
		cfg.Bodies[slot] = slot
		cfg.MomentsOfInertia[slot] = system.Vec3{
			inertia.At(0, 0), inertia.At(1, 1), inertia.At(2, 2),
		}
		for _, i := range inds {
			cfg.Bodies[i] = slot
		}

		consts := make([]Constituent, len(inds))
		for k, i := range inds {
			consts[k] = Constituent{
				Offset:      cfg.Positions[i].Sub(com),
				Type:        cfg.TypeName(i),
				Charge:      cfg.Charges[i],
				Orientation: cfg.Orientations[i],
				Diameter:    cfg.Diameters[i],
			}
		}

		bodies = append(bodies, Body{
			Tag:          slot,
			Type:         cfg.TypeName(slot),
			Mass:         mass,
			COM:          com,
			Inertia:      inertia,
			Constituents: consts,
			Indices:      inds,
		})
	}
	return bodies, nil
}

// MomentOfInertia computes the 3x3 inertia tensor of the given particles
// about center: I = sum_i m_i (|d_i|^2 E - d_i d_i^T) with d_i the offset
// from center.
func MomentOfInertia(cfg *system.Configuration, inds []int, center system.Vec3) *mat.SymDense {
	t := mat.NewSymDense(3, nil)
	for _, i := range inds {
		d := cfg.Positions[i].Sub(center)
		m := cfg.Masses[i]
		r2 := d.Dot(d)
		for a := 0; a < 3; a++ {
			for b := a; b < 3; b++ {
				v := t.At(a, b) - m*d[a]*d[b]
				if a == b {
					v += m * r2
				}
				t.SetSym(a, b, v)
			}
		}
	}
	return t
}
