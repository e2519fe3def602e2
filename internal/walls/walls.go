// Package walls builds the planar confinement potentials used to cap the
// simulation box along one axis.
package walls

import (
	"github.com/polymerlab/polymd/internal/system"
)

// Plane is a single wall: a point on the plane and its normal. The normal
// points toward the particles the wall repels.
type Plane struct {
	Origin system.Vec3
	Normal system.Vec3
}

// Pair is two parallel planes capping the box along one axis, plus the LJ
// parameters applied to every particle type.
type Pair struct {
	Planes  [2]Plane
	Epsilon float64
	Sigma   float64
	RCut    float64
	RExtrap float64
}

// Build returns wall planes for the current box extents. The planes sit at
// +L/2 and -L/2 along axis with normals pointing inward. A pair is never
// mutated after construction; when the box changes the caller builds a fresh
// pair and swaps it into the force list.
func Build(axis system.Axis, lx, ly, lz float64) Pair {
	a := axis.Vec()
	origin := system.Vec3{a[0] * lx / 2, a[1] * ly / 2, a[2] * lz / 2}
	return Pair{
		Planes: [2]Plane{
			{Origin: origin, Normal: a.Neg()},
			{Origin: origin.Neg(), Normal: a},
		},
		Epsilon: 1.0,
		Sigma:   1.0,
		RCut:    2.5,
		RExtrap: 0,
	}
}

// BuildForBox is Build with extents taken from the box.
func BuildForBox(axis system.Axis, box system.Box) Pair {
	return Build(axis, box.Lx, box.Ly, box.Lz)
}
