// Package system holds the particle configuration and simulation box types
// shared by the rigid-body reducer, the force field, and the protocol engine.
package system

import (
	"fmt"
	"math"
	"strings"
)

// Vec3 is a 3-component vector in simulation units.
type Vec3 [3]float64

func (v Vec3) Add(w Vec3) Vec3      { return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]} }
func (v Vec3) Sub(w Vec3) Vec3      { return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }
func (v Vec3) Neg() Vec3            { return Vec3{-v[0], -v[1], -v[2]} }

func (v Vec3) Dot(w Vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Quat is an orientation quaternion stored (w, x, y, z).
type Quat [4]float64

// IdentityQuat is the no-rotation orientation.
func IdentityQuat() Quat { return Quat{1, 0, 0, 0} }

// Axis names one of the three Cartesian axes.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

// ParseAxis accepts "x", "y" or "z" (case-insensitive).
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return X, nil
	case "y":
		return Y, nil
	case "z":
		return Z, nil
	}
	return 0, fmt.Errorf("system: unknown axis %q", s)
}

func (a Axis) String() string {
	return [...]string{"x", "y", "z"}[a]
}

// Vec returns the unit vector along the axis.
func (a Axis) Vec() Vec3 {
	var v Vec3
	v[int(a)] = 1
	return v
}

// Box is an orthorhombic simulation box with optional tilt factors.
type Box struct {
	Lx, Ly, Lz float64
	XY, XZ, YZ float64
}

func (b Box) Volume() float64 {
	return b.Lx * b.Ly * b.Lz
}

// Lengths returns the three box extents as a vector.
func (b Box) Lengths() Vec3 {
	return Vec3{b.Lx, b.Ly, b.Lz}
}

// Length returns the extent along the given axis.
func (b Box) Length(a Axis) float64 {
	return b.Lengths()[int(a)]
}

// WithLength returns a copy of the box with the extent along a set to l.
func (b Box) WithLength(a Axis, l float64) Box {
	switch a {
	case X:
		b.Lx = l
	case Y:
		b.Ly = l
	case Z:
		b.Lz = l
	}
	return b
}

// Equal reports whether the boxes match component-wise within tol.
func (b Box) Equal(o Box, tol float64) bool {
	d := []float64{
		b.Lx - o.Lx, b.Ly - o.Ly, b.Lz - o.Lz,
		b.XY - o.XY, b.XZ - o.XZ, b.YZ - o.YZ,
	}
	for _, v := range d {
		if math.Abs(v) > tol {
			return false
		}
	}
	return true
}

// Lerp interpolates between b and o: f=0 gives b, f=1 gives o.
func (b Box) Lerp(o Box, f float64) Box {
	return Box{
		Lx: b.Lx + (o.Lx-b.Lx)*f,
		Ly: b.Ly + (o.Ly-b.Ly)*f,
		Lz: b.Lz + (o.Lz-b.Lz)*f,
		XY: b.XY + (o.XY-b.XY)*f,
		XZ: b.XZ + (o.XZ-b.XZ)*f,
		YZ: b.YZ + (o.YZ-b.YZ)*f,
	}
}
