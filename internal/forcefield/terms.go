// Package forcefield models the interaction terms handed to the MD engine.
// Every term carries an explicit kind tag and a kind-specific coefficient
// registry, so callers switch on the tag rather than on concrete types.
package forcefield

import (
	"sort"

	"github.com/polymerlab/polymd/internal/walls"
)

// Kind tags a force term.
type Kind int

const (
	Pair Kind = iota
	Bond
	Angle
	Dihedral
	PairTable
	BondTable
	AngleTable
	Wall
)

func (k Kind) String() string {
	return [...]string{
		"pair", "bond", "angle", "dihedral",
		"pair_table", "bond_table", "angle_table", "wall",
	}[k]
}

// PairKey is an unordered particle-type pair.
type PairKey [2]string

// NewPairKey sorts the two type names so (a,b) and (b,a) key the same entry.
func NewPairKey(a, b string) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{a, b}
}

// PairCoeffs are Lennard-Jones style pair parameters.
type PairCoeffs struct {
	Epsilon float64
	Sigma   float64
	RCut    float64
}

// BondCoeffs are harmonic bond parameters.
type BondCoeffs struct {
	K  float64
	R0 float64
}

// AngleCoeffs are harmonic angle parameters.
type AngleCoeffs struct {
	K  float64
	T0 float64
}

// DihedralCoeffs are harmonic dihedral parameters.
type DihedralCoeffs struct {
	K    float64
	D    int
	N    int
	Phi0 float64
}

// Table holds a tabulated potential: energy and force (or torque, for
// angles) sampled on an even grid between RMin and RMax.
type Table struct {
	RMin float64
	RMax float64
	U    []float64
	F    []float64
}

// Term is one tagged interaction. Only the registry matching Kind is
// populated.
type Term struct {
	Kind Kind
	Name string

	Pairs       map[PairKey]PairCoeffs
	Bonds       map[string]BondCoeffs
	Angles      map[string]AngleCoeffs
	Dihedrals   map[string]DihedralCoeffs
	PairTables  map[PairKey]Table
	BondTables  map[string]Table
	AngleTables map[string]Table

	Walls *walls.Pair
}

// NewPair returns an empty LJ pair term.
func NewPair(name string) *Term {
	return &Term{Kind: Pair, Name: name, Pairs: make(map[PairKey]PairCoeffs)}
}

// NewBond returns an empty harmonic bond term.
func NewBond(name string) *Term {
	return &Term{Kind: Bond, Name: name, Bonds: make(map[string]BondCoeffs)}
}

// NewAngle returns an empty harmonic angle term.
func NewAngle(name string) *Term {
	return &Term{Kind: Angle, Name: name, Angles: make(map[string]AngleCoeffs)}
}

// NewDihedral returns an empty harmonic dihedral term.
func NewDihedral(name string) *Term {
	return &Term{Kind: Dihedral, Name: name, Dihedrals: make(map[string]DihedralCoeffs)}
}

// NewWall wraps a wall pair as a force term.
func NewWall(p walls.Pair) *Term {
	return &Term{Kind: Wall, Name: "walls", Walls: &p}
}

// PairKeys returns the registered pair keys in sorted order.
func (t *Term) PairKeys() []PairKey {
	keys := make([]PairKey, 0, len(t.Pairs))
	for k := range t.Pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	return keys
}
