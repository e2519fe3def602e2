// Package units defines the reduced-unit reference scales. All physical
// quantities in a simulation are expressed relative to one Reference, fixed
// before the first protocol runs and unchanged for the simulation lifetime.
package units

import (
	"errors"

	"github.com/polymerlab/polymd/internal/forcefield"
	"github.com/polymerlab/polymd/internal/system"
)

// Domain errors.
var (
	// ErrMissingReference indicates reference scales were neither supplied
	// nor derivable from the force field.
	ErrMissingReference = errors.New("units: reference scales required; auto-scaling needs LJ pair coefficients")
)

// Reference holds the distance, mass, and energy scales that reduced units
// are measured against.
type Reference struct {
	Distance float64
	Mass     float64
	Energy   float64
}

// Valid reports whether all three scales are set.
func (r Reference) Valid() bool {
	return r.Distance > 0 && r.Mass > 0 && r.Energy > 0
}

// AutoScale derives reference scales from the system: the largest particle
// mass, and the largest epsilon and sigma across all LJ pair coefficients.
// Tabulated force fields carry no LJ coefficients, so coarse-grained systems
// must supply references explicitly; asking to auto-scale one fails.
func AutoScale(cfg *system.Configuration, terms []*forcefield.Term) (Reference, error) {
	var ref Reference
	for _, m := range cfg.Masses {
		if m > ref.Mass {
			ref.Mass = m
		}
	}
	found := false
	for _, term := range terms {
		if term.Kind != forcefield.Pair {
			continue
		}
		for _, c := range term.Pairs {
			found = true
			if c.Epsilon > ref.Energy {
				ref.Energy = c.Epsilon
			}
			if c.Sigma > ref.Distance {
				ref.Distance = c.Sigma
			}
		}
	}
	if !found || !ref.Valid() {
		return Reference{}, ErrMissingReference
	}
	return ref, nil
}
