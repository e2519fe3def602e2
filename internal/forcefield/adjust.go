package forcefield

// Constrained lists the bond/angle/dihedral type names that are internal to
// rigid bodies and therefore handled by the rigid constraint instead of the
// force field.
type Constrained struct {
	Bonds     []string
	Angles    []string
	Dihedrals []string
}

// Silence zeroes out interactions made redundant by rigid-body reduction:
// every pair interaction between a rigid-body type and any system type, and
// the explicitly named constrained bond/angle/dihedral types. Coefficients
// are set to neutral values rather than removed, so the engine's registries
// keep their shape. Absent keys are skipped; applying Silence twice is a
// no-op the second time.
func Silence(terms []*Term, rigidTypes, allTypes []string, c Constrained) {
	for _, term := range terms {
		switch term.Kind {
		case Pair:
			for _, r := range rigidTypes {
				for _, t := range allTypes {
					key := NewPairKey(r, t)
					if _, ok := term.Pairs[key]; !ok {
						continue
					}
					term.Pairs[key] = PairCoeffs{}
				}
			}
		case Bond:
			for _, bt := range c.Bonds {
				if _, ok := term.Bonds[bt]; !ok {
					continue
				}
				term.Bonds[bt] = BondCoeffs{}
			}
		case Angle:
			for _, at := range c.Angles {
				if _, ok := term.Angles[at]; !ok {
					continue
				}
				term.Angles[at] = AngleCoeffs{}
			}
		case Dihedral:
			for _, dt := range c.Dihedrals {
				if _, ok := term.Dihedrals[dt]; !ok {
					continue
				}
				term.Dihedrals[dt] = DihedralCoeffs{}
			}
		}
	}
}
