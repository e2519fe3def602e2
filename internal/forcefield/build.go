package forcefield

import "github.com/polymerlab/polymd/internal/system"

// defaultRCut applies to pair entries that leave the cutoff unset.
const defaultRCut = 2.5

// FromParams converts snapshot force-term parameters into tagged terms, one
// term per populated category. An empty or nil parameter set yields no
// terms.
func FromParams(ff *system.ForceField) []*Term {
	if ff == nil {
		return nil
	}
	var terms []*Term

	if len(ff.Pairs) > 0 {
		pair := NewPair("lj")
		for _, p := range ff.Pairs {
			rcut := p.RCut
			if rcut == 0 {
				rcut = defaultRCut
			}
			pair.Pairs[NewPairKey(p.Types[0], p.Types[1])] = PairCoeffs{
				Epsilon: p.Epsilon,
				Sigma:   p.Sigma,
				RCut:    rcut,
			}
		}
		terms = append(terms, pair)
	}
	if len(ff.Bonds) > 0 {
		bond := NewBond("harmonic_bond")
		for _, b := range ff.Bonds {
			bond.Bonds[b.Type] = BondCoeffs{K: b.K, R0: b.R0}
		}
		terms = append(terms, bond)
	}
	if len(ff.Angles) > 0 {
		angle := NewAngle("harmonic_angle")
		for _, a := range ff.Angles {
			angle.Angles[a.Type] = AngleCoeffs{K: a.K, T0: a.T0}
		}
		terms = append(terms, angle)
	}
	if len(ff.Dihedrals) > 0 {
		dih := NewDihedral("harmonic_dihedral")
		for _, d := range ff.Dihedrals {
			dih.Dihedrals[d.Type] = DihedralCoeffs{K: d.K, D: d.D, N: d.N, Phi0: d.Phi0}
		}
		terms = append(terms, dih)
	}
	return terms
}
