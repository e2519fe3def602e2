package system

// Bond joins two particles by index.
type Bond struct {
	Type string
	A, B int
}

// Angle spans three bonded particles.
type Angle struct {
	Type    string
	A, B, C int
}

// Dihedral spans four bonded particles.
type Dihedral struct {
	Type       string
	A, B, C, D int
}

// Configuration is a struct-of-arrays particle snapshot. All per-particle
// slices share one length; TypeIDs index into Types.
type Configuration struct {
	Types []string

	Positions        []Vec3
	Velocities       []Vec3
	Orientations     []Quat
	Masses           []float64
	Charges          []float64
	Diameters        []float64
	TypeIDs          []int
	Bodies           []int // rigid body tag, -1 = not part of a rigid body
	MomentsOfInertia []Vec3
	NetForces        []Vec3
	NetTorques       []Vec3

	Bonds     []Bond
	Angles    []Angle
	Dihedrals []Dihedral

	BondTypes     []string
	AngleTypes    []string
	DihedralTypes []string
}

// NewConfiguration allocates a configuration for n particles with identity
// orientations and free (non-rigid) body tags.
func NewConfiguration(n int, types []string) *Configuration {
	c := &Configuration{
		Types:            append([]string(nil), types...),
		Positions:        make([]Vec3, n),
		Velocities:       make([]Vec3, n),
		Orientations:     make([]Quat, n),
		Masses:           make([]float64, n),
		Charges:          make([]float64, n),
		Diameters:        make([]float64, n),
		TypeIDs:          make([]int, n),
		Bodies:           make([]int, n),
		MomentsOfInertia: make([]Vec3, n),
		NetForces:        make([]Vec3, n),
		NetTorques:       make([]Vec3, n),
	}
	for i := 0; i < n; i++ {
		c.Orientations[i] = IdentityQuat()
		c.Bodies[i] = -1
	}
	return c
}

// N returns the particle count.
func (c *Configuration) N() int { return len(c.Positions) }

// TypeName returns the type name of particle i.
func (c *Configuration) TypeName(i int) string {
	return c.Types[c.TypeIDs[i]]
}

// Clone deep-copies the configuration.
func (c *Configuration) Clone() *Configuration {
	out := &Configuration{
		Types:            append([]string(nil), c.Types...),
		Positions:        append([]Vec3(nil), c.Positions...),
		Velocities:       append([]Vec3(nil), c.Velocities...),
		Orientations:     append([]Quat(nil), c.Orientations...),
		Masses:           append([]float64(nil), c.Masses...),
		Charges:          append([]float64(nil), c.Charges...),
		Diameters:        append([]float64(nil), c.Diameters...),
		TypeIDs:          append([]int(nil), c.TypeIDs...),
		Bodies:           append([]int(nil), c.Bodies...),
		MomentsOfInertia: append([]Vec3(nil), c.MomentsOfInertia...),
		NetForces:        append([]Vec3(nil), c.NetForces...),
		NetTorques:       append([]Vec3(nil), c.NetTorques...),
		Bonds:            append([]Bond(nil), c.Bonds...),
		Angles:           append([]Angle(nil), c.Angles...),
		Dihedrals:        append([]Dihedral(nil), c.Dihedrals...),
		BondTypes:        append([]string(nil), c.BondTypes...),
		AngleTypes:       append([]string(nil), c.AngleTypes...),
		DihedralTypes:    append([]string(nil), c.DihedralTypes...),
	}
	return out
}
