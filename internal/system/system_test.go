package system

import (
	"math"
	"path/filepath"
	"testing"
)

func TestParseAxis(t *testing.T) {
	cases := []struct {
		in      string
		want    Axis
		wantErr bool
	}{
		{"x", X, false},
		{"Y", Y, false},
		{"z", Z, false},
		{"w", 0, true},
		{"", 0, true},
	}
	for _, c := range cases {
		got, err := ParseAxis(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseAxis(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAxis(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseAxis(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestAxisVec(t *testing.T) {
	if v := Y.Vec(); v != (Vec3{0, 1, 0}) {
		t.Errorf("Y.Vec() = %v", v)
	}
}

func TestVec3(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}

	if got := a.Add(b); got != (Vec3{5, 7, 9}) {
		t.Errorf("Add = %v", got)
	}
	if got := a.Sub(b); got != (Vec3{-3, -3, -3}) {
		t.Errorf("Sub = %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot = %v, want 32", got)
	}
	if got := (Vec3{3, 4, 0}).Norm(); math.Abs(got-5) > 1e-12 {
		t.Errorf("Norm = %v, want 5", got)
	}
}

func TestBoxLerp(t *testing.T) {
	a := Box{Lx: 10, Ly: 10, Lz: 10}
	b := Box{Lx: 4, Ly: 6, Lz: 8}

	if got := a.Lerp(b, 0); !got.Equal(a, 0) {
		t.Errorf("Lerp(0) = %+v, want %+v", got, a)
	}
	if got := a.Lerp(b, 1); !got.Equal(b, 0) {
		t.Errorf("Lerp(1) = %+v, want %+v", got, b)
	}
	mid := a.Lerp(b, 0.5)
	if want := (Box{Lx: 7, Ly: 8, Lz: 9}); !mid.Equal(want, 1e-12) {
		t.Errorf("Lerp(0.5) = %+v, want %+v", mid, want)
	}
}

func TestBoxWithLength(t *testing.T) {
	b := Box{Lx: 1, Ly: 2, Lz: 3}
	got := b.WithLength(Z, 9)
	if got.Lz != 9 || got.Lx != 1 || got.Ly != 2 {
		t.Errorf("WithLength(Z, 9) = %+v", got)
	}
	if b.Lz != 3 {
		t.Error("WithLength mutated the receiver")
	}
}

func TestBoxEqualTolerance(t *testing.T) {
	a := Box{Lx: 1, Ly: 1, Lz: 1}
	b := Box{Lx: 1 + 1e-10, Ly: 1, Lz: 1}
	if !a.Equal(b, 1e-9) {
		t.Error("boxes within tolerance reported unequal")
	}
	if a.Equal(b, 1e-11) {
		t.Error("boxes outside tolerance reported equal")
	}
}

func TestConfigurationCloneIndependence(t *testing.T) {
	cfg := NewConfiguration(3, []string{"A"})
	cfg.Positions[0] = Vec3{1, 2, 3}
	cfg.Masses[0] = 5

	clone := cfg.Clone()
	clone.Positions[0] = Vec3{9, 9, 9}
	clone.Masses[0] = 1

	if cfg.Positions[0] != (Vec3{1, 2, 3}) {
		t.Error("clone shares position storage with original")
	}
	if cfg.Masses[0] != 5 {
		t.Error("clone shares mass storage with original")
	}
}

func TestNewConfigurationDefaults(t *testing.T) {
	cfg := NewConfiguration(2, []string{"A", "B"})
	for i := 0; i < cfg.N(); i++ {
		if cfg.Orientations[i] != IdentityQuat() {
			t.Errorf("particle %d: orientation %v, want identity", i, cfg.Orientations[i])
		}
		if cfg.Bodies[i] != -1 {
			t.Errorf("particle %d: body tag %d, want -1", i, cfg.Bodies[i])
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	cfg := NewConfiguration(2, []string{"A"})
	cfg.Positions[1] = Vec3{1, 2, 3}
	cfg.Masses[0] = 1.5
	snap := &Snapshot{
		Box:         Box{Lx: 10, Ly: 10, Lz: 10},
		RigidGroups: []int{0},
		Config:      cfg,
	}

	path := filepath.Join(t.TempDir(), "snap.json")
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}

	if got.Box != snap.Box {
		t.Errorf("box = %+v, want %+v", got.Box, snap.Box)
	}
	if got.Config.N() != 2 {
		t.Errorf("N = %d, want 2", got.Config.N())
	}
	if got.Config.Positions[1] != (Vec3{1, 2, 3}) {
		t.Errorf("position = %v", got.Config.Positions[1])
	}
	if len(got.RigidGroups) != 1 || got.RigidGroups[0] != 0 {
		t.Errorf("rigid groups = %v", got.RigidGroups)
	}
}

func TestSnapshotCarriesForceField(t *testing.T) {
	snap := &Snapshot{
		Box: Box{Lx: 10, Ly: 10, Lz: 10},
		ForceField: &ForceField{
			Pairs: []PairParam{{Types: [2]string{"A", "A"}, Epsilon: 1.0, Sigma: 1.0, RCut: 2.5}},
			Bonds: []BondParam{{Type: "A-A", K: 100, R0: 1.0}},
		},
		Config: NewConfiguration(1, []string{"A"}),
	}

	path := filepath.Join(t.TempDir(), "snap.json")
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}

	if got.ForceField == nil {
		t.Fatal("force field dropped")
	}
	if len(got.ForceField.Pairs) != 1 || got.ForceField.Pairs[0].Epsilon != 1.0 {
		t.Errorf("pairs = %+v", got.ForceField.Pairs)
	}
	if len(got.ForceField.Bonds) != 1 || got.ForceField.Bonds[0].K != 100 {
		t.Errorf("bonds = %+v", got.ForceField.Bonds)
	}
}

func TestReadSnapshotMissingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	if err := WriteSnapshot(path, &Snapshot{Box: Box{Lx: 1}}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Error("expected error for snapshot without configuration")
	}
}
