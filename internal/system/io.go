package system

import (
	"encoding/json"
	"fmt"
	"os"
)

// Snapshot is the on-disk form of an initial configuration: the box, the
// particle arrays, the rigid-group assignment for the constituent tail of
// the particle ordering, and the force-term parameters the topology builder
// derived for it.
type Snapshot struct {
	Box         Box            `json:"box"`
	RigidGroups []int          `json:"rigid_groups,omitempty"`
	ForceField  *ForceField    `json:"force_field,omitempty"`
	Config      *Configuration `json:"configuration"`
}

// ForceField carries parametric force-term coefficients. Tabulated
// potentials are not part of the snapshot; they load from a potentials
// directory instead.
type ForceField struct {
	Pairs     []PairParam     `json:"pairs,omitempty"`
	Bonds     []BondParam     `json:"bonds,omitempty"`
	Angles    []AngleParam    `json:"angles,omitempty"`
	Dihedrals []DihedralParam `json:"dihedrals,omitempty"`
}

// PairParam is one LJ pair entry.
type PairParam struct {
	Types   [2]string `json:"types"`
	Epsilon float64   `json:"epsilon"`
	Sigma   float64   `json:"sigma"`
	RCut    float64   `json:"r_cut,omitempty"` // 0 = default 2.5
}

// BondParam is one harmonic bond entry.
type BondParam struct {
	Type string  `json:"type"`
	K    float64 `json:"k"`
	R0   float64 `json:"r0"`
}

// AngleParam is one harmonic angle entry.
type AngleParam struct {
	Type string  `json:"type"`
	K    float64 `json:"k"`
	T0   float64 `json:"t0"`
}

// DihedralParam is one harmonic dihedral entry.
type DihedralParam struct {
	Type string  `json:"type"`
	K    float64 `json:"k"`
	D    int     `json:"d"`
	N    int     `json:"n"`
	Phi0 float64 `json:"phi0"`
}

// ReadSnapshot loads a snapshot file produced by an external topology
// builder or by WriteSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("system: %s: %w", path, err)
	}
	if snap.Config == nil {
		return nil, fmt.Errorf("system: %s: missing configuration", path)
	}
	return &snap, nil
}

// WriteSnapshot persists the snapshot as indented json.
func WriteSnapshot(path string, snap *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
