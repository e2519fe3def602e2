// Package trajectory is an append-only store of rigid-body kinematic frames.
// The layout is a directory hierarchy: versioned metadata at the root, one
// numbered subdirectory per frame holding fixed-shape binary datasets and a
// timestep attribute.
package trajectory

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/polymerlab/polymd/internal/system"
)

// Store format identity. Opening a store stamped by another application
// fails rather than mixing frame schemas.
const (
	App     = "polymd-1"
	Version = "1.0"
)

// Domain errors.
var (
	// ErrFormat indicates the store's app metadata names another producer.
	ErrFormat = errors.New("trajectory: store has foreign app metadata")
)

type metadata struct {
	App     string `json:"app"`
	Version string `json:"version"`
}

type frameAttrs struct {
	Timestep uint64 `json:"timestep"`
}

// Frame is one immutable record of rigid-body kinematics.
type Frame struct {
	Timestep     uint64
	Positions    []system.Vec3
	Orientations []system.Quat
	NetForces    []system.Vec3
	NetTorques   []system.Vec3
}

// Store appends frames under a root directory. Frame keys increase
// monotonically across opens: a reopened store continues from the largest
// existing key plus one.
type Store struct {
	dir  string
	next int
}

// Open creates or reopens a store. New stores are stamped with the app tag
// and schema version; existing stores must carry a matching app tag.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("trajectory: %w", err)
	}

	metaPath := filepath.Join(dir, "meta.json")
	data, err := os.ReadFile(metaPath)
	switch {
	case err == nil:
		var meta metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("trajectory: %s: %w", metaPath, err)
		}
		if meta.App != App {
			return nil, fmt.Errorf("%w: got %q, want %q", ErrFormat, meta.App, App)
		}
	case os.IsNotExist(err):
		blob, err := json.Marshal(metadata{App: App, Version: Version})
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(metaPath, blob, 0644); err != nil {
			return nil, fmt.Errorf("trajectory: %w", err)
		}
	default:
		return nil, fmt.Errorf("trajectory: %w", err)
	}

	keys, err := frameKeys(dir)
	if err != nil {
		return nil, err
	}
	next := 1
	if len(keys) > 0 {
		next = keys[len(keys)-1] + 1
	}
	return &Store{dir: dir, next: next}, nil
}

// Append writes the frame under the next key and returns that key.
func (s *Store) Append(f Frame) (int, error) {
	if s.dir == "" {
		return 0, fmt.Errorf("trajectory: append on closed store")
	}
	key := s.next
	frameDir := filepath.Join(s.dir, strconv.Itoa(key))
	if err := os.MkdirAll(frameDir, 0755); err != nil {
		return 0, fmt.Errorf("trajectory: %w", err)
	}

	datasets := []struct {
		name string
		data []float64
	}{
		{"position.bin", flattenVecs(f.Positions)},
		{"orientation.bin", flattenQuats(f.Orientations)},
		{"net_force.bin", flattenVecs(f.NetForces)},
		{"net_torque.bin", flattenVecs(f.NetTorques)},
	}
	for _, ds := range datasets {
		if err := writeDataset(filepath.Join(frameDir, ds.name), ds.data); err != nil {
			return 0, err
		}
	}

	blob, err := json.Marshal(frameAttrs{Timestep: f.Timestep})
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(filepath.Join(frameDir, "attrs.json"), blob, 0644); err != nil {
		return 0, fmt.Errorf("trajectory: %w", err)
	}

	s.next++
	return key, nil
}

// Keys returns the existing frame keys in increasing order.
func (s *Store) Keys() ([]int, error) {
	return frameKeys(s.dir)
}

// Read loads the frame stored under key.
func (s *Store) Read(key int) (Frame, error) {
	frameDir := filepath.Join(s.dir, strconv.Itoa(key))

	var attrs frameAttrs
	blob, err := os.ReadFile(filepath.Join(frameDir, "attrs.json"))
	if err != nil {
		return Frame{}, fmt.Errorf("trajectory: frame %d: %w", key, err)
	}
	if err := json.Unmarshal(blob, &attrs); err != nil {
		return Frame{}, fmt.Errorf("trajectory: frame %d: %w", key, err)
	}

	pos, err := readDataset(filepath.Join(frameDir, "position.bin"))
	if err != nil {
		return Frame{}, err
	}
	orient, err := readDataset(filepath.Join(frameDir, "orientation.bin"))
	if err != nil {
		return Frame{}, err
	}
	force, err := readDataset(filepath.Join(frameDir, "net_force.bin"))
	if err != nil {
		return Frame{}, err
	}
	torque, err := readDataset(filepath.Join(frameDir, "net_torque.bin"))
	if err != nil {
		return Frame{}, err
	}

	return Frame{
		Timestep:     attrs.Timestep,
		Positions:    unflattenVecs(pos),
		Orientations: unflattenQuats(orient),
		NetForces:    unflattenVecs(force),
		NetTorques:   unflattenVecs(torque),
	}, nil
}

// Close releases the store. Appends after Close fail.
func (s *Store) Close() error {
	s.dir = ""
	s.next = 0
	return nil
}

func frameKeys(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("trajectory: %w", err)
	}
	keys := make([]int, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		keys = append(keys, n)
	}
	sort.Ints(keys)
	return keys, nil
}

func writeDataset(path string, data []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trajectory: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("trajectory: %s: %w", path, err)
	}
	return nil
}

func readDataset(path string) ([]float64, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trajectory: %w", err)
	}
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("trajectory: %s: truncated dataset", path)
	}
	data := make([]float64, len(blob)/8)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return data, nil
}

func flattenVecs(vs []system.Vec3) []float64 {
	out := make([]float64, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func unflattenVecs(data []float64) []system.Vec3 {
	out := make([]system.Vec3, len(data)/3)
	for i := range out {
		copy(out[i][:], data[i*3:i*3+3])
	}
	return out
}

func flattenQuats(qs []system.Quat) []float64 {
	out := make([]float64, 0, len(qs)*4)
	for _, q := range qs {
		out = append(out, q[0], q[1], q[2], q[3])
	}
	return out
}

func unflattenQuats(data []float64) []system.Quat {
	out := make([]system.Quat, len(data)/4)
	for i := range out {
		copy(out[i][:], data[i*4:i*4+4])
	}
	return out
}
