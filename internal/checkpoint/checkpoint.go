// Package checkpoint persists full simulation snapshots so an interrupted
// protocol can resume from its last persisted state.
package checkpoint

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/polymerlab/polymd/internal/system"
)

// Snapshot is the full restartable state: timestep, box, and every particle
// array.
type Snapshot struct {
	Timestep uint64
	Box      system.Box
	Config   *system.Configuration
}

// Write persists the snapshot as a gzip-compressed binary blob. The write is
// atomic: data lands in a temp file that is renamed over path only after a
// successful flush.
func Write(path string, snap Snapshot) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ckpt-*")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	if err := gob.NewEncoder(zw).Encode(&snap); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Read loads a snapshot written by Write.
func Read(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: %w", err)
	}
	defer zr.Close()

	var snap Snapshot
	if err := gob.NewDecoder(zr).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: decode: %w", err)
	}
	return snap, nil
}
