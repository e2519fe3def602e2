// Package thermolog writes thermodynamic quantities to a csv log at a fixed
// cadence during protocol runs.
package thermolog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/polymerlab/polymd/internal/engine"
)

var header = []string{
	"timestep",
	"kinetic_temperature",
	"potential_energy",
	"kinetic_energy",
	"volume",
	"pressure",
}

// ThermoReporter is implemented by engines that expose interaction-derived
// quantities. Engines without it log zeros for those columns.
type ThermoReporter interface {
	PotentialEnergy() float64
	Pressure() float64
}

// Writer appends one csv row per period to a log file.
type Writer struct {
	f      *os.File
	w      *csv.Writer
	period uint64
}

// New opens (or truncates) the log at path and writes the header row.
func New(path string, period uint64) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("thermolog: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("thermolog: %w", err)
	}
	w.Flush()
	return &Writer{f: f, w: w, period: period}, nil
}

func (l *Writer) Period() uint64 { return l.period }

// Act samples the engine and appends one row.
func (l *Writer) Act(timestep uint64, eng engine.Engine) error {
	cfg := eng.Snapshot()

	var ke float64
	for i := 0; i < cfg.N(); i++ {
		v := cfg.Velocities[i]
		ke += 0.5 * cfg.Masses[i] * v.Dot(v)
	}
	var kt float64
	if cfg.N() > 0 {
		kt = 2 * ke / (3 * float64(cfg.N()))
	}

	var pe, pressure float64
	if tr, ok := eng.(ThermoReporter); ok {
		pe = tr.PotentialEnergy()
		pressure = tr.Pressure()
	}

	row := []string{
		strconv.FormatUint(timestep, 10),
		strconv.FormatFloat(kt, 'f', 6, 64),
		strconv.FormatFloat(pe, 'f', 6, 64),
		strconv.FormatFloat(ke, 'f', 6, 64),
		strconv.FormatFloat(eng.Box().Volume(), 'f', 6, 64),
		strconv.FormatFloat(pressure, 'f', 6, 64),
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("thermolog: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the log file.
func (l *Writer) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
