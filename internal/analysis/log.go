// Package analysis reads thermo logs back for inspection: terminal plots,
// PNG export, and column summaries.
package analysis

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// Log is a parsed thermo log: named columns over rows.
type Log struct {
	Columns []string
	Rows    [][]float64
}

// LoadLog parses a csv thermo log written during a run.
func LoadLog(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("analysis: %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("analysis: %s: empty log", path)
	}

	log := &Log{Columns: records[0]}
	for i := 1; i < len(records); i++ {
		row := make([]float64, len(records[i]))
		for j, field := range records[i] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("analysis: %s: row %d: %w", path, i, err)
			}
			row[j] = v
		}
		log.Rows = append(log.Rows, row)
	}
	return log, nil
}

// Column extracts one named column.
func (l *Log) Column(name string) ([]float64, error) {
	idx := -1
	for i, c := range l.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("analysis: no column %q (have %v)", name, l.Columns)
	}
	out := make([]float64, len(l.Rows))
	for i, row := range l.Rows {
		if idx >= len(row) {
			return nil, fmt.Errorf("analysis: row %d short of column %q", i, name)
		}
		out[i] = row[idx]
	}
	return out, nil
}

// Summary holds simple column statistics.
type Summary struct {
	Min, Max, Mean float64
}

// Summarize computes min/max/mean of the data.
func Summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}
	return Summary{
		Min:  floats.Min(data),
		Max:  floats.Max(data),
		Mean: floats.Sum(data) / float64(len(data)),
	}
}
