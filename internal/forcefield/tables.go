package forcefield

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Domain errors for table potential loading.
var (
	// ErrMissingTable indicates a required potential table file is absent.
	ErrMissingTable = errors.New("forcefield: potential table file missing")

	// ErrTableWidth indicates related table files disagree on sample count.
	ErrTableWidth = errors.New("forcefield: potential tables must share one length")
)

// LoadPairTables reads tabulated pair potentials for every unordered
// combination of the given particle types. Each pair A,B (A <= B after
// sorting) must have a file "<A>-<B>.txt" in dir holding whitespace-separated
// columns r, U, F.
func LoadPairTables(dir string, types []string) (*Term, error) {
	term := &Term{Kind: PairTable, Name: "pair_table", PairTables: make(map[PairKey]Table)}
	for i := 0; i < len(types); i++ {
		for j := i; j < len(types); j++ {
			key := NewPairKey(types[i], types[j])
			path := filepath.Join(dir, fmt.Sprintf("%s-%s.txt", key[0], key[1]))
			tab, err := readTable(path)
			if err != nil {
				return nil, err
			}
			term.PairTables[key] = tab
		}
	}
	return term, nil
}

// LoadBondTables reads tabulated bond potentials, one "<type>_bond.txt" per
// bond type. All bond tables must have the same number of samples.
func LoadBondTables(dir string, bondTypes []string) (*Term, error) {
	term := &Term{Kind: BondTable, Name: "bond_table", BondTables: make(map[string]Table)}
	if err := loadUniform(dir, bondTypes, "_bond.txt", term.BondTables); err != nil {
		return nil, err
	}
	return term, nil
}

// LoadAngleTables reads tabulated angle potentials, one "<type>_angle.txt"
// per angle type, with columns theta, U, tau. All angle tables must have the
// same number of samples.
func LoadAngleTables(dir string, angleTypes []string) (*Term, error) {
	term := &Term{Kind: AngleTable, Name: "angle_table", AngleTables: make(map[string]Table)}
	if err := loadUniform(dir, angleTypes, "_angle.txt", term.AngleTables); err != nil {
		return nil, err
	}
	return term, nil
}

func loadUniform(dir string, types []string, suffix string, out map[string]Table) error {
	width := -1
	for _, t := range types {
		path := filepath.Join(dir, t+suffix)
		tab, err := readTable(path)
		if err != nil {
			return err
		}
		if width == -1 {
			width = len(tab.U)
		} else if len(tab.U) != width {
			return fmt.Errorf("%w: %s has %d samples, want %d", ErrTableWidth, path, len(tab.U), width)
		}
		out[t] = tab
	}
	return nil
}

func readTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Table{}, fmt.Errorf("%w: %s", ErrMissingTable, path)
		}
		return Table{}, err
	}
	defer f.Close()

	var tab Table
	var rs []float64
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 3 {
			return Table{}, fmt.Errorf("forcefield: %s:%d: want 3 columns, got %d", path, line, len(fields))
		}
		row := make([]float64, 3)
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return Table{}, fmt.Errorf("forcefield: %s:%d: %w", path, line, err)
			}
			row[i] = v
		}
		rs = append(rs, row[0])
		tab.U = append(tab.U, row[1])
		tab.F = append(tab.F, row[2])
	}
	if err := sc.Err(); err != nil {
		return Table{}, err
	}
	if len(rs) == 0 {
		return Table{}, fmt.Errorf("forcefield: %s: empty table", path)
	}
	tab.RMin = rs[0]
	tab.RMax = rs[len(rs)-1]
	return tab, nil
}
