package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/polymerlab/polymd/internal/analysis"
	"github.com/polymerlab/polymd/internal/checkpoint"
	"github.com/polymerlab/polymd/internal/config"
	"github.com/polymerlab/polymd/internal/engine"
	"github.com/polymerlab/polymd/internal/forcefield"
	"github.com/polymerlab/polymd/internal/protocol"
	"github.com/polymerlab/polymd/internal/rigid"
	"github.com/polymerlab/polymd/internal/system"
	"github.com/polymerlab/polymd/internal/thermolog"
	"github.com/polymerlab/polymd/internal/trajectory"
	"github.com/polymerlab/polymd/internal/tui"
	"github.com/polymerlab/polymd/internal/units"
)

var (
	snapshotFile string
	restartFile  string
	// Plot axes
	column  string
	xColumn string
	pngFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "polymd",
		Short: "staged molecular dynamics protocols for polymer systems",
	}

	runCmd := &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "run a scenario's protocol stages",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&snapshotFile, "snapshot", "", "initial configuration snapshot (json)")
	runCmd.Flags().StringVar(&restartFile, "restart", "", "resume from a checkpoint file")

	liveCmd := &cobra.Command{
		Use:   "live [scenario.yaml]",
		Short: "run a scenario with a live status view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&snapshotFile, "snapshot", "", "initial configuration snapshot (json)")
	liveCmd.Flags().StringVar(&restartFile, "restart", "", "resume from a checkpoint file")

	plotCmd := &cobra.Command{
		Use:   "plot [log.csv]",
		Short: "plot a thermo log column",
		Args:  cobra.ExactArgs(1),
		RunE:  plotLog,
	}
	plotCmd.Flags().StringVar(&column, "column", "kinetic_temperature", "column to plot")
	plotCmd.Flags().StringVar(&xColumn, "x", "timestep", "column for the x axis (png only)")
	plotCmd.Flags().StringVar(&pngFile, "png", "", "write a png instead of plotting to the terminal")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [log.csv]",
		Short: "power spectrum of a thermo log column",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrumLog,
	}
	spectrumCmd.Flags().StringVar(&column, "column", "kinetic_temperature", "column to analyze")

	summaryCmd := &cobra.Command{
		Use:   "summary [log.csv]",
		Short: "column statistics for a thermo log",
		Args:  cobra.ExactArgs(1),
		RunE:  summarizeLog,
	}

	framesCmd := &cobra.Command{
		Use:   "frames [trajectory_dir]",
		Short: "list trajectory frames",
		Args:  cobra.ExactArgs(1),
		RunE:  listFrames,
	}

	initCmd := &cobra.Command{
		Use:   "init [scenario.yaml]",
		Short: "write a default scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.Default())
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, plotCmd, spectrumCmd, summaryCmd, framesCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session is one wired-up protocol run: the simulation plus the writers that
// must be flushed when it ends.
type session struct {
	sim     *protocol.Simulation
	cfg     *config.Config
	closers []func() error
}

func (s *session) close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			fmt.Fprintf(os.Stderr, "close: %v\n", err)
		}
	}
}

func buildSession(scenarioPath string) (*session, error) {
	cfg, err := config.Load(scenarioPath)
	if err != nil {
		return nil, err
	}

	sysCfg, box, groups, ff, ts, err := loadInitial(cfg)
	if err != nil {
		return nil, err
	}

	var bodies []rigid.Body
	if len(groups) > 0 {
		bodies, err = rigid.Reduce(sysCfg, groups)
		if err != nil {
			return nil, err
		}
	}

	terms, err := buildForces(cfg, sysCfg, ff)
	if err != nil {
		return nil, err
	}
	if len(bodies) > 0 {
		forcefield.Silence(terms, bodyTypes(bodies), sysCfg.Types, forcefield.Constrained{
			Bonds:     cfg.Silence.Bonds,
			Angles:    cfg.Silence.Angles,
			Dihedrals: cfg.Silence.Dihedrals,
		})
	}

	ref, err := reference(cfg, sysCfg, terms)
	if err != nil {
		return nil, err
	}

	eng := engine.NewDryRun(sysCfg, box, cfg.DT, cfg.Seed)
	eng.SetTimestep(ts)
	for _, t := range terms {
		eng.AttachForce(t)
	}

	opts := protocol.Options{
		DT:            cfg.DT,
		TauKT:         cfg.TauKT,
		TauP:          cfg.TauP,
		RCut:          cfg.RCut,
		WallTimeLimit: time.Duration(cfg.WallTimeLimit * float64(time.Second)),
		Checkpoint:    cfg.Checkpoint,
	}
	if cfg.WallAxis != "" {
		axis, err := system.ParseAxis(cfg.WallAxis)
		if err != nil {
			return nil, err
		}
		opts.WallAxis = &axis
	}
	if len(cfg.TargetBox) == 3 {
		opts.TargetBox = system.Box{Lx: cfg.TargetBox[0], Ly: cfg.TargetBox[1], Lz: cfg.TargetBox[2]}
	}

	sim, err := protocol.New(eng, ref, opts)
	if err != nil {
		return nil, err
	}

	s := &session{sim: sim, cfg: cfg}

	if cfg.Trajectory.Path != "" {
		store, err := trajectory.Open(cfg.Trajectory.Path)
		if err != nil {
			return nil, err
		}
		nRigid := len(bodies)
		if nRigid == 0 {
			nRigid = countRigid(sysCfg)
		}
		if nRigid == 0 {
			nRigid = sysCfg.N()
		}
		rec := trajectory.NewRecorder(store, nRigid, cfg.Trajectory.Period)
		eng.AddWriter(rec)
		s.closers = append(s.closers, rec.Close)
	}
	if cfg.Log.Path != "" {
		tl, err := thermolog.New(cfg.Log.Path, cfg.Log.Period)
		if err != nil {
			return nil, err
		}
		eng.AddWriter(tl)
		s.closers = append(s.closers, tl.Close)
	}
	return s, nil
}

func loadInitial(cfg *config.Config) (*system.Configuration, system.Box, []int, *system.ForceField, uint64, error) {
	if restartFile != "" {
		ck, err := checkpoint.Read(restartFile)
		if err != nil {
			return nil, system.Box{}, nil, nil, 0, err
		}
		// The checkpoint carries no force-term parameters; the original
		// snapshot still supplies them on resumed runs.
		var ff *system.ForceField
		if snapshotFile != "" {
			snap, err := system.ReadSnapshot(snapshotFile)
			if err != nil {
				return nil, system.Box{}, nil, nil, 0, err
			}
			ff = snap.ForceField
		}
		return ck.Config, ck.Box, nil, ff, ck.Timestep, nil
	}
	if snapshotFile == "" {
		return nil, system.Box{}, nil, nil, 0, fmt.Errorf("either --snapshot or --restart is required")
	}
	snap, err := system.ReadSnapshot(snapshotFile)
	if err != nil {
		return nil, system.Box{}, nil, nil, 0, err
	}
	return snap.Config, snap.Box, snap.RigidGroups, snap.ForceField, 0, nil
}

func buildForces(cfg *config.Config, sysCfg *system.Configuration, ff *system.ForceField) ([]*forcefield.Term, error) {
	terms := forcefield.FromParams(ff)
	if cfg.Potentials == "" {
		return terms, nil
	}

	pair, err := forcefield.LoadPairTables(cfg.Potentials, sysCfg.Types)
	if err != nil {
		return nil, err
	}
	terms = append(terms, pair)

	if len(sysCfg.BondTypes) > 0 {
		bond, err := forcefield.LoadBondTables(cfg.Potentials, sysCfg.BondTypes)
		if err != nil {
			return nil, err
		}
		terms = append(terms, bond)
	}
	if len(sysCfg.AngleTypes) > 0 {
		angle, err := forcefield.LoadAngleTables(cfg.Potentials, sysCfg.AngleTypes)
		if err != nil {
			return nil, err
		}
		terms = append(terms, angle)
	}
	return terms, nil
}

func reference(cfg *config.Config, sysCfg *system.Configuration, terms []*forcefield.Term) (units.Reference, error) {
	if cfg.AutoScale {
		return units.AutoScale(sysCfg, terms)
	}
	return units.Reference{
		Distance: cfg.RefValues.Distance,
		Mass:     cfg.RefValues.Mass,
		Energy:   cfg.RefValues.Energy,
	}, nil
}

func bodyTypes(bodies []rigid.Body) []string {
	seen := make(map[string]bool, len(bodies))
	var types []string
	for _, b := range bodies {
		if !seen[b.Type] {
			seen[b.Type] = true
			types = append(types, b.Type)
		}
	}
	return types
}

// countRigid counts rigid parent particles, which sit at the head of the
// particle ordering and carry their own index as body tag.
func countRigid(cfg *system.Configuration) int {
	n := 0
	for i, b := range cfg.Bodies {
		if b == i {
			n++
		}
	}
	return n
}

func runStages(sim *protocol.Simulation, cfg *config.Config) error {
	for i, st := range cfg.Stages {
		fmt.Printf("stage %d: %s\n", i, st.Kind)
		start := time.Now()

		rep, err := dispatchStage(sim, st)
		if err != nil {
			return fmt.Errorf("stage %d (%s): %w", i, st.Kind, err)
		}

		fmt.Printf("  steps: %d  elapsed: %v\n", rep.Steps, time.Since(start).Round(time.Millisecond))
		if rep.EarlyStop {
			fmt.Printf("  stopped early: wall-clock budget reached, checkpoint written to %s\n", cfg.Checkpoint)
			return nil
		}
	}
	return nil
}

func dispatchStage(sim *protocol.Simulation, st config.Stage) (protocol.Report, error) {
	switch st.Kind {
	case "shrink":
		return sim.Shrink(protocol.ShrinkParams{
			Steps:            st.Steps,
			KTInit:           st.KTInit,
			KTFinal:          st.KTFinal,
			Period:           st.Period,
			TreeNeighborList: st.TreeNList,
		})
	case "quench":
		return sim.Quench(protocol.QuenchParams{
			Steps:    st.Steps,
			KT:       st.KT,
			Pressure: st.Pressure,
		})
	case "temp_ramp":
		return sim.TempRamp(protocol.TempRampParams{
			Steps:    st.Steps,
			KTInit:   st.KTInit,
			KTFinal:  st.KTFinal,
			Pressure: st.Pressure,
		})
	case "anneal":
		var sched protocol.Schedule
		for _, e := range st.Schedule {
			sched = append(sched, protocol.Stage{KT: e.KT, Steps: e.Steps})
		}
		return sim.Anneal(protocol.AnnealParams{
			KTInit:       st.KTInit,
			KTFinal:      st.KTFinal,
			StepSequence: st.StepSequence,
			Schedule:     sched,
			Pressure:     st.Pressure,
		})
	case "tensile":
		axis := system.X
		if st.Axis != "" {
			var err error
			axis, err = system.ParseAxis(st.Axis)
			if err != nil {
				return protocol.Report{}, err
			}
		}
		return sim.Tensile(protocol.TensileParams{
			KT:           st.KT,
			Strain:       st.Strain,
			Steps:        st.Steps,
			ExpandPeriod: st.ExpandPeriod,
			Axis:         axis,
			FixRatio:     st.FixRatio,
		})
	}
	return protocol.Report{}, fmt.Errorf("unknown stage kind %q", st.Kind)
}

func runScenario(cmd *cobra.Command, args []string) error {
	s, err := buildSession(args[0])
	if err != nil {
		return err
	}
	defer s.close()

	name := s.cfg.Name
	if name == "" {
		name = args[0]
	}
	fmt.Printf("running %s (%d stages)\n", name, len(s.cfg.Stages))
	if err := runStages(s.sim, s.cfg); err != nil {
		return err
	}
	fmt.Printf("done: timestep %d, walltime %v\n",
		s.sim.Engine().Timestep(), s.sim.Engine().Walltime().Round(time.Millisecond))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	s, err := buildSession(args[0])
	if err != nil {
		return err
	}
	defer s.close()

	statusCh := make(chan protocol.Status, 16)
	doneCh := make(chan error, 1)
	s.sim.SetOnChunk(func(st protocol.Status) {
		select {
		case statusCh <- st:
		default:
		}
	})

	go func() {
		doneCh <- runStages(s.sim, s.cfg)
	}()

	name := s.cfg.Name
	if name == "" {
		name = args[0]
	}
	m := tui.NewModel(name, statusCh, doneCh)
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(tui.Model); ok {
		return fm.Err()
	}
	return nil
}

func plotLog(cmd *cobra.Command, args []string) error {
	log, err := analysis.LoadLog(args[0])
	if err != nil {
		return err
	}
	y, err := log.Column(column)
	if err != nil {
		return err
	}

	if pngFile != "" {
		x, err := log.Column(xColumn)
		if err != nil {
			return err
		}
		if err := analysis.SavePNG(pngFile, column, xColumn, column, x, y); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", pngFile)
		return nil
	}

	fmt.Println(analysis.TerminalPlot(y, column))
	return nil
}

func spectrumLog(cmd *cobra.Command, args []string) error {
	log, err := analysis.LoadLog(args[0])
	if err != nil {
		return err
	}
	data, err := log.Column(column)
	if err != nil {
		return err
	}

	ps := analysis.PowerSpectrum(data)
	fmt.Println(analysis.TerminalPlot(ps, "power spectrum ("+column+")"))

	bin, power := analysis.DominantFrequency(ps)
	if power > 0 {
		fmt.Printf("dominant frequency: %.4f cycles/sample (bin %d)\n",
			float64(bin)/float64(len(data)), bin)
	}
	return nil
}

func summarizeLog(cmd *cobra.Command, args []string) error {
	log, err := analysis.LoadLog(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tMIN\tMAX\tMEAN")
	for _, name := range log.Columns {
		data, err := log.Column(name)
		if err != nil {
			return err
		}
		s := analysis.Summarize(data)
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\n", name, s.Min, s.Max, s.Mean)
	}
	return w.Flush()
}

func listFrames(cmd *cobra.Command, args []string) error {
	store, err := trajectory.Open(args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := store.Keys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("no frames")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FRAME\tTIMESTEP\tBODIES")
	for _, k := range keys {
		f, err := store.Read(k)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%d\t%d\n", k, f.Timestep, len(f.Positions))
	}
	return w.Flush()
}
