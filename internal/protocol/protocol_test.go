package protocol_test

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/polymerlab/polymd/internal/checkpoint"
	"github.com/polymerlab/polymd/internal/engine"
	"github.com/polymerlab/polymd/internal/forcefield"
	"github.com/polymerlab/polymd/internal/protocol"
	"github.com/polymerlab/polymd/internal/system"
	"github.com/polymerlab/polymd/internal/units"
)

func newEngine(n int, box system.Box) *engine.DryRun {
	cfg := system.NewConfiguration(n, []string{"A"})
	for i := 0; i < n; i++ {
		cfg.Masses[i] = 1
	}
	return engine.NewDryRun(cfg, box, 0.0003, 7)
}

var unitRef = units.Reference{Distance: 1, Mass: 1, Energy: 1}

var _ = Describe("Simulation", func() {
	var ckptPath string

	BeforeEach(func() {
		ckptPath = filepath.Join(GinkgoT().TempDir(), "restart.ckpt")
	})

	newSim := func(eng engine.Engine, opts protocol.Options) *protocol.Simulation {
		opts.Checkpoint = ckptPath
		sim, err := protocol.New(eng, unitRef, opts)
		Expect(err).NotTo(HaveOccurred())
		return sim
	}

	checkpointExists := func() bool {
		_, err := os.Stat(ckptPath)
		return err == nil
	}

	Describe("New", func() {
		It("rejects an unset reference", func() {
			_, err := protocol.New(newEngine(1, system.Box{Lx: 1, Ly: 1, Lz: 1}),
				units.Reference{}, protocol.Options{})
			Expect(errors.Is(err, units.ErrMissingReference)).To(BeTrue())
		})

		It("attaches an initial wall pair when an axis is configured", func() {
			eng := newEngine(1, system.Box{Lx: 10, Ly: 10, Lz: 10})
			axis := system.X
			newSim(eng, protocol.Options{WallAxis: &axis})

			forces := eng.Forces()
			Expect(forces).To(HaveLen(1))
			Expect(forces[0].Kind).To(Equal(forcefield.Wall))
			Expect(forces[0].Walls.Planes[0].Origin).To(Equal(system.Vec3{5, 0, 0}))
			Expect(forces[0].Walls.Planes[0].Normal).To(Equal(system.Vec3{-1, 0, 0}))
			Expect(forces[0].Walls.Planes[1].Origin).To(Equal(system.Vec3{-5, 0, 0}))
			Expect(forces[0].Walls.Planes[1].Normal).To(Equal(system.Vec3{1, 0, 0}))
		})
	})

	Describe("Shrink", func() {
		It("fails without a target box and leaves no checkpoint", func() {
			sim := newSim(newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10}), protocol.Options{})
			_, err := sim.Shrink(protocol.ShrinkParams{Steps: 100, KTInit: 6, KTFinal: 2})
			Expect(errors.Is(err, protocol.ErrNoTargetBox)).To(BeTrue())
			Expect(checkpointExists()).To(BeFalse())
		})

		It("lands exactly on the target box", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			target := system.Box{Lx: 6, Ly: 6, Lz: 6}
			sim := newSim(eng, protocol.Options{TargetBox: target})

			rep, err := sim.Shrink(protocol.ShrinkParams{Steps: 1000, KTInit: 6, KTFinal: 2, Period: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Steps).To(Equal(uint64(1000)))
			Expect(eng.Box()).To(Equal(target))
			Expect(sim.RanShrink()).To(BeTrue())
			Expect(sim.State()).To(Equal(protocol.Idle))
			Expect(checkpointExists()).To(BeTrue())
		})

		It("uses a tree neighbor list for the stage and restores the old one", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			var during []engine.NeighborList
			sim := newSim(eng, protocol.Options{
				TargetBox: system.Box{Lx: 6, Ly: 6, Lz: 6},
				OnChunk:   func(protocol.Status) { during = append(during, eng.NeighborList()) },
			})

			_, err := sim.Shrink(protocol.ShrinkParams{
				Steps: 100, KTInit: 6, KTFinal: 2, TreeNeighborList: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(during).NotTo(BeEmpty())
			for _, n := range during {
				Expect(n).To(Equal(engine.TreeList))
			}
			Expect(eng.NeighborList()).To(Equal(engine.CellList))
		})

		It("rebuilds the wall pair to follow the box", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			axis := system.X
			sim := newSim(eng, protocol.Options{
				WallAxis:  &axis,
				TargetBox: system.Box{Lx: 5, Ly: 5, Lz: 5},
			})

			_, err := sim.Shrink(protocol.ShrinkParams{Steps: 500, KTInit: 4, KTFinal: 4})
			Expect(err).NotTo(HaveOccurred())

			forces := eng.Forces()
			Expect(forces).To(HaveLen(1))
			Expect(forces[0].Walls.Planes[0].Origin).To(Equal(system.Vec3{2.5, 0, 0}))
		})
	})

	Describe("Quench", func() {
		It("runs NVT for the requested steps and checkpoints once", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			sim := newSim(eng, protocol.Options{})

			rep, err := sim.Quench(protocol.QuenchParams{Steps: 500, KT: 1.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Steps).To(Equal(uint64(500)))
			Expect(rep.EarlyStop).To(BeFalse())
			Expect(sim.State()).To(Equal(protocol.Idle))

			ck, err := checkpoint.Read(ckptPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(ck.Timestep).To(Equal(eng.Timestep()))
			Expect(ck.Box).To(Equal(eng.Box()))
		})

		It("refuses pressure coupling while walls are active, before touching state", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			axis := system.Z
			sim := newSim(eng, protocol.Options{WallAxis: &axis})

			_, err := sim.Quench(protocol.QuenchParams{Steps: 100, KT: 1.0, Pressure: 1.0})
			Expect(errors.Is(err, protocol.ErrWallsWithPressure)).To(BeTrue())
			Expect(eng.Timestep()).To(Equal(uint64(0)))
			Expect(checkpointExists()).To(BeFalse())
		})

		It("selects NPT when pressure is nonzero", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			sim := newSim(eng, protocol.Options{TauP: 0.5})

			_, err := sim.Quench(protocol.QuenchParams{Steps: 10, KT: 1.0, Pressure: 0.1})
			Expect(err).NotTo(HaveOccurred())
			method, opts := eng.Method()
			Expect(method).To(Equal(engine.NPT))
			Expect(opts.Pressure).To(Equal(0.1))
			Expect(opts.Couple).To(Equal("xyz"))
		})

		It("stops at a chunk boundary when the wall-clock budget expires", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			sim := newSim(eng, protocol.Options{
				WallTimeLimit: time.Nanosecond,
				ChunkSize:     100,
			})

			rep, err := sim.Quench(protocol.QuenchParams{Steps: 1000, KT: 1.0})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.EarlyStop).To(BeTrue())
			Expect(rep.Steps).To(Equal(uint64(100)))
			Expect(checkpointExists()).To(BeTrue())
		})

		It("reports status between chunks", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			var statuses []protocol.Status
			sim := newSim(eng, protocol.Options{
				ChunkSize: 50,
				OnChunk:   func(st protocol.Status) { statuses = append(statuses, st) },
			})

			_, err := sim.Quench(protocol.QuenchParams{Steps: 100, KT: 1.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses).To(HaveLen(2))
			Expect(statuses[0].State).To(Equal(protocol.Quenching))
			Expect(statuses[0].Timestep).To(Equal(uint64(50)))
			Expect(statuses[0].KT).To(Equal(1.5))
			Expect(statuses[1].Timestep).To(Equal(uint64(100)))
		})
	})

	Describe("TempRamp", func() {
		It("ramps the setpoint from KTInit to KTFinal over the stage", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			sim := newSim(eng, protocol.Options{})

			rep, err := sim.TempRamp(protocol.TempRampParams{Steps: 400, KTInit: 2, KTFinal: 4})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Steps).To(Equal(uint64(400)))
			Expect(sim.State()).To(Equal(protocol.Idle))
			Expect(checkpointExists()).To(BeTrue())

			method, opts := eng.Method()
			Expect(method).To(Equal(engine.NVT))
			Expect(opts.KT.At(0)).To(Equal(2.0))
			Expect(opts.KT.At(200)).To(Equal(3.0))
			Expect(opts.KT.At(400)).To(Equal(4.0))
		})

		It("selects NPT when pressure is nonzero", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			sim := newSim(eng, protocol.Options{TauP: 0.5})

			_, err := sim.TempRamp(protocol.TempRampParams{
				Steps: 10, KTInit: 1, KTFinal: 2, Pressure: 0.1,
			})
			Expect(err).NotTo(HaveOccurred())
			method, opts := eng.Method()
			Expect(method).To(Equal(engine.NPT))
			Expect(opts.Pressure).To(Equal(0.1))
			Expect(opts.Couple).To(Equal("xyz"))
		})

		It("refuses pressure coupling while walls are active, before touching state", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			axis := system.Z
			sim := newSim(eng, protocol.Options{WallAxis: &axis})

			_, err := sim.TempRamp(protocol.TempRampParams{
				Steps: 100, KTInit: 1, KTFinal: 2, Pressure: 1,
			})
			Expect(errors.Is(err, protocol.ErrWallsWithPressure)).To(BeTrue())
			Expect(eng.Timestep()).To(Equal(uint64(0)))
			Expect(checkpointExists()).To(BeFalse())
		})

		It("stops at a chunk boundary when the wall-clock budget expires", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			sim := newSim(eng, protocol.Options{
				WallTimeLimit: time.Nanosecond,
				ChunkSize:     100,
			})

			rep, err := sim.TempRamp(protocol.TempRampParams{Steps: 1000, KTInit: 6, KTFinal: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.EarlyStop).To(BeTrue())
			Expect(rep.Steps).To(Equal(uint64(100)))
			Expect(checkpointExists()).To(BeTrue())
		})
	})

	Describe("Anneal", func() {
		It("builds a schedule from the step sequence and runs every stage", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			sim := newSim(eng, protocol.Options{})

			rep, err := sim.Anneal(protocol.AnnealParams{
				KTInit:       5,
				KTFinal:      2,
				StepSequence: []uint64{100, 200, 300},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Steps).To(Equal(uint64(600)))
			Expect(eng.Timestep()).To(Equal(uint64(600)))
		})

		It("prefers an explicit schedule over the step sequence", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			sim := newSim(eng, protocol.Options{})

			rep, err := sim.Anneal(protocol.AnnealParams{
				Schedule:     protocol.Schedule{{KT: 3, Steps: 50}, {KT: 3, Steps: 50}},
				StepSequence: []uint64{10000},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Steps).To(Equal(uint64(100)))
		})

		It("fails with neither a schedule nor a step sequence", func() {
			sim := newSim(newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10}), protocol.Options{})
			_, err := sim.Anneal(protocol.AnnealParams{KTInit: 5, KTFinal: 2})
			Expect(err).To(HaveOccurred())
		})

		It("refuses pressure coupling while walls are active", func() {
			eng := newEngine(2, system.Box{Lx: 10, Ly: 10, Lz: 10})
			axis := system.Y
			sim := newSim(eng, protocol.Options{WallAxis: &axis})

			_, err := sim.Anneal(protocol.AnnealParams{
				Schedule: protocol.Schedule{{KT: 2, Steps: 10}},
				Pressure: 1,
			})
			Expect(errors.Is(err, protocol.ErrWallsWithPressure)).To(BeTrue())
		})
	})

	Describe("Tensile", func() {
		tensileEngine := func() *engine.DryRun {
			cfg := system.NewConfiguration(3, []string{"A"})
			for i := 0; i < 3; i++ {
				cfg.Masses[i] = 1
			}
			cfg.Positions[0] = system.Vec3{-4.9, 0, 0}
			cfg.Positions[1] = system.Vec3{4.9, 0, 0}
			cfg.Positions[2] = system.Vec3{0, 0, 0}
			return engine.NewDryRun(cfg, system.Box{Lx: 10, Ly: 10, Lz: 10}, 0.0003, 7)
		}

		It("extends the box and carries the fixed slabs with the boundaries", func() {
			eng := tensileEngine()
			sim := newSim(eng, protocol.Options{})

			rep, err := sim.Tensile(protocol.TensileParams{
				KT:           0,
				Strain:       0.1,
				Steps:        100,
				ExpandPeriod: 10,
				Axis:         system.X,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Steps).To(Equal(uint64(100)))
			Expect(eng.Box().Lx).To(BeNumerically("~", 11.0, 1e-9))

			cfg := eng.Snapshot()
			Expect(cfg.Positions[0][0]).To(BeNumerically("~", -5.4, 1e-9))
			Expect(cfg.Positions[1][0]).To(BeNumerically("~", 5.4, 1e-9))
			Expect(cfg.Positions[2][0]).To(BeNumerically("~", 0, 1e-9))
		})

		It("integrates only the free group under NVE", func() {
			eng := tensileEngine()
			sim := newSim(eng, protocol.Options{})

			_, err := sim.Tensile(protocol.TensileParams{
				KT:     1.0,
				Strain: 0.05,
				Steps:  50,
				Axis:   system.X,
			})
			Expect(err).NotTo(HaveOccurred())
			method, opts := eng.Method()
			Expect(method).To(Equal(engine.NVE))
			Expect(opts.Group).To(Equal([]int{2}))
		})
	})
})

var _ = Describe("TensileGroups", func() {
	It("partitions particles into left, right, and free exactly once", func() {
		// fix_ratio 0.05 over Lx 10: slab boundaries at +-4.75
		cfg := system.NewConfiguration(5, []string{"A"})
		cfg.Positions[0] = system.Vec3{-4.8, 0, 0}
		cfg.Positions[1] = system.Vec3{-4.7, 0, 0}
		cfg.Positions[2] = system.Vec3{0, 0, 0}
		cfg.Positions[3] = system.Vec3{4.8, 0, 0}
		cfg.Positions[4] = system.Vec3{4.9, 0, 0}

		box := system.Box{Lx: 10, Ly: 10, Lz: 10}
		left, right, free := protocol.TensileGroups(cfg, system.X, box, 0.05)

		Expect(left).To(Equal([]int{0}))
		Expect(right).To(Equal([]int{3, 4}))
		Expect(free).To(Equal([]int{1, 2}))
		Expect(len(left) + len(right) + len(free)).To(Equal(cfg.N()))
	})

	It("uses the requested axis", func() {
		cfg := system.NewConfiguration(2, []string{"A"})
		cfg.Positions[0] = system.Vec3{0, 0, -2.9}
		cfg.Positions[1] = system.Vec3{0, 0, 0}

		box := system.Box{Lx: 10, Ly: 10, Lz: 6}
		left, right, free := protocol.TensileGroups(cfg, system.Z, box, 0.05)

		Expect(left).To(Equal([]int{0}))
		Expect(right).To(BeEmpty())
		Expect(free).To(Equal([]int{1}))
	})
})
