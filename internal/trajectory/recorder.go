package trajectory

import (
	"github.com/polymerlab/polymd/internal/engine"
)

// Recorder captures rigid-body kinematics from the engine at a fixed cadence
// and appends them to a Store. It plugs into the engine's writer hooks.
type Recorder struct {
	store  *Store
	nRigid int
	period uint64
}

// NewRecorder records the first nRigid particles every period steps.
func NewRecorder(store *Store, nRigid int, period uint64) *Recorder {
	return &Recorder{store: store, nRigid: nRigid, period: period}
}

func (r *Recorder) Period() uint64 { return r.period }

// Act snapshots the engine and appends one frame. The rigid parent particles
// occupy the head of the particle ordering, so the first nRigid entries of
// each kinematic array are exactly the rigid bodies.
func (r *Recorder) Act(timestep uint64, eng engine.Engine) error {
	cfg := eng.Snapshot()
	n := r.nRigid
	if n > cfg.N() {
		n = cfg.N()
	}
	_, err := r.store.Append(Frame{
		Timestep:     timestep,
		Positions:    cfg.Positions[:n],
		Orientations: cfg.Orientations[:n],
		NetForces:    cfg.NetForces[:n],
		NetTorques:   cfg.NetTorques[:n],
	})
	return err
}

// Close releases the underlying store.
func (r *Recorder) Close() error {
	return r.store.Close()
}
