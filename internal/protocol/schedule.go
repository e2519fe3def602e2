package protocol

import "math"

// Stage is one anneal entry: a temperature setpoint and how long to hold it.
type Stage struct {
	KT    float64
	Steps uint64
}

// Schedule is an ordered sequence of anneal stages. Order is the order
// stages run in; duplicate setpoints are distinct stages and are preserved.
type Schedule []Stage

// BuildSchedule interpolates temperatures linearly from kTInit to kTFinal
// across the step sequence, rounding each sampled temperature to one
// decimal. A single-entry sequence holds kTInit.
func BuildSchedule(kTInit, kTFinal float64, stepSequence []uint64) Schedule {
	n := len(stepSequence)
	if n == 0 {
		return nil
	}
	sched := make(Schedule, n)
	for i, steps := range stepSequence {
		t := kTInit
		if n > 1 {
			t = kTInit + (kTFinal-kTInit)*float64(i)/float64(n-1)
		}
		sched[i] = Stage{KT: math.Round(t*10) / 10, Steps: steps}
	}
	return sched
}
