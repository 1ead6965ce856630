package physics

// sleep.go implements the sleep governor of spec.md §4.8: bodies whose
// motion stays under the linear/angular tolerances for TimeToSleep
// seconds, and whose whole island agrees, are put to sleep together.
// Grounded in the teacher's sleepingIdleTime/ComponentActive bookkeeping
// (space.go) generalized from Chipmunk's whole-space idle counter to
// per-island timers.

// updateSleep advances each island's min idle timer and puts every body
// in an island to sleep together once the island has been quiescent for
// TimeToSleep seconds (spec.md §4.8: "islands sleep atomically").
func updateSleep(isl *island, conf StepConf, dt float64) {
	if !conf.EnableSleep {
		for _, b := range isl.bodies {
			b.underActiveTime = 0
		}
		return
	}

	minSleepTime := TimeToSleep

	for _, b := range isl.bodies {
		if b.typ == BodyStatic {
			continue
		}
		if b.typ == BodyKinematic {
			minSleepTime = 0
			continue
		}
		if !b.allowSleep {
			minSleepTime = 0
		}

		linSq := b.LinearVelocity.LenSq()
		angSq := b.AngularVelocity * b.AngularVelocity
		if !b.allowSleep || linSq > LinearSleepTolerance*LinearSleepTolerance || angSq > AngularSleepTolerance*AngularSleepTolerance {
			b.underActiveTime = 0
			minSleepTime = 0
		} else {
			b.underActiveTime += dt
			if b.underActiveTime < minSleepTime {
				minSleepTime = b.underActiveTime
			}
		}
	}

	if minSleepTime >= TimeToSleep {
		for _, b := range isl.bodies {
			b.SetAwake(false)
		}
	}
}
