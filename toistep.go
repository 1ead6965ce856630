package physics

import "math"

// toistep.go implements the TOI sub-stepper of spec.md §4.7: after the
// regular velocity/position solve, a contact involving an impenetrable
// ("bullet") body is advanced only as far as its first time of impact, then a mini-island around that contact is
// resolved at that instant, repeating until the step's time budget is
// exhausted or MaxSubSteps is reached. Grounded in original_source/
// Box2D/Dynamics/b2World.cpp's SolveTOI.

// shouldUseContinuous decides whether a contact is a candidate for TOI
// processing: at least one body must be impenetrable and at least one
// must be dynamic. Body speed is not considered.
func shouldUseContinuous(bA, bB *Body) bool {
	if !bA.impenetrable && !bB.impenetrable {
		return false
	}
	if bA.typ != BodyDynamic && bB.typ != BodyDynamic {
		return false
	}
	return true
}

// solveTOI runs spec.md §4.7's sub-stepper over the whole World once the
// discrete solve for this step has completed: find the earliest TOI
// event among eligible contacts, advance the two bodies of that contact
// to that instant, resolve the pair's contact as a 2-body mini-island,
// then repeat. Each contact's TOI event count starts from zero every step.
func solveTOI(w *World, conf StepConf) int {
	if !conf.EnableContinuous {
		return 0
	}
	for _, c := range w.contactManager.contacts {
		c.toiCount = 0
	}

	substeps := 0
	for i := 0; i < MaxTOIIterations; i++ {
		var minContact *Contact
		minAlpha := 1.0

		for _, c := range w.contactManager.contacts {
			if !c.isEnabled() || c.toiCount >= MaxSubSteps {
				continue
			}
			bA := w.mustBody(c.bodyA)
			bB := w.mustBody(c.bodyB)
			if bA.typ != BodyDynamic && bB.typ != BodyDynamic {
				continue
			}
			if !bA.awake && !bB.awake {
				continue
			}
			if !shouldUseContinuous(bA, bB) {
				continue
			}

			fA := w.mustFixture(c.fixtureA)
			fB := w.mustFixture(c.fixtureB)
			if fA.sensor || fB.sensor {
				continue
			}

			alpha := 1.0

			sweepA, sweepB := bA.sweep, bB.sweep
			alpha0 := math.Max(sweepA.Alpha0, sweepB.Alpha0)
			if sweepA.Alpha0 < alpha0 {
				sweepA = advanceCopy(sweepA, alpha0)
			}
			if sweepB.Alpha0 < alpha0 {
				sweepB = advanceCopy(sweepB, alpha0)
			}

			out := TimeOfImpact(TOIInput{
				ProxyA: fA.shape.Proxy(c.childA), SweepA: sweepA,
				ProxyB: fB.shape.Proxy(c.childB), SweepB: sweepB,
				TMax: 1.0,
			})

			if out.State == TOITouching {
				alpha = alpha0 + (1-alpha0)*out.T
				if alpha < alpha0 {
					alpha = alpha0
				}
			}

			if alpha < minAlpha {
				minAlpha = alpha
				minContact = c
			}
		}

		if minContact == nil || minAlpha >= 1.0-1e-9 {
			return substeps
		}

		bA := w.mustBody(minContact.bodyA)
		bB := w.mustBody(minContact.bodyB)

		backupA, backupB := bA.sweep, bB.sweep

		bA.sweep.Advance(minAlpha)
		bB.sweep.Advance(minAlpha)
		bA.synchronizeTransform()
		bB.synchronizeTransform()

		fA := w.mustFixture(minContact.fixtureA)
		fB := w.mustFixture(minContact.fixtureB)
		m := CollideShapes(fA.shape.Proxy(minContact.childA), fB.shape.Proxy(minContact.childB), bA.xf, bB.xf, ManifoldConfig{Slop: LinearSlop})
		minContact.manifold = m
		if len(m.Points) == 0 {
			minContact.toiCount++
			bA.sweep, bB.sweep = backupA, backupB
			continue
		}
		minContact.flags |= contactTouching

		minContact.toiCount++
		substeps++

		solveTOIIsland(w, bA, bB, minContact, conf)

		if conf.EnableSubStepping {
			return substeps
		}
	}

	return substeps
}

// advanceCopy returns a copy of s advanced to alpha without mutating the
// caller's sweep, since both bodies in a pair may need advancing to a
// common alpha0 before the pair's own TOI query.
func advanceCopy(s Sweep, alpha float64) Sweep {
	s.Advance(alpha)
	return s
}

// solveTOIIsland resolves the 2-body mini-island at the moment of impact:
// four position-iteration passes to push the pair apart, followed by a
// velocity solve restricted to this one contact, matching Box2D's
// b2World::SolveTOI per-contact sub-solve.
func solveTOIIsland(w *World, bA, bB *Body, c *Contact, conf StepConf) {
	vcs, pcs := prepareContacts([]*Contact{c}, w, conf)
	if len(vcs) == 0 {
		return
	}

	for i := 0; i < 4; i++ {
		solveToiPosition(pcs, bA, bB)
	}

	warmStart(vcs)
	for i := 0; i < conf.VelocityIterations; i++ {
		solveVelocityConstraints(vcs)
	}
	storeImpulses(vcs)
}

// solveToiPosition is the TOI-variant position solve: a softer Baumgarte
// factor (ToiBaumgarte) and it only ever touches the two bodies involved
// in this sub-step, never a whole island (spec.md §4.7).
func solveToiPosition(pcs []contactPositionConstraint, bA, bB *Body) {
	for i := range pcs {
		pc := &pcs[i]
		for j := 0; j < pc.count; j++ {
			point, normal, separation := evaluatePositionConstraint(pc, j, pc.bodyA.xf, pc.bodyB.xf)

			rA := point.Sub(pc.bodyA.sweep.C1)
			rB := point.Sub(pc.bodyB.sweep.C1)

			c := Clamp(ToiBaumgarte*(separation+LinearSlop), -MaxLinearCorrection, 0)

			rnA := rA.Cross(normal)
			rnB := rB.Cross(normal)
			kNormal := pc.invMassA + pc.invMassB + pc.invIA*rnA*rnA + pc.invIB*rnB*rnB
			impulse := 0.0
			if kNormal > 0 {
				impulse = -c / kNormal
			}

			p := normal.Scale(impulse)
			pc.bodyA.sweep.C1 = pc.bodyA.sweep.C1.Sub(p.Scale(pc.invMassA))
			pc.bodyA.sweep.A1 -= pc.invIA * rA.Cross(p)
			pc.bodyB.sweep.C1 = pc.bodyB.sweep.C1.Add(p.Scale(pc.invMassB))
			pc.bodyB.sweep.A1 += pc.invIB * rB.Cross(p)
			pc.bodyA.synchronizeTransform()
			pc.bodyB.synchronizeTransform()
		}
	}
}
