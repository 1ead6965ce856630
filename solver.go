package physics

import "math"

// solver.go implements the sequential-impulse constraint solver of
// spec.md §4.6, grounded in original_source/Box2D/Dynamics/Contacts/
// b2ContactSolver.cpp: per-contact velocity constraints (normal +
// friction, with the 2-point block solve for simultaneous normal
// impulses), Baumgarte-stabilized position iterations operated directly
// on each body's sweep/center, and joints solved in the same two passes.

// velocityConstraintPoint is one manifold point's solver state for a step.
type velocityConstraintPoint struct {
	rA, rB         Vec2
	normalImpulse  float64
	tangentImpulse float64
	normalMass     float64
	tangentMass    float64
	velocityBias   float64
	separation     float64
}

// contactVelocityConstraint is the per-contact working set the velocity
// iterations operate on, rebuilt once per step from each contact's
// manifold (spec.md §4.6).
type contactVelocityConstraint struct {
	c *Contact

	points [2]velocityConstraintPoint
	count  int

	normal Vec2

	friction    float64
	restitution float64

	invMassA, invMassB float64
	invIA, invIB       float64

	k          Mat22
	normalMass Mat22

	bodyA, bodyB *Body
}

// contactPositionConstraint mirrors the velocity constraint's geometry
// for the position iterations, which re-evaluate separation directly
// instead of reusing cached impulses (spec.md §4.6: "position correction
// never touches velocities").
type contactPositionConstraint struct {
	c            *Contact
	localPoints  [2]Vec2
	localNormal  Vec2
	localCenterA Vec2
	localCenterB Vec2
	localAnchorA Vec2
	typ          ManifoldType
	radiusA      float64
	radiusB      float64
	count        int

	invMassA, invMassB float64
	invIA, invIB       float64

	bodyA, bodyB *Body
}

// prepareContacts builds the velocity and position working sets for one
// island's touching contacts, applying warm-start impulses from the
// persisted manifold points (spec.md §4.6 step 1).
func prepareContacts(contacts []*Contact, w *World, conf StepConf) ([]contactVelocityConstraint, []contactPositionConstraint) {
	vcs := make([]contactVelocityConstraint, 0, len(contacts))
	pcs := make([]contactPositionConstraint, 0, len(contacts))

	for _, c := range contacts {
		if !c.isTouching() || !c.isEnabled() {
			continue
		}
		bA := w.mustBody(c.bodyA)
		bB := w.mustBody(c.bodyB)
		fA := w.mustFixture(c.fixtureA)
		fB := w.mustFixture(c.fixtureB)

		if w.contactManager.callbacks != nil {
			w.contactManager.callbacks.PreSolve(c, c.prevManifold)
		}

		m := c.manifold
		n := len(m.Points)
		if n == 0 {
			continue
		}

		proxyA := fA.shape.Proxy(c.childA)
		proxyB := fB.shape.Proxy(c.childB)
		wm := m.World(bA.xf, bB.xf, proxyA.Radius, proxyB.Radius)

		vc := contactVelocityConstraint{
			c: c, count: n, normal: wm.Normal,
			friction: c.friction, restitution: c.restitution,
			invMassA: bA.invMass, invMassB: bB.invMass,
			invIA: bA.invI, invIB: bB.invI,
			bodyA: bA, bodyB: bB,
		}
		pc := contactPositionConstraint{
			c: c, typ: m.Type, localNormal: m.LocalNormal, localAnchorA: m.LocalPoint,
			radiusA: proxyA.Radius, radiusB: proxyB.Radius, count: n,
			localCenterA: bA.sweep.LocalCenter, localCenterB: bB.sweep.LocalCenter,
			invMassA: bA.invMass, invMassB: bB.invMass,
			invIA: bA.invI, invIB: bB.invI,
			bodyA: bA, bodyB: bB,
		}

		for i := 0; i < n; i++ {
			wp := wm.Points[i]
			vcp := &vc.points[i]
			vcp.rA = wp.Point.Sub(bA.sweep.C1)
			vcp.rB = wp.Point.Sub(bB.sweep.C1)
			vcp.separation = wp.Separation

			rnA := vcp.rA.Cross(vc.normal)
			rnB := vcp.rB.Cross(vc.normal)
			kNormal := vc.invMassA + vc.invMassB + vc.invIA*rnA*rnA + vc.invIB*rnB*rnB
			if kNormal > 0 {
				vcp.normalMass = 1 / kNormal
			}

			tangent := vc.normal.Skew().Neg()
			rtA := vcp.rA.Cross(tangent)
			rtB := vcp.rB.Cross(tangent)
			kTangent := vc.invMassA + vc.invMassB + vc.invIA*rtA*rtA + vc.invIB*rtB*rtB
			if kTangent > 0 {
				vcp.tangentMass = 1 / kTangent
			}

			relVel := bB.LinearVelocity.Add(CrossScalar(bB.AngularVelocity, vcp.rB)).
				Sub(bA.LinearVelocity).Sub(CrossScalar(bA.AngularVelocity, vcp.rA))
			vRel := vc.normal.Dot(relVel)
			vcp.velocityBias = 0
			if vRel < -VelocityThreshold {
				vcp.velocityBias = -vc.restitution * vRel
			}

			if conf.EnableWarmStarting {
				vcp.normalImpulse = m.Points[i].NormalImpulse
				vcp.tangentImpulse = m.Points[i].TangentImpulse
			}

			pc.localPoints[i] = m.Points[i].LocalPoint
		}

		if n == 2 {
			rn1A := vc.points[0].rA.Cross(vc.normal)
			rn1B := vc.points[0].rB.Cross(vc.normal)
			rn2A := vc.points[1].rA.Cross(vc.normal)
			rn2B := vc.points[1].rB.Cross(vc.normal)
			k11 := vc.invMassA + vc.invMassB + vc.invIA*rn1A*rn1A + vc.invIB*rn1B*rn1B
			k22 := vc.invMassA + vc.invMassB + vc.invIA*rn2A*rn2A + vc.invIB*rn2B*rn2B
			k12 := vc.invMassA + vc.invMassB + vc.invIA*rn1A*rn2A + vc.invIB*rn1B*rn2B
			const maxConditionNumber = 1000.0
			if k11*k11 < maxConditionNumber*(k11*k22-k12*k12) {
				vc.k = NewMat22(k11, k12, k12, k22)
				vc.normalMass = vc.k.Inverse()
			} else {
				vc.count = 1 // ill-conditioned: solve only the first point
			}
		}

		vcs = append(vcs, vc)
		pcs = append(pcs, pc)
	}
	return vcs, pcs
}

// warmStart applies each contact's persisted impulses before the first
// velocity iteration (spec.md §4.6 step 2).
func warmStart(vcs []contactVelocityConstraint) {
	for i := range vcs {
		vc := &vcs[i]
		bA, bB := vc.bodyA, vc.bodyB
		tangent := vc.normal.Skew().Neg()
		for j := 0; j < vc.count; j++ {
			p := &vc.points[j]
			impulse := vc.normal.Scale(p.normalImpulse).Add(tangent.Scale(p.tangentImpulse))
			bA.LinearVelocity = bA.LinearVelocity.Sub(impulse.Scale(vc.invMassA))
			bA.AngularVelocity -= vc.invIA * p.rA.Cross(impulse)
			bB.LinearVelocity = bB.LinearVelocity.Add(impulse.Scale(vc.invMassB))
			bB.AngularVelocity += vc.invIB * p.rB.Cross(impulse)
		}
	}
}

// solveVelocityConstraints runs one velocity iteration over every
// contact's friction then normal rows (friction first per Box2D, using
// the previous iteration's normal impulse to bound the friction cone).
func solveVelocityConstraints(vcs []contactVelocityConstraint) {
	for i := range vcs {
		vc := &vcs[i]
		bA, bB := vc.bodyA, vc.bodyB
		tangent := vc.normal.Skew().Neg()

		for j := 0; j < vc.count; j++ {
			p := &vc.points[j]
			dv := bB.LinearVelocity.Add(CrossScalar(bB.AngularVelocity, p.rB)).
				Sub(bA.LinearVelocity).Sub(CrossScalar(bA.AngularVelocity, p.rA))
			vt := dv.Dot(tangent)
			lambda := p.tangentMass * -vt
			maxFriction := vc.friction * p.normalImpulse
			newImpulse := Clamp(p.tangentImpulse+lambda, -maxFriction, maxFriction)
			lambda = newImpulse - p.tangentImpulse
			p.tangentImpulse = newImpulse

			impulse := tangent.Scale(lambda)
			bA.LinearVelocity = bA.LinearVelocity.Sub(impulse.Scale(vc.invMassA))
			bA.AngularVelocity -= vc.invIA * p.rA.Cross(impulse)
			bB.LinearVelocity = bB.LinearVelocity.Add(impulse.Scale(vc.invMassB))
			bB.AngularVelocity += vc.invIB * p.rB.Cross(impulse)
		}

		if vc.count == 1 {
			p := &vc.points[0]
			dv := bB.LinearVelocity.Add(CrossScalar(bB.AngularVelocity, p.rB)).
				Sub(bA.LinearVelocity).Sub(CrossScalar(bA.AngularVelocity, p.rA))
			vn := dv.Dot(vc.normal)
			lambda := -p.normalMass * (vn - p.velocityBias)
			newImpulse := math.Max(p.normalImpulse+lambda, 0)
			lambda = newImpulse - p.normalImpulse
			p.normalImpulse = newImpulse

			impulse := vc.normal.Scale(lambda)
			bA.LinearVelocity = bA.LinearVelocity.Sub(impulse.Scale(vc.invMassA))
			bA.AngularVelocity -= vc.invIA * p.rA.Cross(impulse)
			bB.LinearVelocity = bB.LinearVelocity.Add(impulse.Scale(vc.invMassB))
			bB.AngularVelocity += vc.invIB * p.rB.Cross(impulse)
		} else {
			solveTwoPointBlock(vc, bA, bB)
		}
	}
}

// solveTwoPointBlock resolves both manifold points' normal impulses
// simultaneously via the cached 2x2 mass matrix, clamping to the
// non-negative impulse cone and falling back point-by-point when the
// joint solve would drive either impulse negative (classic Box2D
// block-solver case analysis).
func solveTwoPointBlock(vc *contactVelocityConstraint, bA, bB *Body) {
	p1, p2 := &vc.points[0], &vc.points[1]

	a := Vec2{p1.normalImpulse, p2.normalImpulse}
	assert(a.X >= 0 && a.Y >= 0, "invalid block-solver initial impulse")

	dv1 := bB.LinearVelocity.Add(CrossScalar(bB.AngularVelocity, p1.rB)).Sub(bA.LinearVelocity).Sub(CrossScalar(bA.AngularVelocity, p1.rA))
	dv2 := bB.LinearVelocity.Add(CrossScalar(bB.AngularVelocity, p2.rB)).Sub(bA.LinearVelocity).Sub(CrossScalar(bA.AngularVelocity, p2.rA))

	vn1 := dv1.Dot(vc.normal)
	vn2 := dv2.Dot(vc.normal)

	b := Vec2{vn1 - p1.velocityBias, vn2 - p2.velocityBias}
	b = b.Sub(vc.k.Mul(a))

	const epsilon = 1e-9
	for {
		x := vc.normalMass.Mul(b.Neg())
		if x.X >= 0 && x.Y >= 0 {
			applyBlockImpulse(vc, bA, bB, p1, p2, x.X-a.X, x.Y-a.Y)
			p1.normalImpulse, p2.normalImpulse = x.X, x.Y
			return
		}

		x.X = -p1.normalMass * b.X
		x.Y = 0
		if x.X >= 0 {
			vn2b := vc.k.Ex.Y*x.X + b.Y
			if vn2b >= -epsilon {
				applyBlockImpulse(vc, bA, bB, p1, p2, x.X-a.X, x.Y-a.Y)
				p1.normalImpulse, p2.normalImpulse = x.X, x.Y
				return
			}
		}

		x.X = 0
		x.Y = -p2.normalMass * b.Y
		if x.Y >= 0 {
			vn1b := vc.k.Ex.Y*x.Y + b.X
			if vn1b >= -epsilon {
				applyBlockImpulse(vc, bA, bB, p1, p2, x.X-a.X, x.Y-a.Y)
				p1.normalImpulse, p2.normalImpulse = x.X, x.Y
				return
			}
		}

		x.X, x.Y = 0, 0
		vn1b := b.X
		vn2b := b.Y
		if vn1b >= -epsilon && vn2b >= -epsilon {
			applyBlockImpulse(vc, bA, bB, p1, p2, x.X-a.X, x.Y-a.Y)
			p1.normalImpulse, p2.normalImpulse = x.X, x.Y
			return
		}
		break
	}
}

func applyBlockImpulse(vc *contactVelocityConstraint, bA, bB *Body, p1, p2 *velocityConstraintPoint, d1, d2 float64) {
	imp1 := vc.normal.Scale(d1)
	imp2 := vc.normal.Scale(d2)
	total := imp1.Add(imp2)

	bA.LinearVelocity = bA.LinearVelocity.Sub(total.Scale(vc.invMassA))
	bA.AngularVelocity -= vc.invIA * (p1.rA.Cross(imp1) + p2.rA.Cross(imp2))
	bB.LinearVelocity = bB.LinearVelocity.Add(total.Scale(vc.invMassB))
	bB.AngularVelocity += vc.invIB * (p1.rB.Cross(imp1) + p2.rB.Cross(imp2))
}

// firePostSolve reports the solved per-point impulses to the contact
// listener right after the velocity iterations settle, per spec.md §6's
// PostSolve contract (original_source/Box2D's b2ContactSolver::
// b2ContactListener::PostSolve hook).
func firePostSolve(w *World, vcs []contactVelocityConstraint) {
	if w.contactManager.callbacks == nil {
		return
	}
	for i := range vcs {
		vc := &vcs[i]
		impulse := ContactImpulse{Count: vc.count}
		for j := 0; j < vc.count; j++ {
			impulse.NormalImpulses[j] = vc.points[j].normalImpulse
			impulse.TangentImpulses[j] = vc.points[j].tangentImpulse
		}
		w.contactManager.callbacks.PostSolve(vc.c, &impulse)
	}
}

// storeImpulses copies the solved impulses back to each contact's
// manifold so the next step can warm-start from them.
func storeImpulses(vcs []contactVelocityConstraint) {
	for i := range vcs {
		vc := &vcs[i]
		for j := 0; j < vc.count && j < len(vc.c.manifold.Points); j++ {
			vc.c.manifold.Points[j].NormalImpulse = vc.points[j].normalImpulse
			vc.c.manifold.Points[j].TangentImpulse = vc.points[j].tangentImpulse
		}
	}
}

// solvePositionConstraints runs one Baumgarte-stabilized position
// iteration directly over each body's sweep center/angle (spec.md §4.6:
// "position correction is NGS-style, applied to centers/angles directly,
// never to velocities"). Returns true once no contact's separation is
// below -3*LinearSlop.
func solvePositionConstraints(pcs []contactPositionConstraint) bool {
	minSeparation := 0.0

	for i := range pcs {
		pc := &pcs[i]
		bA, bB := pc.bodyA, pc.bodyB

		for j := 0; j < pc.count; j++ {
			point, normal, separation := evaluatePositionConstraint(pc, j, bA.xf, bB.xf)

			rA := point.Sub(bA.sweep.C1)
			rB := point.Sub(bB.sweep.C1)

			minSeparation = math.Min(minSeparation, separation)

			c := Clamp(Baumgarte*(separation+LinearSlop), -MaxLinearCorrection, 0)

			rnA := rA.Cross(normal)
			rnB := rB.Cross(normal)
			kNormal := pc.invMassA + pc.invMassB + pc.invIA*rnA*rnA + pc.invIB*rnB*rnB
			impulse := 0.0
			if kNormal > 0 {
				impulse = -c / kNormal
			}

			p := normal.Scale(impulse)
			bA.sweep.C1 = bA.sweep.C1.Sub(p.Scale(pc.invMassA))
			bA.sweep.A1 -= pc.invIA * rA.Cross(p)
			bB.sweep.C1 = bB.sweep.C1.Add(p.Scale(pc.invMassB))
			bB.sweep.A1 += pc.invIB * rB.Cross(p)

			bA.synchronizeTransform()
			bB.synchronizeTransform()
		}
	}

	return minSeparation >= -3*LinearSlop
}

// evaluatePositionConstraint recomputes the world-space contact point,
// normal, and separation for one manifold point at the bodies' current
// (mid-position-iteration) transforms, per Box2D's b2PositionSolverManifold.
func evaluatePositionConstraint(pc *contactPositionConstraint, index int, xfA, xfB Transform) (Vec2, Vec2, float64) {
	switch pc.typ {
	case ManifoldCircles:
		pA := xfA.Mul(pc.localAnchorA)
		pB := xfB.Mul(pc.localPoints[0])
		normal := pB.Sub(pA).Normalized()
		point := pA.Add(pB).Scale(0.5)
		separation := pB.Sub(pA).Dot(normal) - pc.radiusA - pc.radiusB
		return point, normal, separation
	case ManifoldFaceA:
		normal := xfA.Q.Mul(pc.localNormal)
		planePoint := xfA.Mul(pc.localAnchorA)
		clip := xfB.Mul(pc.localPoints[index])
		separation := clip.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB
		point := clip.Sub(normal.Scale(pc.radiusB))
		return point, normal, separation
	default: // ManifoldFaceB
		normal := xfB.Q.Mul(pc.localNormal)
		planePoint := xfB.Mul(pc.localAnchorA)
		clip := xfA.Mul(pc.localPoints[index])
		separation := clip.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB
		point := clip.Sub(normal.Scale(pc.radiusA))
		return point, normal.Neg(), separation
	}
}
