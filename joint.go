package physics

import "math"

// joint.go implements spec.md §3's Joint family: a constraint between two
// bodies (or one body and the world) solved alongside contacts in the
// velocity/position iterations. Grounded in original_source/Box2D/
// Dynamics/Joints/b2RevoluteJoint.cpp and b2DistanceJoint.cpp — spec.md
// names joints as a first-class entity but defers the exact catalog to
// "at least a distance and a revolute joint" (spec.md §9), which this
// file supplies.

// JointType distinguishes the joint kinds this package implements.
type JointType uint8

const (
	RevoluteJointType JointType = iota
	DistanceJointType
)

// jointSolver is the 3-method contract every joint type implements,
// mirroring the velocity/position iteration hooks contacts get in
// solver.go (spec.md §4.6 applies equally to joints: "the position
// solver additionally walks joints").
type jointSolver interface {
	initVelocityConstraints(bA, bB *Body, dt float64)
	solveVelocityConstraints(bA, bB *Body)
	solvePositionConstraints(bA, bB *Body) bool
}

// Joint is the common envelope around a concrete joint solver.
type Joint struct {
	handle JointHandle
	typ    JointType

	bodyA, bodyB BodyHandle

	collideConnected bool

	islandFlag bool

	impl jointSolver

	userData interface{}
}

func (j *Joint) Handle() JointHandle    { return j.handle }
func (j *Joint) Type() JointType        { return j.typ }
func (j *Joint) BodyA() BodyHandle      { return j.bodyA }
func (j *Joint) BodyB() BodyHandle      { return j.bodyB }
func (j *Joint) UserData() interface{}  { return j.userData }

func (j *Joint) initVelocityConstraints(bA, bB *Body, dt float64) {
	j.impl.initVelocityConstraints(bA, bB, dt)
}
func (j *Joint) solveVelocityConstraints(bA, bB *Body) { j.impl.solveVelocityConstraints(bA, bB) }
func (j *Joint) solvePositionConstraints(bA, bB *Body) bool {
	return j.impl.solvePositionConstraints(bA, bB)
}

// DistanceJointDef configures a DistanceJoint (spec.md §3's simplest
// joint: hold two anchor points at a fixed rest length, with optional
// softness).
type DistanceJointDef struct {
	BodyA, BodyB     BodyHandle
	LocalAnchorA     Vec2
	LocalAnchorB     Vec2
	Length           float64
	Stiffness        float64 // 0 = rigid
	Damping          float64
	CollideConnected bool
}

// distanceJoint enforces |pB - pA| == Length, with an optional spring
// term when Stiffness > 0 (original_source's b2DistanceJoint soft mode).
type distanceJoint struct {
	def DistanceJointDef

	localCenterA, localCenterB Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64

	u        Vec2
	rA, rB   Vec2
	mass     float64
	bias     float64
	gamma    float64
	impulse  float64
	length   float64
}

func newDistanceJoint(def DistanceJointDef) *distanceJoint {
	return &distanceJoint{def: def, length: def.Length}
}

func (d *distanceJoint) initVelocityConstraints(bA, bB *Body, dt float64) {
	d.localCenterA = bA.sweep.LocalCenter
	d.localCenterB = bB.sweep.LocalCenter
	d.invMassA, d.invMassB = bA.invMass, bB.invMass
	d.invIA, d.invIB = bA.invI, bB.invI
	d.impulse = 0

	rA := bA.xf.Q.Mul(d.def.LocalAnchorA.Sub(d.localCenterA))
	rB := bB.xf.Q.Mul(d.def.LocalAnchorB.Sub(d.localCenterB))
	d.rA, d.rB = rA, rB

	u := bB.sweep.C1.Add(rB).Sub(bA.sweep.C1).Sub(rA)
	length := u.Len()
	if length > LinearSlop {
		d.u = u.Scale(1 / length)
	} else {
		d.u = Vec2{}
	}

	crA := rA.Cross(d.u)
	crB := rB.Cross(d.u)
	invMass := d.invMassA + d.invIA*crA*crA + d.invMassB + d.invIB*crB*crB
	if invMass > 0 {
		d.mass = 1 / invMass
	}

	if d.def.Stiffness > 0 {
		c := length - d.length
		omega := math.Sqrt(d.def.Stiffness / d.mass)
		d2 := 2 * d.mass * d.def.Damping * omega
		k := d.mass * d.def.Stiffness
		h := dt
		d.gamma = h * (d2 + h*k)
		if d.gamma != 0 {
			d.gamma = 1 / d.gamma
		}
		d.bias = c * h * k * d.gamma
		invMass += d.gamma
		if invMass > 0 {
			d.mass = 1 / invMass
		}
	} else {
		d.bias = 0
		d.gamma = 0
	}
}

func (d *distanceJoint) solveVelocityConstraints(bA, bB *Body) {
	vpA := bA.LinearVelocity.Add(CrossScalar(bA.AngularVelocity, d.rA))
	vpB := bB.LinearVelocity.Add(CrossScalar(bB.AngularVelocity, d.rB))
	cdot := d.u.Dot(vpB.Sub(vpA))

	impulse := -d.mass * (cdot + d.bias + d.gamma*d.impulse)
	d.impulse += impulse

	p := d.u.Scale(impulse)
	bA.LinearVelocity = bA.LinearVelocity.Sub(p.Scale(d.invMassA))
	bA.AngularVelocity -= d.invIA * d.rA.Cross(p)
	bB.LinearVelocity = bB.LinearVelocity.Add(p.Scale(d.invMassB))
	bB.AngularVelocity += d.invIB * d.rB.Cross(p)
}

func (d *distanceJoint) solvePositionConstraints(bA, bB *Body) bool {
	if d.def.Stiffness > 0 {
		return true // soft constraints are velocity-only, per Box2D convention
	}
	rA := bA.xf.Q.Mul(d.def.LocalAnchorA.Sub(d.localCenterA))
	rB := bB.xf.Q.Mul(d.def.LocalAnchorB.Sub(d.localCenterB))
	u := bB.sweep.C1.Add(rB).Sub(bA.sweep.C1).Sub(rA)
	length := u.Len()
	if length < 1e-9 {
		return true
	}
	u = u.Scale(1 / length)
	c := Clamp(length-d.length, -MaxLinearCorrection, MaxLinearCorrection)
	impulse := -d.mass * c

	crA := rA.Cross(u)
	crB := rB.Cross(u)
	invMass := d.invMassA + d.invIA*crA*crA + d.invMassB + d.invIB*crB*crB
	if invMass > 0 {
		impulse = -c / invMass
	}

	p := u.Scale(impulse)
	bA.sweep.C1 = bA.sweep.C1.Sub(p.Scale(d.invMassA))
	bA.sweep.A1 -= d.invIA * rA.Cross(p)
	bB.sweep.C1 = bB.sweep.C1.Add(p.Scale(d.invMassB))
	bB.sweep.A1 += d.invIB * rB.Cross(p)
	bA.synchronizeTransform()
	bB.synchronizeTransform()

	return math.Abs(c) < LinearSlop
}

// RevoluteJointDef configures a RevoluteJoint: a shared point anchor with
// optional angle limits and a motor (original_source's b2RevoluteJoint).
type RevoluteJointDef struct {
	BodyA, BodyB     BodyHandle
	LocalAnchorA     Vec2
	LocalAnchorB     Vec2
	ReferenceAngle   float64
	EnableLimit      bool
	LowerAngle       float64
	UpperAngle       float64
	EnableMotor      bool
	MotorSpeed       float64
	MaxMotorTorque   float64
	CollideConnected bool
}

// revoluteJoint pins two bodies to a shared world point and, optionally,
// bounds their relative angle and/or drives it at a target speed.
type revoluteJoint struct {
	def RevoluteJointDef

	localCenterA, localCenterB Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64

	rA, rB Vec2

	// 2x2 point-to-point mass matrix plus 1x1 angular mass for the motor
	// and limit rows, following Box2D's layout.
	mass    Mat22
	axialMass float64

	impulse      Vec2
	motorImpulse float64
	lowerImpulse float64
	upperImpulse float64

	angle float64
}

func newRevoluteJoint(def RevoluteJointDef) *revoluteJoint {
	return &revoluteJoint{def: def}
}

func (r *revoluteJoint) initVelocityConstraints(bA, bB *Body, dt float64) {
	r.localCenterA = bA.sweep.LocalCenter
	r.localCenterB = bB.sweep.LocalCenter
	r.invMassA, r.invMassB = bA.invMass, bB.invMass
	r.invIA, r.invIB = bA.invI, bB.invI

	r.rA = bA.xf.Q.Mul(r.def.LocalAnchorA.Sub(r.localCenterA))
	r.rB = bB.xf.Q.Mul(r.def.LocalAnchorB.Sub(r.localCenterB))

	mA, mB := r.invMassA, r.invMassB
	iA, iB := r.invIA, r.invIB

	k11 := mA + mB + iA*r.rA.Y*r.rA.Y + iB*r.rB.Y*r.rB.Y
	k12 := -iA*r.rA.X*r.rA.Y - iB*r.rB.X*r.rB.Y
	k22 := mA + mB + iA*r.rA.X*r.rA.X + iB*r.rB.X*r.rB.X
	r.mass = NewMat22(k11, k12, k12, k22)

	r.axialMass = iA + iB
	if r.axialMass > 0 {
		r.axialMass = 1 / r.axialMass
	}

	r.angle = (bB.sweep.A1 - bA.sweep.A1) - r.def.ReferenceAngle

	r.impulse = Vec2{}
	r.motorImpulse = 0
	r.lowerImpulse = 0
	r.upperImpulse = 0
}

func (r *revoluteJoint) solveVelocityConstraints(bA, bB *Body) {
	mA, mB := r.invMassA, r.invMassB
	iA, iB := r.invIA, r.invIB

	if r.def.EnableMotor {
		cdot := bB.AngularVelocity - bA.AngularVelocity - r.def.MotorSpeed
		impulse := -r.axialMass * cdot
		old := r.motorImpulse
		maxImpulse := r.def.MaxMotorTorque
		r.motorImpulse = Clamp(old+impulse, -maxImpulse, maxImpulse)
		impulse = r.motorImpulse - old
		bA.AngularVelocity -= iA * impulse
		bB.AngularVelocity += iB * impulse
	}

	if r.def.EnableLimit {
		c := r.angle - r.def.LowerAngle
		cdot := bB.AngularVelocity - bA.AngularVelocity
		impulse := -r.axialMass * (cdot + math.Max(c, 0)/0.02)
		old := r.lowerImpulse
		r.lowerImpulse = math.Max(old+impulse, 0)
		impulse = r.lowerImpulse - old
		bA.AngularVelocity -= iA * impulse
		bB.AngularVelocity += iB * impulse

		c = r.def.UpperAngle - r.angle
		cdot = bA.AngularVelocity - bB.AngularVelocity
		impulse = -r.axialMass * (cdot + math.Max(c, 0)/0.02)
		old = r.upperImpulse
		r.upperImpulse = math.Max(old+impulse, 0)
		impulse = r.upperImpulse - old
		bA.AngularVelocity += iA * impulse
		bB.AngularVelocity -= iB * impulse
	}

	vA, wA := bA.LinearVelocity, bA.AngularVelocity
	vB, wB := bB.LinearVelocity, bB.AngularVelocity

	cdot := vB.Add(CrossScalar(wB, r.rB)).Sub(vA).Sub(CrossScalar(wA, r.rA))
	impulse := r.mass.Solve(cdot.Neg())
	r.impulse = r.impulse.Add(impulse)

	bA.LinearVelocity = vA.Sub(impulse.Scale(mA))
	bA.AngularVelocity = wA - iA*r.rA.Cross(impulse)
	bB.LinearVelocity = vB.Add(impulse.Scale(mB))
	bB.AngularVelocity = wB + iB*r.rB.Cross(impulse)
}

func (r *revoluteJoint) solvePositionConstraints(bA, bB *Body) bool {
	rA := bA.xf.Q.Mul(r.def.LocalAnchorA.Sub(r.localCenterA))
	rB := bB.xf.Q.Mul(r.def.LocalAnchorB.Sub(r.localCenterB))

	c := bB.sweep.C1.Add(rB).Sub(bA.sweep.C1).Sub(rA)
	positionError := c.Len()

	mA, mB := r.invMassA, r.invMassB
	iA, iB := r.invIA, r.invIB

	k11 := mA + mB + iA*rA.Y*rA.Y + iB*rB.Y*rB.Y
	k12 := -iA*rA.X*rA.Y - iB*rB.X*rB.Y
	k22 := mA + mB + iA*rA.X*rA.X + iB*rB.X*rB.X
	k := NewMat22(k11, k12, k12, k22)
	impulse := k.Solve(c.Neg())

	bA.sweep.C1 = bA.sweep.C1.Sub(impulse.Scale(mA))
	bA.sweep.A1 -= iA * rA.Cross(impulse)
	bB.sweep.C1 = bB.sweep.C1.Add(impulse.Scale(mB))
	bB.sweep.A1 += iB * rB.Cross(impulse)
	bA.synchronizeTransform()
	bB.synchronizeTransform()

	return positionError <= LinearSlop
}

// ReactionForce returns the impulse the last velocity solve applied,
// scaled by 1/dt, matching Box2D's Joint::GetReactionForce contract
// (spec.md §3: "joints report their reaction force/torque").
func (j *Joint) ReactionForce(invDt float64) Vec2 {
	switch impl := j.impl.(type) {
	case *revoluteJoint:
		return impl.impulse.Scale(invDt)
	case *distanceJoint:
		return impl.u.Scale(impl.impulse * invDt)
	default:
		return Vec2{}
	}
}

// ReactionTorque returns the reaction torque of the last velocity solve.
func (j *Joint) ReactionTorque(invDt float64) float64 {
	switch impl := j.impl.(type) {
	case *revoluteJoint:
		return invDt * (impl.motorImpulse + impl.lowerImpulse - impl.upperImpulse)
	default:
		return 0
	}
}
