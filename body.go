package physics

import "github.com/google/uuid"

// body.go implements the Body entity of spec.md §3. Field and method
// naming follows the teacher's Body (space.go references body.m,
// body.v, body.sleepingIdleTime, body.arbiterList/constraintList as
// singly-linked threads); here the joint thread becomes a slice of
// JointHandles into the owning World's joint arena, per the handle model
// in handle.go, and the contact thread a slice of *Contact pointers.

// BodyType is the three-way variant spec.md §3 requires.
type BodyType uint8

const (
	BodyStatic BodyType = iota
	BodyKinematic
	BodyDynamic
)

// Body is a polymorphic rigid object. Static and Kinematic bodies expose
// InvMass == 0; FixedRotation implies InvI == 0.
type Body struct {
	handle BodyHandle
	world  *World

	typ BodyType

	sweep Sweep
	xf    Transform // current transform, derived from sweep at Alpha0=1 view

	LinearVelocity  Vec2
	AngularVelocity float64

	force  Vec2
	torque float64

	invMass float64
	invI    float64

	linearDamping  float64
	angularDamping float64
	gravityScale   float64

	awake            bool
	allowSleep       bool
	underActiveTime  float64
	impenetrable     bool // "bullet"
	fixedRotation    bool
	enabled          bool

	fixtures []FixtureHandle
	joints   []JointHandle
	contacts []*Contact

	islandVisited bool
	islandIndex   int

	// debugID survives handle reuse (handle.go bumps the generation on
	// free/reinsert), so logs and scene dumps can refer to a body across
	// its whole lifetime even after the slot it occupied is recycled.
	debugID string

	userData interface{}
}

// BodyDef collects the construction-time parameters for a Body, matching
// the teacher's NewBody(mass, inertia) extended with the fields spec.md
// §3 lists (damping, sleep flags, bullet, fixed rotation).
type BodyDef struct {
	Type           BodyType
	Position       Vec2
	Angle          float64
	LinearVelocity Vec2
	AngularVelocity float64
	LinearDamping  float64
	AngularDamping float64
	GravityScale   float64
	AllowSleep     bool
	Awake          bool
	FixedRotation  bool
	Bullet         bool
	Enabled        bool
	// DebugID optionally names this body for logs and scene dumps; a
	// random one is generated when left blank.
	DebugID  string
	UserData interface{}
}

// DefaultBodyDef returns a BodyDef with the same defaults Box2D uses for
// b2BodyDef (gravity scale 1, sleep allowed, awake, enabled).
func DefaultBodyDef() BodyDef {
	return BodyDef{
		Type:         BodyStatic,
		GravityScale: 1,
		AllowSleep:   true,
		Awake:        true,
		Enabled:      true,
	}
}

func newBody(def BodyDef, w *World) *Body {
	debugID := def.DebugID
	if debugID == "" {
		debugID = uuid.NewString()
	}
	b := &Body{
		world:          w,
		debugID:        debugID,
		typ:            def.Type,
		LinearVelocity: def.LinearVelocity,
		AngularVelocity: def.AngularVelocity,
		linearDamping:  def.LinearDamping,
		angularDamping: def.AngularDamping,
		gravityScale:   def.GravityScale,
		awake:          def.Awake || def.Type != BodyDynamic,
		allowSleep:     def.AllowSleep,
		impenetrable:   def.Bullet,
		fixedRotation:  def.FixedRotation,
		enabled:        def.Enabled,
		userData:       def.UserData,
	}
	q := NewRot(def.Angle)
	b.xf = Transform{P: def.Position, Q: q}
	b.sweep = Sweep{
		LocalCenter: Vec2{},
		C0:          def.Position,
		C1:          def.Position,
		A0:          def.Angle,
		A1:          def.Angle,
		Alpha0:      0,
	}
	if b.typ != BodyDynamic {
		b.invMass = 0
		b.invI = 0
	}
	return b
}

// Handle returns the stable handle identifying this body within its World.
func (b *Body) Handle() BodyHandle { return b.handle }

// DebugID returns this body's stable identifier, usable in logs across
// handle-generation boundaries.
func (b *Body) DebugID() string { return b.debugID }

func (b *Body) Type() BodyType { return b.typ }

func (b *Body) Transform() Transform { return b.xf }

func (b *Body) Position() Vec2 { return b.xf.P }

func (b *Body) Angle() float64 { return b.sweep.A1 }

func (b *Body) WorldCenter() Vec2 { return b.sweep.C1 }

func (b *Body) InvMass() float64 { return b.invMass }

func (b *Body) InvI() float64 { return b.invI }

func (b *Body) IsAwake() bool { return b.awake }

func (b *Body) IsEnabled() bool { return b.enabled }

func (b *Body) IsBullet() bool { return b.impenetrable }

func (b *Body) UserData() interface{} { return b.userData }

// SetAwake sets the awake bit. Waking a body resets its idle timer;
// putting it to sleep zeroes its velocities (spec.md §4.8).
func (b *Body) SetAwake(flag bool) {
	if b.typ == BodyStatic {
		return
	}
	if flag {
		b.underActiveTime = 0
		b.awake = true
	} else {
		b.awake = false
		b.underActiveTime = 0
		b.LinearVelocity = Vec2{}
		b.AngularVelocity = 0
		b.force = Vec2{}
		b.torque = 0
	}
}

// ApplyForce accumulates a force at a world point; wakes the body when wake
// is true, and ignores the force on a sleeping body otherwise (spec.md §4.8).
func (b *Body) ApplyForce(force, point Vec2, wake bool) {
	if b.typ != BodyDynamic {
		return
	}
	if wake && !b.awake {
		b.SetAwake(true)
	}
	if !b.awake {
		return
	}
	b.force = b.force.Add(force)
	b.torque += point.Sub(b.sweep.C1).Cross(force)
}

// ApplyForceToCenter applies a force through the center of mass (no torque).
func (b *Body) ApplyForceToCenter(force Vec2, wake bool) {
	if b.typ != BodyDynamic {
		return
	}
	if wake && !b.awake {
		b.SetAwake(true)
	}
	if !b.awake {
		return
	}
	b.force = b.force.Add(force)
}

// ApplyTorque accumulates torque, waking the body when wake is true; a
// sleeping body ignores the torque otherwise.
func (b *Body) ApplyTorque(torque float64, wake bool) {
	if b.typ != BodyDynamic {
		return
	}
	if wake && !b.awake {
		b.SetAwake(true)
	}
	if !b.awake {
		return
	}
	b.torque += torque
}

// ApplyLinearImpulse applies an instantaneous impulse at a world point.
func (b *Body) ApplyLinearImpulse(impulse, point Vec2, wake bool) {
	if b.typ != BodyDynamic {
		return
	}
	if wake && !b.awake {
		b.SetAwake(true)
	}
	if !b.awake {
		return
	}
	b.LinearVelocity = b.LinearVelocity.Add(impulse.Scale(b.invMass))
	b.AngularVelocity += b.invI * point.Sub(b.sweep.C1).Cross(impulse)
}

func (b *Body) clearForces() {
	b.force = Vec2{}
	b.torque = 0
}

// synchronizeTransform recomputes xf from the sweep at alpha=1 (end of step).
func (b *Body) synchronizeTransform() {
	b.xf.Q = NewRot(b.sweep.A1)
	b.xf.P = b.sweep.C1.Sub(b.xf.Q.Mul(b.sweep.LocalCenter))
}

// resetMassData recomputes invMass/invI from the body's fixtures
// (spec.md §3: "Density re-computes body mass when set").
func (b *Body) resetMassData(w *World) {
	b.invMass = 0
	b.invI = 0
	b.sweep.LocalCenter = Vec2{}

	if b.typ != BodyDynamic {
		b.sweep.C0 = b.xf.P
		b.sweep.C1 = b.xf.P
		b.sweep.A0 = b.sweep.A1
		return
	}

	mass := 0.0
	center := Vec2{}
	inertia := 0.0
	for _, fh := range b.fixtures {
		f := w.mustFixture(fh)
		if f.density == 0 {
			continue
		}
		md := f.shape.MassData(f.density)
		mass += md.mass
		center = center.Add(md.center.Scale(md.mass))
		inertia += md.i
	}

	if mass > 0 {
		b.invMass = 1 / mass
		center = center.Scale(b.invMass)
	} else {
		// Force positive mass for dynamic bodies with no density-bearing fixtures.
		b.invMass = 1
	}

	if inertia > 0 && !b.fixedRotation {
		inertia -= mass * center.Dot(center)
		assert(inertia > 0, "invalid inertia for body")
		b.invI = 1 / inertia
	} else {
		b.invI = 0
	}

	oldCenter := b.sweep.C1
	b.sweep.LocalCenter = center
	b.sweep.C1 = b.xf.Mul(center)
	b.sweep.C0 = b.sweep.C1
	// Preserve velocity consistency at the new center of mass.
	b.LinearVelocity = b.LinearVelocity.Add(CrossScalar(b.AngularVelocity, b.sweep.C1.Sub(oldCenter)))
}
