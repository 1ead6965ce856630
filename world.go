package physics

import (
	"log/slog"

	"github.com/google/uuid"
)

// world.go implements the World Step Driver of spec.md §4.9 and the
// entity-lifecycle surface of §6: World owns every Body/Fixture/Joint
// arena, the broad-phase, and the contact manager, and Step() runs the
// fixed 11-stage pipeline the spec lays out. Grounded in the teacher's
// Space (space.go: NewSpace/AddBody/AddShape/AddConstraint/Step/Lock/
// Unlock), generalized from Chipmunk's arbiter-thread model to the
// handle-arena + island model the rest of this package uses.

// World owns the entire simulable scene: bodies, fixtures, joints, the
// broad-phase tree and the persistent contact graph (spec.md §3).
type World struct {
	// id disambiguates log lines when a host runs more than one World
	// (spec.md's core stays single-World-per-call, but cmd/rigid2dsim and
	// any embedding host may juggle several).
	id string

	bodies   *handleArena[Body]
	fixtures *handleArena[Fixture]
	joints   *handleArena[Joint]

	broadPhase     *BroadPhase
	contactManager *ContactManager

	gravity Vec2
	conf    StepConf

	locked bool

	contactFilter ContactFilter
	logger        *slog.Logger

	lastStats StepStats
}

// WorldDef configures a new World (spec.md §3).
type WorldDef struct {
	Gravity Vec2
	Conf    StepConf
	Logger  *slog.Logger
}

// DefaultWorldDef mirrors Box2D's customary downward-gravity, 60Hz setup.
func DefaultWorldDef() WorldDef {
	return WorldDef{Gravity: Vec2{0, -9.8}, Conf: DefaultStepConf()}
}

// NewWorld constructs an empty World ready to accept bodies and fixtures.
func NewWorld(def WorldDef) *World {
	w := &World{
		id:            uuid.NewString(),
		bodies:        newHandleArena[Body](),
		fixtures:      newHandleArena[Fixture](),
		joints:        newHandleArena[Joint](),
		broadPhase:    NewBroadPhase(AabbExtension),
		gravity:       def.Gravity,
		conf:          def.Conf,
		contactFilter: DefaultContactFilter{},
		logger:        def.Logger,
	}
	w.contactManager = NewContactManager(w.broadPhase, NopContactListener{})
	return w
}

// SetContactListener installs the callback set ContactManager drives for
// begin/end/pre/post-solve notifications (spec.md §6).
func (w *World) SetContactListener(l ContactListener) {
	if l == nil {
		l = NopContactListener{}
	}
	w.contactManager.callbacks = l
}

// SetContactFilter installs a custom collision filter, consulted after
// the built-in Filter.Reject rule.
func (w *World) SetContactFilter(f ContactFilter) {
	if f == nil {
		f = DefaultContactFilter{}
	}
	w.contactFilter = f
}

// SetGravity updates the world's gravity vector, applied to every
// dynamic body at the start of the next Step.
func (w *World) SetGravity(g Vec2) { w.gravity = g }

// ID returns this World's stable debug identifier.
func (w *World) ID() string { return w.id }

func (w *World) mustBody(h BodyHandle) *Body       { return w.bodies.mustGet(h.index, h.generation) }
func (w *World) mustFixture(h FixtureHandle) *Fixture { return w.fixtures.mustGet(h.index, h.generation) }
func (w *World) mustJoint(h JointHandle) *Joint    { return w.joints.mustGet(h.index, h.generation) }

func (w *World) shouldCollide(a, b BodyHandle) bool {
	bA := w.mustBody(a)
	for _, jh := range bA.joints {
		j := w.mustJoint(jh)
		if !j.collideConnected && ((j.bodyA == a && j.bodyB == b) || (j.bodyA == b && j.bodyB == a)) {
			return false
		}
	}
	return true
}

func (w *World) requireUnlocked(op string) error {
	if w.locked {
		return wrapLocked(op)
	}
	return nil
}

// CreateBody adds a Body to the World and returns its handle. Returns
// ErrWorldLocked if called from inside a contact/step callback (spec.md
// §5, §7).
func (w *World) CreateBody(def BodyDef) (BodyHandle, error) {
	if err := w.requireUnlocked("CreateBody"); err != nil {
		return BodyHandle{}, err
	}
	b := newBody(def, w)
	idx, gen := w.bodies.insert(*b)
	h := BodyHandle{index: idx, generation: gen}
	w.bodies.slots[idx].handle = h
	return h, nil
}

// DestroyBody removes a Body and every fixture/joint/contact attached to
// it. Returns ErrWorldLocked if the world is mid-step.
func (w *World) DestroyBody(h BodyHandle) error {
	if err := w.requireUnlocked("DestroyBody"); err != nil {
		return err
	}
	b := w.mustBody(h)

	for _, jh := range append([]JointHandle(nil), b.joints...) {
		_ = w.DestroyJoint(jh)
	}
	for _, fh := range append([]FixtureHandle(nil), b.fixtures...) {
		_ = w.DestroyFixture(fh)
	}

	w.bodies.remove(h.index)
	return nil
}

// Body returns a pointer to the live Body for h, or nil if the handle is
// stale (unlike mustBody, this is the public, non-panicking accessor).
func (w *World) Body(h BodyHandle) (*Body, bool) {
	return w.bodies.get(h.index, h.generation)
}

// CreateFixture attaches a Fixture to body, registering one broad-phase
// proxy per shape child (spec.md §3, §4.1).
func (w *World) CreateFixture(body BodyHandle, def FixtureDef) (FixtureHandle, error) {
	if err := w.requireUnlocked("CreateFixture"); err != nil {
		return FixtureHandle{}, err
	}
	if def.Shape == nil {
		return FixtureHandle{}, wrapInvalid("CreateFixture", "shape must not be nil")
	}
	b := w.mustBody(body)

	f := newFixture(def, body)
	idx, gen := w.fixtures.insert(*f)
	fh := FixtureHandle{index: idx, generation: gen}
	w.fixtures.slots[idx].handle = fh

	n := def.Shape.ChildCount()
	proxies := make([]fixtureProxy, n)
	for i := 0; i < n; i++ {
		aabb := def.Shape.ComputeAABB(b.xf, i)
		proxy := w.broadPhase.CreateProxy(aabb, fixtureProxyRef{fixture: fh, child: i})
		proxies[i] = fixtureProxy{aabb: aabb, proxy: proxy, child: i}
	}
	w.fixtures.slots[idx].proxies = proxies

	b.fixtures = append(b.fixtures, fh)
	if def.Density > 0 {
		b.resetMassData(w)
	}
	return fh, nil
}

// DestroyFixture removes a Fixture, its broad-phase proxies, and any
// contact referencing it.
func (w *World) DestroyFixture(h FixtureHandle) error {
	if err := w.requireUnlocked("DestroyFixture"); err != nil {
		return err
	}
	f := w.mustFixture(h)
	b := w.mustBody(f.body)

	for key, c := range w.contactManager.contacts {
		if c.fixtureA == h || c.fixtureB == h {
			w.contactManager.destroy(w, key, c)
		}
	}

	for _, p := range f.proxies {
		w.broadPhase.DestroyProxy(p.proxy)
	}

	for i, fh := range b.fixtures {
		if fh == h {
			b.fixtures = append(b.fixtures[:i], b.fixtures[i+1:]...)
			break
		}
	}

	w.fixtures.remove(h.index)
	b.resetMassData(w)
	return nil
}

// Fixture returns a pointer to the live Fixture for h.
func (w *World) Fixture(h FixtureHandle) (*Fixture, bool) {
	return w.fixtures.get(h.index, h.generation)
}

// CreateDistanceJoint adds a DistanceJoint between two bodies.
func (w *World) CreateDistanceJoint(def DistanceJointDef) (JointHandle, error) {
	return w.createJoint(def.BodyA, def.BodyB, def.CollideConnected, DistanceJointType, newDistanceJoint(def))
}

// CreateRevoluteJoint adds a RevoluteJoint between two bodies.
func (w *World) CreateRevoluteJoint(def RevoluteJointDef) (JointHandle, error) {
	return w.createJoint(def.BodyA, def.BodyB, def.CollideConnected, RevoluteJointType, newRevoluteJoint(def))
}

func (w *World) createJoint(bodyA, bodyB BodyHandle, collideConnected bool, typ JointType, impl jointSolver) (JointHandle, error) {
	if err := w.requireUnlocked("CreateJoint"); err != nil {
		return JointHandle{}, err
	}
	if !bodyA.Valid() || !bodyB.Valid() {
		return JointHandle{}, wrapInvalid("CreateJoint", "both bodies must be valid")
	}
	j := &Joint{typ: typ, bodyA: bodyA, bodyB: bodyB, collideConnected: collideConnected, impl: impl}
	idx, gen := w.joints.insert(*j)
	jh := JointHandle{index: idx, generation: gen}
	w.joints.slots[idx].handle = jh

	a := w.mustBody(bodyA)
	b := w.mustBody(bodyB)
	a.joints = append(a.joints, jh)
	b.joints = append(b.joints, jh)
	a.SetAwake(true)
	b.SetAwake(true)

	return jh, nil
}

// DestroyJoint removes a Joint from the World.
func (w *World) DestroyJoint(h JointHandle) error {
	if err := w.requireUnlocked("DestroyJoint"); err != nil {
		return err
	}
	j := w.mustJoint(h)
	a := w.mustBody(j.bodyA)
	b := w.mustBody(j.bodyB)
	removeJointHandle(&a.joints, h)
	removeJointHandle(&b.joints, h)
	a.SetAwake(true)
	b.SetAwake(true)
	w.joints.remove(h.index)
	return nil
}

func removeJointHandle(list *[]JointHandle, h JointHandle) {
	for i, jh := range *list {
		if jh == h {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// Joint returns a pointer to the live Joint for h.
func (w *World) Joint(h JointHandle) (*Joint, bool) {
	return w.joints.get(h.index, h.generation)
}

// linkContact threads a newly created contact onto both bodies'
// incident-contact lists.
func (w *World) linkContact(a, b BodyHandle, c *Contact) {
	bA := w.mustBody(a)
	bB := w.mustBody(b)
	bA.contacts = append(bA.contacts, c)
	bB.contacts = append(bB.contacts, c)
	bA.SetAwake(true)
	bB.SetAwake(true)
}

// unlinkContact removes a destroyed contact from both bodies'
// incident-contact lists.
func (w *World) unlinkContact(a, b BodyHandle, c *Contact) {
	bA, ok := w.Body(a)
	if ok {
		removeContact(&bA.contacts, c)
	}
	bB, ok := w.Body(b)
	if ok {
		removeContact(&bB.contacts, c)
	}
}

func removeContact(list *[]*Contact, c *Contact) {
	for i, cc := range *list {
		if cc == c {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// QueryAABB invokes cb once per fixture proxy (one per shape child) whose
// fattened broad-phase AABB overlaps aabb (spec.md §6).
func (w *World) QueryAABB(aabb AABB, cb QueryCallback) {
	w.broadPhase.Query(aabb, func(_ proxyHandle, userData interface{}) bool {
		ref := userData.(fixtureProxyRef)
		return cb(ref.fixture)
	})
}

// RayCast casts a segment from p1 to p2 through the broad-phase, invoking
// cb for every fixture hit (spec.md §6).
func (w *World) RayCast(p1, p2 Vec2, cb RayCastCallback) {
	input := RayCastInput{P1: p1, P2: p2, MaxFraction: 1}
	w.broadPhase.RayCast(input, func(userData interface{}, in RayCastInput) float64 {
		ref := userData.(fixtureProxyRef)
		f := w.mustFixture(ref.fixture)
		b := w.mustBody(f.body)
		point, normal, fraction, hit := rayCastShape(f.shape, ref.child, b.xf, in.P1, in.P2)
		if !hit {
			return in.MaxFraction
		}
		return cb(ref.fixture, point, normal, fraction)
	})
}

// rayCastShape performs a ray-vs-shape test against each concrete shape
// kind's child geometry, in world space.
func rayCastShape(s Shape, child int, xf Transform, p1, p2 Vec2) (Vec2, Vec2, float64, bool) {
	proxy := s.Proxy(child)
	if len(proxy.Normals) == 0 {
		return rayCastCircle(xf.Mul(proxy.Vertices[0]), proxy.Radius, p1, p2)
	}
	return rayCastPolygon(proxy, xf, p1, p2)
}

func rayCastCircle(center Vec2, radius float64, p1, p2 Vec2) (Vec2, Vec2, float64, bool) {
	s := p1.Sub(center)
	b := s.Dot(s) - radius*radius
	d := p2.Sub(p1)
	c := s.Dot(d)
	rr := d.Dot(d)
	sigma := c*c - rr*b
	if sigma < 0 || rr < 1e-18 {
		return Vec2{}, Vec2{}, 0, false
	}
	t := -(c + sqrtApprox(sigma))
	if t < 0 || t > rr {
		return Vec2{}, Vec2{}, 0, false
	}
	t /= rr
	point := p1.Add(d.Scale(t))
	normal := point.Sub(center).Normalized()
	return point, normal, t, true
}

func rayCastPolygon(proxy DistanceProxy, xf Transform, p1, p2 Vec2) (Vec2, Vec2, float64, bool) {
	p1l := xf.MulT(p1)
	p2l := xf.MulT(p2)
	d := p2l.Sub(p1l)

	lower, upper := 0.0, 1.0
	index := -1

	for i, n := range proxy.Normals {
		numerator := n.Dot(proxy.Vertices[i].Sub(p1l))
		denominator := n.Dot(d)
		if denominator == 0 {
			if numerator < 0 {
				return Vec2{}, Vec2{}, 0, false
			}
			continue
		}
		t := numerator / denominator
		if denominator < 0 && t > lower {
			lower = t
			index = i
		} else if denominator > 0 && t < upper {
			upper = t
		}
		if upper < lower {
			return Vec2{}, Vec2{}, 0, false
		}
	}

	if index < 0 {
		return Vec2{}, Vec2{}, 0, false
	}

	point := p1l.Add(d.Scale(lower))
	worldPoint := xf.Mul(point)
	normal := xf.Q.Mul(proxy.Normals[index])
	return worldPoint, normal, lower, true
}

// Step advances the simulation by conf.DeltaTime, running spec.md §4.9's
// fixed pipeline: broad-phase pair discovery, narrow-phase manifold
// generation, island assembly, velocity/position solving, TOI
// sub-stepping, and sleep bookkeeping.
func (w *World) Step(conf StepConf) StepStats {
	w.conf = conf
	w.locked = true
	defer func() { w.locked = false }()

	// 1. broad-phase: discover new overlapping pairs.
	w.contactManager.findNewContacts(w)

	// 2. narrow-phase: update manifolds, touching flags, begin/end callbacks.
	w.contactManager.collide(w)

	// 3. integrate forces into velocities for awake dynamic bodies.
	dt := conf.DeltaTime
	for i := range w.bodies.slots {
		if !w.bodies.alive[i] {
			continue
		}
		b := &w.bodies.slots[i]
		if b.typ != BodyDynamic || !b.awake {
			continue
		}
		b.LinearVelocity = b.LinearVelocity.Add(w.gravity.Scale(b.gravityScale).Add(b.force.Scale(b.invMass)).Scale(dt))
		b.AngularVelocity += dt * b.invI * b.torque
		b.LinearVelocity = b.LinearVelocity.Scale(1 / (1 + dt*b.linearDamping))
		b.AngularVelocity *= 1 / (1 + dt*b.angularDamping)
	}

	// 4. assemble islands of awake, linked bodies.
	islands := buildIslands(w)

	touching := 0
	for _, c := range w.contactManager.contacts {
		if c.isTouching() {
			touching++
		}
	}

	// 5-8. solve each island: warm-start, velocity iterations, integrate
	// positions, position iterations, sleep bookkeeping.
	for _, isl := range islands {
		solveIsland(w, isl, conf, dt)
		updateSleep(isl, conf, dt)
	}

	// 9. synchronize the broad-phase with each moved fixture's new AABB.
	w.synchronizeFixtures(dt)

	// 10. clear forces accumulated this step.
	for i := range w.bodies.slots {
		if w.bodies.alive[i] {
			w.bodies.slots[i].clearForces()
		}
	}

	// 11. continuous collision: prevent tunneling for impenetrable bodies.
	toiSubSteps := solveTOI(w, conf)

	w.lastStats = StepStats{
		BodyCount:     len(w.bodies.slots),
		ContactCount:  len(w.contactManager.contacts),
		TouchingCount: touching,
		IslandCount:   len(islands),
		ToiSubSteps:   toiSubSteps,
	}
	return w.lastStats
}

// solveIsland runs spec.md §4.6's full per-island sequence: prepare
// contacts, warm-start, velocityIterations velocity passes, integrate
// sweeps forward by dt, then positionIterations position passes.
func solveIsland(w *World, isl *island, conf StepConf, dt float64) {
	vcs, pcs := prepareContacts(isl.contacts, w, conf)

	for _, j := range isl.joints {
		bA := w.mustBody(j.bodyA)
		bB := w.mustBody(j.bodyB)
		j.initVelocityConstraints(bA, bB, dt)
	}

	if conf.EnableWarmStarting {
		warmStart(vcs)
	}

	for i := 0; i < conf.VelocityIterations; i++ {
		for _, j := range isl.joints {
			bA := w.mustBody(j.bodyA)
			bB := w.mustBody(j.bodyB)
			j.solveVelocityConstraints(bA, bB)
		}
		solveVelocityConstraints(vcs)
	}

	firePostSolve(w, vcs)

	for _, b := range isl.bodies {
		if b.typ == BodyStatic {
			continue
		}
		clampVelocity(w, b)
		translation := b.LinearVelocity.Scale(dt)
		if translation.LenSq() > MaxTranslation*MaxTranslation {
			ratio := MaxTranslation / translation.Len()
			b.LinearVelocity = b.LinearVelocity.Scale(ratio)
		}
		rotation := b.AngularVelocity * dt
		if rotation*rotation > MaxRotation*MaxRotation {
			ratio := MaxRotation / abs(rotation)
			b.AngularVelocity *= ratio
		}
		b.sweep.C0 = b.sweep.C1
		b.sweep.A0 = b.sweep.A1
		b.sweep.C1 = b.sweep.C1.Add(b.LinearVelocity.Scale(dt))
		b.sweep.A1 += b.AngularVelocity * dt
		b.synchronizeTransform()
	}

	positionSolved := false
	for i := 0; i < conf.PositionIterations; i++ {
		contactsOK := solvePositionConstraints(pcs)
		jointsOK := true
		for _, j := range isl.joints {
			bA := w.mustBody(j.bodyA)
			bB := w.mustBody(j.bodyB)
			if !j.solvePositionConstraints(bA, bB) {
				jointsOK = false
			}
		}
		if contactsOK && jointsOK {
			positionSolved = true
			break
		}
	}
	_ = positionSolved

	storeImpulses(vcs)
}

func clampVelocity(w *World, b *Body) {
	if !isFiniteVec2(b.LinearVelocity) {
		logNumericFailure(w.logger, NumericFailure{Body: b.handle, DebugID: b.debugID, Field: "LinearVelocity", Before: b.LinearVelocity})
		b.LinearVelocity = Vec2{}
	}
	if !isFiniteFloat(b.AngularVelocity) {
		logNumericFailure(w.logger, NumericFailure{Body: b.handle, DebugID: b.debugID, Field: "AngularVelocity", Before: Vec2{X: b.AngularVelocity}})
		b.AngularVelocity = 0
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// synchronizeFixtures recomputes every awake body's fixture AABBs and
// feeds displacement-predicted updates to the broad-phase (spec.md §4.1,
// §4.9 step 9).
func (w *World) synchronizeFixtures(dt float64) {
	for i := range w.bodies.slots {
		if !w.bodies.alive[i] {
			continue
		}
		b := &w.bodies.slots[i]
		if !b.awake || b.typ == BodyStatic {
			continue
		}
		displacement := b.LinearVelocity.Scale(AabbMultiplier * dt)
		for _, fh := range b.fixtures {
			f := w.mustFixture(fh)
			for pi := range f.proxies {
				p := &f.proxies[pi]
				aabb := f.shape.ComputeAABB(b.xf, p.child)
				p.aabb = aabb
				w.broadPhase.UpdateProxy(p.proxy, aabb, displacement)
			}
		}
	}
}

// LastStats returns the StepStats produced by the most recent Step call.
func (w *World) LastStats() StepStats { return w.lastStats }

// IsLocked reports whether the world is mid-step (spec.md §5, §7).
func (w *World) IsLocked() bool { return w.locked }
