package physics

// contact.go implements the ContactManager of spec.md §4.2, grounded in
// the teacher's arbiter bookkeeping (_examples/undefinedopcode-cp/space.go
// threads arbiters through SpaceArbiterSetTrans/UncacheArbiter/PushContacts)
// generalized from Chipmunk's persistent-arbiter model to Box2D-style
// per-fixture-pair Contacts with a touching/not-touching state machine.

// contactFlags tracks the bits of spec.md §4.2's contact state machine.
type contactFlags uint8

const (
	contactTouching contactFlags = 1 << iota
	contactEnabled
	contactFiltering
	contactBullet
	contactIsland
	contactToi
)

// Contact is the persistent record of a potentially-colliding fixture
// pair, created when the broad-phase reports a new overlapping AABB pair
// and destroyed when the pair stops overlapping (spec.md §4.2).
type Contact struct {
	fixtureA, fixtureB FixtureHandle
	childA, childB     int
	bodyA, bodyB       BodyHandle

	manifold     Manifold
	prevManifold Manifold

	flags contactFlags

	friction    float64
	restitution float64

	toiCount float64
	toi      float64

	userData interface{}
}

func (c *Contact) isTouching() bool  { return c.flags&contactTouching != 0 }
func (c *Contact) isEnabled() bool   { return c.flags&contactEnabled != 0 }
func (c *Contact) needsFilter() bool { return c.flags&contactFiltering != 0 }

// IsTouching reports whether the manifold currently has contact points.
func (c *Contact) IsTouching() bool { return c.isTouching() }

// FixtureA and FixtureB return the handles of the colliding pair.
func (c *Contact) FixtureA() FixtureHandle { return c.fixtureA }
func (c *Contact) FixtureB() FixtureHandle { return c.fixtureB }

// ChildA and ChildB return the shape child index each fixture contributed.
func (c *Contact) ChildA() int { return c.childA }
func (c *Contact) ChildB() int { return c.childB }

// Manifold returns the contact's current local-space manifold.
func (c *Contact) Manifold() Manifold { return c.manifold }

// Friction and Restitution return the mixed coefficients used by the solver.
func (c *Contact) Friction() float64    { return c.friction }
func (c *Contact) Restitution() float64 { return c.restitution }

// SetFriction and SetRestitution override the mixed coefficients for this
// contact only, per spec.md §6's pre-solve callback contract.
func (c *Contact) SetFriction(f float64)    { c.friction = f }
func (c *Contact) SetRestitution(r float64) { c.restitution = r }

// UserData returns the opaque value the application attached, if any.
func (c *Contact) UserData() interface{} { return c.userData }

// SetUserData stores an application-defined opaque value.
func (c *Contact) SetUserData(v interface{}) { c.userData = v }

func newContact(fA, fB FixtureHandle, bodyA, bodyB BodyHandle, childA, childB int, frictionMix, restitutionMix float64) *Contact {
	return &Contact{
		fixtureA: fA, fixtureB: fB,
		bodyA: bodyA, bodyB: bodyB,
		childA: childA, childB: childB,
		flags:       contactEnabled,
		friction:    frictionMix,
		restitution: restitutionMix,
	}
}

// mixFriction and mixRestitution follow Box2D's defaults: geometric mean
// for friction, max for restitution (spec.md §4.2 leaves the mix rule to
// "the usual convention").
func mixFriction(a, b float64) float64 {
	if a*b < 0 {
		return 0
	}
	return sqrtApprox(a * b)
}

func mixRestitution(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func sqrtApprox(v float64) float64 {
	if v <= 0 {
		return 0
	}
	x := v
	for i := 0; i < 20; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

// contactPair identifies a broad-phase-reported AABB overlap between two
// fixture proxies, prior to any filtering.
type contactPair struct {
	proxyA, proxyB proxyHandle
}

// ContactManager owns the World's set of persistent contacts, creating
// and destroying them as the broad-phase's moved-proxy set changes pairs,
// and running the narrow phase + begin/end touch callbacks each step
// (spec.md §4.2, §4.9 step 2-3).
type ContactManager struct {
	broadPhase *BroadPhase
	contacts   map[contactKey]*Contact
	callbacks  ContactListener
}

// contactKey uniquely identifies an unordered fixture-proxy pair so the
// manager can deduplicate FindNewContacts' reports (spec.md §4.1's pair
// cache feeding §4.2's contact creation).
type contactKey struct {
	a, b proxyHandle
}

func newContactKey(a, b proxyHandle) contactKey {
	if a.index > b.index {
		a, b = b, a
	}
	return contactKey{a, b}
}

// NewContactManager wires a ContactManager to a broad-phase and an
// optional listener (nil is valid: spec.md §6 callbacks are all optional).
func NewContactManager(bp *BroadPhase, listener ContactListener) *ContactManager {
	return &ContactManager{broadPhase: bp, contacts: make(map[contactKey]*Contact), callbacks: listener}
}

// findNewContacts drains the broad-phase's moved-proxy buffer, queries
// each fattened AABB against the tree, and creates a Contact for any new
// overlapping pair not already tracked (spec.md §4.1 "FindNewContacts").
func (cm *ContactManager) findNewContacts(w *World) {
	moved := cm.broadPhase.MovedProxies()
	for _, proxyA := range moved {
		aabbA := cm.broadPhase.GetAABB(proxyA)
		fpAVal := cm.broadPhase.GetUserData(proxyA).(fixtureProxyRef)
		cm.broadPhase.Query(aabbA, func(proxyB proxyHandle, userData interface{}) bool {
			if proxyB == proxyA {
				return true
			}
			key := newContactKey(proxyA, proxyB)
			if _, exists := cm.contacts[key]; exists {
				return true
			}
			fpA := fpAVal
			fpB := userData.(fixtureProxyRef)
			if fpA.fixture == fpB.fixture {
				return true
			}
			fA := w.mustFixture(fpA.fixture)
			fB := w.mustFixture(fpB.fixture)
			if fA.body == fB.body {
				return true
			}
			if fA.filter.Reject(fB.filter) {
				return true
			}
			if !w.shouldCollide(fA.body, fB.body) {
				return true
			}
			if !w.contactFilter.ShouldCollide(fpA.fixture, fpB.fixture) {
				return true
			}
			c := newContact(fpA.fixture, fpB.fixture, fA.body, fB.body, fpA.child, fpB.child,
				mixFriction(fA.friction, fB.friction), mixRestitution(fA.restitution, fB.restitution))
			cm.contacts[key] = c
			w.linkContact(fA.body, fB.body, c)
			return true
		})
	}
}

// fixtureProxyRef is the broad-phase user-data payload for a fixture's
// proxy, letting findNewContacts map a proxy handle back to its fixture
// and child index (spec.md §4.1's proxy "points back to its owning
// fixture").
type fixtureProxyRef struct {
	fixture FixtureHandle
	child   int
}

// collide runs the narrow phase for every enabled, filter-passed,
// currently-overlapping contact, updates the touching flag, persists
// warm-start impulses by matching contact-feature IDs, and destroys
// contacts whose fixtures no longer overlap in the broad phase (spec.md
// §4.2, §4.9 step 3).
func (cm *ContactManager) collide(w *World) {
	for key, c := range cm.contacts {
		fA := w.mustFixture(c.fixtureA)
		fB := w.mustFixture(c.fixtureB)
		bA := w.mustBody(c.bodyA)
		bB := w.mustBody(c.bodyB)

		if !bA.awake && !bB.awake {
			continue
		}

		if !cm.proxiesOverlap(fA, c.childA, fB, c.childB) {
			cm.destroy(w, key, c)
			continue
		}

		if c.needsFilter() {
			if fA.filter.Reject(fB.filter) || !w.shouldCollide(c.bodyA, c.bodyB) || !w.contactFilter.ShouldCollide(c.fixtureA, c.fixtureB) {
				cm.destroy(w, key, c)
				continue
			}
			c.flags &^= contactFiltering
		}

		wasTouching := c.isTouching()

		sensor := fA.sensor || fB.sensor
		var touching bool
		if sensor {
			proxyA := fA.shape.Proxy(c.childA)
			proxyB := fB.shape.Proxy(c.childB)
			cache := &SimplexCache{}
			out := Distance(DistanceInput{ProxyA: proxyA, ProxyB: proxyB, TransformA: bA.xf, TransformB: bB.xf, UseRadii: true}, cache)
			touching = out.Distance < 10*LinearSlop
			c.manifold = Manifold{}
		} else {
			old := c.manifold
			proxyA := fA.shape.Proxy(c.childA)
			proxyB := fB.shape.Proxy(c.childB)
			m := CollideShapes(proxyA, proxyB, bA.xf, bB.xf, ManifoldConfig{Slop: LinearSlop, MaxCirclesRatio: 0})
			if w.conf.EnableWarmStarting {
				warmStartManifold(&m, old)
			}
			c.prevManifold = old
			c.manifold = m
			touching = len(m.Points) > 0
		}

		if touching {
			c.flags |= contactTouching
		} else {
			c.flags &^= contactTouching
		}

		if touching && !wasTouching && cm.callbacks != nil {
			cm.callbacks.BeginContact(c)
		}
		if !touching && wasTouching && cm.callbacks != nil {
			cm.callbacks.EndContact(c)
		}
	}
}

// proxiesOverlap re-tests the fattened broad-phase AABBs for the two
// fixtures' proxies, the condition under which a Contact is kept alive
// (spec.md §4.2).
func (cm *ContactManager) proxiesOverlap(fA *Fixture, childA int, fB *Fixture, childB int) bool {
	var aabbA, aabbB AABB
	for _, p := range fA.proxies {
		if p.child == childA {
			aabbA = cm.broadPhase.GetAABB(p.proxy)
		}
	}
	for _, p := range fB.proxies {
		if p.child == childB {
			aabbB = cm.broadPhase.GetAABB(p.proxy)
		}
	}
	return aabbA.Overlaps(aabbB)
}

func (cm *ContactManager) destroy(w *World, key contactKey, c *Contact) {
	if c.isTouching() && cm.callbacks != nil {
		cm.callbacks.EndContact(c)
	}
	w.unlinkContact(c.bodyA, c.bodyB, c)
	delete(cm.contacts, key)
}

// warmStartManifold copies normal/tangent impulses from the previous
// manifold to matching points in the new one by ContactFeature identity,
// spec.md §4.3's "persist impulses across steps by matching ids".
func warmStartManifold(m *Manifold, old Manifold) {
	for i := range m.Points {
		for _, op := range old.Points {
			if op.ID == m.Points[i].ID {
				m.Points[i].NormalImpulse = op.NormalImpulse
				m.Points[i].TangentImpulse = op.TangentImpulse
				break
			}
		}
	}
}

// ContactListener is spec.md §6's begin/end/pre-solve/post-solve contact
// callback contract.
type ContactListener interface {
	BeginContact(c *Contact)
	EndContact(c *Contact)
	PreSolve(c *Contact, oldManifold Manifold)
	PostSolve(c *Contact, impulse *ContactImpulse)
}

// ContactImpulse reports the per-point normal/tangent impulses applied
// during the velocity solve, for PostSolve callbacks (spec.md §6).
type ContactImpulse struct {
	NormalImpulses  [2]float64
	TangentImpulses [2]float64
	Count           int
}
