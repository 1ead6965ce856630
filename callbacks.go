package physics

// callbacks.go collects the external interface contracts of spec.md §6:
// query and ray-cast visitors plus the contact listener ContactManager
// drives (declared in contact.go). Grounded in the teacher's
// QueryReject/EachBody/PointQueryNearest visitor style (space.go) and
// original_source/Box2D's b2QueryCallback/b2RayCastCallback.

// QueryCallback is invoked once per fixture proxy (one per shape child)
// whose fattened AABB overlaps a World.QueryAABB region. Returning false stops the query early
// (spec.md §6).
type QueryCallback func(fixture FixtureHandle) bool

// RayCastCallback is invoked once per fixture hit during a World.RayCast
// sweep, with the world-space point, normal, and hit fraction. The
// returned value is the new fraction to clip the ray to: 0 stops the
// cast, -1 ignores this fixture and continues, and the fixture's own
// fraction continues clipping normally (spec.md §6, matching Box2D's
// b2RayCastCallback contract).
type RayCastCallback func(fixture FixtureHandle, point, normal Vec2, fraction float64) float64

// NopContactListener is a ContactListener that ignores every callback,
// for Worlds that only need the solver side effects.
type NopContactListener struct{}

func (NopContactListener) BeginContact(*Contact)                  {}
func (NopContactListener) EndContact(*Contact)                    {}
func (NopContactListener) PreSolve(*Contact, Manifold)             {}
func (NopContactListener) PostSolve(*Contact, *ContactImpulse)     {}

// ContactFilter decides whether two fixtures should be allowed to
// collide, beyond the built-in Filter.Reject rule — e.g. to implement
// "don't collide with my own joint-connected body" (spec.md §6).
type ContactFilter interface {
	ShouldCollide(a, b FixtureHandle) bool
}

// DefaultContactFilter collides whenever the Filter bits allow it
// (the built-in rule fixture.go's Filter.Reject already applies).
type DefaultContactFilter struct{}

func (DefaultContactFilter) ShouldCollide(a, b FixtureHandle) bool { return true }
