package physics

// fixture.go implements spec.md §3's Fixture: binds a Shape to a Body with
// density, friction, restitution, a collision Filter and sensor flag, and
// owns one broad-phase proxy per shape child.

// Filter is the collision filter: category/mask bits plus a group index.
// Two fixtures do not collide when (mask&category)==0 on either side, or
// both share the same nonzero negative group index (spec.md §4.2). Two
// fixtures sharing the same positive group index always collide,
// whatever their bits.
type Filter struct {
	CategoryBits uint16
	MaskBits     uint16
	GroupIndex   int16
}

// DefaultFilter collides with everything, as Box2D's b2Filter default does.
func DefaultFilter() Filter {
	return Filter{CategoryBits: 0x0001, MaskBits: 0xFFFF, GroupIndex: 0}
}

// Reject reports whether a and b should be filtered from colliding.
func (a Filter) Reject(b Filter) bool {
	if a.GroupIndex == b.GroupIndex && a.GroupIndex != 0 {
		return a.GroupIndex < 0
	}
	return (a.MaskBits&b.CategoryBits) == 0 || (b.MaskBits&a.CategoryBits) == 0
}

// FixtureDef collects fixture construction parameters.
type FixtureDef struct {
	Shape       Shape
	Density     float64
	Friction    float64
	Restitution float64
	Filter      Filter
	Sensor      bool
	UserData    interface{}
}

// DefaultFixtureDef mirrors Box2D's b2FixtureDef defaults.
func DefaultFixtureDef(shape Shape) FixtureDef {
	return FixtureDef{Shape: shape, Density: 1, Friction: 0.2, Filter: DefaultFilter()}
}

// Fixture binds a Shape to a Body (spec.md §3).
type Fixture struct {
	handle FixtureHandle
	body   BodyHandle

	shape Shape

	density     float64
	friction    float64
	restitution float64
	filter      Filter
	sensor      bool

	proxies []fixtureProxy

	userData interface{}
}

// fixtureProxy pairs a broad-phase leaf with the child index it tracks,
// spec.md §3: "Owns one or more broad-phase proxies (one per shape child)".
type fixtureProxy struct {
	aabb  AABB
	proxy proxyHandle
	child int
}

func newFixture(def FixtureDef, body BodyHandle) *Fixture {
	return &Fixture{
		body:        body,
		shape:       def.Shape,
		density:     def.Density,
		friction:    def.Friction,
		restitution: def.Restitution,
		filter:      def.Filter,
		sensor:      def.Sensor,
		userData:    def.UserData,
	}
}

func (f *Fixture) Handle() FixtureHandle { return f.handle }
func (f *Fixture) Body() BodyHandle      { return f.body }
func (f *Fixture) Shape() Shape          { return f.shape }
func (f *Fixture) IsSensor() bool        { return f.sensor }
func (f *Fixture) Filter() Filter        { return f.filter }
func (f *Fixture) Friction() float64     { return f.friction }
func (f *Fixture) Restitution() float64  { return f.restitution }
func (f *Fixture) Density() float64      { return f.density }
func (f *Fixture) UserData() interface{} { return f.userData }

// SetFilter updates the collision filter. Existing contacts are not
// re-filtered: nothing marks them for filtering, so the new filter applies
// only to contacts created afterwards.
func (f *Fixture) SetFilter(filter Filter) { f.filter = filter }

// SetSensor toggles the sensor flag.
func (f *Fixture) SetSensor(sensor bool) { f.sensor = sensor }

// SetDensity updates the stored density only. The body's mass is not
// recomputed here; it changes the next time the body's mass data is reset,
// which CreateFixture (for a fixture with positive density) and
// DestroyFixture do.
func (f *Fixture) SetDensity(d float64) { f.density = d }
