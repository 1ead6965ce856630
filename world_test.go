package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// world_test.go exercises World.Step against spec.md §8's worked scenarios,
// in the Gekko3D-gekko app_test.go style: testify assertions alongside
// plain struct setup, no table-driven marshal grids.

func newDiskWorld(t *testing.T, gravity Vec2) (*World, BodyHandle) {
	t.Helper()
	w := NewWorld(DefaultWorldDef())
	w.SetGravity(gravity)

	def := DefaultBodyDef()
	def.Type = BodyDynamic
	def.Position = Vec2{X: 0, Y: 1}
	bh, err := w.CreateBody(def)
	require.NoError(t, err)

	fixDef := DefaultFixtureDef(&DiskShape{Radius: 1})
	fixDef.Density = 1
	_, err = w.CreateFixture(bh, fixDef)
	require.NoError(t, err)

	return w, bh
}

// TestWorld_FallingDisk is spec.md §8's S1: a unit disk falling under
// gravity (0, -10) should match the semi-implicit Euler positions/velocities
// at t=0.01s and t=0.02s with dt=0.01.
func TestWorld_FallingDisk(t *testing.T) {
	w, bh := newDiskWorld(t, Vec2{X: 0, Y: -10})

	conf := DefaultStepConf()
	conf.DeltaTime = 0.01
	conf.VelocityIterations = 8
	conf.PositionIterations = 3

	w.Step(conf)
	b, ok := w.Body(bh)
	require.True(t, ok)
	assert.InDelta(t, 0.999, b.Position().Y, 1e-6)
	assert.InDelta(t, -0.1, b.LinearVelocity.Y, 1e-6)

	w.Step(conf)
	b, ok = w.Body(bh)
	require.True(t, ok)
	assert.InDelta(t, 0.997, b.Position().Y, 1e-6)
	assert.InDelta(t, -0.2, b.LinearVelocity.Y, 1e-6)
}

// TestWorld_ContactFilterBlocksOverlap is spec.md §8's S6: two fixtures
// whose filters reject each other never generate a begin-contact event,
// even while their AABBs overlap.
func TestWorld_ContactFilterBlocksOverlap(t *testing.T) {
	w := NewWorld(DefaultWorldDef())

	rec := &recordingListener{}
	w.SetContactListener(rec)

	filtered := Filter{CategoryBits: 0x0001, MaskBits: 0x0000}

	defA := DefaultBodyDef()
	defA.Type = BodyDynamic
	defA.Position = Vec2{X: 0, Y: 0}
	bhA, err := w.CreateBody(defA)
	require.NoError(t, err)
	fdA := DefaultFixtureDef(&DiskShape{Radius: 1})
	fdA.Density = 1
	fdA.Filter = filtered
	_, err = w.CreateFixture(bhA, fdA)
	require.NoError(t, err)

	defB := DefaultBodyDef()
	defB.Type = BodyDynamic
	defB.Position = Vec2{X: 0.5, Y: 0}
	bhB, err := w.CreateBody(defB)
	require.NoError(t, err)
	fdB := DefaultFixtureDef(&DiskShape{Radius: 1})
	fdB.Density = 1
	fdB.Filter = filtered
	_, err = w.CreateFixture(bhB, fdB)
	require.NoError(t, err)

	w.SetGravity(Vec2{})
	for i := 0; i < 10; i++ {
		w.Step(DefaultStepConf())
	}

	assert.Zero(t, rec.begins, "filtered fixtures must never begin-contact")
}

// TestWorld_LockedDuringStep asserts the World-locked invariant spec.md
// §7 requires: structural mutation from inside a callback fails fast
// rather than corrupting in-progress iteration state.
func TestWorld_LockedDuringStep(t *testing.T) {
	w := NewWorld(DefaultWorldDef())
	rec := &lockCheckingListener{w: w}
	w.SetContactListener(rec)

	defA := DefaultBodyDef()
	defA.Type = BodyDynamic
	bhA, err := w.CreateBody(defA)
	require.NoError(t, err)
	_, err = w.CreateFixture(bhA, DefaultFixtureDef(&DiskShape{Radius: 1}))
	require.NoError(t, err)

	defB := DefaultBodyDef()
	defB.Type = BodyDynamic
	defB.Position = Vec2{X: 0.5, Y: 0}
	bhB, err := w.CreateBody(defB)
	require.NoError(t, err)
	_, err = w.CreateFixture(bhB, DefaultFixtureDef(&DiskShape{Radius: 1}))
	require.NoError(t, err)

	w.SetGravity(Vec2{})
	w.Step(DefaultStepConf())

	assert.True(t, rec.observedLocked, "listener should have run while the world was locked")
	assert.ErrorIs(t, rec.createErr, ErrWorldLocked)
}

// TestWorld_ContactFilterRejectsPair is spec.md §4.2 filter rule (d): a
// user-installed ContactFilter can veto a pair the built-in Filter bits
// would otherwise allow.
func TestWorld_ContactFilterRejectsPair(t *testing.T) {
	w := NewWorld(DefaultWorldDef())
	w.SetGravity(Vec2{})

	rec := &recordingListener{}
	w.SetContactListener(rec)
	w.SetContactFilter(rejectAllFilter{})

	defA := DefaultBodyDef()
	defA.Type = BodyDynamic
	bhA, err := w.CreateBody(defA)
	require.NoError(t, err)
	_, err = w.CreateFixture(bhA, DefaultFixtureDef(&DiskShape{Radius: 1}))
	require.NoError(t, err)

	defB := DefaultBodyDef()
	defB.Type = BodyDynamic
	defB.Position = Vec2{X: 0.5, Y: 0}
	bhB, err := w.CreateBody(defB)
	require.NoError(t, err)
	_, err = w.CreateFixture(bhB, DefaultFixtureDef(&DiskShape{Radius: 1}))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		w.Step(DefaultStepConf())
	}

	assert.Zero(t, rec.begins, "a user ContactFilter that rejects everything must block begin-contact")
}

// TestWorld_PreAndPostSolveFire is spec.md §4.2/§4.9 step 10: a touching,
// solved contact reports both PreSolve (before the velocity iterations)
// and PostSolve (after, with a populated ContactImpulse).
func TestWorld_PreAndPostSolveFire(t *testing.T) {
	w, bh := newDiskWorld(t, Vec2{X: 0, Y: -10})

	ground := DefaultBodyDef()
	ground.Type = BodyStatic
	ground.Position = Vec2{X: 0, Y: -1}
	gh, err := w.CreateBody(ground)
	require.NoError(t, err)
	groundBox := NewPolygonShape([]Vec2{{X: -10, Y: -0.5}, {X: 10, Y: -0.5}, {X: 10, Y: 0.5}, {X: -10, Y: 0.5}})
	_, err = w.CreateFixture(gh, DefaultFixtureDef(groundBox))
	require.NoError(t, err)

	rec := &solveRecordingListener{}
	w.SetContactListener(rec)

	conf := DefaultStepConf()
	for i := 0; i < 120; i++ {
		w.Step(conf)
	}

	require.Positive(t, rec.preSolves, "a touching contact should fire PreSolve every step it's solved")
	require.Positive(t, rec.postSolves, "a touching contact should fire PostSolve every step it's solved")
	assert.Positive(t, rec.lastImpulse.Count, "PostSolve should report at least one normal impulse")
	_ = bh
}

type recordingListener struct {
	NopContactListener
	begins int
}

func (r *recordingListener) BeginContact(*Contact) { r.begins++ }

type rejectAllFilter struct{}

func (rejectAllFilter) ShouldCollide(a, b FixtureHandle) bool { return false }

type solveRecordingListener struct {
	NopContactListener
	preSolves, postSolves int
	lastImpulse           ContactImpulse
}

func (l *solveRecordingListener) PreSolve(*Contact, Manifold) { l.preSolves++ }

func (l *solveRecordingListener) PostSolve(c *Contact, impulse *ContactImpulse) {
	l.postSolves++
	l.lastImpulse = *impulse
}

type lockCheckingListener struct {
	NopContactListener
	w              *World
	observedLocked bool
	createErr      error
}

func (l *lockCheckingListener) BeginContact(c *Contact) {
	l.observedLocked = l.w.IsLocked()
	_, l.createErr = l.w.CreateBody(DefaultBodyDef())
}
