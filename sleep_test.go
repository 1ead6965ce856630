package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleep_test.go checks spec.md §4.8: a resting body on a static floor
// eventually sleeps, and disabling EnableSleep keeps it awake forever.

func newRestingBoxWorld(t *testing.T) (*World, BodyHandle) {
	t.Helper()
	w := NewWorld(DefaultWorldDef())
	w.SetGravity(Vec2{X: 0, Y: -10})

	ground := DefaultBodyDef()
	ground.Type = BodyStatic
	ground.Position = Vec2{X: 0, Y: -0.5}
	gh, err := w.CreateBody(ground)
	require.NoError(t, err)
	groundBox := NewPolygonShape([]Vec2{{X: -10, Y: -0.5}, {X: 10, Y: -0.5}, {X: 10, Y: 0.5}, {X: -10, Y: 0.5}})
	_, err = w.CreateFixture(gh, DefaultFixtureDef(groundBox))
	require.NoError(t, err)

	boxDef := DefaultBodyDef()
	boxDef.Type = BodyDynamic
	boxDef.Position = Vec2{X: 0, Y: 0.5}
	bh, err := w.CreateBody(boxDef)
	require.NoError(t, err)
	box := NewPolygonShape([]Vec2{{X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5}, {X: 0.5, Y: 0.5}, {X: -0.5, Y: 0.5}})
	fd := DefaultFixtureDef(box)
	fd.Density = 1
	fd.Friction = 0.3
	_, err = w.CreateFixture(bh, fd)
	require.NoError(t, err)

	return w, bh
}

func TestSleep_RestingBodyEventuallySleeps(t *testing.T) {
	w, bh := newRestingBoxWorld(t)

	conf := DefaultStepConf()
	asleep := false
	for i := 0; i < 600 && !asleep; i++ {
		w.Step(conf)
		b, ok := w.Body(bh)
		require.True(t, ok)
		asleep = !b.IsAwake()
	}

	assert.True(t, asleep, "a box resting on a static floor should sleep within 10s at 60Hz")
}

func TestSleep_DisabledKeepsBodyAwake(t *testing.T) {
	w, bh := newRestingBoxWorld(t)

	conf := DefaultStepConf()
	conf.EnableSleep = false
	for i := 0; i < 600; i++ {
		w.Step(conf)
	}

	b, ok := w.Body(bh)
	require.True(t, ok)
	assert.True(t, b.IsAwake(), "EnableSleep=false must keep every body awake")
}
