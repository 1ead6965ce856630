package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// joint_test.go exercises the distance joint against spec.md §8's S5-style
// setup (a joint-held body shouldn't drift far from its constrained
// length under gravity over a handful of steps).

func TestDistanceJoint_HoldsLength(t *testing.T) {
	w := NewWorld(DefaultWorldDef())
	w.SetGravity(Vec2{X: 0, Y: -10})

	anchorDef := DefaultBodyDef()
	anchorDef.Type = BodyStatic
	anchorDef.Position = Vec2{X: 0, Y: 10}
	anchorH, err := w.CreateBody(anchorDef)
	require.NoError(t, err)

	bobDef := DefaultBodyDef()
	bobDef.Type = BodyDynamic
	bobDef.Position = Vec2{X: 0, Y: 5}
	bobH, err := w.CreateBody(bobDef)
	require.NoError(t, err)
	_, err = w.CreateFixture(bobH, DefaultFixtureDef(&DiskShape{Radius: 0.2}))
	require.NoError(t, err)

	_, err = w.CreateDistanceJoint(DistanceJointDef{
		BodyA:  anchorH,
		BodyB:  bobH,
		Length: 5,
	})
	require.NoError(t, err)

	conf := DefaultStepConf()
	conf.DeltaTime = 1.0 / 60.0
	for i := 0; i < 120; i++ {
		w.Step(conf)
	}

	anchor, _ := w.Body(anchorH)
	bob, _ := w.Body(bobH)
	dist := bob.Position().Sub(anchor.Position()).Len()

	assert.InDelta(t, 5, dist, 0.05, "a rigid distance joint should keep the bob within 0.05 of its rest length")
}

func TestCreateJoint_RejectsInvalidBody(t *testing.T) {
	w := NewWorld(DefaultWorldDef())
	valid, err := w.CreateBody(DefaultBodyDef())
	require.NoError(t, err)

	_, err = w.CreateDistanceJoint(DistanceJointDef{
		BodyA:  valid,
		BodyB:  BodyHandle{},
		Length: 1,
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
