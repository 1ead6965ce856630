package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manifold_test.go checks the manifold builder's circle/polygon cases
// directly against DistanceProxy inputs, bypassing World/Body so the
// geometry kernel is verified in isolation (spec.md §4.3).

func TestCollideShapes_Circles(t *testing.T) {
	a := (&DiskShape{Radius: 1}).Proxy(0)
	b := (&DiskShape{Radius: 1}).Proxy(0)

	xfA := Transform{P: Vec2{X: 0, Y: 0}, Q: NewRot(0)}
	xfB := Transform{P: Vec2{X: 1.5, Y: 0}, Q: NewRot(0)}

	m := CollideShapes(a, b, xfA, xfB, ManifoldConfig{})

	require.Equal(t, ManifoldCircles, m.Type)
	require.Len(t, m.Points, 1)

	wm := m.World(xfA, xfB, 1, 1)
	require.Len(t, wm.Points, 1)
	assert.InDelta(t, -0.5, wm.Points[0].Separation, 1e-9, "overlapping unit circles 1.5 apart separate by -0.5")
}

func TestCollideShapes_CirclesNoOverlap(t *testing.T) {
	a := (&DiskShape{Radius: 1}).Proxy(0)
	b := (&DiskShape{Radius: 1}).Proxy(0)

	xfA := Transform{P: Vec2{X: 0, Y: 0}, Q: NewRot(0)}
	xfB := Transform{P: Vec2{X: 5, Y: 0}, Q: NewRot(0)}

	m := CollideShapes(a, b, xfA, xfB, ManifoldConfig{})
	assert.Empty(t, m.Points, "circles 5 apart with radius 1 each must not produce a manifold point")
}

func TestCollideShapes_BoxesStacked(t *testing.T) {
	box := NewPolygonShape([]Vec2{{X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5}, {X: 0.5, Y: 0.5}, {X: -0.5, Y: 0.5}})
	a := box.Proxy(0)
	b := box.Proxy(0)

	xfA := Transform{P: Vec2{X: 0, Y: 0}, Q: NewRot(0)}
	xfB := Transform{P: Vec2{X: 0, Y: 0.99}, Q: NewRot(0)}

	m := CollideShapes(a, b, xfA, xfB, ManifoldConfig{})

	require.Equal(t, ManifoldFaceA, m.Type)
	assert.Len(t, m.Points, 2, "two stacked boxes overlapping on a full face should clip to two points")
	assert.InDelta(t, 1, m.LocalNormal.Len(), 1e-9)
}

func TestDiskShape_AABBAndMass(t *testing.T) {
	s := &DiskShape{Radius: 2, Center: Vec2{X: 1, Y: 0}}
	xf := Transform{P: Vec2{X: 0, Y: 0}, Q: NewRot(0)}

	aabb := s.ComputeAABB(xf, 0)
	assert.InDelta(t, -1, aabb.LowerBound.X, 1e-9)
	assert.InDelta(t, 3, aabb.UpperBound.X, 1e-9)

	md := s.MassData(2)
	assert.InDelta(t, 2*math.Pi*4, md.mass, 1e-6)
}
