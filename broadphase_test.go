package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// broadphase_test.go checks the dynamic tree's query and proxy-move
// bookkeeping in isolation from ContactManager (spec.md §4.1).

func TestBroadPhase_QueryFindsOverlap(t *testing.T) {
	bp := NewBroadPhase(AabbExtension)

	pA := bp.CreateProxy(NewAABB(Vec2{X: 0, Y: 0}, Vec2{X: 1, Y: 1}), "a")
	pB := bp.CreateProxy(NewAABB(Vec2{X: 0.5, Y: 0.5}, Vec2{X: 1.5, Y: 1.5}), "b")
	_ = bp.CreateProxy(NewAABB(Vec2{X: 100, Y: 100}, Vec2{X: 101, Y: 101}), "far")

	var hits []string
	bp.Query(bp.GetAABB(pA), func(p proxyHandle, userData interface{}) bool {
		hits = append(hits, userData.(string))
		return true
	})

	assert.Contains(t, hits, "a")
	assert.Contains(t, hits, "b")
	assert.NotContains(t, hits, "far")
	_ = pB
}

func TestBroadPhase_MovedProxiesDrainsOnce(t *testing.T) {
	bp := NewBroadPhase(AabbExtension)
	p := bp.CreateProxy(NewAABB(Vec2{X: 0, Y: 0}, Vec2{X: 1, Y: 1}), nil)

	moved := bp.MovedProxies()
	require.Len(t, moved, 1, "CreateProxy enqueues the new leaf onto the move buffer")

	assert.Empty(t, bp.MovedProxies(), "a second drain without further changes returns nothing")

	bp.UpdateProxy(p, NewAABB(Vec2{X: 10, Y: 10}, Vec2{X: 11, Y: 11}), Vec2{X: 9, Y: 9})
	moved = bp.MovedProxies()
	assert.Len(t, moved, 1, "UpdateProxy that actually moves the fat AABB re-enqueues the proxy")
}

func TestBroadPhase_DestroyProxyInvalidatesHandle(t *testing.T) {
	bp := NewBroadPhase(AabbExtension)
	p := bp.CreateProxy(NewAABB(Vec2{X: 0, Y: 0}, Vec2{X: 1, Y: 1}), nil)
	bp.DestroyProxy(p)

	assert.Panics(t, func() {
		bp.GetAABB(p)
	}, "a destroyed proxy's handle must fail its generation check")
}
