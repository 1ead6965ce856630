package physics

import "math"

// broadphase.go implements the dynamic AABB tree broad-phase of spec.md
// §4.1, grounded in PlayRho/Collision/DynamicTree.hpp (original_source/)
// for the node/balance/insertion-cost algorithm, translated from pointer-
// indexed C++ into the handle-arena model of handle.go.

const (
	treeNullNode int32 = -1
)

type treeNode struct {
	aabb   AABB
	child1 int32
	child2 int32
	parent int32 // reused as "next" on the free list
	height int32
	userData interface{}
	generation uint32
	moved bool
}

func (n *treeNode) isLeaf() bool { return n.child1 == treeNullNode }

// BroadPhase is the dynamic AABB tree: O(log n) insert/move/remove plus
// AABB queries and ray casts (spec.md §4.1).
type BroadPhase struct {
	nodes    []treeNode
	root     int32
	freeList int32
	nodeCount int32

	// moveBuffer tracks proxies whose fat AABB changed this step, so the
	// ContactManager can limit pair-finding to the proxies that moved
	// (spec.md §4.9 step 2: "new broad-phase pairs from proxies moved
	// last step or created this session").
	moveBuffer []proxyHandle

	extension float64 // AabbExtension: fat-AABB margin
}

// NewBroadPhase creates an empty tree with the given fat-AABB margin.
func NewBroadPhase(aabbExtension float64) *BroadPhase {
	bp := &BroadPhase{root: treeNullNode, freeList: treeNullNode, extension: aabbExtension}
	return bp
}

func (bp *BroadPhase) allocateNode() int32 {
	if bp.freeList != treeNullNode {
		idx := bp.freeList
		bp.freeList = bp.nodes[idx].parent
		bp.nodes[idx].parent = treeNullNode
		bp.nodes[idx].child1 = treeNullNode
		bp.nodes[idx].child2 = treeNullNode
		bp.nodes[idx].height = 0
		bp.nodes[idx].generation++
		bp.nodeCount++
		return idx
	}
	idx := int32(len(bp.nodes))
	bp.nodes = append(bp.nodes, treeNode{parent: treeNullNode, child1: treeNullNode, child2: treeNullNode, height: 0, generation: 1})
	bp.nodeCount++
	return idx
}

func (bp *BroadPhase) freeNode(idx int32) {
	bp.nodes[idx] = treeNode{parent: bp.freeList, height: -1, generation: bp.nodes[idx].generation + 1}
	bp.freeList = idx
	bp.nodeCount--
}

// CreateProxy adds a leaf with a fat AABB (spec.md §4.1).
func (bp *BroadPhase) CreateProxy(aabb AABB, userData interface{}) proxyHandle {
	idx := bp.allocateNode()
	bp.nodes[idx].aabb = aabb.Extend(bp.extension)
	bp.nodes[idx].userData = userData
	bp.nodes[idx].height = 0
	bp.insertLeaf(idx)
	h := proxyHandle{index: idx, generation: bp.nodes[idx].generation}
	bp.moveBuffer = append(bp.moveBuffer, h)
	return h
}

func (bp *BroadPhase) checkHandle(h proxyHandle) {
	assert(int(h.index) < len(bp.nodes) && bp.nodes[h.index].generation == h.generation && bp.nodes[h.index].height >= 0,
		"invalid broad-phase proxy handle")
}

// DestroyProxy removes the leaf and frees its slot for reuse.
func (bp *BroadPhase) DestroyProxy(h proxyHandle) {
	bp.checkHandle(h)
	bp.removeLeaf(h.index)
	bp.freeNode(h.index)
}

// UpdateProxy implements spec.md §4.1's update_proxy: no-op if the tight
// AABB is still contained in the stored fat one, otherwise re-inserts a
// fat AABB grown by the margin and biased toward displacement.
func (bp *BroadPhase) UpdateProxy(h proxyHandle, aabb AABB, displacement Vec2) bool {
	bp.checkHandle(h)
	idx := h.index
	if bp.nodes[idx].aabb.Contains(aabb) {
		return false
	}
	bp.removeLeaf(idx)

	fat := aabb.Extend(bp.extension)
	if displacement.X < 0 {
		fat.LowerBound.X += displacement.X
	} else {
		fat.UpperBound.X += displacement.X
	}
	if displacement.Y < 0 {
		fat.LowerBound.Y += displacement.Y
	} else {
		fat.UpperBound.Y += displacement.Y
	}
	bp.nodes[idx].aabb = fat
	bp.insertLeaf(idx)
	bp.nodes[idx].moved = true
	bp.moveBuffer = append(bp.moveBuffer, h)
	return true
}

// MovedProxies drains and returns the set of proxies whose fat AABB
// changed since the last call (created, updated).
func (bp *BroadPhase) MovedProxies() []proxyHandle {
	out := bp.moveBuffer
	bp.moveBuffer = nil
	return out
}

func (bp *BroadPhase) GetAABB(h proxyHandle) AABB {
	bp.checkHandle(h)
	return bp.nodes[h.index].aabb
}

func (bp *BroadPhase) GetUserData(h proxyHandle) interface{} {
	bp.checkHandle(h)
	return bp.nodes[h.index].userData
}

// insertLeaf descends from the root choosing, at each branch, the child
// whose union-with-leaf AABB minimizes the cost heuristic of spec.md
// §4.1 (child's new perimeter plus inherited cost), creates a new
// internal sibling node, and re-fits/balances back up to the root.
func (bp *BroadPhase) insertLeaf(leaf int32) {
	if bp.root == treeNullNode {
		bp.root = leaf
		bp.nodes[leaf].parent = treeNullNode
		return
	}

	leafAABB := bp.nodes[leaf].aabb
	index := bp.root
	for !bp.nodes[index].isLeaf() {
		child1 := bp.nodes[index].child1
		child2 := bp.nodes[index].child2

		area := bp.nodes[index].aabb.Perimeter()
		combined := bp.nodes[index].aabb.Union(leafAABB)
		combinedArea := combined.Perimeter()

		cost := 2 * combinedArea
		inheritanceCost := 2 * (combinedArea - area)

		var cost1, cost2 float64
		if bp.nodes[child1].isLeaf() {
			u := bp.nodes[child1].aabb.Union(leafAABB)
			cost1 = u.Perimeter() + inheritanceCost
		} else {
			u := bp.nodes[child1].aabb.Union(leafAABB)
			oldArea := bp.nodes[child1].aabb.Perimeter()
			newArea := u.Perimeter()
			cost1 = (newArea - oldArea) + inheritanceCost
		}
		if bp.nodes[child2].isLeaf() {
			u := bp.nodes[child2].aabb.Union(leafAABB)
			cost2 = u.Perimeter() + inheritanceCost
		} else {
			u := bp.nodes[child2].aabb.Union(leafAABB)
			oldArea := bp.nodes[child2].aabb.Perimeter()
			newArea := u.Perimeter()
			cost2 = (newArea - oldArea) + inheritanceCost
		}

		if cost < cost1 && cost < cost2 {
			break
		}

		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index
	oldParent := bp.nodes[sibling].parent
	newParent := bp.allocateNode()
	bp.nodes[newParent].parent = oldParent
	bp.nodes[newParent].aabb = leafAABB.Union(bp.nodes[sibling].aabb)
	bp.nodes[newParent].height = bp.nodes[sibling].height + 1

	if oldParent != treeNullNode {
		if bp.nodes[oldParent].child1 == sibling {
			bp.nodes[oldParent].child1 = newParent
		} else {
			bp.nodes[oldParent].child2 = newParent
		}
		bp.nodes[newParent].child1 = sibling
		bp.nodes[newParent].child2 = leaf
		bp.nodes[sibling].parent = newParent
		bp.nodes[leaf].parent = newParent
	} else {
		bp.nodes[newParent].child1 = sibling
		bp.nodes[newParent].child2 = leaf
		bp.nodes[sibling].parent = newParent
		bp.nodes[leaf].parent = newParent
		bp.root = newParent
	}

	index = bp.nodes[leaf].parent
	for index != treeNullNode {
		index = bp.balance(index)

		child1 := bp.nodes[index].child1
		child2 := bp.nodes[index].child2

		bp.nodes[index].height = 1 + maxI32(bp.nodes[child1].height, bp.nodes[child2].height)
		bp.nodes[index].aabb = bp.nodes[child1].aabb.Union(bp.nodes[child2].aabb)

		index = bp.nodes[index].parent
	}
}

func (bp *BroadPhase) removeLeaf(leaf int32) {
	if leaf == bp.root {
		bp.root = treeNullNode
		return
	}

	parent := bp.nodes[leaf].parent
	grandParent := bp.nodes[parent].parent
	var sibling int32
	if bp.nodes[parent].child1 == leaf {
		sibling = bp.nodes[parent].child2
	} else {
		sibling = bp.nodes[parent].child1
	}

	if grandParent != treeNullNode {
		if bp.nodes[grandParent].child1 == parent {
			bp.nodes[grandParent].child1 = sibling
		} else {
			bp.nodes[grandParent].child2 = sibling
		}
		bp.nodes[sibling].parent = grandParent
		bp.freeNode(parent)

		index := grandParent
		for index != treeNullNode {
			index = bp.balance(index)
			child1 := bp.nodes[index].child1
			child2 := bp.nodes[index].child2
			bp.nodes[index].aabb = bp.nodes[child1].aabb.Union(bp.nodes[child2].aabb)
			bp.nodes[index].height = 1 + maxI32(bp.nodes[child1].height, bp.nodes[child2].height)
			index = bp.nodes[index].parent
		}
	} else {
		bp.root = sibling
		bp.nodes[sibling].parent = treeNullNode
		bp.freeNode(parent)
	}
}

// balance performs one tree rotation at iA if unbalanced by more than one
// level, picking the taller grandchild to swap with the lighter uncle,
// per spec.md §4.1's "rebalances via rotation up the path".
func (bp *BroadPhase) balance(iA int32) int32 {
	a := &bp.nodes[iA]
	if a.isLeaf() || a.height < 2 {
		return iA
	}

	iB := a.child1
	iC := a.child2
	b := &bp.nodes[iB]
	c := &bp.nodes[iC]

	balance := c.height - b.height

	if balance > 1 {
		return bp.rotate(iA, iC, iB)
	}
	if balance < -1 {
		return bp.rotate(iA, iB, iC)
	}
	return iA
}

// rotate promotes iTall (the taller child) above iA: iA adopts the shorter
// of iTall's children and becomes the sibling of the taller one.
func (bp *BroadPhase) rotate(iA, iTall, iOther int32) int32 {
	a := iA
	f := iTall
	if bp.nodes[a].child1 == f {
		bp.nodes[a].child1, bp.nodes[a].child2 = bp.nodes[a].child2, bp.nodes[a].child1
	}
	fNode := &bp.nodes[f]
	iG := fNode.child1
	iH := fNode.child2
	gNode := &bp.nodes[iG]
	hNode := &bp.nodes[iH]

	fNode.child1 = a
	fNode.parent = bp.nodes[a].parent
	bp.nodes[a].parent = f

	if fNode.parent != treeNullNode {
		if bp.nodes[fNode.parent].child1 == a {
			bp.nodes[fNode.parent].child1 = f
		} else {
			bp.nodes[fNode.parent].child2 = f
		}
	} else {
		bp.root = f
	}

	if gNode.height > hNode.height {
		fNode.child2 = iG
		bp.nodes[a].child2 = iH
		hNode.parent = a
		bp.nodes[a].aabb = bp.nodes[bp.nodes[a].child1].aabb.Union(bp.nodes[bp.nodes[a].child2].aabb)
		bp.nodes[a].height = 1 + maxI32(bp.nodes[bp.nodes[a].child1].height, bp.nodes[bp.nodes[a].child2].height)
		fNode.aabb = bp.nodes[a].aabb.Union(gNode.aabb)
		fNode.height = 1 + maxI32(bp.nodes[a].height, gNode.height)
	} else {
		fNode.child2 = iH
		bp.nodes[a].child2 = iG
		gNode.parent = a
		bp.nodes[a].aabb = bp.nodes[bp.nodes[a].child1].aabb.Union(gNode.aabb)
		bp.nodes[a].height = 1 + maxI32(bp.nodes[bp.nodes[a].child1].height, gNode.height)
		fNode.aabb = bp.nodes[a].aabb.Union(hNode.aabb)
		fNode.height = 1 + maxI32(bp.nodes[a].height, hNode.height)
	}

	return f
}

func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// QueryVisitor visits a leaf's proxy handle and userData during Query;
// returning false stops the traversal early (spec.md §4.1: "visitor may
// abort").
type QueryVisitor func(proxy proxyHandle, userData interface{}) bool

// Query visits every leaf whose fat AABB overlaps the given AABB.
func (bp *BroadPhase) Query(aabb AABB, visit QueryVisitor) {
	if bp.root == treeNullNode {
		return
	}
	stack := []int32{bp.root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if idx == treeNullNode {
			continue
		}
		n := &bp.nodes[idx]
		if !n.aabb.Overlaps(aabb) {
			continue
		}
		if n.isLeaf() {
			ph := proxyHandle{index: idx, generation: n.generation}
			if !visit(ph, n.userData) {
				return
			}
		} else {
			stack = append(stack, n.child1, n.child2)
		}
	}
}

// RayCastInput is a ray segment and the current maximum fraction along it.
type RayCastInput struct {
	P1, P2      Vec2
	MaxFraction float64
}

// RayCast visits leaves whose AABB intersects the segment. Leaves are
// visited in tree-descent order, not in order of fraction along the ray,
// so hits are not reported nearest-first. A positive value returned by the
// visitor narrows maxFraction, which the slab test then uses to prune
// leaves beyond it.
func (bp *BroadPhase) RayCast(input RayCastInput, visit func(userData interface{}, input RayCastInput) float64) {
	if bp.root == treeNullNode {
		return
	}
	p1 := input.P1
	p2 := input.P2
	d := p2.Sub(p1)
	length := d.Len()
	if length < 1e-12 {
		return
	}
	d = d.Scale(1 / length)

	maxFraction := input.MaxFraction

	segmentAABB := AABB{VecMin(p1, p1.Add(d.Scale(length*maxFraction))), VecMax(p1, p1.Add(d.Scale(length*maxFraction)))}

	stack := []int32{bp.root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if idx == treeNullNode {
			continue
		}
		n := &bp.nodes[idx]
		if !n.aabb.Overlaps(segmentAABB) {
			continue
		}
		if !rayIntersectsAABB(p1, p2, maxFraction, n.aabb) {
			continue
		}
		if n.isLeaf() {
			subInput := RayCastInput{P1: p1, P2: p2, MaxFraction: maxFraction}
			f := visit(n.userData, subInput)
			if f == 0 {
				return
			}
			if f > 0 {
				maxFraction = f
				end := p1.Add(p2.Sub(p1).Scale(maxFraction))
				segmentAABB = AABB{VecMin(p1, end), VecMax(p1, end)}
			}
		} else {
			stack = append(stack, n.child1, n.child2)
		}
	}
}

// rayIntersectsAABB is the standard slab test clipped to [0, maxFraction].
func rayIntersectsAABB(p1, p2 Vec2, maxFraction float64, aabb AABB) bool {
	tmin := math.Inf(-1)
	tmax := math.Inf(1)
	px := [2]float64{p1.X, p1.Y}
	d := [2]float64{p2.X - p1.X, p2.Y - p1.Y}
	lo := [2]float64{aabb.LowerBound.X, aabb.LowerBound.Y}
	hi := [2]float64{aabb.UpperBound.X, aabb.UpperBound.Y}
	for i := 0; i < 2; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if px[i] < lo[i] || px[i] > hi[i] {
				return false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (lo[i] - px[i]) * inv
		t2 := (hi[i] - px[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return tmax >= 0 && tmin <= maxFraction
}

// ShiftOrigin subtracts delta from every node's AABB (spec.md §4.1).
func (bp *BroadPhase) ShiftOrigin(delta Vec2) {
	for i := range bp.nodes {
		if bp.nodes[i].height < 0 {
			continue
		}
		bp.nodes[i].aabb.LowerBound = bp.nodes[i].aabb.LowerBound.Sub(delta)
		bp.nodes[i].aabb.UpperBound = bp.nodes[i].aabb.UpperBound.Sub(delta)
	}
}

// Height returns the tree's current height, for diagnostics/tests.
func (bp *BroadPhase) Height() int32 {
	if bp.root == treeNullNode {
		return 0
	}
	return bp.nodes[bp.root].height
}
