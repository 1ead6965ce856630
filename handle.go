package physics

// handle.go implements the "arena-plus-index" handle model spec.md §9
// prescribes in place of the teacher's pointer-cyclic graph (body<->fixture,
// body<->contact, body<->joint, contact<->fixture). Every entity the World
// hands back to a caller is a generational (index, generation) pair;
// dereferencing a stale handle is a contract violation (assert), matching
// the teacher's "fail fast on invalid handle" stance (spec.md §4.1).

// BodyHandle identifies a Body owned by a World.
type BodyHandle struct {
	index      uint32
	generation uint32
}

// Valid reports whether the handle was ever issued (zero value is never valid).
func (h BodyHandle) Valid() bool { return h.generation != 0 }

// FixtureHandle identifies a Fixture owned by a World.
type FixtureHandle struct {
	index      uint32
	generation uint32
}

func (h FixtureHandle) Valid() bool { return h.generation != 0 }

// JointHandle identifies a Joint owned by a World.
type JointHandle struct {
	index      uint32
	generation uint32
}

func (h JointHandle) Valid() bool { return h.generation != 0 }

// proxyHandle identifies a leaf in the broad-phase dynamic tree.
type proxyHandle struct {
	index      int32
	generation uint32
}

const nullProxy int32 = -1

// handleArena is a small generic helper: a dense slice of T plus a free
// list of indices, each slot carrying a generation counter bumped on
// reuse so stale handles fail validation instead of aliasing a new entity.
type handleArena[T any] struct {
	slots       []T
	generations []uint32
	alive       []bool
	freeList    []uint32
}

func newHandleArena[T any]() *handleArena[T] {
	return &handleArena[T]{}
}

func (a *handleArena[T]) insert(v T) (uint32, uint32) {
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		a.slots[idx] = v
		a.alive[idx] = true
		return idx, a.generations[idx]
	}
	idx := uint32(len(a.slots))
	a.slots = append(a.slots, v)
	a.generations = append(a.generations, 1)
	a.alive = append(a.alive, true)
	return idx, 1
}

func (a *handleArena[T]) remove(idx uint32) {
	assert(a.alive[idx], "double free of handle index %d", idx)
	a.alive[idx] = false
	a.generations[idx]++
	var zero T
	a.slots[idx] = zero
	a.freeList = append(a.freeList, idx)
}

func (a *handleArena[T]) get(idx, generation uint32) (*T, bool) {
	if int(idx) >= len(a.slots) || !a.alive[idx] || a.generations[idx] != generation {
		return nil, false
	}
	return &a.slots[idx], true
}

func (a *handleArena[T]) mustGet(idx, generation uint32) *T {
	v, ok := a.get(idx, generation)
	assert(ok, "stale or invalid handle index=%d generation=%d", idx, generation)
	return v
}
