// Package physics provides a deterministic 2-D rigid-body simulator: a
// dynamic AABB tree broad-phase, manifold-based narrow-phase collision for
// circles, convex polygons and edges, an island-batched sequential-impulse
// constraint solver with warm starting, continuous collision via
// conservative-advancement time-of-impact, and a per-island sleep governor.
//
// A World owns every Body, Fixture and Joint; callers step it forward with
// fixed or variable StepConf values and read results back through stable
// generational handles rather than pointers, so destroyed entities fail
// fast instead of aliasing reused state.
package physics
