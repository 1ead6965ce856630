package physics

// shape.go declares the DistanceProxy view spec.md §3/§9 says is the only
// thing the core consumes from shapes, plus minimal concrete shapes
// (Disk, Polygon, Edge, Chain) so the package is self-contained and
// testable without an external geometry library. The core — manifold
// builder, GJK, TOI — never type-switches on these; it only calls
// Shape.Proxy(childIndex).

// MassData is the output of a shape's mass computation at a given density.
type MassData struct {
	mass   float64
	center Vec2
	i      float64 // rotational inertia about the local origin
}

// DistanceProxy is the minimal view spec.md §4.4 and §9 require: a vertex
// radius plus ordered vertex/normal slices (empty normals for 1-vertex
// disks).
type DistanceProxy struct {
	Vertices []Vec2
	Normals  []Vec2
	Radius   float64
}

// Support returns the index of the vertex furthest in direction d.
func (p DistanceProxy) Support(d Vec2) int {
	best := 0
	bestDot := p.Vertices[0].Dot(d)
	for i := 1; i < len(p.Vertices); i++ {
		dot := p.Vertices[i].Dot(d)
		if dot > bestDot {
			bestDot = dot
			best = i
		}
	}
	return best
}

// Shape is the abstract geometry a Fixture binds to a Body. Concrete
// shapes below implement it; the core only ever calls ChildCount/Proxy/
// ComputeAABB/MassData/TestPoint through this interface.
type Shape interface {
	ChildCount() int
	Proxy(child int) DistanceProxy
	ComputeAABB(xf Transform, child int) AABB
	MassData(density float64) MassData
	TestPoint(xf Transform, p Vec2) bool
}

// DiskShape is a single vertex with a radius — spec.md's degenerate
// 1-vertex case (empty normal list).
type DiskShape struct {
	Center Vec2
	Radius float64
}

func (s *DiskShape) ChildCount() int { return 1 }

func (s *DiskShape) Proxy(child int) DistanceProxy {
	return DistanceProxy{Vertices: []Vec2{s.Center}, Radius: s.Radius}
}

func (s *DiskShape) ComputeAABB(xf Transform, child int) AABB {
	p := xf.Mul(s.Center)
	r := Vec2{s.Radius, s.Radius}
	return AABB{p.Sub(r), p.Add(r)}
}

func (s *DiskShape) MassData(density float64) MassData {
	mass := density * 3.14159265358979323846 * s.Radius * s.Radius
	i := mass * (0.5*s.Radius*s.Radius + s.Center.Dot(s.Center))
	return MassData{mass: mass, center: s.Center, i: i}
}

func (s *DiskShape) TestPoint(xf Transform, p Vec2) bool {
	center := xf.Mul(s.Center)
	d := p.Sub(center)
	return d.Dot(d) <= s.Radius*s.Radius
}

// PolygonShape is a convex polygon, vertex radius = PolygonRadius (a thin
// skin, per original_source/Box2D's b2_polygonRadius) so polygon-polygon
// manifolds behave consistently with disk-involving ones.
type PolygonShape struct {
	Vertices []Vec2
	Normals  []Vec2
	Centroid Vec2
	Radius   float64
}

// NewPolygonShape builds a polygon shape from a convex, CCW-ordered vertex
// list, computing face normals and centroid.
func NewPolygonShape(verts []Vec2) *PolygonShape {
	assert(len(verts) >= 3, "polygon needs at least 3 vertices")
	n := len(verts)
	normals := make([]Vec2, n)
	for i := 0; i < n; i++ {
		edge := verts[(i+1)%n].Sub(verts[i])
		normals[i] = edge.Skew().Neg().Normalized()
	}
	centroid := polygonCentroid(verts)
	return &PolygonShape{Vertices: verts, Normals: normals, Centroid: centroid, Radius: PolygonRadius}
}

func polygonCentroid(verts []Vec2) Vec2 {
	c := Vec2{}
	area := 0.0
	origin := verts[0]
	for i := 1; i+1 < len(verts); i++ {
		e1 := verts[i].Sub(origin)
		e2 := verts[i+1].Sub(origin)
		a := 0.5 * e1.Cross(e2)
		area += a
		c = c.Add(e1.Add(e2).Scale(a / 3))
	}
	if area > 1e-12 {
		c = c.Scale(1 / area)
	}
	return c.Add(origin)
}

func (s *PolygonShape) ChildCount() int { return 1 }

func (s *PolygonShape) Proxy(child int) DistanceProxy {
	return DistanceProxy{Vertices: s.Vertices, Normals: s.Normals, Radius: s.Radius}
}

func (s *PolygonShape) ComputeAABB(xf Transform, child int) AABB {
	lo := xf.Mul(s.Vertices[0])
	hi := lo
	for i := 1; i < len(s.Vertices); i++ {
		v := xf.Mul(s.Vertices[i])
		lo = VecMin(lo, v)
		hi = VecMax(hi, v)
	}
	r := Vec2{s.Radius, s.Radius}
	return AABB{lo.Sub(r), hi.Add(r)}
}

func (s *PolygonShape) MassData(density float64) MassData {
	n := len(s.Vertices)
	center := Vec2{}
	area := 0.0
	i := 0.0
	origin := s.Vertices[0]
	const inv3 = 1.0 / 3.0
	for k := 0; k < n; k++ {
		e1 := s.Vertices[k].Sub(origin)
		e2 := s.Vertices[(k+1)%n].Sub(origin)
		d := e1.Cross(e2)
		triArea := 0.5 * d
		area += triArea
		center = center.Add(e1.Add(e2).Scale(triArea * inv3))
		intx2 := e1.X*e1.X + e1.X*e2.X + e2.X*e2.X
		inty2 := e1.Y*e1.Y + e1.Y*e2.Y + e2.Y*e2.Y
		i += (0.25 * inv3 * d) * (intx2 + inty2)
	}
	mass := density * area
	if area > 1e-12 {
		center = center.Scale(1 / area)
	}
	center = center.Add(origin)
	inertia := density * i
	// shift to local origin
	inertia += mass * (center.Dot(center) - center.Sub(origin).Dot(center.Sub(origin)))
	return MassData{mass: mass, center: center, i: inertia}
}

func (s *PolygonShape) TestPoint(xf Transform, p Vec2) bool {
	local := xf.MulT(p)
	for i, n := range s.Normals {
		if n.Dot(local.Sub(s.Vertices[i])) > 0 {
			return false
		}
	}
	return true
}

// EdgeShape is a single line segment (two vertices, two normals, zero
// radius skin handled by PolygonRadius for consistency with polygon
// clipping).
type EdgeShape struct {
	V1, V2 Vec2
	Radius float64
}

func NewEdgeShape(v1, v2 Vec2) *EdgeShape {
	return &EdgeShape{V1: v1, V2: v2, Radius: PolygonRadius}
}

func (s *EdgeShape) ChildCount() int { return 1 }

func (s *EdgeShape) Proxy(child int) DistanceProxy {
	n := s.V2.Sub(s.V1).Skew().Neg().Normalized()
	return DistanceProxy{Vertices: []Vec2{s.V1, s.V2}, Normals: []Vec2{n, n.Neg()}, Radius: s.Radius}
}

func (s *EdgeShape) ComputeAABB(xf Transform, child int) AABB {
	v1 := xf.Mul(s.V1)
	v2 := xf.Mul(s.V2)
	r := Vec2{s.Radius, s.Radius}
	return AABB{VecMin(v1, v2).Sub(r), VecMax(v1, v2).Add(r)}
}

func (s *EdgeShape) MassData(density float64) MassData {
	mid := s.V1.Add(s.V2).Scale(0.5)
	return MassData{mass: 0, center: mid, i: 0}
}

func (s *EdgeShape) TestPoint(xf Transform, p Vec2) bool { return false }

// ChainShape is an ordered list of connected edges (one child per edge),
// used for static level geometry (spec.md §1 names "chain" among the
// shape family consumed only through the proxy view).
type ChainShape struct {
	Vertices []Vec2 // N vertices describing N-1 edges
	Radius   float64
}

func NewChainShape(verts []Vec2) *ChainShape {
	assert(len(verts) >= 2, "chain needs at least 2 vertices")
	return &ChainShape{Vertices: verts, Radius: PolygonRadius}
}

func (s *ChainShape) ChildCount() int { return len(s.Vertices) - 1 }

func (s *ChainShape) Proxy(child int) DistanceProxy {
	v1, v2 := s.Vertices[child], s.Vertices[child+1]
	n := v2.Sub(v1).Skew().Neg().Normalized()
	return DistanceProxy{Vertices: []Vec2{v1, v2}, Normals: []Vec2{n, n.Neg()}, Radius: s.Radius}
}

func (s *ChainShape) ComputeAABB(xf Transform, child int) AABB {
	v1 := xf.Mul(s.Vertices[child])
	v2 := xf.Mul(s.Vertices[child+1])
	r := Vec2{s.Radius, s.Radius}
	return AABB{VecMin(v1, v2).Sub(r), VecMax(v1, v2).Add(r)}
}

func (s *ChainShape) MassData(density float64) MassData { return MassData{} }

func (s *ChainShape) TestPoint(xf Transform, p Vec2) bool { return false }

// MultiShape groups several child shapes (each with its own proxy) behind
// one Shape value, matching spec.md §1's "multi-shape" family member.
type MultiShape struct {
	Children []Shape
}

func (s *MultiShape) childOf(child int) (Shape, int) {
	idx := child
	for _, c := range s.Children {
		n := c.ChildCount()
		if idx < n {
			return c, idx
		}
		idx -= n
	}
	assert(false, "multi-shape child index out of range")
	return nil, 0
}

func (s *MultiShape) ChildCount() int {
	n := 0
	for _, c := range s.Children {
		n += c.ChildCount()
	}
	return n
}

func (s *MultiShape) Proxy(child int) DistanceProxy {
	c, idx := s.childOf(child)
	return c.Proxy(idx)
}

func (s *MultiShape) ComputeAABB(xf Transform, child int) AABB {
	c, idx := s.childOf(child)
	return c.ComputeAABB(xf, idx)
}

func (s *MultiShape) MassData(density float64) MassData {
	total := MassData{}
	mass := 0.0
	center := Vec2{}
	inertia := 0.0
	for _, c := range s.Children {
		md := c.MassData(density)
		mass += md.mass
		center = center.Add(md.center.Scale(md.mass))
		inertia += md.i
	}
	if mass > 0 {
		center = center.Scale(1 / mass)
	}
	total.mass = mass
	total.center = center
	total.i = inertia
	return total
}

func (s *MultiShape) TestPoint(xf Transform, p Vec2) bool {
	for _, c := range s.Children {
		if c.TestPoint(xf, p) {
			return true
		}
	}
	return false
}
