package physics

import "math"

// manifold.go implements the manifold builder of spec.md §4.3, grounded in
// the classic Box2D b2CollidePolygons/b2CollideCircles family (the exact
// shape of this algorithm is why original_source/Box2D/Collision/
// CollideShapes.cpp was retrieved for this spec) and the
// DistanceProxy-only contract spec.md §9 requires.

// ManifoldType distinguishes the three non-empty cases of spec.md §3.
type ManifoldType uint8

const (
	ManifoldUnset ManifoldType = iota
	ManifoldCircles
	ManifoldFaceA
	ManifoldFaceB
)

// ContactFeature names which vertex/edge on each side generated a point,
// so that warm-start impulses persist across steps by feature identity
// (spec.md §3, §4.2).
type ContactFeature struct {
	IndexA, IndexB   uint8
	TypeA, TypeB     uint8 // 0 = vertex, 1 = face
}

// ManifoldPoint is one of up to two contact points (spec.md §3).
type ManifoldPoint struct {
	LocalPoint     Vec2
	NormalImpulse  float64
	TangentImpulse float64
	ID             ContactFeature
}

// Manifold describes a contact patch between two fixtures (spec.md §3).
type Manifold struct {
	Type         ManifoldType
	LocalNormal  Vec2 // valid for faceA/faceB
	LocalPoint   Vec2 // reference point: face anchor or circle center on A
	Points       []ManifoldPoint
}

// ManifoldConfig tunes the manifold builder (spec.md §4.3).
type ManifoldConfig struct {
	MaxCirclesRatio float64 // chain "corners fallback" jitter guard, spec.md §4.3
	Slop            float64
}

// CollideShapes dispatches by vertex counts per spec.md §4.3: 1v1 circles,
// 1-vs-many clamp-to-Voronoi-region, many-vs-many SAT + clipping.
func CollideShapes(proxyA, proxyB DistanceProxy, xfA, xfB Transform, cfg ManifoldConfig) Manifold {
	switch {
	case len(proxyA.Vertices) == 1 && len(proxyB.Vertices) == 1:
		return collideCircles(proxyA, xfA, proxyB, xfB)
	case len(proxyA.Vertices) == 1:
		return flipManifold(collidePolygonAndCircle(proxyB, xfB, proxyA, xfA, cfg))
	case len(proxyB.Vertices) == 1:
		return collidePolygonAndCircle(proxyA, xfA, proxyB, xfB, cfg)
	default:
		return collidePolygons(proxyA, xfA, proxyB, xfB, cfg)
	}
}

func collideCircles(a DistanceProxy, xfA Transform, b DistanceProxy, xfB Transform) Manifold {
	pA := xfA.Mul(a.Vertices[0])
	pB := xfB.Mul(b.Vertices[0])
	d := pB.Sub(pA)
	distSq := d.LenSq()
	rA, rB := a.Radius, b.Radius
	radius := rA + rB
	if distSq > radius*radius {
		return Manifold{Type: ManifoldUnset}
	}
	return Manifold{
		Type:        ManifoldCircles,
		LocalPoint:  a.Vertices[0],
		LocalNormal: Vec2{},
		Points: []ManifoldPoint{{
			LocalPoint: b.Vertices[0],
			ID:         ContactFeature{},
		}},
	}
}

// collidePolygonAndCircle clamps the circle center onto the polygon's
// Voronoi region, per spec.md §4.3 "1 vs many".
func collidePolygonAndCircle(poly DistanceProxy, xfA Transform, circle DistanceProxy, xfB Transform, cfg ManifoldConfig) Manifold {
	c := xfA.MulT(xfB.Mul(circle.Vertices[0]))

	// Find the max separating edge.
	normalIndex := 0
	separation := math.Inf(-1)
	radius := poly.Radius + circle.Radius
	n := len(poly.Vertices)
	for i := 0; i < n; i++ {
		s := poly.Normals[i].Dot(c.Sub(poly.Vertices[i]))
		if s > radius {
			return Manifold{Type: ManifoldUnset}
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	v1 := poly.Vertices[normalIndex]
	v2 := poly.Vertices[(normalIndex+1)%n]

	if separation < 1e-12 {
		// center inside polygon
		return Manifold{
			Type:        ManifoldFaceA,
			LocalNormal: poly.Normals[normalIndex],
			LocalPoint:  v1.Add(v2).Scale(0.5),
			Points:      []ManifoldPoint{{LocalPoint: circle.Vertices[0]}},
		}
	}

	u1 := c.Sub(v1).Dot(v2.Sub(v1))
	u2 := c.Sub(v2).Dot(v1.Sub(v2))

	switch {
	case u1 <= 0:
		if c.Sub(v1).LenSq() > radius*radius {
			return Manifold{Type: ManifoldUnset}
		}
		return Manifold{
			Type:        ManifoldFaceA,
			LocalNormal: c.Sub(v1).Normalized(),
			LocalPoint:  v1,
			Points:      []ManifoldPoint{{LocalPoint: circle.Vertices[0]}},
		}
	case u2 <= 0:
		if c.Sub(v2).LenSq() > radius*radius {
			return Manifold{Type: ManifoldUnset}
		}
		return Manifold{
			Type:        ManifoldFaceA,
			LocalNormal: c.Sub(v2).Normalized(),
			LocalPoint:  v2,
			Points:      []ManifoldPoint{{LocalPoint: circle.Vertices[0]}},
		}
	default:
		return Manifold{
			Type:        ManifoldFaceA,
			LocalNormal: poly.Normals[normalIndex],
			LocalPoint:  v1.Add(v2).Scale(0.5),
			Points:      []ManifoldPoint{{LocalPoint: circle.Vertices[0]}},
		}
	}
}

func flipManifold(m Manifold) Manifold {
	if m.Type == ManifoldUnset {
		return m
	}
	if m.Type == ManifoldFaceA {
		m.Type = ManifoldFaceB
	}
	return m
}

type clipVertex struct {
	v  Vec2
	id ContactFeature
}

// collidePolygons implements the many-vs-many branch of spec.md §4.3:
// separating axes A and B, axis selection with hysteresis, incident-edge
// clipping against the reference face's side planes, and the
// corners/collinear fallback.
func collidePolygons(a DistanceProxy, xfA Transform, b DistanceProxy, xfB Transform, cfg ManifoldConfig) Manifold {
	totalRadius := a.Radius + b.Radius

	edgeA, sepA := findMaxSeparation(a, xfA, b, xfB)
	if sepA > totalRadius {
		return Manifold{Type: ManifoldUnset}
	}
	edgeB, sepB := findMaxSeparation(b, xfB, a, xfA)
	if sepB > totalRadius {
		return Manifold{Type: ManifoldUnset}
	}

	var flip bool
	var ref, inc DistanceProxy
	var xfRef, xfInc Transform
	var edge1 int

	const relativeTol = 0.98
	const absoluteTol = 0.001
	if sepB > relativeTol*sepA+absoluteTol {
		ref, xfRef, edge1 = b, xfB, edgeB
		inc, xfInc = a, xfA
		flip = true
	} else {
		ref, xfRef, edge1 = a, xfA, edgeA
		inc, xfInc = b, xfB
		flip = false
	}

	incidentEdge := findIncidentEdge(ref, xfRef, edge1, inc, xfInc)

	nRef := len(ref.Vertices)
	v11 := ref.Vertices[edge1]
	v12 := ref.Vertices[(edge1+1)%nRef]

	localTangent := v12.Sub(v11).Normalized()
	localNormal := localTangent.Skew().Neg()
	planePoint := v11.Add(v12).Scale(0.5)

	tangent := xfRef.Q.Mul(localTangent)
	normal := tangent.Skew().Neg()

	v11w := xfRef.Mul(v11)
	v12w := xfRef.Mul(v12)

	frontOffset := normal.Dot(v11w)
	sideOffset1 := -tangent.Dot(v11w) + ref.Radius
	sideOffset2 := tangent.Dot(v12w) + ref.Radius

	clipPoints1, ok := clipSegmentToLine(incidentEdge, tangent.Neg(), sideOffset1, edge1)
	if !ok || len(clipPoints1) < 2 {
		return collideCorners(a, xfA, b, xfB, cfg)
	}
	clipPoints2, ok := clipSegmentToLine(clipPoints1, tangent, sideOffset2, (edge1+1)%nRef)
	if !ok || len(clipPoints2) < 2 {
		return collideCorners(a, xfA, b, xfB, cfg)
	}

	points := make([]ManifoldPoint, 0, 2)
	for _, cv := range clipPoints2 {
		sep := normal.Dot(cv.v) - frontOffset
		if sep <= totalRadius+cfg.Slop {
			points = append(points, ManifoldPoint{
				LocalPoint: xfInc.MulT(cv.v),
				ID:         cv.id,
			})
		}
	}

	if len(points) == 0 {
		return collideCorners(a, xfA, b, xfB, cfg)
	}

	typ := ManifoldFaceA
	if flip {
		typ = ManifoldFaceB
	}
	return Manifold{
		Type:        typ,
		LocalNormal: localNormal,
		LocalPoint:  planePoint,
		Points:      points,
	}
}

// findMaxSeparation finds the edge of a whose outward normal maximizes
// the separation from b's deepest vertex along that normal, both
// expressed in b's local frame (classic b2FindMaxSeparation).
func findMaxSeparation(a DistanceProxy, xfA Transform, b DistanceProxy, xfB Transform) (int, float64) {
	xf := MulTTransforms(xfB, xfA)
	bestSep := math.Inf(-1)
	bestEdge := 0
	for i, n := range a.Normals {
		nInB := xf.Q.Mul(n)
		v1 := xf.Mul(a.Vertices[i])
		j := b.Support(nInB.Neg())
		si := nInB.Dot(b.Vertices[j].Sub(v1))
		if si > bestSep {
			bestSep = si
			bestEdge = i
		}
	}
	return bestEdge, bestSep
}

// findIncidentEdge picks the edge on inc whose normal is most anti-
// parallel to the reference edge's world normal.
func findIncidentEdge(ref DistanceProxy, xfRef Transform, edge1 int, inc DistanceProxy, xfInc Transform) []clipVertex {
	refNormalWorld := xfRef.Q.Mul(ref.Normals[edge1])
	refNormalLocal := xfInc.Q.MulT(refNormalWorld)

	n := len(inc.Vertices)
	index := 0
	minDot := math.Inf(1)
	for i := 0; i < n; i++ {
		d := refNormalLocal.Dot(inc.Normals[i])
		if d < minDot {
			minDot = d
			index = i
		}
	}
	i1 := index
	i2 := (index + 1) % n
	return []clipVertex{
		{v: xfInc.Mul(inc.Vertices[i1]), id: ContactFeature{IndexA: uint8(edge1), IndexB: uint8(i1), TypeA: 1, TypeB: 0}},
		{v: xfInc.Mul(inc.Vertices[i2]), id: ContactFeature{IndexA: uint8(edge1), IndexB: uint8(i2), TypeA: 1, TypeB: 0}},
	}
}

// clipSegmentToLine clips a 2-point segment against the half-plane
// normal.dot(x) <= offset, interpolating a new point on the boundary
// when one endpoint is cut (spec.md §4.3 "clip the incident edge...
// against the side planes of the reference edge").
func clipSegmentToLine(in []clipVertex, normal Vec2, offset float64, edgeIndex int) ([]clipVertex, bool) {
	out := make([]clipVertex, 0, 2)

	dist0 := normal.Dot(in[0].v) - offset
	dist1 := normal.Dot(in[1].v) - offset

	if dist0 <= 0 {
		out = append(out, in[0])
	}
	if dist1 <= 0 {
		out = append(out, in[1])
	}

	if dist0*dist1 < 0 {
		t := dist0 / (dist0 - dist1)
		v := in[0].v.Add(in[1].v.Sub(in[0].v).Scale(t))
		id := in[0].id
		if dist0 > 0 {
			id = in[1].id
		}
		id.IndexA = uint8(edgeIndex)
		id.TypeA = 1
		out = append(out, clipVertex{v: v, id: id})
	}

	return out, len(out) >= 1
}

// collideCorners is spec.md §4.3's fallback for when face clipping yields
// fewer than two surviving points: the closest vertex pair within total
// radius generates a circles manifold, or — if A's edge from its last to
// its first vertex (the whole edge, for a two-vertex edge proxy) is long
// relative to A's vertex radius — a degenerate face manifold to avoid
// jitter on chains (the MaxCirclesRatio guard).
func collideCorners(a DistanceProxy, xfA Transform, b DistanceProxy, xfB Transform, cfg ManifoldConfig) Manifold {
	totalRadius := a.Radius + b.Radius
	bestDistSq := math.Inf(1)
	var bestI, bestJ int
	for i, va := range a.Vertices {
		wa := xfA.Mul(va)
		for j, vb := range b.Vertices {
			wb := xfB.Mul(vb)
			d := wb.Sub(wa).LenSq()
			if d < bestDistSq {
				bestDistSq = d
				bestI, bestJ = i, j
			}
		}
	}
	if bestDistSq > totalRadius*totalRadius {
		return Manifold{Type: ManifoldUnset}
	}

	va := xfA.Mul(a.Vertices[bestI])
	vb := xfB.Mul(b.Vertices[bestJ])
	edgeLen := 0.0
	if len(a.Vertices) >= 2 {
		edgeLen = a.Vertices[0].Sub(a.Vertices[len(a.Vertices)-1]).Len()
	}
	if cfg.MaxCirclesRatio > 0 && a.Radius > 0 && edgeLen/a.Radius > cfg.MaxCirclesRatio {
		n := vb.Sub(va).Normalized()
		return Manifold{
			Type:        ManifoldFaceA,
			LocalNormal: xfA.Q.MulT(n),
			LocalPoint:  a.Vertices[bestI],
			Points:      []ManifoldPoint{{LocalPoint: b.Vertices[bestJ], ID: ContactFeature{IndexA: uint8(bestI), IndexB: uint8(bestJ)}}},
		}
	}

	return Manifold{
		Type:       ManifoldCircles,
		LocalPoint: a.Vertices[bestI],
		Points: []ManifoldPoint{{
			LocalPoint: b.Vertices[bestJ],
			ID:         ContactFeature{IndexA: uint8(bestI), IndexB: uint8(bestJ)},
		}},
	}
}

// WorldManifoldPoint is one point of a manifold expressed in world space,
// per original_source/PlayRho/Collision/WorldManifold.hpp — not named by
// spec.md's distillation but universally needed by post-solve callbacks
// and by the separation checks the TOI/position solver perform.
type WorldManifoldPoint struct {
	Point      Vec2
	Separation float64
}

// WorldManifold is the resolved, world-space view of a Manifold.
type WorldManifold struct {
	Normal Vec2
	Points []WorldManifoldPoint
}

// World converts a local manifold into world space given the two body
// transforms and fixture radii.
func (m Manifold) World(xfA, xfB Transform, radiusA, radiusB float64) WorldManifold {
	if len(m.Points) == 0 {
		return WorldManifold{}
	}
	var normal Vec2
	wm := WorldManifold{}
	switch m.Type {
	case ManifoldCircles:
		pA := xfA.Mul(m.LocalPoint)
		pB := xfB.Mul(m.Points[0].LocalPoint)
		normal = pB.Sub(pA).Normalized()
		mid := pA.Add(pB).Scale(0.5)
		wm.Points = append(wm.Points, WorldManifoldPoint{Point: mid, Separation: pB.Sub(pA).Dot(normal) - radiusA - radiusB})
	case ManifoldFaceA:
		normal = xfA.Q.Mul(m.LocalNormal)
		planePoint := xfA.Mul(m.LocalPoint)
		for _, p := range m.Points {
			clip := xfB.Mul(p.LocalPoint)
			sep := clip.Sub(planePoint).Dot(normal) - radiusA - radiusB
			cA := clip.Sub(normal.Scale(clip.Sub(planePoint).Dot(normal)))
			pt := cA.Add(clip.Sub(normal.Scale(radiusB))).Scale(0.5)
			wm.Points = append(wm.Points, WorldManifoldPoint{Point: pt, Separation: sep})
		}
	case ManifoldFaceB:
		normal = xfB.Q.Mul(m.LocalNormal)
		planePoint := xfB.Mul(m.LocalPoint)
		for _, p := range m.Points {
			clip := xfA.Mul(p.LocalPoint)
			sep := clip.Sub(planePoint).Dot(normal) - radiusA - radiusB
			pt := clip.Sub(normal.Scale(radiusA)).Add(clip).Scale(0.5)
			wm.Points = append(wm.Points, WorldManifoldPoint{Point: pt, Separation: sep})
		}
		normal = normal.Neg()
	}
	wm.Normal = normal
	return wm
}
