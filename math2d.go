package physics

import "math"

// math2d.go holds the minimal 2-D rigid-transform math the core needs.
// spec.md declares these primitives external collaborators; nothing in the
// example pack ships an importable 2-D vector/transform library (the
// pack's math helpers are all 3-D and tied to their own engines), so this
// is implemented directly against the standard library. See DESIGN.md.

// Vec2 is a 2-element vector.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2   { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2   { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Neg() Vec2         { return Vec2{-v.X, -v.Y} }
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Cross returns the z-component of the 3-D cross product of two 2-vectors.
func (v Vec2) Cross(o Vec2) float64 { return v.X*o.Y - v.Y*o.X }

// CrossScalar returns s * perp(v) i.e. the cross product of a scalar and a vector.
func CrossScalar(s float64, v Vec2) Vec2 { return Vec2{-s * v.Y, s * v.X} }

// CrossVecScalar returns cross(v, s) = -s * perp(v).
func CrossVecScalar(v Vec2, s float64) Vec2 { return Vec2{s * v.Y, -s * v.X} }

func (v Vec2) Len() float64    { return math.Hypot(v.X, v.Y) }
func (v Vec2) LenSq() float64  { return v.X*v.X + v.Y*v.Y }

func (v Vec2) Normalized() Vec2 {
	l := v.Len()
	if l < 1e-12 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Skew returns the left perpendicular of v (90 degree CCW rotation).
func (v Vec2) Skew() Vec2 { return Vec2{-v.Y, v.X} }

func VecMin(a, b Vec2) Vec2 { return Vec2{math.Min(a.X, b.X), math.Min(a.Y, b.Y)} }
func VecMax(a, b Vec2) Vec2 { return Vec2{math.Max(a.X, b.X), math.Max(a.Y, b.Y)} }

// Rot is a 2-D rotation represented by its sine and cosine, avoiding
// repeated trig calls in the hot solver loops.
type Rot struct {
	Sin, Cos float64
}

func NewRot(angle float64) Rot { return Rot{math.Sin(angle), math.Cos(angle)} }

func (r Rot) Angle() float64 { return math.Atan2(r.Sin, r.Cos) }

func (r Rot) Mul(v Vec2) Vec2 {
	return Vec2{r.Cos*v.X - r.Sin*v.Y, r.Sin*v.X + r.Cos*v.Y}
}

func (r Rot) MulT(v Vec2) Vec2 {
	return Vec2{r.Cos*v.X + r.Sin*v.Y, -r.Sin*v.X + r.Cos*v.Y}
}

func (r Rot) MulRot(o Rot) Rot {
	return Rot{r.Sin*o.Cos + r.Cos*o.Sin, r.Cos*o.Cos - r.Sin*o.Sin}
}

func (r Rot) MulTRot(o Rot) Rot {
	return Rot{r.Cos*o.Sin - r.Sin*o.Cos, r.Cos*o.Cos + r.Sin*o.Sin}
}

// Transform combines a translation and rotation.
type Transform struct {
	P Vec2
	Q Rot
}

func NewTransform(p Vec2, q Rot) Transform { return Transform{p, q} }

func (t Transform) Mul(v Vec2) Vec2 { return t.Q.Mul(v).Add(t.P) }
func (t Transform) MulT(v Vec2) Vec2 { return t.Q.MulT(v.Sub(t.P)) }

func MulTransforms(a, b Transform) Transform {
	return Transform{Q: a.Q.MulRot(b.Q), P: a.Q.Mul(b.P).Add(a.P)}
}

func MulTTransforms(a, b Transform) Transform {
	return Transform{Q: a.Q.MulTRot(b.Q), P: a.Q.MulT(b.P.Sub(a.P))}
}

// Mat22 is a 2x2 matrix stored column-major (ex, ey).
type Mat22 struct {
	Ex, Ey Vec2
}

func NewMat22(a, b, c, d float64) Mat22 { return Mat22{Vec2{a, c}, Vec2{b, d}} }

func (m Mat22) Mul(v Vec2) Vec2 {
	return Vec2{m.Ex.X*v.X + m.Ey.X*v.Y, m.Ex.Y*v.X + m.Ey.Y*v.Y}
}

func (m Mat22) Det() float64 { return m.Ex.X*m.Ey.Y - m.Ey.X*m.Ex.Y }

// Inverse returns the matrix inverse, or the zero matrix if singular.
func (m Mat22) Inverse() Mat22 {
	a, b, c, d := m.Ex.X, m.Ey.X, m.Ex.Y, m.Ey.Y
	det := a*d - b*c
	if det != 0 {
		det = 1 / det
	}
	return Mat22{Vec2{det * d, -det * c}, Vec2{-det * b, det * a}}
}

// Solve solves Ax=b for x using Cramer's rule.
func (m Mat22) Solve(b Vec2) Vec2 {
	a11, a12, a21, a22 := m.Ex.X, m.Ey.X, m.Ex.Y, m.Ey.Y
	det := a11*a22 - a12*a21
	if det != 0 {
		det = 1 / det
	}
	return Vec2{det * (a22*b.X - a12*b.Y), det * (a11*b.Y - a21*b.X)}
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	LowerBound, UpperBound Vec2
}

func NewAABB(lo, hi Vec2) AABB { return AABB{lo, hi} }

func (a AABB) Contains(o AABB) bool {
	return a.LowerBound.X <= o.LowerBound.X && a.LowerBound.Y <= o.LowerBound.Y &&
		o.UpperBound.X <= a.UpperBound.X && o.UpperBound.Y <= a.UpperBound.Y
}

func (a AABB) Overlaps(o AABB) bool {
	d1x := o.LowerBound.X - a.UpperBound.X
	d1y := o.LowerBound.Y - a.UpperBound.Y
	d2x := a.LowerBound.X - o.UpperBound.X
	d2y := a.LowerBound.Y - o.UpperBound.Y
	if d1x > 0 || d1y > 0 {
		return false
	}
	if d2x > 0 || d2y > 0 {
		return false
	}
	return true
}

func (a AABB) Union(o AABB) AABB {
	return AABB{VecMin(a.LowerBound, o.LowerBound), VecMax(a.UpperBound, o.UpperBound)}
}

func (a AABB) Perimeter() float64 {
	wx := a.UpperBound.X - a.LowerBound.X
	wy := a.UpperBound.Y - a.LowerBound.Y
	return 2 * (wx + wy)
}

func (a AABB) Extend(r float64) AABB {
	rv := Vec2{r, r}
	return AABB{a.LowerBound.Sub(rv), a.UpperBound.Add(rv)}
}

func (a AABB) Center() Vec2 {
	return a.LowerBound.Add(a.UpperBound).Scale(0.5)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
