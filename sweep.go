package physics

import "math"

// sweep.go implements the per-body motion record used by continuous
// collision detection (spec.md §3 "Sweep"). Grounded in
// PlayRho/Common/Sweep.hpp (original_source/) for the exact Advance
// interpolation invariant, restated in Go.

// Sweep describes a body's motion across a step for CCD purposes.
type Sweep struct {
	LocalCenter Vec2 // center of mass in body-local frame

	C0, C1 Vec2 // center of mass at Alpha0 and at alpha=1
	A0, A1 float64 // angle at Alpha0 and at alpha=1

	Alpha0 float64 // fraction of the current step at which C0/A0 are valid, in [0,1)
}

// Transform returns the world transform of the body's origin at
// fraction beta in [0,1], interpolating between (C0,A0) and (C1,A1).
func (s Sweep) Transform(beta float64) Transform {
	p := s.C0.Scale(1 - beta).Add(s.C1.Scale(beta))
	a := s.A0*(1-beta) + s.A1*beta
	q := NewRot(a)
	// xf.p is the body origin, not the center of mass; shift back.
	xf := Transform{P: p, Q: q}
	xf.P = xf.P.Sub(q.Mul(s.LocalCenter))
	return xf
}

// Advance moves the sweep's time origin forward to alpha (the fraction of
// the step, from the current Alpha0 up to below 1) without discarding the portion of motion
// still to be resolved: C0/A0 are interpolated to the new alpha, leaving
// C1/A1 (the end-of-step state) untouched. This is the invariant spec.md
// §3 states explicitly:
//
//	pos0' = interpolate(pos0, pos1, (alphaNew - alpha0) / (1 - alpha0))
func (s *Sweep) Advance(alpha float64) {
	assert(s.Alpha0 < 1, "cannot advance a sweep already at alpha=1")
	beta := (alpha - s.Alpha0) / (1 - s.Alpha0)
	s.C0 = s.C0.Scale(1 - beta).Add(s.C1.Scale(beta))
	s.A0 = s.A0*(1-beta) + s.A1*beta
	s.Alpha0 = alpha
}

// Normalize adjusts the angles in the sweep so A0's representative angle
// is within [0, 2*pi), adjusting A1 by the same shift to preserve the
// delta between them (matches Box2D's b2Sweep::Normalize).
func (s *Sweep) Normalize() {
	twoPi := 2 * math.Pi
	d := twoPi * math.Floor(s.A0/twoPi)
	s.A0 -= d
	s.A1 -= d
}
