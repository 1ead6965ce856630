package physics

import "math"

// toi.go implements the conservative-advancement time-of-impact solver of
// spec.md §4.4/§4.7, grounded in original_source/Box2D/Collision/
// b2TimeOfImpact.cpp. It is the piece that lets impenetrable ("bullet")
// bodies never tunnel through thin geometry in a single step.

// TOIState is the outcome of a TimeOfImpact query.
type TOIState uint8

const (
	TOIUnknown TOIState = iota
	TOIFailed
	TOIOverlapped
	TOITouching
	TOISeparated
)

// TOIInput bundles the two proxies with their sweeps and the upper bound
// TMax of the sweep interval (spec.md §4.4). The target distance and
// tolerance are derived inside TimeOfImpact.
type TOIInput struct {
	ProxyA, ProxyB DistanceProxy
	SweepA, SweepB Sweep
	TMax           float64
}

// TOIOutput reports the resulting state and, when touching, the impact
// fraction alpha in [0, TMax].
type TOIOutput struct {
	State TOIState
	T     float64
}

type sepFuncType uint8

const (
	sepPoints sepFuncType = iota
	sepFaceA
	sepFaceB
)

// separationFunction evaluates the signed separation along a fixed axis
// as the two sweeps advance — spec.md §4.4's "SeparationFinder" (named
// b2SeparationFunction in the teacher's source family).
type separationFunction struct {
	proxyA, proxyB DistanceProxy
	sweepA, sweepB Sweep
	typ            sepFuncType
	localPoint     Vec2
	axis           Vec2
}

func makeSeparationFunction(cache *SimplexCache, proxyA DistanceProxy, sweepA Sweep, proxyB DistanceProxy, sweepB Sweep, t1 float64) separationFunction {
	sf := separationFunction{proxyA: proxyA, proxyB: proxyB, sweepA: sweepA, sweepB: sweepB}
	count := cache.Count
	assert(count > 0 && count < 4, "invalid simplex cache for separation function")

	xfA := sweepA.Transform(t1)
	xfB := sweepB.Transform(t1)

	if count == 1 {
		sf.typ = sepPoints
		localPointA := proxyA.Vertices[cache.IndexA[0]]
		localPointB := proxyB.Vertices[cache.IndexB[0]]
		pA := xfA.Mul(localPointA)
		pB := xfB.Mul(localPointB)
		sf.axis = pB.Sub(pA).Normalized()
		return sf
	}

	if cache.IndexA[0] == cache.IndexA[1] {
		// two points on B, one on A: A is the reference face.
		localPointB1 := proxyB.Vertices[cache.IndexB[0]]
		localPointB2 := proxyB.Vertices[cache.IndexB[1]]
		sf.typ = sepFaceB
		sf.axis = localPointB2.Sub(localPointB1).Skew().Neg().Normalized()
		normal := xfB.Q.Mul(sf.axis)
		sf.localPoint = localPointB1.Add(localPointB2).Scale(0.5)
		pB := xfB.Mul(sf.localPoint)
		localPointA := proxyA.Vertices[cache.IndexA[0]]
		pA := xfA.Mul(localPointA)
		s := pA.Sub(pB).Dot(normal)
		if s < 0 {
			sf.axis = sf.axis.Neg()
		}
		return sf
	}

	localPointA1 := proxyA.Vertices[cache.IndexA[0]]
	localPointA2 := proxyA.Vertices[cache.IndexA[1]]
	sf.typ = sepFaceA
	sf.axis = localPointA2.Sub(localPointA1).Skew().Neg().Normalized()
	normal := xfA.Q.Mul(sf.axis)
	sf.localPoint = localPointA1.Add(localPointA2).Scale(0.5)
	pA := xfA.Mul(sf.localPoint)
	localPointB := proxyB.Vertices[cache.IndexB[0]]
	pB := xfB.Mul(localPointB)
	s := pB.Sub(pA).Dot(normal)
	if s < 0 {
		sf.axis = sf.axis.Neg()
	}
	return sf
}

func (sf *separationFunction) findMinSeparation(t float64) (int, int, float64) {
	xfA := sf.sweepA.Transform(t)
	xfB := sf.sweepB.Transform(t)

	switch sf.typ {
	case sepPoints:
		axisA := xfA.Q.MulT(sf.axis)
		axisB := xfB.Q.MulT(sf.axis.Neg())
		indexA := sf.proxyA.Support(axisA)
		indexB := sf.proxyB.Support(axisB)
		pA := xfA.Mul(sf.proxyA.Vertices[indexA])
		pB := xfB.Mul(sf.proxyB.Vertices[indexB])
		return indexA, indexB, pB.Sub(pA).Dot(sf.axis)
	case sepFaceA:
		normal := xfA.Q.Mul(sf.axis)
		pA := xfA.Mul(sf.localPoint)
		axisB := xfB.Q.MulT(normal.Neg())
		indexB := sf.proxyB.Support(axisB)
		pB := xfB.Mul(sf.proxyB.Vertices[indexB])
		return -1, indexB, pB.Sub(pA).Dot(normal)
	default: // sepFaceB
		normal := xfB.Q.Mul(sf.axis)
		pB := xfB.Mul(sf.localPoint)
		axisA := xfA.Q.MulT(normal.Neg())
		indexA := sf.proxyA.Support(axisA)
		pA := xfA.Mul(sf.proxyA.Vertices[indexA])
		return indexA, -1, pA.Sub(pB).Dot(normal)
	}
}

func (sf *separationFunction) evaluate(indexA, indexB int, t float64) float64 {
	xfA := sf.sweepA.Transform(t)
	xfB := sf.sweepB.Transform(t)

	switch sf.typ {
	case sepPoints:
		pA := xfA.Mul(sf.proxyA.Vertices[indexA])
		pB := xfB.Mul(sf.proxyB.Vertices[indexB])
		return pB.Sub(pA).Dot(sf.axis)
	case sepFaceA:
		normal := xfA.Q.Mul(sf.axis)
		pA := xfA.Mul(sf.localPoint)
		pB := xfB.Mul(sf.proxyB.Vertices[indexB])
		return pB.Sub(pA).Dot(normal)
	default:
		normal := xfB.Q.Mul(sf.axis)
		pB := xfB.Mul(sf.localPoint)
		pA := xfA.Mul(sf.proxyA.Vertices[indexA])
		return pA.Sub(pB).Dot(normal)
	}
}

const (
	toiLinearSlop  = LinearSlop
	maxTOIRootIters = MaxTOIRootIterCount
)

// TimeOfImpact computes the first instant the two swept proxies come
// within tolerance of touching, per spec.md §4.4. The target separation
// and tolerance follow Box2D's conservative-advancement scheme: target a
// core distance of the radii sum minus 3*linearSlop (never below
// linearSlop) and accept within 1/4 of a slop.
func TimeOfImpact(input TOIInput) TOIOutput {
	target := math.Max(toiLinearSlop, (input.ProxyA.Radius+input.ProxyB.Radius)-3*toiLinearSlop)
	tolerance := 0.25 * toiLinearSlop

	sweepA := input.SweepA
	sweepB := input.SweepB
	sweepA.Normalize()
	sweepB.Normalize()

	tMax := input.TMax
	t1 := 0.0
	const maxIterations = 20
	iter := 0

	cache := &SimplexCache{}

	for {
		xfA := sweepA.Transform(t1)
		xfB := sweepB.Transform(t1)

		distInput := DistanceInput{
			ProxyA: input.ProxyA, ProxyB: input.ProxyB,
			TransformA: xfA, TransformB: xfB,
			UseRadii: false,
		}
		*cache = SimplexCache{}
		distOut := Distance(distInput, cache)

		if distOut.Distance <= 0 {
			return TOIOutput{State: TOIOverlapped, T: 0}
		}

		if distOut.Distance < target+tolerance {
			return TOIOutput{State: TOITouching, T: t1}
		}

		sf := makeSeparationFunction(cache, input.ProxyA, sweepA, input.ProxyB, sweepB, t1)

		done := false
		t2 := tMax
		pushBackIter := 0
		for {
			indexA, indexB, s2 := sf.findMinSeparation(t2)
			if s2 > target+tolerance {
				return TOIOutput{State: TOISeparated, T: tMax}
			}
			if s2 > target-tolerance {
				t1 = t2
				break
			}

			s1 := sf.evaluate(indexA, indexB, t1)
			if s1 < target-tolerance {
				return TOIOutput{State: TOIFailed, T: t1}
			}
			if s1 <= target+tolerance {
				return TOIOutput{State: TOITouching, T: t1}
			}

			rootIter := 0
			a1, a2 := t1, t2
			for {
				var t float64
				if rootIter&1 != 0 {
					t = a1 + (target-s1)*(a2-a1)/(s2-s1)
				} else {
					t = 0.5 * (a1 + a2)
				}
				rootIter++

				s := sf.evaluate(indexA, indexB, t)
				if math.Abs(s-target) < tolerance {
					t2 = t
					break
				}
				if s > target {
					a1 = t
					s1 = s
				} else {
					a2 = t
					s2 = s
				}
				if rootIter == maxTOIRootIters {
					break
				}
			}

			pushBackIter++
			if pushBackIter == maxPolygonVertices {
				break
			}
		}

		iter++
		if done || iter == maxIterations {
			break
		}
	}

	return TOIOutput{State: TOIFailed, T: t1}
}
