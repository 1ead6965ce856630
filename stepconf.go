package physics

import (
	"math"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// stepconf.go collects the tuning constants spec.md §9 leaves as "the
// classic Box2D defaults" — pinned here to the values documented in
// original_source/Box2D/Box2D/Common/Settings.h's own comments (its
// "originally" annotations), not the tightened PlayRho-era numbers the
// file currently ships, since spec.md's worked examples in §8 assume the
// former.

const (
	// LinearSlop is the collision/solver slop: the overlap the position
	// solver is content leaving between touching shapes (it drives
	// separation toward -LinearSlop).
	LinearSlop = 0.005
	// AngularSlop is the corresponding rotational slop, in radians.
	AngularSlop = 2.0 / 180.0 * math.Pi
	// PolygonRadius is the thin skin every polygon/edge/chain carries.
	PolygonRadius = 2 * LinearSlop

	// AabbExtension fattens broad-phase AABBs so small motions don't
	// require a tree update every step.
	AabbExtension = 0.1
	// AabbMultiplier predicts a moving fixture's fattened AABB along its
	// displacement for the step.
	AabbMultiplier = 2.0

	// MaxLinearCorrection bounds per-iteration position correction.
	MaxLinearCorrection = 0.2
	// MaxAngularCorrection is the classic per-iteration angular correction
	// bound. No position solver in this package applies an angular
	// correction, so nothing reads it.
	MaxAngularCorrection = 8.0 / 180.0 * math.Pi

	// MaxTranslation bounds how far a body may move in one step (a
	// safety rail against a runaway solver producing NaN-adjacent
	// velocities).
	MaxTranslation = 2.0
	// MaxRotation bounds how far a body may rotate in one step.
	MaxRotation = 0.5 * math.Pi

	// Baumgarte is the position-error bleed-off factor the position solver
	// (solvePositionConstraints) applies per iteration (spec.md §4.6).
	Baumgarte = 0.2
	// ToiBaumgarte is the analogous factor used during TOI sub-stepping
	// (spec.md §4.7).
	ToiBaumgarte = 0.75

	// TimeToSleep is how long a body's motion must stay below the sleep
	// tolerances before it is allowed to sleep (spec.md §4.8).
	TimeToSleep = 0.5
	// LinearSleepTolerance is the linear speed (velocity magnitude)
	// threshold.
	LinearSleepTolerance = 0.01
	// AngularSleepTolerance is the angular speed threshold, in rad/s.
	AngularSleepTolerance = 2.0 / 180.0 * math.Pi

	// MaxSubSteps bounds how many TOI events one contact may resolve per
	// step (spec.md §4.7).
	MaxSubSteps = 8
	// MaxTOIIterations bounds the outer TOI solve loop across all
	// contacts in a single World.Step call.
	MaxTOIIterations = 20
	// MaxTOIRootIterCount bounds the root-find inside a single
	// TimeOfImpact call.
	MaxTOIRootIterCount = 50

	// VelocityThreshold is the approach speed above which a collision is
	// treated as restitution-eligible (spec.md §4.6).
	VelocityThreshold = 1.0

	maxPolygonVertices = 8
)

// StepConf holds the solver iteration counts and feature toggles that
// vary per World, mirroring spec.md §4.9's "World Step Driver" inputs.
// Tuning constants above are deliberately left as package constants
// rather than StepConf fields: spec.md's worked scenarios (§8, S1-S6)
// assume the fixed classic values, and no example in the retrieved pack
// exposes them as runtime-configurable either.
type StepConf struct {
	DeltaTime float64 `yaml:"delta_time"`

	VelocityIterations int `yaml:"velocity_iterations"`
	PositionIterations int `yaml:"position_iterations"`

	EnableWarmStarting bool `yaml:"enable_warm_starting"`
	EnableContinuous   bool `yaml:"enable_continuous"`
	EnableSubStepping  bool `yaml:"enable_sub_stepping"`
	EnableSleep        bool `yaml:"enable_sleep"`
}

// DefaultStepConf mirrors Box2D's customary 60Hz / 8-velocity / 3-position
// iteration defaults, with warm starting, continuous collision and sleep
// enabled and sub-stepping off.
func DefaultStepConf() StepConf {
	return StepConf{
		DeltaTime:          1.0 / 60.0,
		VelocityIterations: 8,
		PositionIterations: 3,
		EnableWarmStarting: true,
		EnableContinuous:   true,
		EnableSleep:        true,
	}
}

// LoadStepConf decodes a YAML document into a StepConf, starting from
// DefaultStepConf() so a host's config file only needs to override the
// fields it cares about (spec.md §6: "no file formats are mandated by
// the core" — this is a host-side convenience, not a wire format the core
// depends on; cmd/rigid2dsim reads its step overrides from its scene file
// instead of calling it).
func LoadStepConf(data []byte) (StepConf, error) {
	conf := DefaultStepConf()
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return StepConf{}, errors.Wrap(err, "physics: decode step config")
	}
	return conf, nil
}
