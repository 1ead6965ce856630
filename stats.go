package physics

import (
	"log/slog"
	"math"
)

// stats.go reports per-step solver diagnostics and the numeric-failure
// logging hook spec.md §7 requires ("a step that produces a non-finite
// body state logs and clamps rather than propagating NaN"). slog is used
// the way gazed-vu's engine loop logs frame diagnostics: structured,
// leveled, and cheap to leave enabled in production.

// StepStats reports what one World.Step call actually did, for callers
// instrumenting frame budgets or debugging solver behavior.
type StepStats struct {
	BodyCount     int
	ContactCount  int
	TouchingCount int
	IslandCount   int
	ToiSubSteps   int
}

// NumericFailure records a body whose state went non-finite during a
// step and how it was clamped, so a single NaN doesn't either crash the
// simulation or silently corrupt every body sharing its island.
type NumericFailure struct {
	Body    BodyHandle
	DebugID string
	Field   string
	Before  Vec2
}

// logNumericFailure is the single choke point every NaN/Inf guard in the
// solver funnels through (spec.md §7: "clamp and log, never panic, on
// numeric failure detected mid-step").
func logNumericFailure(logger *slog.Logger, failure NumericFailure) {
	if logger == nil {
		return
	}
	logger.Warn("physics: clamped non-finite body state",
		"body_index", failure.Body.index,
		"body_id", failure.DebugID,
		"field", failure.Field,
		"before_x", failure.Before.X,
		"before_y", failure.Before.Y,
	)
}

func isFiniteVec2(v Vec2) bool {
	return isFiniteFloat(v.X) && isFiniteFloat(v.Y)
}

func isFiniteFloat(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
