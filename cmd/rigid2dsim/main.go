// Command rigid2dsim loads a scene from YAML, steps the simulation a fixed
// number of times, and logs each body's pose. It drives the physics
// package the way a real host program would, reading the scene and its
// step overrides from YAML and logging results with slog; the core package
// itself never touches a file or a logger's configuration.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ianlance/rigid2d"
)

func main() {
	scenePath := flag.String("scene", "", "path to a scene YAML file (required)")
	steps := flag.Int("steps", 60, "number of simulation steps to run")
	verbose := flag.Bool("v", false, "log every step instead of only the final one")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if *scenePath == "" {
		logger.Error("missing required -scene flag")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(logger, *scenePath, *steps, *verbose); err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, scenePath string, steps int, verbose bool) error {
	data, err := os.ReadFile(scenePath)
	if err != nil {
		return fmt.Errorf("read scene: %w", err)
	}

	doc, err := parseScene(data)
	if err != nil {
		return err
	}

	w, handles, err := buildWorld(doc)
	if err != nil {
		return err
	}

	conf := applyStepOverrides(physics.DefaultStepConf(), doc.Step)

	logger.Info("simulation starting",
		"world_id", w.ID(),
		"bodies", len(handles),
		"steps", steps,
		"delta_time", conf.DeltaTime,
	)

	for i := 0; i < steps; i++ {
		stats := w.Step(conf)
		if verbose || i == steps-1 {
			logStep(logger, w, handles, i, stats)
		}
	}

	return nil
}

func logStep(logger *slog.Logger, w *physics.World, handles []physics.BodyHandle, step int, stats physics.StepStats) {
	logger.Info("step",
		"step", step,
		"touching_contacts", stats.TouchingCount,
		"islands", stats.IslandCount,
		"toi_substeps", stats.ToiSubSteps,
	)
	for _, h := range handles {
		b, ok := w.Body(h)
		if !ok {
			continue
		}
		p := b.Position()
		logger.Info("body",
			"id", b.DebugID(),
			"x", p.X,
			"y", p.Y,
			"angle", b.Angle(),
			"awake", b.IsAwake(),
		)
	}
}
