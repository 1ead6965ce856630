package main

import (
	"fmt"

	"github.com/ianlance/rigid2d"
	"gopkg.in/yaml.v3"
)

// sceneDoc is the YAML scene format this CLI reads: a gravity vector, an
// optional step-config override, and a flat list of bodies each carrying
// one fixture. It lives in cmd/, not the core package, since spec.md §6
// mandates no wire format in the core itself.
type sceneDoc struct {
	Gravity vec2Doc      `yaml:"gravity"`
	Step    *stepConfDoc `yaml:"step"`
	Bodies  []bodyDoc    `yaml:"bodies"`
}

type vec2Doc struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (v vec2Doc) toVec2() physics.Vec2 { return physics.Vec2{X: v.X, Y: v.Y} }

type stepConfDoc struct {
	DeltaTime          *float64 `yaml:"delta_time"`
	VelocityIterations *int     `yaml:"velocity_iterations"`
	PositionIterations *int     `yaml:"position_iterations"`
}

type bodyDoc struct {
	Name            string     `yaml:"name"`
	Type            string     `yaml:"type"` // static | kinematic | dynamic
	Position        vec2Doc    `yaml:"position"`
	Angle           float64    `yaml:"angle"`
	LinearVelocity  vec2Doc    `yaml:"linear_velocity"`
	AngularVelocity float64    `yaml:"angular_velocity"`
	Bullet          bool       `yaml:"bullet"`
	Fixture         fixtureDoc `yaml:"fixture"`
}

type fixtureDoc struct {
	Shape       string    `yaml:"shape"` // disk | polygon
	Radius      float64   `yaml:"radius"`
	Vertices    []vec2Doc `yaml:"vertices"`
	Density     float64   `yaml:"density"`
	Friction    float64   `yaml:"friction"`
	Restitution float64   `yaml:"restitution"`
}

func parseScene(data []byte) (sceneDoc, error) {
	var doc sceneDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return sceneDoc{}, fmt.Errorf("decode scene: %w", err)
	}
	return doc, nil
}

func bodyType(s string) physics.BodyType {
	switch s {
	case "dynamic":
		return physics.BodyDynamic
	case "kinematic":
		return physics.BodyKinematic
	default:
		return physics.BodyStatic
	}
}

// buildWorld constructs a World from a parsed scene document, returning
// the handles in declaration order for the stepper to report on.
func buildWorld(doc sceneDoc) (*physics.World, []physics.BodyHandle, error) {
	def := physics.DefaultWorldDef()
	def.Gravity = doc.Gravity.toVec2()
	w := physics.NewWorld(def)

	handles := make([]physics.BodyHandle, 0, len(doc.Bodies))
	for _, bd := range doc.Bodies {
		bodyDef := physics.DefaultBodyDef()
		bodyDef.Type = bodyType(bd.Type)
		bodyDef.Position = bd.Position.toVec2()
		bodyDef.Angle = bd.Angle
		bodyDef.LinearVelocity = bd.LinearVelocity.toVec2()
		bodyDef.AngularVelocity = bd.AngularVelocity
		bodyDef.Bullet = bd.Bullet
		bodyDef.DebugID = bd.Name

		bh, err := w.CreateBody(bodyDef)
		if err != nil {
			return nil, nil, fmt.Errorf("create body %q: %w", bd.Name, err)
		}

		var shape physics.Shape
		switch bd.Fixture.Shape {
		case "disk":
			shape = &physics.DiskShape{Radius: bd.Fixture.Radius}
		case "polygon":
			verts := make([]physics.Vec2, len(bd.Fixture.Vertices))
			for i, v := range bd.Fixture.Vertices {
				verts[i] = v.toVec2()
			}
			shape = physics.NewPolygonShape(verts)
		default:
			return nil, nil, fmt.Errorf("body %q: unknown fixture shape %q", bd.Name, bd.Fixture.Shape)
		}

		fixDef := physics.DefaultFixtureDef(shape)
		fixDef.Density = bd.Fixture.Density
		fixDef.Friction = bd.Fixture.Friction
		fixDef.Restitution = bd.Fixture.Restitution

		if _, err := w.CreateFixture(bh, fixDef); err != nil {
			return nil, nil, fmt.Errorf("create fixture for body %q: %w", bd.Name, err)
		}

		handles = append(handles, bh)
	}

	return w, handles, nil
}

func applyStepOverrides(conf physics.StepConf, override *stepConfDoc) physics.StepConf {
	if override == nil {
		return conf
	}
	if override.DeltaTime != nil {
		conf.DeltaTime = *override.DeltaTime
	}
	if override.VelocityIterations != nil {
		conf.VelocityIterations = *override.VelocityIterations
	}
	if override.PositionIterations != nil {
		conf.PositionIterations = *override.PositionIterations
	}
	return conf
}
