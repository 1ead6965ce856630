package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScene = `
gravity: { x: 0, y: -9.8 }
step:
  velocity_iterations: 4
bodies:
  - name: ground
    type: static
    position: { x: 0, y: 0 }
    fixture:
      shape: polygon
      vertices:
        - { x: -10, y: -1 }
        - { x: 10, y: -1 }
        - { x: 10, y: 0 }
        - { x: -10, y: 0 }
      friction: 0.3
  - name: box
    type: dynamic
    position: { x: 0, y: 5 }
    fixture:
      shape: polygon
      vertices:
        - { x: -0.5, y: -0.5 }
        - { x: 0.5, y: -0.5 }
        - { x: 0.5, y: 0.5 }
        - { x: -0.5, y: 0.5 }
      density: 1.0
      friction: 0.3
      restitution: 0.1
`

func TestParseScene_DecodesBodiesAndStepOverride(t *testing.T) {
	doc, err := parseScene([]byte(sampleScene))
	require.NoError(t, err)

	assert.Len(t, doc.Bodies, 2)
	assert.Equal(t, "ground", doc.Bodies[0].Name)
	require.NotNil(t, doc.Step)
	require.NotNil(t, doc.Step.VelocityIterations)
	assert.Equal(t, 4, *doc.Step.VelocityIterations)
}

func TestBuildWorld_CreatesBodiesInOrder(t *testing.T) {
	doc, err := parseScene([]byte(sampleScene))
	require.NoError(t, err)

	w, handles, err := buildWorld(doc)
	require.NoError(t, err)
	require.Len(t, handles, 2)

	ground, ok := w.Body(handles[0])
	require.True(t, ok)
	assert.Equal(t, "ground", ground.DebugID())

	box, ok := w.Body(handles[1])
	require.True(t, ok)
	assert.Equal(t, "box", box.DebugID())
	assert.InDelta(t, 5, box.Position().Y, 1e-9)
}

func TestBuildWorld_UnknownShapeFails(t *testing.T) {
	doc, err := parseScene([]byte(`
bodies:
  - name: weird
    type: static
    fixture:
      shape: triangle
`))
	require.NoError(t, err)

	_, _, err = buildWorld(doc)
	assert.Error(t, err)
}
