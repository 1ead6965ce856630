package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStepConf_OverlaysDefaults(t *testing.T) {
	data := []byte("velocity_iterations: 4\nenable_sleep: false\n")

	conf, err := LoadStepConf(data)
	require.NoError(t, err)

	def := DefaultStepConf()
	assert.Equal(t, 4, conf.VelocityIterations)
	assert.False(t, conf.EnableSleep)
	assert.Equal(t, def.PositionIterations, conf.PositionIterations, "fields absent from the YAML keep their default value")
	assert.Equal(t, def.DeltaTime, conf.DeltaTime)
}

func TestLoadStepConf_RejectsMalformedYAML(t *testing.T) {
	_, err := LoadStepConf([]byte("velocity_iterations: [this is not an int"))
	assert.Error(t, err)
}

func TestWorld_IDIsStableAndUnique(t *testing.T) {
	a := NewWorld(DefaultWorldDef())
	b := NewWorld(DefaultWorldDef())

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, a.ID(), a.ID(), "ID is stable across calls")
}
