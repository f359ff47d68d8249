package engine

import (
	"testing"

	"github.com/spaghettifunk/umbra/engine/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageTransitions(t *testing.T) {
	assert.True(t, canTransition(EngineStageUninitialized, EngineStageInitializing))
	assert.True(t, canTransition(EngineStageInitializing, EngineStageInitialized))
	assert.True(t, canTransition(EngineStageInitialized, EngineStageRunning))
	assert.True(t, canTransition(EngineStageRunning, EngineStageShuttingDown))
	assert.True(t, canTransition(EngineStageInitializing, EngineStageShuttingDown))
	assert.True(t, canTransition(EngineStageShuttingDown, EngineStageStopped))

	assert.False(t, canTransition(EngineStageUninitialized, EngineStageRunning))
	assert.False(t, canTransition(EngineStageRunning, EngineStageInitialized))
	assert.False(t, canTransition(EngineStageStopped, EngineStageShuttingDown))
	assert.False(t, canTransition(EngineStageShuttingDown, EngineStageShuttingDown))
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "running", EngineStageRunning.String())
	assert.Equal(t, "unknown", Stage(42).String())
}

func TestNewEngine(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	bad := config.Default()
	bad.Renderer.FramesInFlight = 0
	_, err = New(&Game{Config: bad})
	assert.Error(t, err)

	e, err := New(&Game{})
	require.NoError(t, err)
	assert.Equal(t, EngineStageUninitialized, e.Stage())
	assert.Equal(t, config.Default(), e.Config())
	assert.Error(t, e.SetLevel(nil))
	assert.Error(t, e.Run())
}
