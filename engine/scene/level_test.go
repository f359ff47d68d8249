package scene

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLevel(t *testing.T) *Level {
	level := NewLevel(NewCamera(mgl32.Vec3{0, 3, -5}, mgl32.Vec3{}))
	require.NoError(t, level.Add(NewStaticMesh("floor", metadata.DrawTargetCube, 0, mgl32.Ident4())))
	require.NoError(t, level.Add(NewPointLight(1, mgl32.Vec3{0, 4, 0})))
	return level
}

func TestLevelAddRejectsDuplicates(t *testing.T) {
	level := testLevel(t)
	assert.Error(t, level.Add(NewStaticMesh("wall", metadata.DrawTargetCube, 0, mgl32.Ident4())))
	assert.Error(t, level.Add(NewPointLight(1, mgl32.Vec3{})))
	assert.Error(t, level.Add(NewCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})))
	assert.Len(t, level.Drawables(), 3)
	assert.Equal(t, 1, level.LightCount())
}

func TestLevelUpdateQueuesEveryDrawable(t *testing.T) {
	level := testLevel(t)
	g := newFakeGraphics()
	require.NoError(t, level.Update(g))

	// camera, mesh, three light payloads
	assert.Len(t, g.queued, 5)
	assert.Equal(t, metadata.UniformCameraTransform, g.queued[0].id)
}

func TestLevelRecord(t *testing.T) {
	level := testLevel(t)
	g := newFakeGraphics()
	require.NoError(t, level.Record(g))

	count := g.mapped[metadata.UniformLightData][metadata.LightCountOffset:]
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(count))

	expected := []string{"begin 0"}
	for slot := 0; slot < metadata.MaxLights; slot++ {
		expected = append(expected, passLine(metadata.RenderPassDepthCubemap, slot))
		if slot == 1 {
			expected = append(expected, "draw shadowmap target 1 set 0 [0 256]")
		}
		expected = append(expected, "end pass 0")
	}
	expected = append(expected,
		"end 0",
		"begin 1",
		"pass 1 fb 0",
		"draw baserender target 1 set 1 [0]",
		"draw diffuse target 1 set 2 [256]",
		"end pass 1",
		"end 1",
	)
	assert.Equal(t, expected, g.commands)
}

func passLine(pass metadata.RenderPassID, fb int) string {
	return fmt.Sprintf("pass %d fb %d", pass, fb)
}
