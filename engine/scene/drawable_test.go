package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notDrawable struct{ Drawable }

func TestUpdateStaticMesh(t *testing.T) {
	g := newFakeGraphics()
	mesh := NewStaticMesh("floor", metadata.DrawTargetCube, 3, mgl32.Ident4())

	require.NoError(t, Update(g, mesh, NewCamera(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{})))
	require.Len(t, g.queued, 1)
	assert.Equal(t, metadata.UniformObjectMatrix, g.queued[0].id)
	assert.Equal(t, uint32(3), g.queued[0].info.Slot)
	assert.Equal(t, metadata.Bytes(mesh.Object()), g.queued[0].info.Data)
}

func TestUpdatePointLight(t *testing.T) {
	g := newFakeGraphics()
	light := NewPointLight(2, mgl32.Vec3{0, 4, 0})

	require.NoError(t, Update(g, light, NewCamera(mgl32.Vec3{0, 3, -5}, mgl32.Vec3{})))
	require.Len(t, g.queued, 3)

	ids := []metadata.UniformID{g.queued[0].id, g.queued[1].id, g.queued[2].id}
	assert.Equal(t, []metadata.UniformID{metadata.UniformLightObjectMatrix, metadata.UniformLightProj, metadata.UniformLightData}, ids)
	assert.Equal(t, uint32(2), g.queued[1].info.Slot)
	assert.Equal(t, uint64(2*metadata.LightDataStride), g.queued[2].info.Offset)
	assert.Zero(t, g.queued[2].info.Slot)
}

func TestUpdateCameraUsesExtent(t *testing.T) {
	g := newFakeGraphics()
	cam := NewCamera(mgl32.Vec3{0, 3, -5}, mgl32.Vec3{})

	require.NoError(t, Update(g, cam, cam))
	require.Len(t, g.queued, 1)
	assert.Equal(t, metadata.UniformCameraTransform, g.queued[0].id)
	assert.Equal(t, metadata.Bytes(cam.Transform(1280, 720)), g.queued[0].info.Data)
}

func TestUpdateRejectsOutOfRangeSlots(t *testing.T) {
	g := newFakeGraphics()
	cam := NewCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})
	assert.Error(t, Update(g, NewStaticMesh("x", metadata.DrawTargetCube, metadata.MaxObjects, mgl32.Ident4()), cam))
	assert.Error(t, Update(g, NewPointLight(metadata.MaxLights, mgl32.Vec3{}), cam))
	assert.Error(t, Update(g, notDrawable{}, cam))
	assert.Empty(t, g.queued)
}

func TestRegisterGeometry(t *testing.T) {
	g := newFakeGraphics()
	require.NoError(t, RegisterGeometry(g, NewStaticMesh("m", metadata.DrawTargetModel, 2, mgl32.Ident4())))
	require.NoError(t, RegisterGeometry(g, NewPointLight(1, mgl32.Vec3{})))
	require.NoError(t, RegisterGeometry(g, NewCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})))

	assert.Equal(t, []string{
		"draw baserender target 2 set 1 [512]",
		"draw diffuse target 1 set 2 [256]",
	}, g.commands)
}

func TestRegisterShadowOnlyMeshesCast(t *testing.T) {
	g := newFakeGraphics()
	light := NewPointLight(3, mgl32.Vec3{})

	require.NoError(t, RegisterShadow(g, NewStaticMesh("m", metadata.DrawTargetCube, 1, mgl32.Ident4()), light))
	require.NoError(t, RegisterShadow(g, light, light))
	require.NoError(t, RegisterShadow(g, NewCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}), light))

	assert.Equal(t, []string{"draw shadowmap target 1 set 0 [256 768]"}, g.commands)
}
