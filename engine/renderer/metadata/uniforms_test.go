package metadata

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestPayloadSizesMatchShaderBlocks(t *testing.T) {
	assert.Equal(t, 144, len(Bytes(CameraTransform{})))
	assert.Equal(t, 84, len(Bytes(ObjectUniform{})))
	assert.LessOrEqual(t, len(Bytes(ObjectUniform{})), ObjectSlotSize)
	assert.Equal(t, 88, len(Bytes(LightData{})))
	assert.LessOrEqual(t, len(Bytes(LightData{})), LightDataStride)
	assert.Equal(t, 464, len(Bytes(LightProj{})))
	assert.Equal(t, 32, len(Bytes(DebugSettings{})))
}

func TestObjectUniformLayout(t *testing.T) {
	u := ObjectUniform{
		Model:     mgl32.Translate3D(1, 2, 3),
		Color:     mgl32.Vec3{0.25, 0.5, 0.75},
		Roughness: 0.4,
		Metallic:  0.9,
	}
	b := Bytes(u)

	f := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(b[offset:]))
	}
	// column major: translation lives in the fourth column
	assert.Equal(t, float32(1), f(48))
	assert.Equal(t, float32(2), f(52))
	assert.Equal(t, float32(3), f(56))
	assert.Equal(t, float32(0.25), f(64))
	assert.Equal(t, float32(0.75), f(72))
	assert.Equal(t, float32(0.4), f(76))
	assert.Equal(t, float32(0.9), f(80))
}

func TestDebugSettingsCycleLightCompute(t *testing.T) {
	s := DefaultDebugSettings()
	assert.Equal(t, LightComputePBR, s.LightComputeType)
	s = s.NextLightCompute()
	assert.Equal(t, LightComputeBasic, s.LightComputeType)
	s = s.NextLightCompute()
	assert.Equal(t, LightComputePBR, s.LightComputeType)
}
