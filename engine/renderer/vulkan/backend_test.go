package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoisePixelsDeterministic(t *testing.T) {
	a := noisePixels(8, 42)
	b := noisePixels(8, 42)
	assert.Len(t, a, 8*8*4)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, noisePixels(8, 43))

	for i := 0; i < len(a); i += 4 {
		assert.Zero(t, a[i+2])
		assert.Equal(t, byte(255), a[i+3])
	}
}

func TestDescriptorSetsUseDeclaredPrograms(t *testing.T) {
	for id, program := range descriptorSetPrograms {
		_, ok := ProgramDeclFor(program)
		assert.True(t, ok, "set %d", id)
	}
}
