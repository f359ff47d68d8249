package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 2, Clamp(1, 2, 5))
	assert.Equal(t, 5, Clamp(9, 2, 5))
	assert.Equal(t, 3, Clamp(3, 2, 5))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(256), AlignUp(uint64(84), 256))
	assert.Equal(t, uint64(256), AlignUp(uint64(256), 256))
	assert.Equal(t, uint64(512), AlignUp(uint64(257), 256))
	assert.Equal(t, uint32(84), AlignUp(uint32(84), 0))
}

func TestMipLevels(t *testing.T) {
	assert.Equal(t, uint32(9), MipLevels(256, 256))
	assert.Equal(t, uint32(11), MipLevels(1024, 512))
	assert.Equal(t, uint32(1), MipLevels(1, 1))
	assert.Equal(t, uint32(1), MipLevels(0, 0))
}
