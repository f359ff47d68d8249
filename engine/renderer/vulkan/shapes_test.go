package vulkan

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func TestRectangleMesh(t *testing.T) {
	m := RectangleMesh()
	assert.Len(t, m.Vertices, 4*PosTexStride)
	assert.Equal(t, []uint32{0, 1, 2, 1, 3, 2}, m.Indices)
}

func TestCubeMesh(t *testing.T) {
	m := CubeMesh()
	require.Len(t, m.Vertices, 24*PosNormalStride)
	require.Len(t, m.Indices, 36)

	v := floats(m.Vertices)
	for i := 0; i < 24; i++ {
		pos := v[i*6 : i*6+3]
		normal := v[i*6+3 : i*6+6]
		for axis := 0; axis < 3; axis++ {
			assert.InDelta(t, 1, math.Abs(float64(pos[axis])), 1e-6, "corner on the unit cube")
			if normal[axis] != 0 {
				assert.Equal(t, normal[axis], pos[axis], "corner lies on its face")
			}
		}
	}
	for i, idx := range m.Indices {
		assert.Less(t, idx, uint32(24))
		assert.Equal(t, uint32(i/6*4), idx-quadIndices[i%6])
	}
}
