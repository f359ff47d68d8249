package math

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// AlignUp rounds size up to the next multiple of alignment. An alignment of 0
// leaves size untouched.
func AlignUp[T constraints.Unsigned](size, alignment T) T {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) / alignment * alignment
}

// MipLevels is the length of the full mip chain of a width x height image.
func MipLevels(width, height uint32) uint32 {
	m := max(width, height)
	if m == 0 {
		return 1
	}
	return uint32(bits.Len32(m))
}
