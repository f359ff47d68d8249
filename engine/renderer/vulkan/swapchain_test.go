package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, srgb, chooseSurfaceFormat([]vk.SurfaceFormat{unorm, srgb}))
	assert.Equal(t, unorm, chooseSurfaceFormat([]vk.SurfaceFormat{unorm}))
}

func TestChoosePresentMode(t *testing.T) {
	modes := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate, vk.PresentModeMailbox}

	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(modes, false))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(modes, true))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeImmediate}, false))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(3), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 0}))
	assert.Equal(t, uint32(3), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}))
	assert.Equal(t, uint32(2), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}))
}

func TestChooseExtent(t *testing.T) {
	fixed := vk.SurfaceCapabilities{CurrentExtent: vk.Extent2D{Width: 800, Height: 600}}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, chooseExtent(fixed, 1920, 1080))

	free := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: vk.Extent2D{Width: 1024, Height: 1024},
	}
	assert.Equal(t, vk.Extent2D{Width: 640, Height: 480}, chooseExtent(free, 640, 480))
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 64}, chooseExtent(free, 4096, 1))
}

func TestSurfaceStatus(t *testing.T) {
	status, ok := surfaceStatus(vk.Success)
	assert.True(t, ok)
	assert.Equal(t, SurfaceOK, status)

	status, ok = surfaceStatus(vk.Suboptimal)
	assert.True(t, ok)
	assert.Equal(t, SurfaceSuboptimal, status)

	status, ok = surfaceStatus(vk.ErrorOutOfDate)
	assert.True(t, ok)
	assert.Equal(t, SurfaceOutOfDate, status)

	_, ok = surfaceStatus(vk.ErrorDeviceLost)
	assert.False(t, ok)
}
