package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/umbra/engine/core"
)

type ImageConfig struct {
	Width     uint32
	Height    uint32
	Format    vk.Format
	Tiling    vk.ImageTiling
	Usage     vk.ImageUsageFlags
	Memory    vk.MemoryPropertyFlags
	Samples   vk.SampleCountFlagBits
	MipLevels uint32
	Layers    uint32
	Flags     vk.ImageCreateFlags
	// View created together with the image.
	ViewType vk.ImageViewType
	Aspect   vk.ImageAspectFlags
}

func (c *ImageConfig) withDefaults() ImageConfig {
	out := *c
	if out.Samples == 0 {
		out.Samples = vk.SampleCount1Bit
	}
	if out.MipLevels == 0 {
		out.MipLevels = 1
	}
	if out.Layers == 0 {
		out.Layers = 1
	}
	if out.Aspect == 0 {
		out.Aspect = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	return out
}

// Image owns a GPU image, its memory and its views.
type Image struct {
	ID     uuid.UUID
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	// Optional second view used as a layered framebuffer attachment.
	AttachmentView vk.ImageView

	Width     uint32
	Height    uint32
	Format    vk.Format
	Samples   vk.SampleCountFlagBits
	MipLevels uint32
	Layers    uint32
	Aspect    vk.ImageAspectFlags

	device    vk.Device
	allocator *vk.AllocationCallbacks
	freed     bool
}

func (img *Image) Destroy() error {
	if img.freed {
		return fmt.Errorf("image %s: %w", img.ID, core.ErrDoubleFree)
	}
	img.freed = true

	if img.AttachmentView != nil {
		vk.DestroyImageView(img.device, img.AttachmentView, img.allocator)
		img.AttachmentView = nil
	}
	if img.View != nil {
		vk.DestroyImageView(img.device, img.View, img.allocator)
		img.View = nil
	}
	if img.Handle != vk.NullImage {
		vk.DestroyImage(img.device, img.Handle, img.allocator)
		img.Handle = vk.NullImage
	}
	if img.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(img.device, img.Memory, img.allocator)
		img.Memory = vk.NullDeviceMemory
	}
	return nil
}

// isDepthFormat reports whether format carries a depth component.
func isDepthFormat(format vk.Format) bool {
	switch format {
	case vk.FormatD16Unorm, vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD16UnormS8Uint:
		return true
	}
	return false
}

func hasStencilComponent(format vk.Format) bool {
	switch format {
	case vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD16UnormS8Uint:
		return true
	}
	return false
}

// depthAspect is the aspect mask covering every component of a depth format.
func depthAspect(format vk.Format) vk.ImageAspectFlags {
	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if hasStencilComponent(format) {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return aspect
}
