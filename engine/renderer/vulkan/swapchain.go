package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
	emath "github.com/spaghettifunk/umbra/engine/math"
)

// SurfaceStatus is the outcome of an acquire or present call.
type SurfaceStatus int

const (
	SurfaceOK SurfaceStatus = iota
	SurfaceSuboptimal
	SurfaceOutOfDate
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Handle      vk.Swapchain
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	context *VulkanContext
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// choosePresentMode prefers MAILBOX unless vsync is forced. FIFO is always available.
func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if !vsync {
		for _, mode := range modes {
			if mode == vk.PresentModeMailbox {
				return mode
			}
		}
	}
	return vk.PresentModeFifo
}

func chooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	// A max of 0 means no limit.
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

func chooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	minExtent := capabilities.MinImageExtent
	maxExtent := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  emath.Clamp(width, minExtent.Width, maxExtent.Width),
		Height: emath.Clamp(height, minExtent.Height, maxExtent.Height),
	}
}

// NewSwapchain builds a complete swapchain for the framebuffer size. Swapchains
// are never patched: a rebuild destroys the old one first.
func NewSwapchain(context *VulkanContext, width, height uint32, vsync bool) (*VulkanSwapchain, error) {
	device := context.Device
	if err := device.QuerySwapchainSupport(context.Surface); err != nil {
		return nil, err
	}
	support := device.SwapchainSupport

	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSurfaceFormat(support.Formats),
		PresentMode: choosePresentMode(support.PresentModes, vsync),
		Extent:      chooseExtent(support.Capabilities, width, height),
		context:     context,
	}
	imageCount := chooseImageCount(support.Capabilities)

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{device.GraphicsQueueIndex, device.PresentQueueIndex}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		return nil, resultError("vkCreateSwapchain", res)
	}
	swapchain.Handle = handle

	if res := vk.GetSwapchainImages(device.LogicalDevice, handle, &swapchain.ImageCount, nil); res != vk.Success {
		swapchain.Destroy()
		return nil, resultError("vkGetSwapchainImages", res)
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(device.LogicalDevice, handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		swapchain.Destroy()
		return nil, resultError("vkGetSwapchainImages", res)
	}

	swapchain.Views = make([]vk.ImageView, 0, swapchain.ImageCount)
	for _, image := range swapchain.Images {
		view, err := createImageView(context, image, swapchain.ImageFormat.Format, vk.ImageViewType2d, vk.ImageAspectFlags(vk.ImageAspectColorBit), 1, 1)
		if err != nil {
			swapchain.Destroy()
			return nil, err
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	core.LogInfo("Swapchain created: %dx%d, %d images, present mode %d", swapchain.Extent.Width, swapchain.Extent.Height, swapchain.ImageCount, swapchain.PresentMode)
	return swapchain, nil
}

func (vs *VulkanSwapchain) Destroy() {
	device := vs.context.Device.LogicalDevice
	// The images belong to the swapchain, only the views are ours.
	for _, view := range vs.Views {
		vk.DestroyImageView(device, view, vs.context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device, vs.Handle, vs.context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

func surfaceStatus(result vk.Result) (SurfaceStatus, bool) {
	switch result {
	case vk.Success:
		return SurfaceOK, true
	case vk.Suboptimal:
		return SurfaceSuboptimal, true
	case vk.ErrorOutOfDate:
		return SurfaceOutOfDate, true
	}
	return SurfaceOK, false
}

// AcquireNextImage signals imageAvailable once the returned image can be rendered to.
func (vs *VulkanSwapchain) AcquireNextImage(imageAvailable vk.Semaphore) (uint32, SurfaceStatus, error) {
	var index uint32
	result := vk.AcquireNextImage(vs.context.Device.LogicalDevice, vs.Handle, math.MaxUint64, imageAvailable, vk.NullFence, &index)
	status, ok := surfaceStatus(result)
	if !ok {
		return 0, status, resultError("vkAcquireNextImageKHR", result)
	}
	return index, status, nil
}

func (vs *VulkanSwapchain) Present(renderFinished vk.Semaphore, imageIndex uint32) (SurfaceStatus, error) {
	device := vs.context.Device
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	var result vk.Result
	vs.context.Locks.SafeQueueCall(device.PresentQueueIndex, func() error {
		result = vk.QueuePresent(device.PresentQueue, &presentInfo)
		return nil
	})
	status, ok := surfaceStatus(result)
	if !ok {
		return status, resultError("vkQueuePresentKHR", result)
	}
	return status, nil
}
