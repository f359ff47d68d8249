package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Slot fences start signaled so the first wait of each slot returns at once.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		return nil, resultError("vkCreateFence", res)
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) Destroy(context *VulkanContext) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence is signaled. A zero timeout waits forever.
func (vf *VulkanFence) Wait(context *VulkanContext, timeoutNs uint64) error {
	if vf.IsSignaled {
		return nil
	}
	if timeoutNs == 0 {
		timeoutNs = math.MaxUint64
	}
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return fmt.Errorf("fence wait timed out after %dns", timeoutNs)
	default:
		core.LogError("vk_fence_wait - %s", VulkanResultString(result))
		return resultError("vkWaitForFences", result)
	}
}

func (vf *VulkanFence) Reset(context *VulkanContext) error {
	if !vf.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		return resultError("vkResetFences", res)
	}
	vf.IsSignaled = false
	return nil
}

// MarkSubmitted records that the fence was handed to a queue submission.
func (vf *VulkanFence) MarkSubmitted() {
	vf.IsSignaled = false
}

func NewSemaphore(context *VulkanContext) (vk.Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &createInfo, context.Allocator, &semaphore); res != vk.Success {
		return vk.NullSemaphore, resultError("vkCreateSemaphore", res)
	}
	return semaphore, nil
}

// FrameSync holds the synchronization primitives of one frame in flight.
type FrameSync struct {
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	InFlight       *VulkanFence
}

func NewFrameSync(context *VulkanContext) (*FrameSync, error) {
	imageAvailable, err := NewSemaphore(context)
	if err != nil {
		return nil, err
	}
	renderFinished, err := NewSemaphore(context)
	if err != nil {
		vk.DestroySemaphore(context.Device.LogicalDevice, imageAvailable, context.Allocator)
		return nil, err
	}
	fence, err := NewFence(context, true)
	if err != nil {
		vk.DestroySemaphore(context.Device.LogicalDevice, imageAvailable, context.Allocator)
		vk.DestroySemaphore(context.Device.LogicalDevice, renderFinished, context.Allocator)
		return nil, err
	}
	return &FrameSync{
		ImageAvailable: imageAvailable,
		RenderFinished: renderFinished,
		InFlight:       fence,
	}, nil
}

func (fs *FrameSync) Destroy(context *VulkanContext) {
	if fs.ImageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, fs.ImageAvailable, context.Allocator)
		fs.ImageAvailable = vk.NullSemaphore
	}
	if fs.RenderFinished != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, fs.RenderFinished, context.Allocator)
		fs.RenderFinished = vk.NullSemaphore
	}
	if fs.InFlight != nil {
		fs.InFlight.Destroy(context)
		fs.InFlight = nil
	}
}
