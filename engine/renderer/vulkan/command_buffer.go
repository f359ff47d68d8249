package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

// AllocateCommandBuffers allocates count primary command buffers from pool.
func AllocateCommandBuffers(context *VulkanContext, pool vk.CommandPool, count int) ([]*VulkanCommandBuffer, error) {
	if count <= 0 {
		return nil, nil
	}
	handles := make([]vk.CommandBuffer, count)
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: uint32(count),
		Level:              vk.CommandBufferLevelPrimary,
	}
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		return nil, resultError("vkAllocateCommandBuffers", res)
	}
	out := make([]*VulkanCommandBuffer, count)
	for i := range handles {
		out[i] = &VulkanCommandBuffer{Handle: handles[i], State: COMMAND_BUFFER_STATE_READY}
	}
	return out, nil
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	buffers, err := AllocateCommandBuffers(context, pool, 1)
	if err != nil {
		return nil, err
	}
	return buffers[0], nil
}

// FreeCommandBuffers returns every buffer to the pool in a single call.
func FreeCommandBuffers(context *VulkanContext, pool vk.CommandPool, buffers []*VulkanCommandBuffer) {
	handles := make([]vk.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if b == nil || b.Handle == nil {
			continue
		}
		handles = append(handles, b.Handle)
		b.Handle = nil
		b.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	if len(handles) > 0 {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, uint32(len(handles)), handles)
	}
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	FreeCommandBuffers(context, pool, []*VulkanCommandBuffer{v})
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		return resultError("vkBeginCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		return resultError("vkEndCommandBuffer", res)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() {
	v.State = COMMAND_BUFFER_STATE_READY
}

/**
 * Allocates and begins recording a single use command buffer.
 */
func AllocateAndBeginSingleUse(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(context, pool)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free(context, pool)
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to and waits for queue operation and frees the provided command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(context *VulkanContext, pool vk.CommandPool, queue vk.Queue) error {
	defer v.Free(context, pool)

	if err := v.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}

	return context.Locks.SafeQueueCall(context.Device.GraphicsQueueIndex, func() error {
		if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
			return resultError("vkQueueSubmit", res)
		}
		if res := vk.QueueWaitIdle(queue); res != vk.Success {
			return resultError("vkQueueWaitIdle", res)
		}
		return nil
	})
}

// OneShotSubmitter records a command sequence and runs it to completion.
type OneShotSubmitter interface {
	Submit(record func(cmd vk.CommandBuffer)) error
}

type graphicsSubmitter struct {
	context *VulkanContext
}

// NewGraphicsSubmitter submits one-shot work on the graphics queue and blocks until it finishes.
func NewGraphicsSubmitter(context *VulkanContext) OneShotSubmitter {
	return &graphicsSubmitter{context: context}
}

func (s *graphicsSubmitter) Submit(record func(cmd vk.CommandBuffer)) error {
	device := s.context.Device
	cb, err := AllocateAndBeginSingleUse(s.context, device.GraphicsCommandPool)
	if err != nil {
		return fmt.Errorf("one-shot command buffer: %w", err)
	}
	record(cb.Handle)
	return cb.EndSingleUse(s.context, device.GraphicsCommandPool, device.GraphicsQueue)
}
