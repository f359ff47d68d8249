package vulkan

import (
	vk "github.com/goki/vulkan"
)

// commandRecorder is the subset of command recording used to draw targets.
type commandRecorder interface {
	BindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline)
	BindDescriptorSet(cmd vk.CommandBuffer, layout vk.PipelineLayout, set vk.DescriptorSet, dynamicOffsets []uint32)
	BindVertexBuffer(cmd vk.CommandBuffer, binding uint32, buffer vk.Buffer)
	BindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer)
	DrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount uint32)
}

type vulkanRecorder struct{}

func (vulkanRecorder) BindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline)
}

func (vulkanRecorder) BindDescriptorSet(cmd vk.CommandBuffer, layout vk.PipelineLayout, set vk.DescriptorSet, dynamicOffsets []uint32) {
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, layout, 0, 1, []vk.DescriptorSet{set}, uint32(len(dynamicOffsets)), dynamicOffsets)
}

func (vulkanRecorder) BindVertexBuffer(cmd vk.CommandBuffer, binding uint32, buffer vk.Buffer) {
	vk.CmdBindVertexBuffers(cmd, binding, 1, []vk.Buffer{buffer}, []vk.DeviceSize{0})
}

func (vulkanRecorder) BindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer) {
	vk.CmdBindIndexBuffer(cmd, buffer, 0, vk.IndexTypeUint32)
}

func (vulkanRecorder) DrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount uint32) {
	vk.CmdDrawIndexed(cmd, indexCount, instanceCount, 0, 0, 0)
}
