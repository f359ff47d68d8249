package scene

import "github.com/spaghettifunk/umbra/engine/renderer/metadata"

// Graphics is the part of the renderer the scene records into and uploads through.
type Graphics interface {
	AddDrawInfo(info metadata.DrawInfo, id metadata.UniformID)
	MapUniform(id metadata.UniformID, data []byte, offset uint64) error
	UniformSlotSize(id metadata.UniformID) uint64

	BeginCmdBuffer(idx metadata.CommandIndex) error
	BeginRenderPass(idx metadata.CommandIndex, pass metadata.RenderPassID, framebuffer int) error
	RegisterObject(idx metadata.CommandIndex, set metadata.DescriptorSetID, program metadata.ProgramID, target metadata.DrawTargetID, dynamicOffsets []uint32) error
	EndRenderPass(idx metadata.CommandIndex, pass metadata.RenderPassID) error
	EndCmdBuffer(idx metadata.CommandIndex) error

	Extent() (uint32, uint32)
}

// dynamicOffset is the byte offset of slot inside the uniform buffer id.
func dynamicOffset(g Graphics, id metadata.UniformID, slot uint32) uint32 {
	return uint32(uint64(slot) * g.UniformSlotSize(id))
}
