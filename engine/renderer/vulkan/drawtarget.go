package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// DrawGroup is one indexed draw of a target.
type DrawGroup struct {
	Vertex     *Buffer
	Index      *Buffer
	IndexCount uint32
}

// DrawTarget is a drawable piece of geometry: its groups share the optional
// instance buffer.
type DrawTarget struct {
	Groups        []DrawGroup
	Instances     *Buffer
	InstanceCount uint32
}

func (t *DrawTarget) instanceCount() uint32 {
	if t.InstanceCount == 0 {
		return 1
	}
	return t.InstanceCount
}

func (t *DrawTarget) Destroy() {
	for _, g := range t.Groups {
		if g.Vertex != nil {
			g.Vertex.Destroy()
		}
		if g.Index != nil {
			g.Index.Destroy()
		}
	}
	if t.Instances != nil {
		t.Instances.Destroy()
	}
	t.Groups = nil
	t.Instances = nil
}

// recordDraw binds pipeline and set, then issues one indexed draw per group.
func recordDraw(rec commandRecorder, cmd vk.CommandBuffer, pipeline vk.Pipeline, layout vk.PipelineLayout, set vk.DescriptorSet, target *DrawTarget, dynamicOffsets []uint32) {
	rec.BindPipeline(cmd, pipeline)
	rec.BindDescriptorSet(cmd, layout, set, dynamicOffsets)
	for _, g := range target.Groups {
		rec.BindVertexBuffer(cmd, 0, g.Vertex.Handle)
		rec.BindIndexBuffer(cmd, g.Index.Handle)
		if target.Instances != nil {
			rec.BindVertexBuffer(cmd, 1, target.Instances.Handle)
		}
		rec.DrawIndexed(cmd, g.IndexCount, target.instanceCount())
	}
}

// DrawTargetRegistry maps draw target ids to uploaded geometry.
type DrawTargetRegistry struct {
	targets  map[metadata.DrawTargetID]*DrawTarget
	recorder commandRecorder
}

func NewDrawTargetRegistry() *DrawTargetRegistry {
	return &DrawTargetRegistry{
		targets:  make(map[metadata.DrawTargetID]*DrawTarget),
		recorder: vulkanRecorder{},
	}
}

// Register stores target under id, destroying any target it replaces.
func (r *DrawTargetRegistry) Register(id metadata.DrawTargetID, target *DrawTarget) {
	if old, ok := r.targets[id]; ok && old != target {
		core.LogWarn("draw target %d replaced", id)
		old.Destroy()
	}
	r.targets[id] = target
}

func (r *DrawTargetRegistry) Get(id metadata.DrawTargetID) (*DrawTarget, bool) {
	t, ok := r.targets[id]
	return t, ok
}

func (r *DrawTargetRegistry) Draw(cmd vk.CommandBuffer, pipeline *GraphicsPipeline, set *DescriptorSet, id metadata.DrawTargetID, dynamicOffsets []uint32) error {
	target, ok := r.targets[id]
	if !ok {
		return fmt.Errorf("draw target %d is not registered", id)
	}
	recordDraw(r.recorder, cmd, pipeline.Handle, pipeline.Program.PipelineLayout, set.Handle, target, dynamicOffsets)
	return nil
}

func (r *DrawTargetRegistry) Destroy() {
	for id, t := range r.targets {
		t.Destroy()
		delete(r.targets, id)
	}
}

// UploadDrawTarget uploads meshes and an optional set of instance offsets.
func UploadDrawTarget(memory *MemoryManager, meshes []metadata.Mesh, instances []float32) (*DrawTarget, error) {
	target := &DrawTarget{}
	for _, m := range meshes {
		vertex, err := memory.CreateVertexBuffer(m.Vertices)
		if err != nil {
			target.Destroy()
			return nil, err
		}
		index, err := memory.CreateIndexBuffer(metadata.Bytes(m.Indices))
		if err != nil {
			vertex.Destroy()
			target.Destroy()
			return nil, err
		}
		target.Groups = append(target.Groups, DrawGroup{Vertex: vertex, Index: index, IndexCount: uint32(len(m.Indices))})
	}
	if len(instances) > 0 {
		buffer, err := memory.CreateInstanceBuffer(metadata.Bytes(instances))
		if err != nil {
			target.Destroy()
			return nil, err
		}
		target.Instances = buffer
		target.InstanceCount = uint32(len(instances) / 3)
	}
	return target, nil
}
