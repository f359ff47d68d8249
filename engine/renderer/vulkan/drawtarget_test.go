package vulkan

import (
	"fmt"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall string

type fakeRecorder struct {
	calls []recordedCall
}

func (r *fakeRecorder) BindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	r.calls = append(r.calls, "pipeline")
}

func (r *fakeRecorder) BindDescriptorSet(cmd vk.CommandBuffer, layout vk.PipelineLayout, set vk.DescriptorSet, dynamicOffsets []uint32) {
	r.calls = append(r.calls, recordedCall(fmt.Sprintf("set %v", dynamicOffsets)))
}

func (r *fakeRecorder) BindVertexBuffer(cmd vk.CommandBuffer, binding uint32, buffer vk.Buffer) {
	r.calls = append(r.calls, recordedCall(fmt.Sprintf("vertex %d", binding)))
}

func (r *fakeRecorder) BindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer) {
	r.calls = append(r.calls, "index")
}

func (r *fakeRecorder) DrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount uint32) {
	r.calls = append(r.calls, recordedCall(fmt.Sprintf("draw %d x%d", indexCount, instanceCount)))
}

func TestRecordDrawSingleInstance(t *testing.T) {
	rec := &fakeRecorder{}
	target := &DrawTarget{Groups: []DrawGroup{{Vertex: &Buffer{}, Index: &Buffer{}, IndexCount: 6}}}

	recordDraw(rec, nil, nil, nil, nil, target, nil)
	assert.Equal(t, []recordedCall{"pipeline", "set []", "vertex 0", "index", "draw 6 x1"}, rec.calls)
}

func TestRecordDrawInstancedGroups(t *testing.T) {
	rec := &fakeRecorder{}
	target := &DrawTarget{
		Groups: []DrawGroup{
			{Vertex: &Buffer{}, Index: &Buffer{}, IndexCount: 36},
			{Vertex: &Buffer{}, Index: &Buffer{}, IndexCount: 12},
		},
		Instances:     &Buffer{},
		InstanceCount: 5,
	}

	recordDraw(rec, nil, nil, nil, nil, target, []uint32{256, 0})
	assert.Equal(t, []recordedCall{
		"pipeline", "set [256 0]",
		"vertex 0", "index", "vertex 1", "draw 36 x5",
		"vertex 0", "index", "vertex 1", "draw 12 x5",
	}, rec.calls)
}

func TestDrawTargetRegistry(t *testing.T) {
	rec := &fakeRecorder{}
	registry := NewDrawTargetRegistry()
	registry.recorder = rec

	first := &DrawTarget{Groups: []DrawGroup{{Vertex: &Buffer{}, Index: &Buffer{}, IndexCount: 3}}}
	registry.Register(metadata.DrawTargetCube, first)
	got, ok := registry.Get(metadata.DrawTargetCube)
	require.True(t, ok)
	assert.Same(t, first, got)

	second := &DrawTarget{Groups: []DrawGroup{{Vertex: &Buffer{}, Index: &Buffer{}, IndexCount: 6}}}
	registry.Register(metadata.DrawTargetCube, second)
	assert.Nil(t, first.Groups, "replaced target is destroyed")

	pipeline := &GraphicsPipeline{Program: &Program{}}
	require.NoError(t, registry.Draw(nil, pipeline, &DescriptorSet{}, metadata.DrawTargetCube, nil))
	assert.Contains(t, rec.calls, recordedCall("draw 6 x1"))

	assert.Error(t, registry.Draw(nil, pipeline, &DescriptorSet{}, metadata.DrawTargetModel, nil))

	registry.Destroy()
	_, ok = registry.Get(metadata.DrawTargetCube)
	assert.False(t, ok)
}
