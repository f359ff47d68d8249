package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformWrite(binding uint32, dynamic bool) DescriptorData {
	t := vk.DescriptorTypeUniformBuffer
	if dynamic {
		t = vk.DescriptorTypeUniformBufferDynamic
	}
	return DescriptorData{Binding: binding, Type: t, Buffers: []*Buffer{{}}}
}

func imageWrite(binding uint32, n int) DescriptorData {
	return DescriptorData{Binding: binding, Type: vk.DescriptorTypeCombinedImageSampler, Images: make([]DescriptorImage, n)}
}

func TestValidateDescriptorWritesAccepts(t *testing.T) {
	decl, ok := ProgramDeclFor(metadata.ProgramBaseRender)
	require.True(t, ok)
	assert.NoError(t, validateDescriptorWrites(decl, []DescriptorData{uniformWrite(1, true), uniformWrite(0, false)}))

	deferred, ok := ProgramDeclFor(metadata.ProgramDeferred)
	require.True(t, ok)
	assert.NoError(t, validateDescriptorWrites(deferred, []DescriptorData{
		uniformWrite(0, false),
		uniformWrite(1, false),
		uniformWrite(2, false),
		imageWrite(3, 1),
		imageWrite(4, 1),
		imageWrite(5, 1),
		imageWrite(6, metadata.MaxLights),
		imageWrite(7, 1),
	}))
}

func TestValidateDescriptorWritesRejects(t *testing.T) {
	decl, _ := ProgramDeclFor(metadata.ProgramBaseRender)
	cases := map[string][]DescriptorData{
		"undeclared binding": {uniformWrite(0, false), uniformWrite(1, true), uniformWrite(2, false)},
		"duplicate binding":  {uniformWrite(0, false), uniformWrite(0, false)},
		"wrong type":         {uniformWrite(0, true), uniformWrite(1, true)},
		"missing binding":    {uniformWrite(0, false)},
		"wrong count":        {{Binding: 0, Type: vk.DescriptorTypeUniformBuffer}, uniformWrite(1, true)},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, validateDescriptorWrites(decl, data), core.ErrDescriptorMismatch)
		})
	}
}

func TestDescriptorPoolSizesSumsEverySet(t *testing.T) {
	sizes := descriptorPoolSizes(descriptorSetPrograms[:])
	totals := map[vk.DescriptorType]uint32{}
	for _, s := range sizes {
		totals[s.Type] = s.DescriptorCount
	}
	// Dynamic: shadow map 2, base render 1, diffuse 1.
	assert.Equal(t, uint32(4), totals[vk.DescriptorTypeUniformBufferDynamic])
	// Static: base render 1, diffuse 1, deferred 3.
	assert.Equal(t, uint32(5), totals[vk.DescriptorTypeUniformBuffer])
	assert.Equal(t, uint32(4+metadata.MaxLights), totals[vk.DescriptorTypeCombinedImageSampler])
	assert.Len(t, sizes, 3)
}

func TestEveryProgramIsDeclared(t *testing.T) {
	for id := metadata.ProgramID(0); id < metadata.ProgramMax; id++ {
		decl, ok := ProgramDeclFor(id)
		require.True(t, ok, id.String())
		assert.Equal(t, id, decl.ID)
		assert.NotEmpty(t, decl.Stages)
	}
}
