package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

/**
 * @brief A binding declared by a program's descriptor set layout.
 */
type BindingDecl struct {
	Binding uint32
	Type    vk.DescriptorType
	/** @brief Array size of the binding. */
	Count  uint32
	Stages vk.ShaderStageFlags
}

/**
 * @brief Static description of a shader program: its stages and its single descriptor set layout.
 */
type ProgramDecl struct {
	ID       metadata.ProgramID
	Stages   []vk.ShaderStageFlagBits
	Bindings []BindingDecl
}

const (
	stageVertex   = vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	stageGeometry = vk.ShaderStageFlags(vk.ShaderStageGeometryBit)
	stageFragment = vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
)

var objectBindings = []BindingDecl{
	{Binding: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 1, Stages: stageVertex},
	{Binding: 1, Type: vk.DescriptorTypeUniformBufferDynamic, Count: 1, Stages: stageVertex},
}

var programDecls = map[metadata.ProgramID]ProgramDecl{
	metadata.ProgramShadowMap: {
		ID:     metadata.ProgramShadowMap,
		Stages: []vk.ShaderStageFlagBits{vk.ShaderStageVertexBit, vk.ShaderStageGeometryBit, vk.ShaderStageFragmentBit},
		Bindings: []BindingDecl{
			{Binding: 0, Type: vk.DescriptorTypeUniformBufferDynamic, Count: 1, Stages: stageVertex},
			{Binding: 1, Type: vk.DescriptorTypeUniformBufferDynamic, Count: 1, Stages: stageGeometry | stageFragment},
		},
	},
	metadata.ProgramBaseRender: {
		ID:       metadata.ProgramBaseRender,
		Stages:   []vk.ShaderStageFlagBits{vk.ShaderStageVertexBit, vk.ShaderStageFragmentBit},
		Bindings: objectBindings,
	},
	metadata.ProgramDiffuse: {
		ID:       metadata.ProgramDiffuse,
		Stages:   []vk.ShaderStageFlagBits{vk.ShaderStageVertexBit, vk.ShaderStageFragmentBit},
		Bindings: objectBindings,
	},
	metadata.ProgramDeferred: {
		ID:     metadata.ProgramDeferred,
		Stages: []vk.ShaderStageFlagBits{vk.ShaderStageVertexBit, vk.ShaderStageFragmentBit},
		Bindings: []BindingDecl{
			{Binding: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 1, Stages: stageFragment},
			{Binding: 1, Type: vk.DescriptorTypeUniformBuffer, Count: 1, Stages: stageFragment},
			{Binding: 2, Type: vk.DescriptorTypeUniformBuffer, Count: 1, Stages: stageFragment},
			{Binding: 3, Type: vk.DescriptorTypeCombinedImageSampler, Count: 1, Stages: stageFragment},
			{Binding: 4, Type: vk.DescriptorTypeCombinedImageSampler, Count: 1, Stages: stageFragment},
			{Binding: 5, Type: vk.DescriptorTypeCombinedImageSampler, Count: 1, Stages: stageFragment},
			{Binding: 6, Type: vk.DescriptorTypeCombinedImageSampler, Count: metadata.MaxLights, Stages: stageFragment},
			{Binding: 7, Type: vk.DescriptorTypeCombinedImageSampler, Count: 1, Stages: stageFragment},
		},
	},
}

// ProgramDeclFor returns the declaration of a program.
func ProgramDeclFor(id metadata.ProgramID) (ProgramDecl, bool) {
	decl, ok := programDecls[id]
	return decl, ok
}

type DescriptorImage struct {
	View    vk.ImageView
	Sampler vk.Sampler
	Layout  vk.ImageLayout
}

// DescriptorData is the content written into one binding of a descriptor set.
// Uniform bindings take Buffers, sampler bindings take Images.
type DescriptorData struct {
	Binding uint32
	Type    vk.DescriptorType
	Buffers []*Buffer
	Images  []DescriptorImage
}

func (d DescriptorData) count() int {
	if isBufferDescriptor(d.Type) {
		return len(d.Buffers)
	}
	return len(d.Images)
}

func isBufferDescriptor(t vk.DescriptorType) bool {
	return t == vk.DescriptorTypeUniformBuffer || t == vk.DescriptorTypeUniformBufferDynamic
}

// validateDescriptorWrites requires exactly one write per declared binding with
// the declared type and array size.
func validateDescriptorWrites(decl ProgramDecl, data []DescriptorData) error {
	declared := make(map[uint32]BindingDecl, len(decl.Bindings))
	for _, b := range decl.Bindings {
		declared[b.Binding] = b
	}
	written := make(map[uint32]bool, len(data))
	for _, d := range data {
		b, ok := declared[d.Binding]
		if !ok {
			return fmt.Errorf("%s: binding %d is not declared: %w", decl.ID, d.Binding, core.ErrDescriptorMismatch)
		}
		if written[d.Binding] {
			return fmt.Errorf("%s: binding %d written twice: %w", decl.ID, d.Binding, core.ErrDescriptorMismatch)
		}
		written[d.Binding] = true
		if b.Type != d.Type {
			return fmt.Errorf("%s: binding %d has type %d, got %d: %w", decl.ID, d.Binding, b.Type, d.Type, core.ErrDescriptorMismatch)
		}
		if uint32(d.count()) != b.Count {
			return fmt.Errorf("%s: binding %d expects %d descriptors, got %d: %w", decl.ID, d.Binding, b.Count, d.count(), core.ErrDescriptorMismatch)
		}
	}
	if len(written) != len(declared) {
		return fmt.Errorf("%s: %d of %d bindings written: %w", decl.ID, len(written), len(declared), core.ErrDescriptorMismatch)
	}
	return nil
}

// descriptorPoolSizes sums the descriptors needed to allocate one set per entry of sets.
func descriptorPoolSizes(sets []metadata.ProgramID) []vk.DescriptorPoolSize {
	totals := map[vk.DescriptorType]uint32{}
	order := []vk.DescriptorType{}
	for _, id := range sets {
		for _, b := range programDecls[id].Bindings {
			if _, ok := totals[b.Type]; !ok {
				order = append(order, b.Type)
			}
			totals[b.Type] += b.Count
		}
	}
	sizes := make([]vk.DescriptorPoolSize, 0, len(order))
	for _, t := range order {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: totals[t]})
	}
	return sizes
}

type DescriptorSet struct {
	ID      metadata.DescriptorSetID
	Program metadata.ProgramID
	Handle  vk.DescriptorSet
}

func createDescriptorSetLayout(context *VulkanContext, decl ProgramDecl) (vk.DescriptorSetLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(decl.Bindings))
	for i, b := range decl.Bindings {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  b.Type,
			DescriptorCount: b.Count,
			StageFlags:      b.Stages,
		}
	}
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout); res != vk.Success {
		return vk.NullDescriptorSetLayout, resultError("vkCreateDescriptorSetLayout", res)
	}
	return layout, nil
}

func createDescriptorPool(context *VulkanContext, sets []metadata.ProgramID) (vk.DescriptorPool, error) {
	sizes := descriptorPoolSizes(sets)
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(len(sets)),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &pool); res != vk.Success {
		return vk.NullDescriptorPool, resultError("vkCreateDescriptorPool", res)
	}
	return pool, nil
}

func allocateDescriptorSet(context *VulkanContext, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &set); res != vk.Success {
		return nil, resultError("vkAllocateDescriptorSets", res)
	}
	return set, nil
}

func writeDescriptorSet(context *VulkanContext, set vk.DescriptorSet, data []DescriptorData) {
	writes := make([]vk.WriteDescriptorSet, 0, len(data))
	for _, d := range data {
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      d.Binding,
			DescriptorCount: uint32(d.count()),
			DescriptorType:  d.Type,
		}
		if isBufferDescriptor(d.Type) {
			infos := make([]vk.DescriptorBufferInfo, len(d.Buffers))
			for i, b := range d.Buffers {
				// Dynamic bindings see one slot, the offset is supplied at bind time.
				size := b.Size
				if d.Type == vk.DescriptorTypeUniformBufferDynamic && b.SlotSize > 0 {
					size = b.SlotSize
				}
				infos[i] = vk.DescriptorBufferInfo{Buffer: b.Handle, Offset: 0, Range: vk.DeviceSize(size)}
			}
			write.PBufferInfo = infos
		} else {
			infos := make([]vk.DescriptorImageInfo, len(d.Images))
			for i, img := range d.Images {
				infos[i] = vk.DescriptorImageInfo{Sampler: img.Sampler, ImageView: img.View, ImageLayout: img.Layout}
			}
			write.PImageInfo = infos
		}
		writes = append(writes, write)
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}
