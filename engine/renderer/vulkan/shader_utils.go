package vulkan

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// ShaderLoader returns the SPIR-V bytes of a compiled shader file.
type ShaderLoader func(name string) ([]byte, error)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// spirvWords converts a SPIR-V binary into the word slice Vulkan consumes.
func spirvWords(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V size %d is not a positive multiple of 4: %w", len(code), core.ErrResourceCreation)
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("bad SPIR-V magic %#x: %w", words[0], core.ErrResourceCreation)
	}
	return words, nil
}

// shaderModuleInfo describes a module for code. CodeSize is in bytes.
func shaderModuleInfo(code []byte) (vk.ShaderModuleCreateInfo, error) {
	words, err := spirvWords(code)
	if err != nil {
		return vk.ShaderModuleCreateInfo{}, err
	}
	return vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    words,
	}, nil
}

func NewShaderStage(context *VulkanContext, code []byte, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	createInfo, err := shaderModuleInfo(code)
	if err != nil {
		return nil, err
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		return nil, resultError("vkCreateShaderModule", res)
	}
	return &VulkanShaderStage{
		Handle: module,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: module,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
	}
}

// shaderFileName is the compiled file of a program stage, e.g. "deferred.frag.spv".
func shaderFileName(program string, stage vk.ShaderStageFlagBits) string {
	ext := "vert"
	switch stage {
	case vk.ShaderStageGeometryBit:
		ext = "geom"
	case vk.ShaderStageFragmentBit:
		ext = "frag"
	}
	return fmt.Sprintf("%s.%s.spv", program, ext)
}
