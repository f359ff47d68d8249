package vulkan

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief Vertex input description shared by a pipeline and the draw targets it renders.
 */
type VertexLayout struct {
	Bindings   []vk.VertexInputBindingDescription
	Attributes []vk.VertexInputAttributeDescription
}

/** @brief Byte stride of a position + normal vertex. */
const PosNormalStride = 24

/** @brief Byte stride of a 2D position + texture coordinate vertex. */
const PosTexStride = 16

/** @brief Byte stride of one per-instance offset. */
const InstanceStride = 12

/**
 * @brief Position and normal per vertex, one vec3 offset per instance at location 2.
 */
var LayoutPosNormal = VertexLayout{
	Bindings: []vk.VertexInputBindingDescription{
		{Binding: 0, Stride: PosNormalStride, InputRate: vk.VertexInputRateVertex},
		{Binding: 1, Stride: InstanceStride, InputRate: vk.VertexInputRateInstance},
	},
	Attributes: []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 1, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
	},
}

/**
 * @brief Screen space position and texture coordinate, used by the full screen quad.
 */
var LayoutPosTex = VertexLayout{
	Bindings: []vk.VertexInputBindingDescription{
		{Binding: 0, Stride: PosTexStride, InputRate: vk.VertexInputRateVertex},
	},
	Attributes: []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 8},
	},
}

/** @brief Formats of the G-buffer attachments, in attachment order. */
var GBufferFormats = [3]vk.Format{
	vk.FormatR16g16b16a16Sfloat, // position
	vk.FormatR16g16b16a16Sfloat, // normal
	vk.FormatR8g8b8a8Unorm,      // albedo
}

/** @brief Depth format of the cube shadow maps. */
const ShadowMapFormat = vk.FormatD16Unorm
