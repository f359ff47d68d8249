package metadata

/** @brief Upper bound of point lights, shadow maps and LIGHTDATA entries. Shaders declare the same value. */
const MaxLights = 4

/** @brief Number of OBJECT_MATRIX slots. */
const MaxObjects = 20

/** @brief Identifies a shader program together with its descriptor set layout. */
type ProgramID uint32

const (
	ProgramShadowMap ProgramID = iota
	ProgramBaseRender
	ProgramDiffuse
	ProgramDeferred
	ProgramMax
)

func (p ProgramID) String() string {
	switch p {
	case ProgramShadowMap:
		return "shadowmap"
	case ProgramBaseRender:
		return "baserender"
	case ProgramDiffuse:
		return "diffuse"
	case ProgramDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

/** @brief Identifies a descriptor set owned by the renderer. */
type DescriptorSetID uint32

const (
	DescriptorSetShadowMap DescriptorSetID = iota
	DescriptorSetObject
	DescriptorSetLightObject
	DescriptorSetDeferred
	DescriptorSetMax
)

/** @brief Identifies a registered draw target. */
type DrawTargetID uint32

const (
	DrawTargetRectangle DrawTargetID = iota
	DrawTargetCube
	DrawTargetModel
	DrawTargetModelInstance
	DrawTargetMax
)

/** @brief Identifies a uniform buffer. */
type UniformID uint32

const (
	UniformCameraTransform UniformID = iota
	UniformObjectMatrix
	UniformLightObjectMatrix
	UniformGUISetting
	UniformLightData
	UniformLightProj
	UniformMax
)

/** @brief Identifies a render pass. */
type RenderPassID uint32

const (
	RenderPassDepthCubemap RenderPassID = iota
	RenderPassPre
	RenderPassPost
	RenderPassMax
)

/** @brief Index of a command buffer. Post-process buffers start at CommandPost, one per swapchain image. */
type CommandIndex uint32

const (
	CommandShadow CommandIndex = iota
	CommandGeometry
	CommandPost
)

/** @brief Number of command buffers recorded before the per-image post-process buffers. */
const PostPassBase = int(CommandPost)
