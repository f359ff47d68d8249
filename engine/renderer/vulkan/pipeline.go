package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

/**
 * @brief A compiled program: shader modules, descriptor set layout and pipeline layout.
 */
type Program struct {
	Decl           ProgramDecl
	SetLayout      vk.DescriptorSetLayout
	PipelineLayout vk.PipelineLayout
	Stages         []*VulkanShaderStage
}

func NewProgram(context *VulkanContext, decl ProgramDecl, load ShaderLoader) (*Program, error) {
	program := &Program{Decl: decl}

	for _, stage := range decl.Stages {
		name := shaderFileName(decl.ID.String(), stage)
		code, err := load(name)
		if err != nil {
			program.Destroy(context)
			return nil, fmt.Errorf("loading shader %s: %w", name, err)
		}
		s, err := NewShaderStage(context, code, stage)
		if err != nil {
			program.Destroy(context)
			return nil, fmt.Errorf("shader %s: %w", name, err)
		}
		program.Stages = append(program.Stages, s)
	}

	layout, err := createDescriptorSetLayout(context, decl)
	if err != nil {
		program.Destroy(context)
		return nil, err
	}
	program.SetLayout = layout

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{layout},
	}
	err = context.Locks.SafeCall(PipelineManagement, func() error {
		var pipelineLayout vk.PipelineLayout
		if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &pipelineLayout); res != vk.Success {
			return resultError("vkCreatePipelineLayout", res)
		}
		program.PipelineLayout = pipelineLayout
		return nil
	})
	if err != nil {
		program.Destroy(context)
		return nil, err
	}
	return program, nil
}

func (p *Program) stageInfos() []vk.PipelineShaderStageCreateInfo {
	infos := make([]vk.PipelineShaderStageCreateInfo, len(p.Stages))
	for i, s := range p.Stages {
		infos[i] = s.ShaderStageCreateInfo
	}
	return infos
}

func (p *Program) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if p.PipelineLayout != nil {
		vk.DestroyPipelineLayout(device, p.PipelineLayout, context.Allocator)
		p.PipelineLayout = nil
	}
	if p.SetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, p.SetLayout, context.Allocator)
		p.SetLayout = vk.NullDescriptorSetLayout
	}
	for _, s := range p.Stages {
		s.Destroy(context)
	}
	p.Stages = nil
}

type PipelineConfig struct {
	Renderpass *VulkanRenderpass
	Program    *Program
	Samples    vk.SampleCountFlagBits
	Vertex     VertexLayout
	// Number of color attachments written by the fragment shader.
	ColorAttachments int
	Width            uint32
	Height           uint32
	DepthTest        bool
}

/**
 * @brief Holds a Vulkan pipeline and the program it was built from.
 */
type GraphicsPipeline struct {
	Handle  vk.Pipeline
	Program *Program
}

func NewGraphicsPipeline(context *VulkanContext, config PipelineConfig) (*GraphicsPipeline, error) {
	if config.Samples == 0 {
		config.Samples = vk.SampleCount1Bit
	}

	// Fixed viewport, pipelines are rebuilt with the swapchain.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			X:        0,
			Y:        0,
			Width:    float32(config.Width),
			Height:   float32(config.Height),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: config.Width, Height: config.Height},
		}},
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: config.Samples,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthWriteEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}

	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, config.ColorAttachments)
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable: vk.False,
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
		}
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(config.Vertex.Bindings)),
		PVertexBindingDescriptions:      config.Vertex.Bindings,
		VertexAttributeDescriptionCount: uint32(len(config.Vertex.Attributes)),
		PVertexAttributeDescriptions:    config.Vertex.Attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	stages := config.Program.stageInfos()
	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		Layout:              config.Program.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	err := context.Locks.SafeCall(PipelineManagement, func() error {
		if res := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1,
			[]vk.GraphicsPipelineCreateInfo{createInfo}, context.Allocator, pipelines); res != vk.Success {
			return resultError("vkCreateGraphicsPipelines", res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", config.Program.Decl.ID, err)
	}

	core.LogDebug("Graphics pipeline %s created", config.Program.Decl.ID)
	return &GraphicsPipeline{Handle: pipelines[0], Program: config.Program}, nil
}

func (pipeline *GraphicsPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle != vk.NullPipeline {
		context.Locks.SafeCall(PipelineManagement, func() error {
			vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
			return nil
		})
		pipeline.Handle = vk.NullPipeline
	}
}

// PipelineManager owns the programs, pipelines and descriptor sets of one swapchain build.
type PipelineManager struct {
	context   *VulkanContext
	load      ShaderLoader
	programs  map[metadata.ProgramID]*Program
	pipelines map[metadata.ProgramID]*GraphicsPipeline
	sets      map[metadata.DescriptorSetID]*DescriptorSet
	pool      vk.DescriptorPool
}

func NewPipelineManager(context *VulkanContext, load ShaderLoader) *PipelineManager {
	return &PipelineManager{
		context:   context,
		load:      load,
		programs:  make(map[metadata.ProgramID]*Program),
		pipelines: make(map[metadata.ProgramID]*GraphicsPipeline),
		sets:      make(map[metadata.DescriptorSetID]*DescriptorSet),
	}
}

// CreatePrograms compiles every declared program and a descriptor pool
// holding one set of each layout in sets.
func (pm *PipelineManager) CreatePrograms(sets []metadata.ProgramID) error {
	for id := metadata.ProgramID(0); id < metadata.ProgramMax; id++ {
		program, err := NewProgram(pm.context, programDecls[id], pm.load)
		if err != nil {
			return err
		}
		pm.programs[id] = program
	}
	pool, err := createDescriptorPool(pm.context, sets)
	if err != nil {
		return err
	}
	pm.pool = pool
	return nil
}

func (pm *PipelineManager) Program(id metadata.ProgramID) (*Program, bool) {
	p, ok := pm.programs[id]
	return p, ok
}

// CreatePipeline builds the pipeline of config.Program. One pipeline exists per program.
func (pm *PipelineManager) CreatePipeline(id metadata.ProgramID, config PipelineConfig) error {
	program, ok := pm.programs[id]
	if !ok {
		return fmt.Errorf("program %s not created", id)
	}
	config.Program = program
	pipeline, err := NewGraphicsPipeline(pm.context, config)
	if err != nil {
		return err
	}
	pm.pipelines[id] = pipeline
	return nil
}

func (pm *PipelineManager) Pipeline(id metadata.ProgramID) (*GraphicsPipeline, bool) {
	p, ok := pm.pipelines[id]
	return p, ok
}

// CreateDescriptorSet validates data against the program layout, then allocates and writes the set.
func (pm *PipelineManager) CreateDescriptorSet(id metadata.DescriptorSetID, programID metadata.ProgramID, data []DescriptorData) (*DescriptorSet, error) {
	program, ok := pm.programs[programID]
	if !ok {
		return nil, fmt.Errorf("program %s not created", programID)
	}
	if err := validateDescriptorWrites(program.Decl, data); err != nil {
		return nil, err
	}
	handle, err := allocateDescriptorSet(pm.context, pm.pool, program.SetLayout)
	if err != nil {
		return nil, err
	}
	writeDescriptorSet(pm.context, handle, data)
	set := &DescriptorSet{ID: id, Program: programID, Handle: handle}
	pm.sets[id] = set
	return set, nil
}

func (pm *PipelineManager) DescriptorSet(id metadata.DescriptorSetID) (*DescriptorSet, bool) {
	s, ok := pm.sets[id]
	return s, ok
}

// Destroy releases pipelines, the descriptor pool with its sets and the programs.
func (pm *PipelineManager) Destroy() error {
	for id, p := range pm.pipelines {
		p.Destroy(pm.context)
		delete(pm.pipelines, id)
	}
	if pm.pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(pm.context.Device.LogicalDevice, pm.pool, pm.context.Allocator)
		pm.pool = vk.NullDescriptorPool
	}
	for id := range pm.sets {
		delete(pm.sets, id)
	}
	for id, p := range pm.programs {
		p.Destroy(pm.context)
		delete(pm.programs, id)
	}
	return nil
}
