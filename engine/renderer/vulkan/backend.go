package vulkan

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// Window is what the renderer needs from the windowing system.
type Window interface {
	FramebufferSize() (uint32, uint32)
	WaitEvents()
}

type RendererConfig struct {
	ApplicationName    string
	EnableValidation   bool
	InstanceExtensions []string
	CreateSurface      SurfaceFactory
	Window             Window
	Shaders            ShaderLoader

	FramesInFlight int
	ShadowMapSize  uint32
	MaxSamples     uint32
	VSync          bool

	// Optional RGBA noise texture, generated when empty.
	Noise     []byte
	NoiseSize uint32
}

// noiseSize is the edge of the generated noise texture.
const noiseSize = 64

// lightDataSize covers the LightData array and the trailing light count.
const lightDataSize = metadata.LightCountOffset + 16

type VulkanRenderer struct {
	context   *VulkanContext
	window    Window
	shaders   ShaderLoader
	vsync     bool
	submitter OneShotSubmitter

	memory   *MemoryManager
	targets  *DrawTargetRegistry
	uniforms UniformQueue
	frame    *FrameOrchestrator
	sync     []*FrameSync

	// Live for the whole renderer.
	shadowMapSize uint32
	shadowMaps    [metadata.MaxLights]*Image
	noise         *Image
	sampler       vk.Sampler

	// Rebuilt with the swapchain and owned by scoped.
	scoped         *ResourceSet
	swapchain      *VulkanSwapchain
	gbuffer        gbuffer
	passes         [metadata.RenderPassMax]*VulkanRenderpass
	pipelines      *PipelineManager
	commandBuffers []*VulkanCommandBuffer

	settingsMu sync.Mutex
	settings   metadata.DebugSettings
}

func New(cfg RendererConfig) (*VulkanRenderer, error) {
	context, err := NewContext(ContextConfig{
		ApplicationName:    cfg.ApplicationName,
		EnableValidation:   cfg.EnableValidation,
		InstanceExtensions: cfg.InstanceExtensions,
		CreateSurface:      cfg.CreateSurface,
		MaxSamples:         cfg.MaxSamples,
	})
	if err != nil {
		return nil, err
	}

	vr := &VulkanRenderer{
		context:       context,
		window:        cfg.Window,
		shaders:       cfg.Shaders,
		vsync:         cfg.VSync,
		submitter:     NewGraphicsSubmitter(context),
		targets:       NewDrawTargetRegistry(),
		shadowMapSize: cfg.ShadowMapSize,
		settings:      metadata.DefaultDebugSettings(),
	}
	vr.memory = NewMemoryManager(context, vr.submitter)
	vr.frame = NewFrameOrchestrator(vr, cfg.FramesInFlight)

	if err := vr.createPersistent(cfg); err != nil {
		vr.Shutdown()
		return nil, err
	}
	core.LogInfo("Vulkan renderer initialized.")
	return vr, nil
}

func (vr *VulkanRenderer) createPersistent(cfg RendererConfig) error {
	framesInFlight := max(cfg.FramesInFlight, 1)
	for i := 0; i < framesInFlight; i++ {
		fs, err := NewFrameSync(vr.context)
		if err != nil {
			return err
		}
		vr.sync = append(vr.sync, fs)
	}

	uniforms := []struct {
		id    metadata.UniformID
		size  uint64
		count uint32
	}{
		{metadata.UniformCameraTransform, uint64(binary.Size(metadata.CameraTransform{})), 1},
		{metadata.UniformObjectMatrix, metadata.ObjectSlotSize, metadata.MaxObjects},
		{metadata.UniformLightObjectMatrix, metadata.ObjectSlotSize, metadata.MaxLights},
		{metadata.UniformGUISetting, uint64(binary.Size(metadata.DebugSettings{})), 1},
		{metadata.UniformLightData, lightDataSize, 1},
		{metadata.UniformLightProj, uint64(binary.Size(metadata.LightProj{})), metadata.MaxLights},
	}
	for _, u := range uniforms {
		if _, err := vr.memory.CreateUniformBuffer(u.id, u.size, u.count); err != nil {
			return fmt.Errorf("uniform %d: %w", u.id, err)
		}
	}

	for i := range vr.shadowMaps {
		sm, err := vr.memory.CreateShadowMap(vr.shadowMapSize)
		if err != nil {
			return err
		}
		vr.shadowMaps[i] = sm
	}

	pixels, size := cfg.Noise, cfg.NoiseSize
	if len(pixels) == 0 {
		pixels, size = noisePixels(noiseSize, 1), noiseSize
	}
	noise, err := vr.memory.CreateTextureImage(pixels, size, size)
	if err != nil {
		return fmt.Errorf("noise texture: %w", err)
	}
	vr.noise = noise

	sampler, err := NewSampler(vr.context)
	if err != nil {
		return err
	}
	vr.sampler = sampler

	rect, err := UploadDrawTarget(vr.memory, []metadata.Mesh{RectangleMesh()}, nil)
	if err != nil {
		return err
	}
	vr.targets.Register(metadata.DrawTargetRectangle, rect)

	cube, err := UploadDrawTarget(vr.memory, []metadata.Mesh{CubeMesh()}, originInstance)
	if err != nil {
		return err
	}
	vr.targets.Register(metadata.DrawTargetCube, cube)
	return nil
}

// noisePixels returns size*size random RGBA texels rotating the shadow sampling disk.
func noisePixels(size int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pixels := make([]byte, size*size*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i] = byte(r.UintN(256))
		pixels[i+1] = byte(r.UintN(256))
		pixels[i+2] = 0
		pixels[i+3] = 255
	}
	return pixels
}

// originInstance is the single instance offset of targets registered without any.
var originInstance = []float32{0, 0, 0}

// RegisterDrawTarget uploads meshes and optional instance offsets under id.
// Mesh pipelines read an instance offset, so a target always gets one.
func (vr *VulkanRenderer) RegisterDrawTarget(id metadata.DrawTargetID, meshes []metadata.Mesh, instances []float32) error {
	if len(instances) == 0 {
		instances = originInstance
	}
	target, err := UploadDrawTarget(vr.memory, meshes, instances)
	if err != nil {
		return fmt.Errorf("draw target %d: %w", id, err)
	}
	vr.targets.Register(id, target)
	return nil
}

// Start builds the swapchain and records every pass. Rebuild listeners run here for the first time.
func (vr *VulkanRenderer) Start() error {
	return vr.frame.Open()
}

// OnRebuild registers fn to re-record the scene after each swapchain build.
func (vr *VulkanRenderer) OnRebuild(fn func() error) {
	vr.frame.OnRebuild(fn)
}

func (vr *VulkanRenderer) RequestRebuild() {
	vr.frame.RequestRebuild()
}

func (vr *VulkanRenderer) SetDebugSettings(settings metadata.DebugSettings) {
	vr.settingsMu.Lock()
	defer vr.settingsMu.Unlock()
	vr.settings = settings
}

func (vr *VulkanRenderer) DebugSettings() metadata.DebugSettings {
	vr.settingsMu.Lock()
	defer vr.settingsMu.Unlock()
	return vr.settings
}

// Update renders one frame.
func (vr *VulkanRenderer) Update() error {
	return vr.frame.Update()
}

func (vr *VulkanRenderer) Shutdown() {
	if vr.context == nil || vr.context.Device == nil {
		if vr.context != nil {
			vr.context.Destroy()
		}
		return
	}
	if err := vr.context.Device.WaitIdle(); err != nil {
		core.LogError("waiting for device: %s", err)
	}
	if vr.scoped != nil {
		if err := vr.CloseSwapchain(); err != nil {
			core.LogError("closing swapchain: %s", err)
		}
	}
	vr.targets.Destroy()
	if vr.sampler != vk.NullSampler {
		vk.DestroySampler(vr.context.Device.LogicalDevice, vr.sampler, vr.context.Allocator)
		vr.sampler = vk.NullSampler
	}
	if vr.noise != nil {
		vr.noise.Destroy()
		vr.noise = nil
	}
	for i, sm := range vr.shadowMaps {
		if sm != nil {
			sm.Destroy()
			vr.shadowMaps[i] = nil
		}
	}
	vr.memory.Destroy()
	for _, fs := range vr.sync {
		fs.Destroy(vr.context)
	}
	vr.sync = nil
	vr.context.Destroy()
	vr.context = nil
	core.LogInfo("Vulkan renderer destroyed.")
}

// frameBackend

func (vr *VulkanRenderer) WaitFence(slot int) error {
	return vr.sync[slot].InFlight.Wait(vr.context, 0)
}

func (vr *VulkanRenderer) ResetFence(slot int) error {
	return vr.sync[slot].InFlight.Reset(vr.context)
}

func (vr *VulkanRenderer) AcquireImage(slot int) (uint32, SurfaceStatus, error) {
	return vr.swapchain.AcquireNextImage(vr.sync[slot].ImageAvailable)
}

func (vr *VulkanRenderer) FlushUniforms() error {
	settings := vr.DebugSettings()
	if err := vr.memory.MapMemory(metadata.UniformGUISetting, metadata.Bytes(settings), 0); err != nil {
		return err
	}
	return vr.uniforms.Flush(vr.memory)
}

func (vr *VulkanRenderer) submit(infos []vk.SubmitInfo, fence vk.Fence, waitIdle bool) error {
	device := vr.context.Device
	return vr.context.Locks.SafeQueueCall(device.GraphicsQueueIndex, func() error {
		if res := vk.QueueSubmit(device.GraphicsQueue, uint32(len(infos)), infos, fence); res != vk.Success {
			return resultError("vkQueueSubmit", res)
		}
		if waitIdle {
			if res := vk.QueueWaitIdle(device.GraphicsQueue); res != vk.Success {
				return resultError("vkQueueWaitIdle", res)
			}
		}
		return nil
	})
}

func (vr *VulkanRenderer) SubmitOffscreen() error {
	handles := make([]vk.CommandBuffer, 0, metadata.PostPassBase)
	recorded := make([]*VulkanCommandBuffer, 0, metadata.PostPassBase)
	for _, cb := range vr.commandBuffers[:metadata.PostPassBase] {
		// Nothing is submitted until the scene recorded the buffer.
		if cb.State != COMMAND_BUFFER_STATE_RECORDING_ENDED && cb.State != COMMAND_BUFFER_STATE_SUBMITTED {
			continue
		}
		handles = append(handles, cb.Handle)
		recorded = append(recorded, cb)
	}
	if len(handles) == 0 {
		return nil
	}
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(handles)),
		PCommandBuffers:    handles,
	}
	if err := vr.submit([]vk.SubmitInfo{info}, vk.NullFence, true); err != nil {
		return err
	}
	for _, cb := range recorded {
		cb.UpdateSubmitted()
	}
	return nil
}

func (vr *VulkanRenderer) SubmitPost(slot int, image uint32) error {
	fs := vr.sync[slot]
	cb := vr.commandBuffers[metadata.PostPassBase+int(image)]
	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{fs.ImageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{fs.RenderFinished},
	}
	if err := vr.submit([]vk.SubmitInfo{info}, fs.InFlight.Handle, false); err != nil {
		return err
	}
	fs.InFlight.MarkSubmitted()
	cb.UpdateSubmitted()
	return nil
}

func (vr *VulkanRenderer) Present(slot int, image uint32) (SurfaceStatus, error) {
	return vr.swapchain.Present(vr.sync[slot].RenderFinished, image)
}

func (vr *VulkanRenderer) WaitDrawable() error {
	if vr.window == nil {
		return nil
	}
	w, h := vr.window.FramebufferSize()
	for w == 0 || h == 0 {
		vr.window.WaitEvents()
		w, h = vr.window.FramebufferSize()
	}
	return nil
}

func (vr *VulkanRenderer) WaitIdle() error {
	return vr.context.Device.WaitIdle()
}

func (vr *VulkanRenderer) CloseSwapchain() error {
	if vr.scoped == nil {
		return nil
	}
	err := vr.scoped.Release()
	vr.scoped = nil
	vr.swapchain = nil
	vr.pipelines = nil
	vr.commandBuffers = nil
	vr.gbuffer = gbuffer{}
	vr.passes = [metadata.RenderPassMax]*VulkanRenderpass{}
	return err
}

func (vr *VulkanRenderer) OpenSwapchain() (int, error) {
	vr.scoped = NewResourceSet("swapchain")

	width, height := uint32(0), uint32(0)
	if vr.window != nil {
		width, height = vr.window.FramebufferSize()
	}
	swapchain, err := NewSwapchain(vr.context, width, height, vr.vsync)
	if err != nil {
		return 0, err
	}
	vr.swapchain = swapchain
	vr.scoped.Track("swapchain", func() error {
		swapchain.Destroy()
		return nil
	})

	if err := vr.createGBuffer(swapchain.Extent.Width, swapchain.Extent.Height); err != nil {
		return 0, err
	}
	return int(swapchain.ImageCount), nil
}

func (vr *VulkanRenderer) AllocateCommandBuffers(count int) error {
	pool := vr.context.Device.GraphicsCommandPool
	buffers, err := AllocateCommandBuffers(vr.context, pool, count)
	if err != nil {
		return err
	}
	vr.commandBuffers = buffers
	vr.scoped.Track("command buffers", func() error {
		FreeCommandBuffers(vr.context, pool, buffers)
		return nil
	})
	return nil
}

func (vr *VulkanRenderer) RecordPasses() error {
	if err := vr.definePasses(); err != nil {
		return err
	}
	if err := vr.definePipelines(); err != nil {
		return err
	}
	return vr.recordPostPasses()
}

// Recording interface used by the scene.

func (vr *VulkanRenderer) AddDrawInfo(info metadata.DrawInfo, id metadata.UniformID) {
	vr.uniforms.Add(info, id)
}

func (vr *VulkanRenderer) MapUniform(id metadata.UniformID, data []byte, offset uint64) error {
	return vr.memory.MapMemory(id, data, offset)
}

func (vr *VulkanRenderer) UniformSlotSize(id metadata.UniformID) uint64 {
	return vr.memory.UniformSlotSize(id)
}

func (vr *VulkanRenderer) commandBuffer(idx metadata.CommandIndex) (*VulkanCommandBuffer, error) {
	if int(idx) >= len(vr.commandBuffers) {
		return nil, fmt.Errorf("command buffer %d of %d", idx, len(vr.commandBuffers))
	}
	return vr.commandBuffers[idx], nil
}

func (vr *VulkanRenderer) BeginCmdBuffer(idx metadata.CommandIndex) error {
	cb, err := vr.commandBuffer(idx)
	if err != nil {
		return err
	}
	return cb.Begin(false, false, false)
}

func (vr *VulkanRenderer) BeginRenderPass(idx metadata.CommandIndex, pass metadata.RenderPassID, framebuffer int) error {
	cb, err := vr.commandBuffer(idx)
	if err != nil {
		return err
	}
	rp := vr.passes[pass]
	if rp == nil || framebuffer >= len(rp.Framebuffers) {
		return fmt.Errorf("render pass %d has no framebuffer %d", pass, framebuffer)
	}
	rp.Begin(cb.Handle, framebuffer)
	cb.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	return nil
}

func (vr *VulkanRenderer) RegisterObject(idx metadata.CommandIndex, set metadata.DescriptorSetID, program metadata.ProgramID, target metadata.DrawTargetID, dynamicOffsets []uint32) error {
	cb, err := vr.commandBuffer(idx)
	if err != nil {
		return err
	}
	pipeline, ok := vr.pipelines.Pipeline(program)
	if !ok {
		return fmt.Errorf("no pipeline for program %s", program)
	}
	ds, ok := vr.pipelines.DescriptorSet(set)
	if !ok {
		return fmt.Errorf("descriptor set %d not created", set)
	}
	return vr.targets.Draw(cb.Handle, pipeline, ds, target, dynamicOffsets)
}

func (vr *VulkanRenderer) EndRenderPass(idx metadata.CommandIndex, pass metadata.RenderPassID) error {
	cb, err := vr.commandBuffer(idx)
	if err != nil {
		return err
	}
	vr.passes[pass].End(cb.Handle)
	cb.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (vr *VulkanRenderer) EndCmdBuffer(idx metadata.CommandIndex) error {
	cb, err := vr.commandBuffer(idx)
	if err != nil {
		return err
	}
	return cb.End()
}

func (vr *VulkanRenderer) Extent() (uint32, uint32) {
	if vr.swapchain == nil {
		return 0, 0
	}
	return vr.swapchain.Extent.Width, vr.swapchain.Extent.Height
}

func (vr *VulkanRenderer) Frames() uint64 {
	return vr.frame.Frames()
}
