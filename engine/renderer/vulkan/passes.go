package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// gbuffer holds the swapchain sized attachments of the geometry pass.
type gbuffer struct {
	colors  [3]*Image
	resolve [3]*Image
	depth   *Image
}

// sampled returns the images read by the lighting pass.
func (g *gbuffer) sampled() [3]*Image {
	if g.resolve[0] != nil {
		return g.resolve
	}
	return g.colors
}

func (vr *VulkanRenderer) createGBuffer(width, height uint32) error {
	samples := vr.context.Device.MSAASamples
	msaa := samples != vk.SampleCount1Bit

	colorUsage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	if msaa {
		colorUsage |= vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit)
	} else {
		colorUsage |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}

	for i, format := range GBufferFormats {
		img, err := vr.memory.CreateImage(ImageConfig{
			Width:    width,
			Height:   height,
			Format:   format,
			Tiling:   vk.ImageTilingOptimal,
			Usage:    colorUsage,
			Memory:   deviceLocal,
			Samples:  samples,
			ViewType: vk.ImageViewType2d,
		})
		if err != nil {
			return err
		}
		vr.gbuffer.colors[i] = vr.scoped.TrackImage(fmt.Sprintf("gbuffer color %d", i), img)

		if !msaa {
			continue
		}
		resolve, err := vr.memory.CreateImage(ImageConfig{
			Width:    width,
			Height:   height,
			Format:   format,
			Tiling:   vk.ImageTilingOptimal,
			Usage:    vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit),
			Memory:   deviceLocal,
			ViewType: vk.ImageViewType2d,
		})
		if err != nil {
			return err
		}
		vr.gbuffer.resolve[i] = vr.scoped.TrackImage(fmt.Sprintf("gbuffer resolve %d", i), resolve)
	}

	depthFormat := vr.context.Device.DepthFormat
	depth, err := vr.memory.CreateImage(ImageConfig{
		Width:    width,
		Height:   height,
		Format:   depthFormat,
		Tiling:   vk.ImageTilingOptimal,
		Usage:    vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Memory:   deviceLocal,
		Samples:  samples,
		ViewType: vk.ImageViewType2d,
		Aspect:   vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	})
	if err != nil {
		return err
	}
	vr.gbuffer.depth = vr.scoped.TrackImage("gbuffer depth", depth)
	return vr.memory.TransitionImageLayout(depth, vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal)
}

func attachmentDescription(format vk.Format, samples vk.SampleCountFlagBits, store vk.AttachmentStoreOp, final vk.ImageLayout) vk.AttachmentDescription {
	return vk.AttachmentDescription{
		Format:         format,
		Samples:        samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        store,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    final,
	}
}

func (vr *VulkanRenderer) definePasses() error {
	extent := vr.swapchain.Extent
	samples := vr.context.Device.MSAASamples

	// One layered framebuffer per light, the geometry shader routes each face.
	shadow := NewRenderpass(vr.context, metadata.RenderPassDepthCubemap)
	shadowViews := make([]vk.ImageView, len(vr.shadowMaps))
	for i, sm := range vr.shadowMaps {
		shadowViews[i] = sm.AttachmentView
	}
	shadow.AddAttachment(attachmentDescription(ShadowMapFormat, vk.SampleCount1Bit, vk.AttachmentStoreOpStore, vk.ImageLayoutShaderReadOnlyOptimal),
		AttachmentDepth, 0, shadowViews)

	pre := NewRenderpass(vr.context, metadata.RenderPassPre)
	location := uint32(0)
	for i, format := range GBufferFormats {
		final := vk.ImageLayoutShaderReadOnlyOptimal
		store := vk.AttachmentStoreOpStore
		if vr.gbuffer.resolve[i] != nil {
			final = vk.ImageLayoutColorAttachmentOptimal
			store = vk.AttachmentStoreOpDontCare
		}
		pre.AddAttachment(attachmentDescription(format, samples, store, final), AttachmentColor, location, []vk.ImageView{vr.gbuffer.colors[i].View})
		location++
	}
	for i, format := range GBufferFormats {
		if vr.gbuffer.resolve[i] == nil {
			continue
		}
		pre.AddAttachment(attachmentDescription(format, vk.SampleCount1Bit, vk.AttachmentStoreOpStore, vk.ImageLayoutShaderReadOnlyOptimal),
			AttachmentResolve, location, []vk.ImageView{vr.gbuffer.resolve[i].View})
		location++
	}
	pre.AddAttachment(attachmentDescription(vr.context.Device.DepthFormat, samples, vk.AttachmentStoreOpDontCare, vk.ImageLayoutDepthStencilAttachmentOptimal),
		AttachmentDepth, location, []vk.ImageView{vr.gbuffer.depth.View})

	post := NewRenderpass(vr.context, metadata.RenderPassPost)
	post.AddAttachment(attachmentDescription(vr.swapchain.ImageFormat.Format, vk.SampleCount1Bit, vk.AttachmentStoreOpStore, vk.ImageLayoutPresentSrc),
		AttachmentColor, 0, vr.swapchain.Views)

	build := []struct {
		rp            *VulkanRenderpass
		width, height uint32
		layers        uint32
		count         int
	}{
		{shadow, vr.shadowMapSize, vr.shadowMapSize, 6, len(vr.shadowMaps)},
		{pre, extent.Width, extent.Height, 1, 1},
		{post, extent.Width, extent.Height, 1, len(vr.swapchain.Views)},
	}
	for _, b := range build {
		rp := b.rp
		vr.passes[rp.ID] = rp
		vr.scoped.Track(fmt.Sprintf("render pass %d", rp.ID), func() error {
			rp.Destroy()
			return nil
		})
		if err := rp.Create(); err != nil {
			return err
		}
		if err := rp.CreateFramebuffers(b.width, b.height, b.layers, b.count); err != nil {
			return err
		}
	}
	return nil
}

// descriptorSetPrograms lists the program layout of every descriptor set.
var descriptorSetPrograms = [metadata.DescriptorSetMax]metadata.ProgramID{
	metadata.DescriptorSetShadowMap:   metadata.ProgramShadowMap,
	metadata.DescriptorSetObject:      metadata.ProgramBaseRender,
	metadata.DescriptorSetLightObject: metadata.ProgramDiffuse,
	metadata.DescriptorSetDeferred:    metadata.ProgramDeferred,
}

func (vr *VulkanRenderer) definePipelines() error {
	pm := NewPipelineManager(vr.context, vr.shaders)
	vr.pipelines = pm
	vr.scoped.Track("pipelines", pm.Destroy)

	if err := pm.CreatePrograms(descriptorSetPrograms[:]); err != nil {
		return err
	}

	extent := vr.swapchain.Extent
	samples := vr.context.Device.MSAASamples
	configs := map[metadata.ProgramID]PipelineConfig{
		metadata.ProgramShadowMap: {
			Renderpass: vr.passes[metadata.RenderPassDepthCubemap],
			Samples:    vk.SampleCount1Bit,
			Vertex:     LayoutPosNormal,
			Width:      vr.shadowMapSize,
			Height:     vr.shadowMapSize,
			DepthTest:  true,
		},
		metadata.ProgramBaseRender: {
			Renderpass:       vr.passes[metadata.RenderPassPre],
			Samples:          samples,
			Vertex:           LayoutPosNormal,
			ColorAttachments: len(GBufferFormats),
			Width:            extent.Width,
			Height:           extent.Height,
			DepthTest:        true,
		},
		metadata.ProgramDiffuse: {
			Renderpass:       vr.passes[metadata.RenderPassPre],
			Samples:          samples,
			Vertex:           LayoutPosNormal,
			ColorAttachments: len(GBufferFormats),
			Width:            extent.Width,
			Height:           extent.Height,
			DepthTest:        true,
		},
		metadata.ProgramDeferred: {
			Renderpass:       vr.passes[metadata.RenderPassPost],
			Samples:          vk.SampleCount1Bit,
			Vertex:           LayoutPosTex,
			ColorAttachments: 1,
			Width:            extent.Width,
			Height:           extent.Height,
		},
	}
	for id := metadata.ProgramID(0); id < metadata.ProgramMax; id++ {
		if err := pm.CreatePipeline(id, configs[id]); err != nil {
			return err
		}
	}
	return vr.defineDescriptorSets()
}

func (vr *VulkanRenderer) uniformData(binding uint32, id metadata.UniformID, dynamic bool) DescriptorData {
	t := vk.DescriptorTypeUniformBuffer
	if dynamic {
		t = vk.DescriptorTypeUniformBufferDynamic
	}
	buffer, _ := vr.memory.UniformBuffer(id)
	return DescriptorData{Binding: binding, Type: t, Buffers: []*Buffer{buffer}}
}

func (vr *VulkanRenderer) imageData(binding uint32, images ...*Image) DescriptorData {
	infos := make([]DescriptorImage, len(images))
	for i, img := range images {
		infos[i] = DescriptorImage{View: img.View, Sampler: vr.sampler, Layout: vk.ImageLayoutShaderReadOnlyOptimal}
	}
	return DescriptorData{Binding: binding, Type: vk.DescriptorTypeCombinedImageSampler, Images: infos}
}

func (vr *VulkanRenderer) defineDescriptorSets() error {
	g := vr.gbuffer.sampled()
	data := map[metadata.DescriptorSetID][]DescriptorData{
		metadata.DescriptorSetShadowMap: {
			vr.uniformData(0, metadata.UniformObjectMatrix, true),
			vr.uniformData(1, metadata.UniformLightProj, true),
		},
		metadata.DescriptorSetObject: {
			vr.uniformData(0, metadata.UniformCameraTransform, false),
			vr.uniformData(1, metadata.UniformObjectMatrix, true),
		},
		metadata.DescriptorSetLightObject: {
			vr.uniformData(0, metadata.UniformCameraTransform, false),
			vr.uniformData(1, metadata.UniformLightObjectMatrix, true),
		},
		metadata.DescriptorSetDeferred: {
			vr.uniformData(0, metadata.UniformCameraTransform, false),
			vr.uniformData(1, metadata.UniformGUISetting, false),
			vr.uniformData(2, metadata.UniformLightData, false),
			vr.imageData(3, g[0]),
			vr.imageData(4, g[1]),
			vr.imageData(5, g[2]),
			vr.imageData(6, vr.shadowMaps[:]...),
			vr.imageData(7, vr.noise),
		},
	}
	for id := metadata.DescriptorSetID(0); id < metadata.DescriptorSetMax; id++ {
		if _, err := vr.pipelines.CreateDescriptorSet(id, descriptorSetPrograms[id], data[id]); err != nil {
			return fmt.Errorf("descriptor set %d: %w", id, err)
		}
	}
	return nil
}

// recordPostPasses records the lighting pass of every swapchain image.
func (vr *VulkanRenderer) recordPostPasses() error {
	pipeline, _ := vr.pipelines.Pipeline(metadata.ProgramDeferred)
	set, _ := vr.pipelines.DescriptorSet(metadata.DescriptorSetDeferred)
	post := vr.passes[metadata.RenderPassPost]

	for i := range vr.swapchain.Images {
		cb := vr.commandBuffers[metadata.PostPassBase+i]
		if err := cb.Begin(false, false, false); err != nil {
			return err
		}
		post.Begin(cb.Handle, i)
		cb.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
		if err := vr.targets.Draw(cb.Handle, pipeline, set, metadata.DrawTargetRectangle, nil); err != nil {
			return err
		}
		post.End(cb.Handle)
		if err := cb.End(); err != nil {
			return err
		}
	}
	return nil
}
