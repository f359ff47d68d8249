package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/umbra/engine/core"
	emath "github.com/spaghettifunk/umbra/engine/math"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

const (
	hostVisibleCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	deviceLocal         = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
)

// MemoryManager creates buffers and images and owns the persistently mapped
// uniform buffers.
type MemoryManager struct {
	context   *VulkanContext
	submitter OneShotSubmitter
	uniforms  map[metadata.UniformID]*Buffer
}

func NewMemoryManager(context *VulkanContext, submitter OneShotSubmitter) *MemoryManager {
	return &MemoryManager{
		context:   context,
		submitter: submitter,
		uniforms:  make(map[metadata.UniformID]*Buffer),
	}
}

// findMemoryType returns the lowest memory type index allowed by filter whose
// flags contain every bit of props.
func findMemoryType(types []vk.MemoryPropertyFlags, filter uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	for i, flags := range types {
		if filter&(1<<uint(i)) == 0 {
			continue
		}
		if flags&props == props {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("filter %#b with properties %#x: %w", filter, props, core.ErrNoSuitableMemoryType)
}

func (m *MemoryManager) memoryTypes() []vk.MemoryPropertyFlags {
	memory := m.context.Device.Memory
	out := make([]vk.MemoryPropertyFlags, memory.MemoryTypeCount)
	for i := range out {
		memory.MemoryTypes[i].Deref()
		out[i] = memory.MemoryTypes[i].PropertyFlags
	}
	return out
}

// FindMemoryType resolves a memory type on the current physical device.
func (m *MemoryManager) FindMemoryType(filter uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	return findMemoryType(m.memoryTypes(), filter, props)
}

func (m *MemoryManager) allocate(requirements vk.MemoryRequirements, props vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	memoryType, err := m.FindMemoryType(requirements.MemoryTypeBits, props)
	if err != nil {
		return vk.NullDeviceMemory, err
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	err = m.context.Locks.SafeCall(MemoryManagement, func() error {
		if res := vk.AllocateMemory(m.context.Device.LogicalDevice, &allocateInfo, m.context.Allocator, &memory); res != vk.Success {
			return resultError("vkAllocateMemory", res)
		}
		return nil
	})
	if err != nil {
		return vk.NullDeviceMemory, err
	}
	return memory, nil
}

func (m *MemoryManager) CreateBuffer(size uint64, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags, kind BufferUsage) (*Buffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("zero sized %s buffer: %w", kind, core.ErrResourceCreation)
	}
	device := m.context.Device.LogicalDevice
	buffer := &Buffer{
		ID:        uuid.New(),
		Size:      size,
		Usage:     kind,
		device:    device,
		allocator: m.context.Allocator,
	}

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(device, &createInfo, m.context.Allocator, &buffer.Handle); res != vk.Success {
		return nil, resultError("vkCreateBuffer", res)
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buffer.Handle, &requirements)
	requirements.Deref()

	memory, err := m.allocate(requirements, props)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(device, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		buffer.Destroy()
		return nil, resultError("vkBindBufferMemory", res)
	}
	return buffer, nil
}

func (m *MemoryManager) copyBuffer(src, dst *Buffer, size uint64) error {
	return m.submitter.Submit(func(cmd vk.CommandBuffer) {
		vk.CmdCopyBuffer(cmd, src.Handle, dst.Handle, 1, []vk.BufferCopy{{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      vk.DeviceSize(size),
		}})
	})
}

func (m *MemoryManager) createStaging(data []byte) (*Buffer, error) {
	staging, err := m.CreateBuffer(uint64(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisibleCoherent, BufferUsageStaging)
	if err != nil {
		return nil, err
	}
	if err := staging.mapMemory(); err != nil {
		staging.Destroy()
		return nil, err
	}
	if err := staging.Write(data, 0); err != nil {
		staging.Destroy()
		return nil, err
	}
	return staging, nil
}

// createDeviceLocal uploads data into a new device local buffer through a staging buffer.
func (m *MemoryManager) createDeviceLocal(data []byte, usage vk.BufferUsageFlagBits, kind BufferUsage) (*Buffer, error) {
	staging, err := m.createStaging(data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	flags := vk.BufferUsageFlags(usage | vk.BufferUsageTransferDstBit | vk.BufferUsageTransferSrcBit)
	buffer, err := m.CreateBuffer(uint64(len(data)), flags, deviceLocal, kind)
	if err != nil {
		return nil, err
	}
	if err := m.copyBuffer(staging, buffer, uint64(len(data))); err != nil {
		buffer.Destroy()
		return nil, err
	}
	core.LogDebug("Uploaded %d bytes into %s buffer %s", len(data), kind, buffer.ID)
	return buffer, nil
}

func (m *MemoryManager) CreateVertexBuffer(data []byte) (*Buffer, error) {
	return m.createDeviceLocal(data, vk.BufferUsageVertexBufferBit, BufferUsageVertex)
}

func (m *MemoryManager) CreateIndexBuffer(data []byte) (*Buffer, error) {
	return m.createDeviceLocal(data, vk.BufferUsageIndexBufferBit, BufferUsageIndex)
}

func (m *MemoryManager) CreateInstanceBuffer(data []byte) (*Buffer, error) {
	return m.createDeviceLocal(data, vk.BufferUsageVertexBufferBit, BufferUsageInstance)
}

// ReadBuffer copies a device local buffer back to the host.
func (m *MemoryManager) ReadBuffer(src *Buffer) ([]byte, error) {
	staging, err := m.CreateBuffer(src.Size, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), hostVisibleCoherent, BufferUsageStaging)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	if err := m.copyBuffer(src, staging, src.Size); err != nil {
		return nil, err
	}
	if err := staging.mapMemory(); err != nil {
		return nil, err
	}
	return staging.Bytes(), nil
}

// CreateUniformBuffer creates a persistently mapped buffer of count slots. Each
// slot is size rounded up to the device uniform offset alignment.
func (m *MemoryManager) CreateUniformBuffer(id metadata.UniformID, size uint64, count uint32) (*Buffer, error) {
	if _, exists := m.UniformBuffer(id); exists {
		return nil, fmt.Errorf("uniform buffer %d already exists: %w", id, core.ErrResourceCreation)
	}
	if count == 0 {
		count = 1
	}
	slot := emath.AlignUp(size, m.context.Device.MinUniformAlignment())
	buffer, err := m.CreateBuffer(slot*uint64(count), vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostVisibleCoherent, BufferUsageUniform)
	if err != nil {
		return nil, err
	}
	buffer.SlotSize = slot
	buffer.SlotCount = count
	if err := buffer.mapMemory(); err != nil {
		buffer.Destroy()
		return nil, err
	}
	if err := m.registerUniform(id, buffer); err != nil {
		buffer.Destroy()
		return nil, err
	}
	return buffer, nil
}

func (m *MemoryManager) registerUniform(id metadata.UniformID, buffer *Buffer) error {
	return m.context.Locks.SafeCall(ResourceManagement, func() error {
		if _, exists := m.uniforms[id]; exists {
			return fmt.Errorf("uniform buffer %d already exists: %w", id, core.ErrResourceCreation)
		}
		m.uniforms[id] = buffer
		return nil
	})
}

func (m *MemoryManager) UniformBuffer(id metadata.UniformID) (*Buffer, bool) {
	var (
		b  *Buffer
		ok bool
	)
	_ = m.context.Locks.SafeCall(ResourceManagement, func() error {
		b, ok = m.uniforms[id]
		return nil
	})
	return b, ok
}

// UniformSlotSize is the aligned slot size of a uniform buffer, 0 when unknown.
func (m *MemoryManager) UniformSlotSize(id metadata.UniformID) uint64 {
	if b, ok := m.UniformBuffer(id); ok {
		return b.SlotSize
	}
	return 0
}

// MapMemory copies data into the uniform buffer id at offset.
func (m *MemoryManager) MapMemory(id metadata.UniformID, data []byte, offset uint64) error {
	buffer, ok := m.UniformBuffer(id)
	if !ok {
		return fmt.Errorf("unknown uniform buffer %d", id)
	}
	return buffer.Write(data, offset)
}

func (m *MemoryManager) CreateImage(config ImageConfig) (*Image, error) {
	cfg := config.withDefaults()
	device := m.context.Device.LogicalDevice
	img := &Image{
		ID:        uuid.New(),
		Width:     cfg.Width,
		Height:    cfg.Height,
		Format:    cfg.Format,
		Samples:   cfg.Samples,
		MipLevels: cfg.MipLevels,
		Layers:    cfg.Layers,
		Aspect:    cfg.Aspect,
		device:    device,
		allocator: m.context.Allocator,
	}

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     cfg.Flags,
		ImageType: vk.ImageType2d,
		Format:    cfg.Format,
		Extent: vk.Extent3D{
			Width:  cfg.Width,
			Height: cfg.Height,
			Depth:  1,
		},
		MipLevels:     cfg.MipLevels,
		ArrayLayers:   cfg.Layers,
		Samples:       cfg.Samples,
		Tiling:        cfg.Tiling,
		Usage:         cfg.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if res := vk.CreateImage(device, &createInfo, m.context.Allocator, &img.Handle); res != vk.Success {
		return nil, resultError("vkCreateImage", res)
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, img.Handle, &requirements)
	requirements.Deref()

	memory, err := m.allocate(requirements, cfg.Memory)
	if err != nil {
		img.Destroy()
		return nil, err
	}
	img.Memory = memory

	if res := vk.BindImageMemory(device, img.Handle, img.Memory, 0); res != vk.Success {
		img.Destroy()
		return nil, resultError("vkBindImageMemory", res)
	}

	viewType := cfg.ViewType
	if viewType == vk.ImageViewType2d && cfg.Layers > 1 {
		viewType = vk.ImageViewType2dArray
	}
	view, err := m.CreateImageView(img, viewType, cfg.Aspect, cfg.Layers)
	if err != nil {
		img.Destroy()
		return nil, err
	}
	img.View = view
	return img, nil
}

func (m *MemoryManager) CreateImageView(img *Image, viewType vk.ImageViewType, aspect vk.ImageAspectFlags, layers uint32) (vk.ImageView, error) {
	return createImageView(m.context, img.Handle, img.Format, viewType, aspect, img.MipLevels, layers)
}

func createImageView(context *VulkanContext, image vk.Image, format vk.Format, viewType vk.ImageViewType, aspect vk.ImageAspectFlags, mipLevels, layers uint32) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     layers,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
		return nil, resultError("vkCreateImageView", res)
	}
	return view, nil
}

// CreateTextureImage uploads RGBA8 pixels and fills the whole mip chain.
func (m *MemoryManager) CreateTextureImage(pixels []byte, width, height uint32) (*Image, error) {
	if uint64(len(pixels)) != uint64(width)*uint64(height)*4 {
		return nil, fmt.Errorf("texture %dx%d needs %d bytes, got %d", width, height, width*height*4, len(pixels))
	}
	staging, err := m.createStaging(pixels)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	levels := emath.MipLevels(width, height)
	img, err := m.CreateImage(ImageConfig{
		Width:     width,
		Height:    height,
		Format:    vk.FormatR8g8b8a8Unorm,
		Tiling:    vk.ImageTilingOptimal,
		Usage:     vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		Memory:    deviceLocal,
		MipLevels: levels,
		ViewType:  vk.ImageViewType2d,
	})
	if err != nil {
		return nil, err
	}

	if err := m.TransitionImageLayout(img, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		img.Destroy()
		return nil, err
	}
	err = m.submitter.Submit(func(cmd vk.CommandBuffer) {
		vk.CmdCopyBufferToImage(cmd, staging.Handle, img.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
			BufferOffset: 0,
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageOffset: vk.Offset3D{},
			ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
		}})
	})
	if err != nil {
		img.Destroy()
		return nil, err
	}
	// Leaves every level in SHADER_READ_ONLY_OPTIMAL.
	if err := m.GenerateMipmaps(img, width, height, levels); err != nil {
		img.Destroy()
		return nil, err
	}
	return img, nil
}

// CreateShadowMap creates a cube compatible depth image. View samples it as a
// cube and AttachmentView renders all six faces at once.
func (m *MemoryManager) CreateShadowMap(size uint32) (*Image, error) {
	img, err := m.CreateImage(ImageConfig{
		Width:    size,
		Height:   size,
		Format:   ShadowMapFormat,
		Tiling:   vk.ImageTilingOptimal,
		Usage:    vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageSampledBit),
		Memory:   deviceLocal,
		Layers:   6,
		Flags:    vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit),
		ViewType: vk.ImageViewTypeCube,
		Aspect:   vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	})
	if err != nil {
		return nil, err
	}
	view, err := m.CreateImageView(img, vk.ImageViewType2dArray, img.Aspect, 6)
	if err != nil {
		img.Destroy()
		return nil, err
	}
	img.AttachmentView = view
	return img, nil
}

// Destroy releases every uniform buffer.
func (m *MemoryManager) Destroy() {
	_ = m.context.Locks.SafeCall(ResourceManagement, func() error {
		for id, buffer := range m.uniforms {
			if err := buffer.Destroy(); err != nil {
				core.LogWarn("uniform buffer %d: %s", id, err)
			}
			delete(m.uniforms, id)
		}
		return nil
	})
}
