package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

type AttachmentKind int

const (
	AttachmentColor AttachmentKind = iota
	AttachmentResolve
	AttachmentDepth
)

type Attachment struct {
	Description vk.AttachmentDescription
	Kind        AttachmentKind
	// Index of the attachment inside the render pass and its framebuffers.
	Location uint32
	// One view shared by every framebuffer, or one view per framebuffer.
	Views []vk.ImageView
	Clear vk.ClearValue
}

type VulkanRenderpass struct {
	ID           metadata.RenderPassID
	Handle       vk.RenderPass
	Attachments  []Attachment
	Framebuffers []*VulkanFramebuffer
	Width        uint32
	Height       uint32

	context *VulkanContext
}

func NewRenderpass(context *VulkanContext, id metadata.RenderPassID) *VulkanRenderpass {
	return &VulkanRenderpass{ID: id, context: context}
}

func (vr *VulkanRenderpass) AddAttachment(desc vk.AttachmentDescription, kind AttachmentKind, location uint32, views []vk.ImageView) {
	attachment := Attachment{
		Description: desc,
		Kind:        kind,
		Location:    location,
		Views:       views,
	}
	if kind == AttachmentDepth {
		attachment.Clear.SetDepthStencil(1.0, 0)
	} else {
		attachment.Clear.SetColor([]float32{0.0, 0.0, 0.0, 1.0})
	}
	vr.Attachments = append(vr.Attachments, attachment)
}

type subpassRefs struct {
	colors   []vk.AttachmentReference
	resolves []vk.AttachmentReference
	depth    *vk.AttachmentReference
}

// buildSubpassRefs checks the attachment set and derives the references of the
// single subpass.
func buildSubpassRefs(attachments []Attachment) (subpassRefs, error) {
	refs := subpassRefs{}
	seen := make(map[uint32]bool, len(attachments))
	var samples vk.SampleCountFlagBits

	for _, a := range attachments {
		if a.Location >= uint32(len(attachments)) || seen[a.Location] {
			return refs, fmt.Errorf("attachment location %d is duplicated or out of range: %w", a.Location, core.ErrResourceCreation)
		}
		seen[a.Location] = true

		switch a.Kind {
		case AttachmentColor:
			refs.colors = append(refs.colors, vk.AttachmentReference{Attachment: a.Location, Layout: vk.ImageLayoutColorAttachmentOptimal})
		case AttachmentResolve:
			refs.resolves = append(refs.resolves, vk.AttachmentReference{Attachment: a.Location, Layout: vk.ImageLayoutColorAttachmentOptimal})
			if a.Description.Samples != vk.SampleCount1Bit {
				return refs, fmt.Errorf("resolve attachment %d is multisampled: %w", a.Location, core.ErrResourceCreation)
			}
			continue
		case AttachmentDepth:
			if refs.depth != nil {
				return refs, fmt.Errorf("more than one depth attachment: %w", core.ErrResourceCreation)
			}
			refs.depth = &vk.AttachmentReference{Attachment: a.Location, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
		}

		if samples == 0 {
			samples = a.Description.Samples
		} else if samples != a.Description.Samples {
			return refs, fmt.Errorf("attachment %d has %d samples, expected %d: %w", a.Location, a.Description.Samples, samples, core.ErrResourceCreation)
		}
	}

	if len(refs.resolves) > 0 && len(refs.resolves) != len(refs.colors) {
		return refs, fmt.Errorf("%d resolve attachments for %d color attachments: %w", len(refs.resolves), len(refs.colors), core.ErrResourceCreation)
	}
	return refs, nil
}

func (vr *VulkanRenderpass) Create() error {
	refs, err := buildSubpassRefs(vr.Attachments)
	if err != nil {
		return fmt.Errorf("render pass %d: %w", vr.ID, err)
	}

	descriptions := make([]vk.AttachmentDescription, len(vr.Attachments))
	for _, a := range vr.Attachments {
		descriptions[a.Location] = a.Description
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(refs.colors)),
		PColorAttachments:       refs.colors,
		PResolveAttachments:     refs.resolves,
		PDepthStencilAttachment: refs.depth,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descriptions)),
		PAttachments:    descriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(vr.context.Device.LogicalDevice, &createInfo, vr.context.Allocator, &handle); res != vk.Success {
		return resultError("vkCreateRenderPass", res)
	}
	vr.Handle = handle
	return nil
}

// framebufferViews orders the views of framebuffer i by attachment location.
func framebufferViews(attachments []Attachment, i int) ([]vk.ImageView, error) {
	views := make([]vk.ImageView, len(attachments))
	for _, a := range attachments {
		switch {
		case len(a.Views) == 1:
			views[a.Location] = a.Views[0]
		case i < len(a.Views):
			views[a.Location] = a.Views[i]
		default:
			return nil, fmt.Errorf("attachment %d has %d views, framebuffer %d requested: %w", a.Location, len(a.Views), i, core.ErrResourceCreation)
		}
	}
	return views, nil
}

// CreateFramebuffers creates count framebuffers of the given size and layer count.
func (vr *VulkanRenderpass) CreateFramebuffers(width, height, layers uint32, count int) error {
	vr.Width, vr.Height = width, height
	for i := 0; i < count; i++ {
		views, err := framebufferViews(vr.Attachments, i)
		if err != nil {
			return err
		}
		fb, err := NewFramebuffer(vr.context, vr, width, height, layers, views)
		if err != nil {
			return err
		}
		vr.Framebuffers = append(vr.Framebuffers, fb)
	}
	return nil
}

func (vr *VulkanRenderpass) clearValues() []vk.ClearValue {
	values := make([]vk.ClearValue, len(vr.Attachments))
	for _, a := range vr.Attachments {
		values[a.Location] = a.Clear
	}
	return values
}

func (vr *VulkanRenderpass) Begin(cmd vk.CommandBuffer, framebuffer int) {
	clearValues := vr.clearValues()
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: vr.Framebuffers[framebuffer].Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: vr.Width, Height: vr.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cmd, &beginInfo, vk.SubpassContentsInline)
}

func (vr *VulkanRenderpass) End(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

func (vr *VulkanRenderpass) Destroy() {
	for _, fb := range vr.Framebuffers {
		fb.Destroy(vr.context)
	}
	vr.Framebuffers = nil
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(vr.context.Device.LogicalDevice, vr.Handle, vr.context.Allocator)
		vr.Handle = vk.NullRenderPass
	}
	vr.Attachments = nil
}
