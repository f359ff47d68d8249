package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
)

type layoutTransition struct {
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
}

type layoutPair struct {
	from vk.ImageLayout
	to   vk.ImageLayout
}

var layoutTransitions = map[layoutPair]layoutTransition{
	{vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal}: {
		srcAccess: 0,
		dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	{vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
	},
	{vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal}: {
		srcAccess: 0,
		dstAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
	},
}

// transitionFor looks up the barrier masks of a supported layout change.
func transitionFor(from, to vk.ImageLayout) (layoutTransition, error) {
	t, ok := layoutTransitions[layoutPair{from, to}]
	if !ok {
		return layoutTransition{}, fmt.Errorf("layout %d -> %d: %w", from, to, core.ErrUnsupportedLayoutTransition)
	}
	return t, nil
}

// transitionAspect picks the aspect of the barrier. Depth attachments cover the
// stencil component too when the format has one.
func transitionAspect(format vk.Format, to vk.ImageLayout) vk.ImageAspectFlags {
	if to == vk.ImageLayoutDepthStencilAttachmentOptimal {
		return depthAspect(format)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func transitionImageLayout(submitter OneShotSubmitter, img *Image, from, to vk.ImageLayout) error {
	t, err := transitionFor(from, to)
	if err != nil {
		return err
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     transitionAspect(img.Format, to),
			BaseMipLevel:   0,
			LevelCount:     img.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     img.Layers,
		},
		SrcAccessMask: t.srcAccess,
		DstAccessMask: t.dstAccess,
	}
	return submitter.Submit(func(cmd vk.CommandBuffer) {
		vk.CmdPipelineBarrier(cmd, t.srcStage, t.dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	})
}

// TransitionImageLayout moves every level and layer of img from one layout to another.
func (m *MemoryManager) TransitionImageLayout(img *Image, from, to vk.ImageLayout) error {
	return transitionImageLayout(m.submitter, img, from, to)
}
