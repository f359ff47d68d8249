package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
)

type mipBlit struct {
	// Destination level, the source is Level-1.
	Level     uint32
	SrcWidth  int32
	SrcHeight int32
	DstWidth  int32
	DstHeight int32
}

// mipBlitPlan lists the half size blits producing levels 1..levels-1.
func mipBlitPlan(width, height, levels uint32) []mipBlit {
	if levels < 2 {
		return nil
	}
	plan := make([]mipBlit, 0, levels-1)
	w, h := int32(width), int32(height)
	for level := uint32(1); level < levels; level++ {
		dw, dh := max(w/2, 1), max(h/2, 1)
		plan = append(plan, mipBlit{Level: level, SrcWidth: w, SrcHeight: h, DstWidth: dw, DstHeight: dh})
		w, h = dw, dh
	}
	return plan
}

func checkLinearBlit(format vk.Format, features vk.FormatFeatureFlags) error {
	if features&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit) == 0 {
		return fmt.Errorf("format %d does not support linear blitting: %w", format, core.ErrUnsupportedFormat)
	}
	return nil
}

func mipBarrier(img *Image, level uint32, from, to vk.ImageLayout, srcAccess, dstAccess vk.AccessFlagBits) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		Image:               img.Handle,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		OldLayout:           from,
		NewLayout:           to,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   level,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
}

// generateMipmaps expects every level in TRANSFER_DST_OPTIMAL and leaves them in
// SHADER_READ_ONLY_OPTIMAL. Nothing is recorded when the format cannot be blitted
// or the image has no levels.
func generateMipmaps(submitter OneShotSubmitter, features vk.FormatFeatureFlags, img *Image, width, height, levels uint32) error {
	if err := checkLinearBlit(img.Format, features); err != nil {
		return err
	}
	if levels == 0 {
		return nil
	}
	plan := mipBlitPlan(width, height, levels)

	return submitter.Submit(func(cmd vk.CommandBuffer) {
		transfer := vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		fragment := vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)

		for _, step := range plan {
			src := step.Level - 1
			vk.CmdPipelineBarrier(cmd, transfer, transfer, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{
				mipBarrier(img, src, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, vk.AccessTransferWriteBit, vk.AccessTransferReadBit),
			})

			vk.CmdBlitImage(cmd,
				img.Handle, vk.ImageLayoutTransferSrcOptimal,
				img.Handle, vk.ImageLayoutTransferDstOptimal,
				1, []vk.ImageBlit{{
					SrcSubresource: vk.ImageSubresourceLayers{
						AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
						MipLevel:   src,
						LayerCount: 1,
					},
					SrcOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: step.SrcWidth, Y: step.SrcHeight, Z: 1}},
					DstSubresource: vk.ImageSubresourceLayers{
						AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
						MipLevel:   step.Level,
						LayerCount: 1,
					},
					DstOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: step.DstWidth, Y: step.DstHeight, Z: 1}},
				}},
				vk.FilterLinear)

			vk.CmdPipelineBarrier(cmd, transfer, fragment, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{
				mipBarrier(img, src, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, vk.AccessTransferReadBit, vk.AccessShaderReadBit),
			})
		}

		// The last level was only ever written.
		vk.CmdPipelineBarrier(cmd, transfer, fragment, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{
			mipBarrier(img, levels-1, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, vk.AccessTransferWriteBit, vk.AccessShaderReadBit),
		})
	})
}

// GenerateMipmaps fills levels 1..levels-1 of img by successive linear blits.
func (m *MemoryManager) GenerateMipmaps(img *Image, width, height, levels uint32) error {
	features := m.context.Device.optimalFeatures(img.Format)
	return generateMipmaps(m.submitter, features, img, width, height, levels)
}
