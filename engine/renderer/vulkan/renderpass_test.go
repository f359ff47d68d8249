package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attachment(kind AttachmentKind, location uint32, samples vk.SampleCountFlagBits, views ...vk.ImageView) Attachment {
	return Attachment{
		Description: vk.AttachmentDescription{Format: vk.FormatR8g8b8a8Unorm, Samples: samples},
		Kind:        kind,
		Location:    location,
		Views:       views,
	}
}

func TestBuildSubpassRefsGeometryPass(t *testing.T) {
	attachments := []Attachment{
		attachment(AttachmentColor, 0, vk.SampleCount4Bit),
		attachment(AttachmentColor, 1, vk.SampleCount4Bit),
		attachment(AttachmentColor, 2, vk.SampleCount4Bit),
		attachment(AttachmentResolve, 3, vk.SampleCount1Bit),
		attachment(AttachmentResolve, 4, vk.SampleCount1Bit),
		attachment(AttachmentResolve, 5, vk.SampleCount1Bit),
		attachment(AttachmentDepth, 6, vk.SampleCount4Bit),
	}
	refs, err := buildSubpassRefs(attachments)
	require.NoError(t, err)

	require.Len(t, refs.colors, 3)
	require.Len(t, refs.resolves, 3)
	require.NotNil(t, refs.depth)
	for i := range refs.colors {
		assert.Equal(t, uint32(i), refs.colors[i].Attachment)
		assert.Equal(t, uint32(i+3), refs.resolves[i].Attachment)
		assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, refs.colors[i].Layout)
	}
	assert.Equal(t, uint32(6), refs.depth.Attachment)
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, refs.depth.Layout)
}

func TestBuildSubpassRefsDepthOnly(t *testing.T) {
	refs, err := buildSubpassRefs([]Attachment{attachment(AttachmentDepth, 0, vk.SampleCount1Bit)})
	require.NoError(t, err)
	assert.Empty(t, refs.colors)
	assert.Empty(t, refs.resolves)
	require.NotNil(t, refs.depth)
}

func TestBuildSubpassRefsRejectsInvalidSets(t *testing.T) {
	cases := map[string][]Attachment{
		"duplicate location": {
			attachment(AttachmentColor, 0, vk.SampleCount1Bit),
			attachment(AttachmentColor, 0, vk.SampleCount1Bit),
		},
		"location out of range": {
			attachment(AttachmentColor, 2, vk.SampleCount1Bit),
		},
		"two depth attachments": {
			attachment(AttachmentDepth, 0, vk.SampleCount1Bit),
			attachment(AttachmentDepth, 1, vk.SampleCount1Bit),
		},
		"mixed sample counts": {
			attachment(AttachmentColor, 0, vk.SampleCount4Bit),
			attachment(AttachmentDepth, 1, vk.SampleCount1Bit),
		},
		"multisampled resolve": {
			attachment(AttachmentColor, 0, vk.SampleCount4Bit),
			attachment(AttachmentResolve, 1, vk.SampleCount4Bit),
		},
		"resolve count mismatch": {
			attachment(AttachmentColor, 0, vk.SampleCount4Bit),
			attachment(AttachmentColor, 1, vk.SampleCount4Bit),
			attachment(AttachmentResolve, 2, vk.SampleCount1Bit),
		},
	}
	for name, attachments := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := buildSubpassRefs(attachments)
			assert.ErrorIs(t, err, core.ErrResourceCreation)
		})
	}
}

func TestFramebufferViewsOrdersByLocation(t *testing.T) {
	views := fakeViews(4)
	swapchain := views[:3]
	depth := views[3]

	attachments := []Attachment{
		attachment(AttachmentDepth, 1, vk.SampleCount1Bit, depth),
		attachment(AttachmentColor, 0, vk.SampleCount1Bit, swapchain...),
	}
	for i := 0; i < 3; i++ {
		got, err := framebufferViews(attachments, i)
		require.NoError(t, err)
		// Handles point at incomplete C types; compare them by identity.
		require.Len(t, got, 2)
		assert.True(t, got[0] == swapchain[i], "framebuffer %d color view", i)
		assert.True(t, got[1] == depth, "framebuffer %d depth view", i)
	}

	_, err := framebufferViews(attachments, 3)
	assert.ErrorIs(t, err, core.ErrResourceCreation)
}

func TestAddAttachmentClearValues(t *testing.T) {
	rp := NewRenderpass(nil, 0)
	rp.AddAttachment(vk.AttachmentDescription{Format: vk.FormatD16Unorm}, AttachmentDepth, 1, nil)
	rp.AddAttachment(vk.AttachmentDescription{Format: vk.FormatR8g8b8a8Unorm}, AttachmentColor, 0, nil)

	var depth, color vk.ClearValue
	depth.SetDepthStencil(1.0, 0)
	color.SetColor([]float32{0, 0, 0, 1})

	assert.Equal(t, []vk.ClearValue{color, depth}, rp.clearValues())
}
