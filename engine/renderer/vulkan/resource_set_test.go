package vulkan

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceSetReleasesInReverseOrder(t *testing.T) {
	rs := NewResourceSet("test")
	var order []string
	for _, name := range []string{"swapchain", "gbuffer", "passes"} {
		name := name
		rs.Track(name, func() error {
			order = append(order, name)
			return nil
		})
	}
	assert.Equal(t, 3, rs.Len())

	require.NoError(t, rs.Release())
	assert.Equal(t, []string{"passes", "gbuffer", "swapchain"}, order)
	assert.Zero(t, rs.Len())
}

func TestResourceSetReleaseOnce(t *testing.T) {
	rs := NewResourceSet("test")
	calls := 0
	rs.Track("a", func() error { calls++; return nil })

	require.NoError(t, rs.Release())
	assert.ErrorIs(t, rs.Release(), core.ErrDoubleFree)
	assert.Equal(t, 1, calls)
}

func TestResourceSetJoinsErrors(t *testing.T) {
	rs := NewResourceSet("test")
	first := errors.New("first")
	second := errors.New("second")
	released := false
	rs.Track("a", func() error { return first })
	rs.Track("b", func() error { released = true; return nil })
	rs.Track("c", func() error { return second })

	err := rs.Release()
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.True(t, released)
}

func TestResourceSetTrackAfterRelease(t *testing.T) {
	rs := NewResourceSet("test")
	require.NoError(t, rs.Release())

	released := false
	rs.Track("late", func() error { released = true; return nil })
	assert.True(t, released)
	assert.Zero(t, rs.Len())
}

func TestResourceSetTracksBuffersAndImages(t *testing.T) {
	rs := NewResourceSet("test")
	buffer := rs.TrackBuffer("buffer", &Buffer{})
	image := rs.TrackImage("image", &Image{})
	require.NoError(t, rs.Release())

	assert.ErrorIs(t, buffer.Destroy(), core.ErrDoubleFree)
	assert.ErrorIs(t, image.Destroy(), core.ErrDoubleFree)
}
