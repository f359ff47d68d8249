package vulkan

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFrameBackend struct {
	images   int
	acquired int
	log      []string

	acquireStatus []SurfaceStatus
	presentStatus []SurfaceStatus
	allocated     []int
	submitErr     error

	// Slots whose post submission the fake GPU has not finished yet.
	pending map[int]bool
	// Fence discipline breaches: a fence reset or uniforms rewritten while a
	// submission can still read them.
	violations []string
	onRecord   func()
}

func (b *fakeFrameBackend) record(format string, args ...interface{}) {
	b.log = append(b.log, fmt.Sprintf(format, args...))
}

func popStatus(statuses *[]SurfaceStatus) SurfaceStatus {
	if len(*statuses) == 0 {
		return SurfaceOK
	}
	s := (*statuses)[0]
	*statuses = (*statuses)[1:]
	return s
}

func (b *fakeFrameBackend) WaitFence(slot int) error {
	b.record("wait %d", slot)
	delete(b.pending, slot)
	return nil
}

func (b *fakeFrameBackend) ResetFence(slot int) error {
	b.record("reset %d", slot)
	if b.pending[slot] {
		b.violations = append(b.violations, fmt.Sprintf("reset %d before signal", slot))
	}
	return nil
}

func (b *fakeFrameBackend) AcquireImage(slot int) (uint32, SurfaceStatus, error) {
	status := popStatus(&b.acquireStatus)
	if status == SurfaceOutOfDate {
		b.record("acquire %d out of date", slot)
		return 0, status, nil
	}
	image := uint32(b.acquired % b.images)
	b.acquired++
	b.record("acquire %d -> %d", slot, image)
	return image, status, nil
}

func (b *fakeFrameBackend) FlushUniforms() error {
	b.record("flush")
	for slot := range b.pending {
		b.violations = append(b.violations, fmt.Sprintf("uniforms rewritten before slot %d signaled", slot))
	}
	return nil
}

func (b *fakeFrameBackend) SubmitOffscreen() error {
	b.record("offscreen")
	return b.submitErr
}

func (b *fakeFrameBackend) SubmitPost(slot int, image uint32) error {
	b.record("post %d %d", slot, image)
	if b.pending == nil {
		b.pending = make(map[int]bool)
	}
	b.pending[slot] = true
	return nil
}

func (b *fakeFrameBackend) Present(slot int, image uint32) (SurfaceStatus, error) {
	b.record("present %d", image)
	return popStatus(&b.presentStatus), nil
}

func (b *fakeFrameBackend) WaitDrawable() error {
	b.record("drawable")
	return nil
}

func (b *fakeFrameBackend) WaitIdle() error {
	b.record("idle")
	b.pending = nil
	return nil
}

func (b *fakeFrameBackend) CloseSwapchain() error {
	b.record("close")
	return nil
}

func (b *fakeFrameBackend) OpenSwapchain() (int, error) {
	b.record("open")
	b.acquired = 0
	return b.images, nil
}

func (b *fakeFrameBackend) AllocateCommandBuffers(count int) error {
	b.allocated = append(b.allocated, count)
	b.record("allocate %d", count)
	return nil
}

func (b *fakeFrameBackend) RecordPasses() error {
	b.record("record")
	if b.onRecord != nil {
		b.onRecord()
	}
	return nil
}

func (b *fakeFrameBackend) reset() {
	b.log = nil
}

func openFrames(t *testing.T, images int) (*FrameOrchestrator, *fakeFrameBackend) {
	backend := &fakeFrameBackend{images: images}
	f := NewFrameOrchestrator(backend, 2)
	require.NoError(t, f.Open())
	assert.Equal(t, []string{"drawable", "idle", "open", fmt.Sprintf("allocate %d", metadata.PostPassBase+images), "record"}, backend.log)
	backend.reset()
	return f, backend
}

func TestFrameUpdateOrder(t *testing.T) {
	f, backend := openFrames(t, 3)

	require.NoError(t, f.Update())
	assert.Equal(t, []string{
		"wait 0", "acquire 0 -> 0", "wait 1", "flush", "offscreen", "reset 0", "post 0 0", "present 0",
	}, backend.log)
	assert.Equal(t, 1, f.CurrentFrame())
	assert.Equal(t, FrameIdle, f.State(0))
}

func TestFrameSlotsAlternate(t *testing.T) {
	f, backend := openFrames(t, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.Update())
	}
	assert.Equal(t, 1, f.CurrentFrame())
	assert.Equal(t, uint64(3), f.Frames())
	assert.Zero(t, f.Rebuilds())
	assert.Contains(t, backend.log, "post 1 1")
	assert.Contains(t, backend.log, "post 0 2")
}

func TestFrameWaitsForSlotOwningImage(t *testing.T) {
	f, backend := openFrames(t, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.Update())
	}
	backend.reset()

	// Slot 1 acquires image 0, last rendered by slot 0.
	require.NoError(t, f.Update())
	assert.Equal(t, []string{
		"wait 1", "acquire 1 -> 0", "wait 0", "flush", "offscreen", "reset 1", "post 1 0", "present 0",
	}, backend.log)
}

func TestFrameTwoImagesCycle(t *testing.T) {
	f, backend := openFrames(t, 2)

	var images []string
	for i := 0; i < 4; i++ {
		require.NoError(t, f.Update())
	}
	for _, entry := range backend.log {
		var slot, image int
		if _, err := fmt.Sscanf(entry, "post %d %d", &slot, &image); err == nil {
			images = append(images, fmt.Sprintf("%d:%d", slot, image))
		}
	}
	assert.Equal(t, []string{"0:0", "1:1", "0:0", "1:1"}, images)
	assert.Empty(t, backend.violations)
	assert.Equal(t, uint64(4), f.Frames())
}

func TestFrameUniformsWaitForPreviousPost(t *testing.T) {
	f, backend := openFrames(t, 3)
	require.NoError(t, f.Update())
	backend.reset()

	// Slot 1 gets image 1, which nobody rendered to, while slot 0 may still
	// be reading the uniforms in its post pass.
	require.NoError(t, f.Update())
	assert.Equal(t, []string{
		"wait 1", "acquire 1 -> 1", "wait 0", "flush", "offscreen", "reset 1", "post 1 1", "present 1",
	}, backend.log)
	assert.Empty(t, backend.violations)
}

func TestFrameFenceDisciplineOverManyFrames(t *testing.T) {
	for _, images := range []int{2, 3, 4} {
		t.Run(fmt.Sprintf("%d images", images), func(t *testing.T) {
			f, backend := openFrames(t, images)
			for i := 0; i < 12; i++ {
				require.NoError(t, f.Update())
			}
			assert.Empty(t, backend.violations)
		})
	}
}

func TestFrameFenceResetFollowsWait(t *testing.T) {
	f, backend := openFrames(t, 2)
	for i := 0; i < 6; i++ {
		require.NoError(t, f.Update())
	}
	waited := map[int]bool{}
	for _, entry := range backend.log {
		var slot int
		if _, err := fmt.Sscanf(entry, "wait %d", &slot); err == nil {
			waited[slot] = true
		}
		if _, err := fmt.Sscanf(entry, "reset %d", &slot); err == nil {
			assert.True(t, waited[slot], "slot %d reset before being waited", slot)
			waited[slot] = false
		}
	}
}

func TestFrameSuboptimalPresentRebuilds(t *testing.T) {
	f, backend := openFrames(t, 3)
	backend.presentStatus = []SurfaceStatus{SurfaceSuboptimal}

	listened := 0
	f.OnRebuild(func() error { listened++; return nil })

	require.NoError(t, f.Update())
	assert.Equal(t, uint64(1), f.Rebuilds())
	assert.Equal(t, 1, listened)
	assert.Equal(t, []int{metadata.PostPassBase + 3, metadata.PostPassBase + 3}, backend.allocated)
	assert.Equal(t, []string{
		"wait 0", "acquire 0 -> 0", "wait 1", "flush", "offscreen", "reset 0", "post 0 0", "present 0",
		"drawable", "idle", "close", "open", "allocate 5", "record",
	}, backend.log)
	assert.Equal(t, uint64(1), f.Frames())
}

func TestFrameOutOfDateAcquireRebuildsWithoutSubmitting(t *testing.T) {
	f, backend := openFrames(t, 3)
	backend.acquireStatus = []SurfaceStatus{SurfaceOutOfDate}

	require.NoError(t, f.Update())
	assert.Equal(t, []string{
		"wait 0", "acquire 0 out of date", "drawable", "idle", "close", "open", "allocate 5", "record",
	}, backend.log)
	assert.Equal(t, 0, f.CurrentFrame())
	assert.Zero(t, f.Frames())
	assert.Equal(t, uint64(1), f.Rebuilds())

	backend.reset()
	require.NoError(t, f.Update())
	assert.Contains(t, backend.log, "post 0 0")
}

func TestFrameRequestRebuild(t *testing.T) {
	f, backend := openFrames(t, 3)

	f.RequestRebuild()
	require.NoError(t, f.Update())
	assert.Equal(t, uint64(1), f.Rebuilds())

	backend.reset()
	require.NoError(t, f.Update())
	assert.NotContains(t, backend.log, "close")
	assert.Equal(t, uint64(1), f.Rebuilds())
}

func TestFrameRequestDuringRebuildIsKept(t *testing.T) {
	f, backend := openFrames(t, 3)

	requested := false
	backend.onRecord = func() {
		if !requested {
			requested = true
			f.RequestRebuild()
		}
	}

	f.RequestRebuild()
	require.NoError(t, f.Update())
	assert.Equal(t, uint64(1), f.Rebuilds())

	require.NoError(t, f.Update())
	assert.Equal(t, uint64(2), f.Rebuilds())

	require.NoError(t, f.Update())
	assert.Equal(t, uint64(2), f.Rebuilds())
}

func TestFrameListenerErrorStopsRebuild(t *testing.T) {
	backend := &fakeFrameBackend{images: 2}
	f := NewFrameOrchestrator(backend, 2)
	boom := errors.New("boom")
	f.OnRebuild(func() error { return boom })

	assert.ErrorIs(t, f.Open(), boom)
}

func TestFrameSubmitErrorPropagates(t *testing.T) {
	f, backend := openFrames(t, 2)
	backend.submitErr = errors.New("device lost")

	assert.ErrorIs(t, f.Update(), backend.submitErr)
	assert.Zero(t, f.Frames())
	assert.NotContains(t, backend.log, "present 0")
}

func TestFrameClose(t *testing.T) {
	f, backend := openFrames(t, 2)
	require.NoError(t, f.Close())
	assert.Equal(t, []string{"idle", "close"}, backend.log)
}
