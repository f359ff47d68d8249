package vulkan

import (
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

type FrameState int

const (
	FrameIdle FrameState = iota
	FrameAcquiring
	FrameRecording
	FrameSubmitted
	FramePresenting
)

// frameBackend is the device side of the frame loop.
type frameBackend interface {
	WaitFence(slot int) error
	ResetFence(slot int) error
	AcquireImage(slot int) (uint32, SurfaceStatus, error)
	FlushUniforms() error
	// SubmitOffscreen submits the shadow and geometry buffers and waits for the queue to drain.
	SubmitOffscreen() error
	SubmitPost(slot int, image uint32) error
	Present(slot int, image uint32) (SurfaceStatus, error)
	// WaitDrawable blocks while the window has a zero sized framebuffer.
	WaitDrawable() error
	WaitIdle() error
	CloseSwapchain() error
	OpenSwapchain() (int, error)
	AllocateCommandBuffers(count int) error
	RecordPasses() error
}

// FrameOrchestrator runs the frames in flight protocol and rebuilds the
// swapchain when the surface changes.
type FrameOrchestrator struct {
	backend        frameBackend
	framesInFlight int
	currentFrame   int
	// Slot that last rendered to each swapchain image, -1 when none.
	imagesInFlight []int
	states         []FrameState

	resized   atomic.Bool
	listeners []func() error

	frames   uint64
	rebuilds uint64
}

func NewFrameOrchestrator(backend frameBackend, framesInFlight int) *FrameOrchestrator {
	if framesInFlight < 1 {
		framesInFlight = 1
	}
	return &FrameOrchestrator{
		backend:        backend,
		framesInFlight: framesInFlight,
		states:         make([]FrameState, framesInFlight),
	}
}

// OnRebuild registers fn to run after every swapchain build, once command
// buffers and passes exist again.
func (f *FrameOrchestrator) OnRebuild(fn func() error) {
	f.listeners = append(f.listeners, fn)
}

// RequestRebuild schedules a rebuild after the next present. Safe from any
// goroutine; a request made while a rebuild runs triggers another one.
func (f *FrameOrchestrator) RequestRebuild() {
	f.resized.Store(true)
}

func (f *FrameOrchestrator) CurrentFrame() int { return f.currentFrame }

func (f *FrameOrchestrator) State(slot int) FrameState { return f.states[slot] }

func (f *FrameOrchestrator) Frames() uint64 { return f.frames }

func (f *FrameOrchestrator) Rebuilds() uint64 { return f.rebuilds }

// Open performs the first swapchain build.
func (f *FrameOrchestrator) Open() error {
	return f.build(false)
}

func (f *FrameOrchestrator) build(closeFirst bool) error {
	f.resized.Store(false)
	if err := f.backend.WaitDrawable(); err != nil {
		return err
	}
	if err := f.backend.WaitIdle(); err != nil {
		return err
	}
	if closeFirst {
		if err := f.backend.CloseSwapchain(); err != nil {
			return err
		}
	}
	images, err := f.backend.OpenSwapchain()
	if err != nil {
		return fmt.Errorf("opening swapchain: %w", err)
	}
	if err := f.backend.AllocateCommandBuffers(metadata.PostPassBase + images); err != nil {
		return err
	}
	if err := f.backend.RecordPasses(); err != nil {
		return err
	}
	f.imagesInFlight = make([]int, images)
	for i := range f.imagesInFlight {
		f.imagesInFlight[i] = -1
	}
	for _, fn := range f.listeners {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func (f *FrameOrchestrator) rebuild() error {
	f.rebuilds++
	core.LogDebug("Rebuilding swapchain (%d)", f.rebuilds)
	return f.build(true)
}

// Update renders and presents one frame.
func (f *FrameOrchestrator) Update() error {
	slot := f.currentFrame
	f.states[slot] = FrameAcquiring

	if err := f.backend.WaitFence(slot); err != nil {
		return err
	}
	image, status, err := f.backend.AcquireImage(slot)
	if err != nil {
		return err
	}
	if status == SurfaceOutOfDate {
		f.states[slot] = FrameIdle
		return f.rebuild()
	}

	imageOwner := f.imagesInFlight[image]
	if imageOwner >= 0 && imageOwner != slot {
		if err := f.backend.WaitFence(imageOwner); err != nil {
			return err
		}
	}
	f.imagesInFlight[image] = slot

	// Uniform buffers have a single copy. The previous frame's post pass may
	// still read them, so it must finish before the flush rewrites them.
	if prev := (slot + f.framesInFlight - 1) % f.framesInFlight; prev != slot && prev != imageOwner {
		if err := f.backend.WaitFence(prev); err != nil {
			return err
		}
	}

	f.states[slot] = FrameRecording
	if err := f.backend.FlushUniforms(); err != nil {
		return err
	}
	if err := f.backend.SubmitOffscreen(); err != nil {
		return err
	}
	if err := f.backend.ResetFence(slot); err != nil {
		return err
	}
	if err := f.backend.SubmitPost(slot, image); err != nil {
		return err
	}
	f.states[slot] = FrameSubmitted

	f.states[slot] = FramePresenting
	status, err = f.backend.Present(slot, image)
	if err != nil {
		return err
	}
	f.states[slot] = FrameIdle

	if status != SurfaceOK || f.resized.Load() {
		if err := f.rebuild(); err != nil {
			return err
		}
	}

	f.currentFrame = (slot + 1) % f.framesInFlight
	f.frames++
	return nil
}

// Close waits for the device and releases the swapchain build.
func (f *FrameOrchestrator) Close() error {
	if err := f.backend.WaitIdle(); err != nil {
		return err
	}
	return f.backend.CloseSwapchain()
}
