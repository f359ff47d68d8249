package renderer

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	log       []string
	listeners []func() error
	targets   map[metadata.DrawTargetID]int
	settings  metadata.DebugSettings
	updateErr error
	frames    uint64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{targets: map[metadata.DrawTargetID]int{}}
}

func (b *fakeBackend) AddDrawInfo(metadata.DrawInfo, metadata.UniformID) {
	b.log = append(b.log, "queue")
}
func (b *fakeBackend) MapUniform(metadata.UniformID, []byte, uint64) error { return nil }
func (b *fakeBackend) UniformSlotSize(metadata.UniformID) uint64 { return 256 }
func (b *fakeBackend) BeginCmdBuffer(metadata.CommandIndex) error {
	b.log = append(b.log, "record")
	return nil
}
func (b *fakeBackend) BeginRenderPass(metadata.CommandIndex, metadata.RenderPassID, int) error {
	return nil
}
func (b *fakeBackend) RegisterObject(metadata.CommandIndex, metadata.DescriptorSetID, metadata.ProgramID, metadata.DrawTargetID, []uint32) error {
	return nil
}
func (b *fakeBackend) EndRenderPass(metadata.CommandIndex, metadata.RenderPassID) error { return nil }
func (b *fakeBackend) EndCmdBuffer(metadata.CommandIndex) error { return nil }
func (b *fakeBackend) Extent() (uint32, uint32) { return 800, 600 }

func (b *fakeBackend) RegisterDrawTarget(id metadata.DrawTargetID, meshes []metadata.Mesh, instances []float32) error {
	b.targets[id] = len(meshes)
	return nil
}
func (b *fakeBackend) OnRebuild(fn func() error) { b.listeners = append(b.listeners, fn) }
func (b *fakeBackend) RequestRebuild() { b.log = append(b.log, "rebuild") }
func (b *fakeBackend) SetDebugSettings(s metadata.DebugSettings) {
	b.settings = s
}
func (b *fakeBackend) DebugSettings() metadata.DebugSettings { return b.settings }

func (b *fakeBackend) Start() error {
	b.log = append(b.log, "start")
	for _, fn := range b.listeners {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func (b *fakeBackend) Update() error {
	if b.updateErr != nil {
		return b.updateErr
	}
	b.log = append(b.log, "update")
	b.frames++
	return nil
}
func (b *fakeBackend) Shutdown() { b.log = append(b.log, "shutdown") }
func (b *fakeBackend) Frames() uint64 { return b.frames }

func newLevel() *scene.Level {
	return scene.NewLevel(scene.NewCamera(mgl32.Vec3{0, 3, -5}, mgl32.Vec3{}))
}

func TestStartWithoutLevel(t *testing.T) {
	r := NewWithBackend(newFakeBackend())
	assert.ErrorIs(t, r.Start(), ErrNoLevel)
	assert.ErrorIs(t, r.DrawFrame(), ErrNoLevel)
}

func TestStartRecordsLevel(t *testing.T) {
	b := newFakeBackend()
	r := NewWithBackend(b)
	require.NoError(t, r.SetLevel(newLevel()))
	require.NoError(t, r.Start())

	// shadow and geometry buffers are recorded by the rebuild listener
	assert.Equal(t, []string{"start", "record", "record"}, b.log)
	assert.Error(t, r.SetLevel(newLevel()))
}

func TestDrawFrameQueuesBeforeUpdate(t *testing.T) {
	b := newFakeBackend()
	r := NewWithBackend(b)
	require.NoError(t, r.SetLevel(newLevel()))
	require.NoError(t, r.Start())
	b.log = nil

	require.NoError(t, r.DrawFrame())
	assert.Equal(t, []string{"queue", "update"}, b.log)
	assert.Equal(t, uint64(1), r.Frames())
}

func TestDrawFramePropagatesErrors(t *testing.T) {
	b := newFakeBackend()
	r := NewWithBackend(b)
	require.NoError(t, r.SetLevel(newLevel()))
	require.NoError(t, r.Start())

	b.updateErr = errors.New("device lost")
	assert.ErrorIs(t, r.DrawFrame(), b.updateErr)
}

func TestRegisterModel(t *testing.T) {
	b := newFakeBackend()
	r := NewWithBackend(b)

	assert.Error(t, r.RegisterModel(metadata.DrawTargetID(5), nil))
	assert.Error(t, r.RegisterModel(metadata.DrawTargetID(5), &metadata.Model{}))

	model := &metadata.Model{Meshes: []metadata.Mesh{{}, {}}}
	require.NoError(t, r.RegisterModel(metadata.DrawTargetID(5), model))
	assert.Equal(t, 2, b.targets[metadata.DrawTargetID(5)])
}

func TestSettingsPassThrough(t *testing.T) {
	b := newFakeBackend()
	r := NewWithBackend(b)
	s := metadata.DefaultDebugSettings()
	s.DeferredType = metadata.DeferredNormal
	r.SetDebugSettings(s)
	assert.Equal(t, s, r.DebugSettings())

	r.RequestRebuild()
	r.Shutdown()
	assert.Equal(t, []string{"rebuild", "shutdown"}, b.log)
}
