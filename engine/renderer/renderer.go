package renderer

import (
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/umbra/engine/config"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/renderer/vulkan"
	"github.com/spaghettifunk/umbra/engine/scene"
)

type RendererType uint8

const (
	Vulkan RendererType = iota
)

var ErrNoLevel = errors.New("renderer: no level attached")

// Renderer drives a backend with the contents of a level.
type Renderer struct {
	backend RendererBackend
	level   *scene.Level
	metrics *core.Metrics
	started bool
}

// Surface is what the window layer provides to the Vulkan backend.
type Surface interface {
	vulkan.Window
	RequiredInstanceExtensions() []string
}

// New creates the Vulkan backend described by cfg.
func New(name string, cfg config.RendererConfig, surface Surface, createSurface vulkan.SurfaceFactory, shaders vulkan.ShaderLoader) (*Renderer, error) {
	backend, err := vulkan.New(vulkan.RendererConfig{
		ApplicationName:    name,
		EnableValidation:   cfg.EnableValidation,
		InstanceExtensions: surface.RequiredInstanceExtensions(),
		CreateSurface:      createSurface,
		Window:             surface,
		Shaders:            shaders,
		FramesInFlight:     cfg.FramesInFlight,
		ShadowMapSize:      cfg.ShadowMapSize,
		MaxSamples:         cfg.MaxSamples,
		VSync:              cfg.VSync,
	})
	if err != nil {
		return nil, err
	}
	return NewWithBackend(backend), nil
}

func NewWithBackend(backend RendererBackend) *Renderer {
	return &Renderer{
		backend: backend,
		metrics: core.NewMetrics(),
	}
}

// Graphics exposes the recording interface of the backend.
func (r *Renderer) Graphics() scene.Graphics {
	return r.backend
}

// RegisterModel uploads every mesh of model under id.
func (r *Renderer) RegisterModel(id metadata.DrawTargetID, model *metadata.Model) error {
	if model == nil || len(model.Meshes) == 0 {
		return fmt.Errorf("model for draw target %d has no meshes", id)
	}
	return r.backend.RegisterDrawTarget(id, model.Meshes, model.Instances)
}

// SetLevel attaches the level recorded on every swapchain build. It must be
// called once, before Start.
func (r *Renderer) SetLevel(level *scene.Level) error {
	if r.level != nil {
		return fmt.Errorf("renderer: level already attached")
	}
	if r.started {
		return fmt.Errorf("renderer: level attached after start")
	}
	r.level = level
	r.backend.OnRebuild(func() error {
		return level.Record(r.backend)
	})
	return nil
}

func (r *Renderer) Start() error {
	if r.level == nil {
		return ErrNoLevel
	}
	if err := r.backend.Start(); err != nil {
		return err
	}
	r.started = true
	return nil
}

// DrawFrame queues the level uniforms and renders one frame.
func (r *Renderer) DrawFrame() error {
	if !r.started {
		return ErrNoLevel
	}
	start := time.Now()
	if err := r.level.Update(r.backend); err != nil {
		return err
	}
	if err := r.backend.Update(); err != nil {
		return err
	}
	r.metrics.Update(time.Since(start).Seconds())
	return nil
}

func (r *Renderer) RequestRebuild() {
	r.backend.RequestRebuild()
}

func (r *Renderer) SetDebugSettings(settings metadata.DebugSettings) {
	r.backend.SetDebugSettings(settings)
}

func (r *Renderer) DebugSettings() metadata.DebugSettings {
	return r.backend.DebugSettings()
}

func (r *Renderer) Metrics() *core.Metrics {
	return r.metrics
}

func (r *Renderer) Frames() uint64 {
	return r.backend.Frames()
}

func (r *Renderer) Shutdown() {
	r.backend.Shutdown()
	r.started = false
}
