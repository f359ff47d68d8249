package renderer

import (
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/scene"
)

type RendererBackend interface {
	scene.Graphics

	RegisterDrawTarget(id metadata.DrawTargetID, meshes []metadata.Mesh, instances []float32) error
	OnRebuild(fn func() error)
	RequestRebuild()
	SetDebugSettings(settings metadata.DebugSettings)
	DebugSettings() metadata.DebugSettings

	Start() error
	Update() error
	Shutdown()
	Frames() uint64
}
