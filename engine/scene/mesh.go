package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// StaticMesh draws a registered draw target with one OBJECT_MATRIX slot.
type StaticMesh struct {
	Name      string
	Target    metadata.DrawTargetID
	Slot      uint32
	Model     mgl32.Mat4
	Color     mgl32.Vec3
	Roughness float32
	Metallic  float32
}

func NewStaticMesh(name string, target metadata.DrawTargetID, slot uint32, model mgl32.Mat4) *StaticMesh {
	return &StaticMesh{
		Name:      name,
		Target:    target,
		Slot:      slot,
		Model:     model,
		Color:     mgl32.Vec3{0.8, 0.8, 0.8},
		Roughness: 0.5,
	}
}

func (m *StaticMesh) Object() metadata.ObjectUniform {
	return metadata.ObjectUniform{
		Model:     m.Model,
		Color:     m.Color,
		Roughness: m.Roughness,
		Metallic:  m.Metallic,
	}
}
