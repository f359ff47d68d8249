package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// Point lights are the only light type the lighting pass shades with shadows.
const lightTypePoint = 0

// ShadowNear is the near plane of every shadow cube face.
const ShadowNear = 0.1

// PointLight is a light with an omnidirectional shadow map. Slot selects its
// shadow map, LIGHTDATA entry and LIGHT_OBJECT slot.
type PointLight struct {
	Slot     uint32
	Position mgl32.Vec3
	Color    mgl32.Vec3
	Ambient  float32
	// Scale of the cube drawn at the light position.
	Scale       float32
	FarPlane    float32
	Attenuation [3]float32
}

func NewPointLight(slot uint32, position mgl32.Vec3) *PointLight {
	return &PointLight{
		Slot:        slot,
		Position:    position,
		Color:       mgl32.Vec3{1, 1, 1},
		Ambient:     0.05,
		Scale:       0.2,
		FarPlane:    100,
		Attenuation: [3]float32{1, 0.09, 0.032},
	}
}

// cubeFaces lists target direction and up vector of each cube map face in layer order.
var cubeFaces = [6][2]mgl32.Vec3{
	{{1, 0, 0}, {0, -1, 0}},
	{{-1, 0, 0}, {0, -1, 0}},
	{{0, 1, 0}, {0, 0, 1}},
	{{0, -1, 0}, {0, 0, -1}},
	{{0, 0, 1}, {0, -1, 0}},
	{{0, 0, -1}, {0, -1, 0}},
}

// Projection returns the six face matrices of the light's shadow cube.
func (l *PointLight) Projection() metadata.LightProj {
	proj := metadata.LightProj{
		Projection: mgl32.Perspective(mgl32.DegToRad(90), 1, ShadowNear, l.FarPlane),
		Position:   l.Position,
		FarPlane:   l.FarPlane,
	}
	for i, face := range cubeFaces {
		proj.Views[i] = mgl32.LookAtV(l.Position, l.Position.Add(face[0]), face[1])
	}
	return proj
}

// Data returns the shading parameters with the position in view space.
func (l *PointLight) Data(view mgl32.Mat4) metadata.LightData {
	return metadata.LightData{
		Ambient:       l.Color.Mul(l.Ambient),
		Diffuse:       l.Color,
		Specular:      l.Color,
		Position:      view.Mul4x1(l.Position.Vec4(1)).Vec3(),
		AttenuationC1: l.Attenuation[0],
		AttenuationC2: l.Attenuation[1],
		AttenuationC3: l.Attenuation[2],
		Type:          lightTypePoint,
	}
}

// Object is the uniform of the small cube marking the light.
func (l *PointLight) Object() metadata.ObjectUniform {
	return metadata.ObjectUniform{
		Model: mgl32.Translate3D(l.Position.X(), l.Position.Y(), l.Position.Z()).Mul4(mgl32.Scale3D(l.Scale, l.Scale, l.Scale)),
		Color: l.Color,
	}
}
