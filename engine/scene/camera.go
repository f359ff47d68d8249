package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	// Vertical field of view in degrees.
	FovY float32
	Near float32
	Far  float32
}

func NewCamera(position, target mgl32.Vec3) *Camera {
	return &Camera{
		Position: position,
		Target:   target,
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     45,
		Near:     0.1,
		Far:      100,
	}
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Projection maps to Vulkan clip space, whose Y axis points down.
func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	p := mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
	p[5] *= -1
	return p
}

func (c *Camera) Transform(width, height uint32) metadata.CameraTransform {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return metadata.CameraTransform{
		View:       c.View(),
		Projection: c.Projection(aspect),
		Position:   c.Position,
	}
}

// Move translates the camera and its target together.
func (c *Camera) Move(delta mgl32.Vec3) {
	c.Position = c.Position.Add(delta)
	c.Target = c.Target.Add(delta)
}

// Forward is the normalized viewing direction.
func (c *Camera) Forward() mgl32.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

// Right is perpendicular to the viewing direction and Up.
func (c *Camera) Right() mgl32.Vec3 {
	return c.Forward().Cross(c.Up).Normalize()
}
