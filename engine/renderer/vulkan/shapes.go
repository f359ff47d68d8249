package vulkan

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// quadIndices draws two triangles over four corners.
var quadIndices = []uint32{0, 1, 2, 1, 3, 2}

// RectangleMesh is the full screen quad: position then texture coordinate.
func RectangleMesh() metadata.Mesh {
	vertices := []float32{
		-1, -1, 0, 0,
		1, -1, 1, 0,
		-1, 1, 0, 1,
		1, 1, 1, 1,
	}
	return metadata.Mesh{Vertices: metadata.Bytes(vertices), Indices: append([]uint32(nil), quadIndices...)}
}

// CubeMesh is a unit cube of half size 1 with one normal per face.
func CubeMesh() metadata.Mesh {
	faces := [6]struct{ n, u, v mgl32.Vec3 }{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	vertices := make([]float32, 0, 24*6)
	indices := make([]uint32, 0, 36)
	for i, f := range faces {
		corners := [4]mgl32.Vec3{
			f.n.Sub(f.u).Sub(f.v),
			f.n.Add(f.u).Sub(f.v),
			f.n.Sub(f.u).Add(f.v),
			f.n.Add(f.u).Add(f.v),
		}
		for _, c := range corners {
			vertices = append(vertices, c[0], c[1], c[2], f.n[0], f.n[1], f.n[2])
		}
		base := uint32(i * 4)
		for _, idx := range quadIndices {
			indices = append(indices, base+idx)
		}
	}
	return metadata.Mesh{Vertices: metadata.Bytes(vertices), Indices: indices}
}
