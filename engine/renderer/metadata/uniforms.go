package metadata

import (
	"bytes"
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
)

// Payload structs mirror the std140 blocks declared by the shaders. Blank
// fields are explicit padding.

type CameraTransform struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Position   mgl32.Vec3
	_          float32
}

type ObjectUniform struct {
	Model     mgl32.Mat4
	Color     mgl32.Vec3
	Roughness float32
	Metallic  float32
}

type LightData struct {
	Ambient       mgl32.Vec3
	AttenuationC1 float32
	Diffuse       mgl32.Vec3
	AttenuationC2 float32
	Specular      mgl32.Vec3
	AttenuationC3 float32
	Position      mgl32.Vec3
	Theta         float32
	Direction     mgl32.Vec3
	Phi           float32
	Falloff       float32
	Type          int32
}

type LightProj struct {
	Projection mgl32.Mat4
	Views      [6]mgl32.Mat4
	Position   mgl32.Vec3
	FarPlane   float32
}

/** @brief Array stride of LightData inside the LIGHTDATA block. */
const LightDataStride = 96

/** @brief Byte size reserved for each OBJECT_MATRIX and LIGHT_OBJECT_MATRIX slot before alignment. */
const ObjectSlotSize = 128

/** @brief Byte offset of the light count that follows the LightData array. */
const LightCountOffset = MaxLights * LightDataStride

/** @brief A pending uniform write: Data lands at Slot * slot size + Offset of the target buffer. */
type DrawInfo struct {
	Data   []byte
	Slot   uint32
	Offset uint64
}

// Bytes encodes a fixed-size payload in little endian, the byte order of every
// device we target.
func Bytes(v interface{}) []byte {
	var buf bytes.Buffer
	buf.Grow(binary.Size(v))
	// Only fails for types without a fixed size, which the payloads never are.
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
