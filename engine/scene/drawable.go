package scene

import (
	"fmt"

	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// Drawable is one of *StaticMesh, *PointLight or *Camera.
type Drawable interface {
	drawable()
}

func (*StaticMesh) drawable() {}
func (*PointLight) drawable() {}
func (*Camera) drawable()     {}

// Update queues the per frame uniforms of d. Light positions are moved into
// the view space of cam.
func Update(g Graphics, d Drawable, cam *Camera) error {
	switch v := d.(type) {
	case *StaticMesh:
		if v.Slot >= metadata.MaxObjects {
			return fmt.Errorf("mesh %s: slot %d exceeds %d objects", v.Name, v.Slot, metadata.MaxObjects)
		}
		g.AddDrawInfo(metadata.DrawInfo{Data: metadata.Bytes(v.Object()), Slot: v.Slot}, metadata.UniformObjectMatrix)
	case *PointLight:
		if v.Slot >= metadata.MaxLights {
			return fmt.Errorf("light slot %d exceeds %d lights", v.Slot, metadata.MaxLights)
		}
		g.AddDrawInfo(metadata.DrawInfo{Data: metadata.Bytes(v.Object()), Slot: v.Slot}, metadata.UniformLightObjectMatrix)
		g.AddDrawInfo(metadata.DrawInfo{Data: metadata.Bytes(v.Projection()), Slot: v.Slot}, metadata.UniformLightProj)
		g.AddDrawInfo(metadata.DrawInfo{
			Data:   metadata.Bytes(v.Data(cam.View())),
			Offset: uint64(v.Slot) * metadata.LightDataStride,
		}, metadata.UniformLightData)
	case *Camera:
		w, h := g.Extent()
		g.AddDrawInfo(metadata.DrawInfo{Data: metadata.Bytes(v.Transform(w, h))}, metadata.UniformCameraTransform)
	default:
		return fmt.Errorf("unknown drawable %T", d)
	}
	return nil
}

// RegisterGeometry records d into the geometry pass. Cameras record nothing.
func RegisterGeometry(g Graphics, d Drawable) error {
	switch v := d.(type) {
	case *StaticMesh:
		offsets := []uint32{dynamicOffset(g, metadata.UniformObjectMatrix, v.Slot)}
		return g.RegisterObject(metadata.CommandGeometry, metadata.DescriptorSetObject, metadata.ProgramBaseRender, v.Target, offsets)
	case *PointLight:
		offsets := []uint32{dynamicOffset(g, metadata.UniformLightObjectMatrix, v.Slot)}
		return g.RegisterObject(metadata.CommandGeometry, metadata.DescriptorSetLightObject, metadata.ProgramDiffuse, metadata.DrawTargetCube, offsets)
	case *Camera:
		return nil
	default:
		return fmt.Errorf("unknown drawable %T", d)
	}
}

// RegisterShadow records d into the shadow cube pass of light. Only static
// meshes cast shadows.
func RegisterShadow(g Graphics, d Drawable, light *PointLight) error {
	switch v := d.(type) {
	case *StaticMesh:
		offsets := []uint32{
			dynamicOffset(g, metadata.UniformObjectMatrix, v.Slot),
			dynamicOffset(g, metadata.UniformLightProj, light.Slot),
		}
		return g.RegisterObject(metadata.CommandShadow, metadata.DescriptorSetShadowMap, metadata.ProgramShadowMap, v.Target, offsets)
	case *PointLight, *Camera:
		return nil
	default:
		return fmt.Errorf("unknown drawable %T", d)
	}
}
