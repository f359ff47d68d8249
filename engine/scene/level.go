package scene

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// Level is the set of drawables rendered every frame.
type Level struct {
	Camera *Camera

	drawables []Drawable
	lights    [metadata.MaxLights]*PointLight
	objects   map[uint32]string
}

func NewLevel(camera *Camera) *Level {
	return &Level{
		Camera:    camera,
		drawables: []Drawable{camera},
		objects:   make(map[uint32]string),
	}
}

// Add places d in the level. Slots must be unique per kind.
func (l *Level) Add(d Drawable) error {
	switch v := d.(type) {
	case *StaticMesh:
		if v.Slot >= metadata.MaxObjects {
			return fmt.Errorf("mesh %s: slot %d exceeds %d objects", v.Name, v.Slot, metadata.MaxObjects)
		}
		if owner, taken := l.objects[v.Slot]; taken {
			return fmt.Errorf("mesh %s: slot %d already used by %s", v.Name, v.Slot, owner)
		}
		l.objects[v.Slot] = v.Name
	case *PointLight:
		if v.Slot >= metadata.MaxLights {
			return fmt.Errorf("light slot %d exceeds %d lights", v.Slot, metadata.MaxLights)
		}
		if l.lights[v.Slot] != nil {
			return fmt.Errorf("light slot %d already used", v.Slot)
		}
		l.lights[v.Slot] = v
	case *Camera:
		return fmt.Errorf("a level has exactly one camera")
	default:
		return fmt.Errorf("unknown drawable %T", d)
	}
	l.drawables = append(l.drawables, d)
	return nil
}

func (l *Level) Drawables() []Drawable {
	return l.drawables
}

func (l *Level) LightCount() int {
	n := 0
	for _, light := range l.lights {
		if light != nil {
			n++
		}
	}
	return n
}

// Update queues the uniforms of every drawable for the next frame.
func (l *Level) Update(g Graphics) error {
	for _, d := range l.drawables {
		if err := Update(g, d, l.Camera); err != nil {
			return err
		}
	}
	return nil
}

// Record writes the shadow and geometry command buffers. It runs after every
// swapchain build while the device is idle.
func (l *Level) Record(g Graphics) error {
	count := binary.LittleEndian.AppendUint32(nil, uint32(l.LightCount()))
	if err := g.MapUniform(metadata.UniformLightData, count, metadata.LightCountOffset); err != nil {
		return err
	}
	if err := l.recordShadows(g); err != nil {
		return fmt.Errorf("recording shadow pass: %w", err)
	}
	if err := l.recordGeometry(g); err != nil {
		return fmt.Errorf("recording geometry pass: %w", err)
	}
	core.LogDebug("Recorded %d drawables and %d lights", len(l.drawables), l.LightCount())
	return nil
}

// recordShadows clears every shadow cube, so slots without a light still hold
// a valid depth map.
func (l *Level) recordShadows(g Graphics) error {
	if err := g.BeginCmdBuffer(metadata.CommandShadow); err != nil {
		return err
	}
	for slot, light := range l.lights {
		if err := g.BeginRenderPass(metadata.CommandShadow, metadata.RenderPassDepthCubemap, slot); err != nil {
			return err
		}
		if light != nil {
			for _, d := range l.drawables {
				if err := RegisterShadow(g, d, light); err != nil {
					return err
				}
			}
		}
		if err := g.EndRenderPass(metadata.CommandShadow, metadata.RenderPassDepthCubemap); err != nil {
			return err
		}
	}
	return g.EndCmdBuffer(metadata.CommandShadow)
}

func (l *Level) recordGeometry(g Graphics) error {
	if err := g.BeginCmdBuffer(metadata.CommandGeometry); err != nil {
		return err
	}
	if err := g.BeginRenderPass(metadata.CommandGeometry, metadata.RenderPassPre, 0); err != nil {
		return err
	}
	for _, d := range l.drawables {
		if err := RegisterGeometry(g, d); err != nil {
			return err
		}
	}
	if err := g.EndRenderPass(metadata.CommandGeometry, metadata.RenderPassPre); err != nil {
		return err
	}
	return g.EndCmdBuffer(metadata.CommandGeometry)
}
