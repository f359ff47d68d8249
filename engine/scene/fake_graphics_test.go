package scene

import (
	"fmt"

	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

type queued struct {
	id   metadata.UniformID
	info metadata.DrawInfo
}

type fakeGraphics struct {
	queued   []queued
	mapped   map[metadata.UniformID][]byte
	commands []string
	slotSize uint64
}

func newFakeGraphics() *fakeGraphics {
	return &fakeGraphics{mapped: map[metadata.UniformID][]byte{}, slotSize: 256}
}

func (g *fakeGraphics) AddDrawInfo(info metadata.DrawInfo, id metadata.UniformID) {
	g.queued = append(g.queued, queued{id: id, info: info})
}

func (g *fakeGraphics) MapUniform(id metadata.UniformID, data []byte, offset uint64) error {
	g.mapped[id] = append(make([]byte, offset), data...)
	return nil
}

func (g *fakeGraphics) UniformSlotSize(id metadata.UniformID) uint64 {
	return g.slotSize
}

func (g *fakeGraphics) BeginCmdBuffer(idx metadata.CommandIndex) error {
	g.commands = append(g.commands, fmt.Sprintf("begin %d", idx))
	return nil
}

func (g *fakeGraphics) BeginRenderPass(idx metadata.CommandIndex, pass metadata.RenderPassID, framebuffer int) error {
	g.commands = append(g.commands, fmt.Sprintf("pass %d fb %d", pass, framebuffer))
	return nil
}

func (g *fakeGraphics) RegisterObject(idx metadata.CommandIndex, set metadata.DescriptorSetID, program metadata.ProgramID, target metadata.DrawTargetID, dynamicOffsets []uint32) error {
	g.commands = append(g.commands, fmt.Sprintf("draw %s target %d set %d %v", program, target, set, dynamicOffsets))
	return nil
}

func (g *fakeGraphics) EndRenderPass(idx metadata.CommandIndex, pass metadata.RenderPassID) error {
	g.commands = append(g.commands, fmt.Sprintf("end pass %d", pass))
	return nil
}

func (g *fakeGraphics) EndCmdBuffer(idx metadata.CommandIndex) error {
	g.commands = append(g.commands, fmt.Sprintf("end %d", idx))
	return nil
}

func (g *fakeGraphics) Extent() (uint32, uint32) {
	return 1280, 720
}
