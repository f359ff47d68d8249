package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/umbra/engine/core"
)

type BufferUsage int

const (
	BufferUsageVertex BufferUsage = iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageInstance
	BufferUsageStaging
)

func (u BufferUsage) String() string {
	switch u {
	case BufferUsageVertex:
		return "vertex"
	case BufferUsageIndex:
		return "index"
	case BufferUsageUniform:
		return "uniform"
	case BufferUsageInstance:
		return "instance"
	case BufferUsageStaging:
		return "staging"
	}
	return fmt.Sprintf("BufferUsage(%d)", int(u))
}

// Buffer is a GPU buffer together with its backing memory.
type Buffer struct {
	ID     uuid.UUID
	Handle vk.Buffer
	Memory vk.DeviceMemory
	// Size in bytes requested by the caller.
	Size  uint64
	Usage BufferUsage

	// Uniform arrays are split in SlotCount slots of SlotSize bytes.
	SlotSize  uint64
	SlotCount uint32

	// Persistently mapped host view, nil for device local buffers.
	mapped []byte

	device    vk.Device
	allocator *vk.AllocationCallbacks
	freed     bool
}

// Mapped reports whether the buffer has a host visible mapping.
func (b *Buffer) Mapped() bool {
	return b.mapped != nil
}

// Write copies data into the mapped region starting at offset.
func (b *Buffer) Write(data []byte, offset uint64) error {
	if b.mapped == nil {
		return fmt.Errorf("%s buffer %s is not host mapped", b.Usage, b.ID)
	}
	if offset+uint64(len(data)) > uint64(len(b.mapped)) {
		return fmt.Errorf("write of %d bytes at offset %d exceeds %s buffer of %d bytes", len(data), offset, b.Usage, len(b.mapped))
	}
	copy(b.mapped[offset:], data)
	return nil
}

// Bytes returns a copy of the mapped region.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.mapped))
	copy(out, b.mapped)
	return out
}

func (b *Buffer) Destroy() error {
	if b.freed {
		return fmt.Errorf("%s buffer %s: %w", b.Usage, b.ID, core.ErrDoubleFree)
	}
	b.freed = true

	if b.mapped != nil && b.Memory != vk.NullDeviceMemory {
		vk.UnmapMemory(b.device, b.Memory)
	}
	b.mapped = nil
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(b.device, b.Handle, b.allocator)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(b.device, b.Memory, b.allocator)
		b.Memory = vk.NullDeviceMemory
	}
	return nil
}

func (b *Buffer) mapMemory() error {
	var ptr unsafe.Pointer
	if res := vk.MapMemory(b.device, b.Memory, 0, vk.DeviceSize(b.Size), 0, &ptr); res != vk.Success {
		return resultError("vkMapMemory", res)
	}
	b.mapped = unsafe.Slice((*byte)(ptr), b.Size)
	return nil
}
