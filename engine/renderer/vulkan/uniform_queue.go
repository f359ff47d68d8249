package vulkan

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
)

// uniformWriter stores bytes in a uniform buffer.
type uniformWriter interface {
	MapMemory(id metadata.UniformID, data []byte, offset uint64) error
	UniformSlotSize(id metadata.UniformID) uint64
}

type pendingWrite struct {
	id   metadata.UniformID
	info metadata.DrawInfo
}

// UniformQueue collects per-object uniform writes between frames.
type UniformQueue struct {
	mu      sync.Mutex
	pending []pendingWrite
}

func (q *UniformQueue) Add(info metadata.DrawInfo, id metadata.UniformID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, pendingWrite{id: id, info: info})
}

func (q *UniformQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush writes each pending payload at its slot offset, then empties the queue.
// Writes are applied in the order they were added.
func (q *UniformQueue) Flush(w uniformWriter) error {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, p := range pending {
		offset := uint64(p.info.Slot)*w.UniformSlotSize(p.id) + p.info.Offset
		if err := w.MapMemory(p.id, p.info.Data, offset); err != nil {
			return fmt.Errorf("uniform %d slot %d: %w", p.id, p.info.Slot, err)
		}
	}
	return nil
}
