package vulkan

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type write struct {
	id     metadata.UniformID
	offset uint64
	data   []byte
}

type fakeUniforms struct {
	slotSize uint64
	writes   []write
	err      error
}

func (f *fakeUniforms) MapMemory(id metadata.UniformID, data []byte, offset uint64) error {
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, write{id: id, offset: offset, data: data})
	return nil
}

func (f *fakeUniforms) UniformSlotSize(id metadata.UniformID) uint64 {
	return f.slotSize
}

func TestUniformQueueFlushWritesAtSlotOffsets(t *testing.T) {
	var q UniformQueue
	q.Add(metadata.DrawInfo{Data: []byte{1}, Slot: 0}, metadata.UniformObjectMatrix)
	q.Add(metadata.DrawInfo{Data: []byte{2}, Slot: 3}, metadata.UniformObjectMatrix)
	q.Add(metadata.DrawInfo{Data: []byte{3}, Slot: 1}, metadata.UniformLightObjectMatrix)
	q.Add(metadata.DrawInfo{Data: []byte{4}, Offset: metadata.LightDataStride * 2}, metadata.UniformLightData)
	assert.Equal(t, 4, q.Len())

	w := &fakeUniforms{slotSize: 256}
	require.NoError(t, q.Flush(w))
	assert.Equal(t, []write{
		{metadata.UniformObjectMatrix, 0, []byte{1}},
		{metadata.UniformObjectMatrix, 768, []byte{2}},
		{metadata.UniformLightObjectMatrix, 256, []byte{3}},
		{metadata.UniformLightData, 192, []byte{4}},
	}, w.writes)
	assert.Zero(t, q.Len())

	require.NoError(t, q.Flush(w))
	assert.Len(t, w.writes, 4)
}

func TestUniformQueueFlushError(t *testing.T) {
	var q UniformQueue
	q.Add(metadata.DrawInfo{Data: []byte{1}, Slot: 2}, metadata.UniformObjectMatrix)

	boom := errors.New("boom")
	err := q.Flush(&fakeUniforms{slotSize: 128, err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, q.Len())
}
