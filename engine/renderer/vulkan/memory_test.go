package vulkan

import (
	"errors"
	"sync"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMemoryTypes = []vk.MemoryPropertyFlags{
	deviceLocal,
	hostVisibleCoherent,
	deviceLocal | hostVisibleCoherent,
	vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit),
}

func TestFindMemoryTypeLowestMatchingIndex(t *testing.T) {
	idx, err := findMemoryType(testMemoryTypes, 0b1111, hostVisibleCoherent)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), idx)

	idx, err = findMemoryType(testMemoryTypes, 0b1100, hostVisibleCoherent)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), idx)
}

func TestFindMemoryTypeRespectsFilterAndFlags(t *testing.T) {
	for filter := uint32(0); filter < 16; filter++ {
		for _, props := range []vk.MemoryPropertyFlags{deviceLocal, hostVisibleCoherent, 0} {
			idx, err := findMemoryType(testMemoryTypes, filter, props)
			if err != nil {
				assert.ErrorIs(t, err, core.ErrNoSuitableMemoryType)
				for i, flags := range testMemoryTypes {
					if filter&(1<<uint(i)) != 0 {
						assert.NotEqual(t, props, flags&props, "type %d was eligible", i)
					}
				}
				continue
			}
			assert.NotZero(t, filter&(1<<idx))
			assert.Equal(t, props, testMemoryTypes[idx]&props)
			for i := uint32(0); i < idx; i++ {
				if filter&(1<<i) != 0 {
					assert.NotEqual(t, props, testMemoryTypes[i]&props, "lower type %d was eligible", i)
				}
			}
		}
	}
}

func TestFindMemoryTypeNoneAvailable(t *testing.T) {
	_, err := findMemoryType(testMemoryTypes, 0b0001, hostVisibleCoherent)
	assert.ErrorIs(t, err, core.ErrNoSuitableMemoryType)

	_, err = findMemoryType(nil, 0xffffffff, deviceLocal)
	assert.ErrorIs(t, err, core.ErrNoSuitableMemoryType)
}

func TestRegisterUniformOncePerID(t *testing.T) {
	m := NewMemoryManager(&VulkanContext{Locks: NewVulkanLockPool()}, nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.registerUniform(metadata.UniformCameraTransform, &Buffer{SlotSize: 256, SlotCount: 1})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if errors.Is(err, core.ErrResourceCreation) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 15, rejected)
	assert.Equal(t, uint64(256), m.UniformSlotSize(metadata.UniformCameraTransform))
	assert.Zero(t, m.UniformSlotSize(metadata.UniformLightData))
}
