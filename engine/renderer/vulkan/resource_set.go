package vulkan

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/umbra/engine/core"
)

type trackedResource struct {
	name    string
	release func() error
}

// ResourceSet owns every resource whose lifetime is bound to one swapchain
// build. Release tears them down in reverse creation order, exactly once.
type ResourceSet struct {
	ID   uuid.UUID
	Name string

	mu        sync.Mutex
	resources []trackedResource
	released  bool
}

func NewResourceSet(name string) *ResourceSet {
	return &ResourceSet{ID: uuid.New(), Name: name}
}

// Track registers a release function. Resources tracked after Release are
// released immediately.
func (rs *ResourceSet) Track(name string, release func() error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.released {
		core.LogWarn("resource %s tracked by released set %s (%s)", name, rs.Name, rs.ID)
		if err := release(); err != nil {
			core.LogError("releasing %s: %s", name, err)
		}
		return
	}
	rs.resources = append(rs.resources, trackedResource{name: name, release: release})
}

func (rs *ResourceSet) TrackImage(name string, img *Image) *Image {
	rs.Track(name, img.Destroy)
	return img
}

func (rs *ResourceSet) TrackBuffer(name string, b *Buffer) *Buffer {
	rs.Track(name, b.Destroy)
	return b
}

func (rs *ResourceSet) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.resources)
}

func (rs *ResourceSet) Release() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.released {
		return fmt.Errorf("resource set %s (%s): %w", rs.Name, rs.ID, core.ErrDoubleFree)
	}
	rs.released = true

	var errs []error
	for i := len(rs.resources) - 1; i >= 0; i-- {
		r := rs.resources[i]
		if err := r.release(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
		}
	}
	core.LogDebug("Released %d resources of set %s", len(rs.resources), rs.Name)
	rs.resources = nil
	return errors.Join(errs...)
}
