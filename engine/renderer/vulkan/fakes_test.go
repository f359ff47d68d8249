package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// countingSubmitter records submissions without touching a device.
type countingSubmitter struct {
	calls int
	err   error
}

func (s *countingSubmitter) Submit(record func(cmd vk.CommandBuffer)) error {
	s.calls++
	return s.err
}

// fakeViews returns n distinct non-null view handles that are only ever compared.
func fakeViews(n int) []vk.ImageView {
	backing := make([]uint64, n)
	views := make([]vk.ImageView, n)
	for i := range views {
		views[i] = vk.ImageView(unsafe.Pointer(&backing[i]))
	}
	return views
}
