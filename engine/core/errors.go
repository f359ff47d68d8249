package core

import (
	"errors"
)

var (
	// ErrResourceCreation wraps any non-success result while creating a GPU object.
	ErrResourceCreation = errors.New("gpu resource creation failed")
	// ErrUnsupportedLayoutTransition is returned for layout pairs outside the transition table.
	ErrUnsupportedLayoutTransition = errors.New("unsupported image layout transition")
	// ErrUnsupportedFormat is returned when a format lacks a required feature.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrNoSuitableMemoryType is returned when no memory type matches filter and properties.
	ErrNoSuitableMemoryType = errors.New("no suitable memory type")
	// ErrDescriptorMismatch is returned when descriptor writes disagree with the set layout.
	ErrDescriptorMismatch = errors.New("descriptor writes do not match layout")
	ErrNoSuitableDevice   = errors.New("no suitable physical device")
	ErrDoubleFree         = errors.New("resource already released")
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	ErrUnknown            = errors.New("unknown")
)
