package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
	// Sample count used by the G-buffer attachments.
	MSAASamples vk.SampleCountFlagBits
}

type VulkanPhysicalDeviceRequirements struct {
	Present              bool
	GeometryShader       bool
	DeviceExtensionNames []string
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

var depthFormatCandidates = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}

func NewDevice(context *VulkanContext, maxSamples uint32) (*VulkanDevice, error) {
	device, queueInfo, err := selectPhysicalDevice(context)
	if err != nil {
		return nil, err
	}

	core.LogInfo("Creating logical device...")

	indices := []uint32{uint32(queueInfo.GraphicsFamilyIndex)}
	if queueInfo.PresentFamilyIndex >= 0 && queueInfo.PresentFamilyIndex != queueInfo.GraphicsFamilyIndex {
		indices = append(indices, uint32(queueInfo.PresentFamilyIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: indices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	// Cube shadow maps are rendered in one pass through a geometry shader.
	deviceFeatures := vk.PhysicalDeviceFeatures{
		GeometryShader: vk.True,
	}

	extensionNames := []string{}
	if !context.Headless() {
		extensionNames = append(extensionNames, vk.KhrSwapchainExtensionName)
	}
	available, err := deviceExtensions(device.PhysicalDevice)
	if err != nil {
		return nil, err
	}
	if _, ok := available["VK_KHR_portability_subset"]; ok {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logicalDevice vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice); res != vk.Success {
		return nil, resultError("vkCreateDevice", res)
	}
	device.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	device.GraphicsQueueIndex = uint32(queueInfo.GraphicsFamilyIndex)
	var graphicsQueue vk.Queue
	vk.GetDeviceQueue(logicalDevice, device.GraphicsQueueIndex, 0, &graphicsQueue)
	device.GraphicsQueue = graphicsQueue

	if queueInfo.PresentFamilyIndex >= 0 {
		device.PresentQueueIndex = uint32(queueInfo.PresentFamilyIndex)
		var presentQueue vk.Queue
		vk.GetDeviceQueue(logicalDevice, device.PresentQueueIndex, 0, &presentQueue)
		device.PresentQueue = presentQueue
	}
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(logicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		device.Destroy(context)
		return nil, resultError("vkCreateCommandPool", res)
	}
	device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	depthFormat, err := findSupportedFormat(depthFormatCandidates, vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit), device.optimalFeatures)
	if err != nil {
		device.Destroy(context)
		return nil, err
	}
	device.DepthFormat = depthFormat

	limits := device.Properties.Limits
	device.MSAASamples = maxUsableSampleCount(limits.FramebufferColorSampleCounts&limits.FramebufferDepthSampleCounts, maxSamples)
	core.LogInfo("Depth format %d, MSAA samples %d", device.DepthFormat, device.MSAASamples)

	return device, nil
}

func (vd *VulkanDevice) Destroy(context *VulkanContext) {
	vd.GraphicsQueue = nil
	vd.PresentQueue = nil

	if vd.GraphicsCommandPool != nil {
		core.LogInfo("Destroying command pools...")
		vk.DestroyCommandPool(vd.LogicalDevice, vd.GraphicsCommandPool, context.Allocator)
		vd.GraphicsCommandPool = nil
	}

	if vd.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(vd.LogicalDevice, context.Allocator)
		vd.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	vd.PhysicalDevice = nil
	vd.SwapchainSupport = VulkanSwapchainSupportInfo{}
}

// WaitIdle blocks until the device finished all submitted work.
func (vd *VulkanDevice) WaitIdle() error {
	if res := vk.DeviceWaitIdle(vd.LogicalDevice); res != vk.Success {
		return resultError("vkDeviceWaitIdle", res)
	}
	return nil
}

// MinUniformAlignment is the alignment required for dynamic uniform offsets.
func (vd *VulkanDevice) MinUniformAlignment() uint64 {
	return uint64(vd.Properties.Limits.MinUniformBufferOffsetAlignment)
}

func (vd *VulkanDevice) optimalFeatures(format vk.Format) vk.FormatFeatureFlags {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(vd.PhysicalDevice, format, &properties)
	properties.Deref()
	return properties.OptimalTilingFeatures
}

// QuerySwapchainSupport refreshes the surface capabilities, formats and present modes.
func (vd *VulkanDevice) QuerySwapchainSupport(surface vk.Surface) error {
	support, err := querySwapchainSupport(vd.PhysicalDevice, surface)
	if err != nil {
		return err
	}
	vd.SwapchainSupport = support
	return nil
}

func querySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	info := VulkanSwapchainSupportInfo{}

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &info.Capabilities); res != vk.Success {
		return info, resultError("vkGetPhysicalDeviceSurfaceCapabilities", res)
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return info, resultError("vkGetPhysicalDeviceSurfaceFormats", res)
	}
	if formatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, info.Formats); res != vk.Success {
			return info, resultError("vkGetPhysicalDeviceSurfaceFormats", res)
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return info, resultError("vkGetPhysicalDeviceSurfacePresentModes", res)
	}
	if presentModeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, info.PresentModes); res != vk.Success {
			return info, resultError("vkGetPhysicalDeviceSurfacePresentModes", res)
		}
	}
	return info, nil
}

func deviceExtensions(device vk.PhysicalDevice) (map[string]struct{}, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateDeviceExtensionProperties", res)
	}
	extensions := make([]vk.ExtensionProperties, count)
	if count != 0 {
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, extensions); res != vk.Success {
			return nil, resultError("vkEnumerateDeviceExtensionProperties", res)
		}
	}
	out := make(map[string]struct{}, count)
	for i := range extensions {
		extensions[i].Deref()
		out[vk.ToString(extensions[i].ExtensionName[:])] = struct{}{}
	}
	return out, nil
}

func selectPhysicalDevice(context *VulkanContext) (*VulkanDevice, VulkanPhysicalDeviceQueueFamilyInfo, error) {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return nil, VulkanPhysicalDeviceQueueFamilyInfo{}, resultError("vkEnumeratePhysicalDevices", res)
	}
	if physicalDeviceCount == 0 {
		return nil, VulkanPhysicalDeviceQueueFamilyInfo{}, fmt.Errorf("no devices which support Vulkan were found: %w", core.ErrNoSuitableDevice)
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return nil, VulkanPhysicalDeviceQueueFamilyInfo{}, resultError("vkEnumeratePhysicalDevices", res)
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Present:        !context.Headless(),
		GeometryShader: true,
	}
	if requirements.Present {
		requirements.DeviceExtensionNames = []string{vk.KhrSwapchainExtensionName}
	}

	var best *VulkanDevice
	var bestQueues VulkanPhysicalDeviceQueueFamilyInfo
	bestScore := -1

	for _, pd := range physicalDevices {
		candidate := &VulkanDevice{PhysicalDevice: pd}

		vk.GetPhysicalDeviceProperties(pd, &candidate.Properties)
		candidate.Properties.Deref()
		candidate.Properties.Limits.Deref()

		vk.GetPhysicalDeviceFeatures(pd, &candidate.Features)
		candidate.Features.Deref()

		vk.GetPhysicalDeviceMemoryProperties(pd, &candidate.Memory)
		candidate.Memory.Deref()

		queueInfo, ok := physicalDeviceMeetsRequirements(context, candidate, &requirements)
		if !ok {
			continue
		}

		// Discrete GPUs win over everything else.
		score := 0
		if candidate.Properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			score = 2
		} else if candidate.Properties.DeviceType == vk.PhysicalDeviceTypeIntegratedGpu {
			score = 1
		}
		if score > bestScore {
			best, bestQueues, bestScore = candidate, queueInfo, score
		}
	}

	if best == nil {
		return nil, bestQueues, fmt.Errorf("no physical devices meet the requirements: %w", core.ErrNoSuitableDevice)
	}

	props := best.Properties
	core.LogInfo("Selected device: '%s'.", vk.ToString(props.DeviceName[:]))
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(props.DriverVersion).Major(),
		vk.Version(props.DriverVersion).Minor(),
		vk.Version(props.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(props.ApiVersion).Major(),
		vk.Version(props.ApiVersion).Minor(),
		vk.Version(props.ApiVersion).Patch(),
	)
	for j := uint32(0); j < best.Memory.MemoryHeapCount; j++ {
		best.Memory.MemoryHeaps[j].Deref()
		heap := best.Memory.MemoryHeaps[j]
		memorySizeGib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
	return best, bestQueues, nil
}

func physicalDeviceMeetsRequirements(context *VulkanContext, device *VulkanDevice, requirements *VulkanPhysicalDeviceRequirements) (VulkanPhysicalDeviceQueueFamilyInfo, bool) {
	queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}
	name := vk.ToString(device.Properties.DeviceName[:])

	if requirements.GeometryShader && device.Features.GeometryShader == vk.False {
		core.LogInfo("Device '%s' does not support geometry shaders, skipping.", name)
		return queueInfo, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device.PhysicalDevice, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device.PhysicalDevice, &queueFamilyCount, queueFamilies)

	for i := range queueFamilies {
		queueFamilies[i].Deref()
		if queueInfo.GraphicsFamilyIndex < 0 && queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			queueInfo.GraphicsFamilyIndex = int32(i)
		}
		if requirements.Present {
			var supportsPresent vk.Bool32
			if res := vk.GetPhysicalDeviceSurfaceSupport(device.PhysicalDevice, uint32(i), context.Surface, &supportsPresent); res != vk.Success {
				return queueInfo, false
			}
			// Prefer a family that can do both.
			if supportsPresent == vk.True && (queueInfo.PresentFamilyIndex < 0 || int32(i) == queueInfo.GraphicsFamilyIndex) {
				queueInfo.PresentFamilyIndex = int32(i)
			}
		}
	}

	core.LogDebug("Device '%s': graphics family %d, present family %d", name, queueInfo.GraphicsFamilyIndex, queueInfo.PresentFamilyIndex)

	if queueInfo.GraphicsFamilyIndex < 0 || (requirements.Present && queueInfo.PresentFamilyIndex < 0) {
		return queueInfo, false
	}

	if len(requirements.DeviceExtensionNames) > 0 {
		available, err := deviceExtensions(device.PhysicalDevice)
		if err != nil {
			return queueInfo, false
		}
		for _, ext := range requirements.DeviceExtensionNames {
			if _, ok := available[ext]; !ok {
				core.LogInfo("Required extension not found: '%s', skipping device.", ext)
				return queueInfo, false
			}
		}
	}

	if requirements.Present {
		support, err := querySwapchainSupport(device.PhysicalDevice, context.Surface)
		if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
			core.LogInfo("Required swapchain support not present, skipping device.")
			return queueInfo, false
		}
		device.SwapchainSupport = support
	}
	return queueInfo, true
}

// findSupportedFormat returns the first candidate whose optimal tiling features
// contain every required feature bit.
func findSupportedFormat(candidates []vk.Format, required vk.FormatFeatureFlags, features func(vk.Format) vk.FormatFeatureFlags) (vk.Format, error) {
	for _, format := range candidates {
		if features(format)&required == required {
			return format, nil
		}
	}
	return vk.FormatUndefined, fmt.Errorf("none of %v supports features %#x: %w", candidates, required, core.ErrUnsupportedFormat)
}

var sampleCountsDescending = []vk.SampleCountFlagBits{
	vk.SampleCount64Bit,
	vk.SampleCount32Bit,
	vk.SampleCount16Bit,
	vk.SampleCount8Bit,
	vk.SampleCount4Bit,
	vk.SampleCount2Bit,
}

// maxUsableSampleCount picks the highest count in counts that does not exceed limit.
func maxUsableSampleCount(counts vk.SampleCountFlags, limit uint32) vk.SampleCountFlagBits {
	for _, c := range sampleCountsDescending {
		if uint32(c) > limit {
			continue
		}
		if counts&vk.SampleCountFlags(c) != 0 {
			return c
		}
	}
	return vk.SampleCount1Bit
}
