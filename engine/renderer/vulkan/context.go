package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
)

// SurfaceFactory creates the presentation surface for an instance.
type SurfaceFactory func(instance vk.Instance) (vk.Surface, error)

type ContextConfig struct {
	ApplicationName  string
	EnableValidation bool
	// Instance extensions required by the windowing system.
	InstanceExtensions []string
	// Nil for headless contexts, which then have no present queue.
	CreateSurface SurfaceFactory
	// Upper bound for the multisample count of the G-buffer.
	MaxSamples uint32
}

// VulkanContext is the explicit owner of the instance, surface, device and the
// locks guarding queue access. Every subsystem receives it at construction.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback
	validation     bool

	Device *VulkanDevice
	Locks  *VulkanLockPool
}

func NewContext(cfg ContextConfig) (*VulkanContext, error) {
	vc := &VulkanContext{
		Allocator:  nil,
		validation: cfg.EnableValidation,
		Locks:      NewVulkanLockPool(),
	}

	if err := vc.createInstance(cfg); err != nil {
		return nil, err
	}

	if vc.validation {
		if err := vc.createDebugCallback(); err != nil {
			vc.Destroy()
			return nil, err
		}
	}

	if cfg.CreateSurface != nil {
		core.LogDebug("Creating Vulkan surface...")
		surface, err := cfg.CreateSurface(vc.Instance)
		if err != nil {
			vc.Destroy()
			return nil, fmt.Errorf("failed to create surface: %w", err)
		}
		vc.Surface = surface
		core.LogDebug("Vulkan surface created.")
	}

	device, err := NewDevice(vc, cfg.MaxSamples)
	if err != nil {
		vc.Destroy()
		return nil, err
	}
	vc.Device = device

	return vc, nil
}

func (vc *VulkanContext) Headless() bool {
	return vc.Surface == vk.NullSurface
}

func (vc *VulkanContext) createInstance(cfg ContextConfig) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(cfg.ApplicationName),
		PEngineName:        VulkanSafeString("Umbra Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := append([]string{}, cfg.InstanceExtensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	requiredLayers := []string{}
	if cfg.EnableValidation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		requiredLayers = append(requiredLayers, "VK_LAYER_KHRONOS_validation")
		if err := checkValidationLayers(requiredLayers); err != nil {
			return err
		}
	}

	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vc.Allocator, &instance); res != vk.Success {
		return resultError("vkCreateInstance", res)
	}
	if err := vk.InitInstance(instance); err != nil {
		return err
	}
	vc.Instance = instance

	core.LogInfo("Vulkan Instance created.")
	return nil
}

func checkValidationLayers(required []string) error {
	core.LogInfo("Validation layers enabled. Enumerating...")

	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}

	for _, name := range required {
		found := false
		for j := range available {
			available[j].Deref()
			if vk.ToString(available[j].LayerName[:]) == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("required validation layer is missing: %s", name)
		}
	}
	core.LogInfo("All required validation layers are present.")
	return nil
}

func (vc *VulkanContext) createDebugCallback() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
		return fmt.Errorf("vk.CreateDebugReportCallback failed: %w", err)
	}
	vc.debugMessenger = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

// Destroy releases the device, surface, debugger and instance in reverse creation order.
func (vc *VulkanContext) Destroy() {
	if vc.Device != nil {
		core.LogDebug("Destroying Vulkan device...")
		vc.Device.Destroy(vc)
		vc.Device = nil
	}

	if vc.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}

	if vc.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = vk.NullDebugReportCallback
	}

	if vc.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}
