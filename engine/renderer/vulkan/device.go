package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkclear/engine/core"
	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

const portabilitySubsetExtensionName = "VK_KHR_portability_subset"

// VulkanDevice is the selected physical device, its logical device and the
// single queue used for both graphics and presentation.
type VulkanDevice struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	SwapchainSupport VulkanSwapchainSupportInfo

	QueueFamilyIndex uint32
	Queue            vk.Queue

	Properties vk.PhysicalDeviceProperties

	allocator *vk.AllocationCallbacks
	locks     *VulkanLockPool
}

var _ frame.Device = (*VulkanDevice)(nil)

func DeviceCreate(context *VulkanContext) (*VulkanDevice, error) {
	device := &VulkanDevice{
		allocator: context.Allocator,
		locks:     NewVulkanLockPool(),
	}
	if err := device.selectPhysicalDevice(context); err != nil {
		return nil, err
	}

	core.LogInfo("Creating logical device...")

	queueCreateInfos := []vk.DeviceQueueCreateInfo{
		{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: device.QueueFamilyIndex,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		},
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if device.hasExtension(portabilitySubsetExtensionName) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtensionName)
		extensionNames = append(extensionNames, portabilitySubsetExtensionName)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logicalDevice vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice); res != vk.Success {
		err := fmt.Errorf("%w: failed to create logical device: %s", frame.ErrSetupFailure, VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	device.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	var queue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, device.QueueFamilyIndex, 0, &queue)
	device.Queue = queue
	device.locks.SetQueueFamily(device.QueueFamilyIndex)
	core.LogInfo("Queue obtained.")

	return device, nil
}

// Destroy releases the logical device. Physical devices are not destroyed.
func (vd *VulkanDevice) Destroy() {
	vd.Queue = nil
	if vd.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(vd.LogicalDevice, vd.allocator)
		vd.LogicalDevice = nil
	}
	vd.PhysicalDevice = nil
	vd.SwapchainSupport = VulkanSwapchainSupportInfo{}
}

func (vd *VulkanDevice) CreateFence(signaled bool) (frame.Fence, error) {
	return NewFence(vd, signaled)
}

func (vd *VulkanDevice) CreateSemaphore() (frame.Semaphore, error) {
	return NewSemaphore(vd)
}

func (vd *VulkanDevice) CreateCommandContext() (frame.CommandContext, error) {
	return NewVulkanCommandBuffer(vd)
}

func (vd *VulkanDevice) Submit(commands frame.CommandContext, wait frame.Semaphore, signal frame.Semaphore, fence frame.Fence) frame.Result {
	commandBuffer := commands.(*VulkanCommandBuffer)

	submitInfo := vk.SubmitInfo{
		SType: vk.StructureTypeSubmitInfo,
		// Wait semaphore ensures that the operation cannot begin until the image is available.
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(*VulkanSemaphore).Handle},
		// Color attachment writes wait for the semaphore; everything before may run early.
		PWaitDstStageMask:  []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{commandBuffer.Handle},
		// The semaphore(s) to be signaled when the queue is complete.
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal.(*VulkanSemaphore).Handle},
	}

	var result vk.Result
	vd.locks.SafeQueueCall(vd.QueueFamilyIndex, func() {
		result = vk.QueueSubmit(vd.Queue, 1, []vk.SubmitInfo{submitInfo}, fence.(*VulkanFence).Handle)
	})
	if result != vk.Success {
		core.LogError("vkQueueSubmit failed with result: %s", VulkanResultString(result, true))
		return toResult(result)
	}
	commandBuffer.UpdateSubmitted()
	return frame.Success
}

func (vd *VulkanDevice) WaitIdle() frame.Result {
	var result vk.Result
	vd.locks.SafeQueueCall(vd.QueueFamilyIndex, func() {
		result = vk.DeviceWaitIdle(vd.LogicalDevice)
	})
	if result != vk.Success {
		core.LogError("vkDeviceWaitIdle failed with result: %s", VulkanResultString(result, true))
	}
	return toResult(result)
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	supportInfo := VulkanSwapchainSupportInfo{}

	// Surface capabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return supportInfo, fmt.Errorf("failed to get physical device surface capabilities: %s", VulkanResultString(res, false))
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	// Surface formats
	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return supportInfo, fmt.Errorf("failed to get physical device surface formats: %s", VulkanResultString(res, false))
	}
	if formatCount != 0 {
		supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); res != vk.Success {
			return supportInfo, fmt.Errorf("failed to get physical device surface formats: %s", VulkanResultString(res, false))
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	// Present modes
	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return supportInfo, fmt.Errorf("failed to get physical device surface present modes: %s", VulkanResultString(res, false))
	}
	if presentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			return supportInfo, fmt.Errorf("failed to get physical device surface present modes: %s", VulkanResultString(res, false))
		}
	}
	return supportInfo, nil
}

// selectPhysicalDevice takes the first device exposing a queue family that
// supports both graphics and presentation to the surface.
func (vd *VulkanDevice) selectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return fmt.Errorf("%w: failed to enumerate physical devices: %s", frame.ErrSetupFailure, VulkanResultString(res, false))
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("%w: no devices which support Vulkan were found", frame.ErrSetupFailure)
		core.LogError(err.Error())
		return err
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return fmt.Errorf("%w: failed to enumerate physical devices: %s", frame.ErrSetupFailure, VulkanResultString(res, false))
	}

	for _, physicalDevice := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
		properties.Deref()
		name := vk.ToString(properties.DeviceName[:])

		familyIndex, ok := findQueueFamily(physicalDevice, context.Surface)
		if !ok {
			core.LogInfo("Device '%s' has no queue family with graphics and present support. Skipping.", name)
			continue
		}

		support, err := DeviceQuerySwapchainSupport(physicalDevice, context.Surface)
		if err != nil {
			core.LogWarn("Device '%s': %s. Skipping.", name, err)
			continue
		}
		if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
			core.LogInfo("Required swapchain support not present on '%s', skipping device.", name)
			continue
		}

		vd.PhysicalDevice = physicalDevice
		vd.QueueFamilyIndex = familyIndex
		vd.SwapchainSupport = support
		vd.Properties = properties

		core.LogInfo("Selected device: '%s'.", name)
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeIntegratedGpu:
			core.LogInfo("GPU type is Integrated.")
		case vk.PhysicalDeviceTypeDiscreteGpu:
			core.LogInfo("GPU type is Discrete.")
		case vk.PhysicalDeviceTypeVirtualGpu:
			core.LogInfo("GPU type is Virtual.")
		case vk.PhysicalDeviceTypeCpu:
			core.LogInfo("GPU type is CPU.")
		default:
			core.LogInfo("GPU type is Unknown.")
		}
		deviceVersion := vk.Version(properties.ApiVersion)
		apiVersion := negotiateVersion(context.APIVersion, deviceVersion)
		core.LogInfo("Vulkan API version: %d.%d.%d (instance %s, device %s)",
			apiVersion.Major(), apiVersion.Minor(), apiVersion.Patch(), context.APIVersion, deviceVersion)
		core.LogDebug("Queue family index: %d", familyIndex)
		return nil
	}

	err := fmt.Errorf("%w: no physical devices were found which meet the requirements", frame.ErrSetupFailure)
	core.LogError(err.Error())
	return err
}

func findQueueFamily(physicalDevice vk.PhysicalDevice, surface vk.Surface) (uint32, bool) {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueFamilyCount, queueFamilies)

	for i := range queueFamilies {
		queueFamilies[i].Deref()
		if vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit == 0 {
			continue
		}
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, uint32(i), surface, &supportsPresent); res != vk.Success {
			continue
		}
		if supportsPresent == vk.True {
			return uint32(i), true
		}
	}
	return 0, false
}

func (vd *VulkanDevice) hasExtension(name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(vd.PhysicalDevice, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(vd.PhysicalDevice, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if vk.ToString(available[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}
