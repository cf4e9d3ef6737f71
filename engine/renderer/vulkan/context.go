package vulkan

import (
	vk "github.com/goki/vulkan"
)

// Window is the part of the platform layer the backend needs.
type Window interface {
	GetRequiredExtensionNames() []string
	CreateWindowSurface(instance vk.Instance) (uintptr, error)
	FramebufferSize() (width, height uint32)
}

type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	// APIVersion is the version the instance was created with.
	APIVersion vk.Version

	debugMessenger vk.DebugReportCallback

	Device         *VulkanDevice
	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass
}
