package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkclear/engine/core"
	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

type VulkanFence struct {
	Handle vk.Fence
	device *VulkanDevice
}

func NewFence(device *VulkanDevice, createSignaled bool) (*VulkanFence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	// Make sure to signal the fence if required.
	if createSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(device.LogicalDevice, &fenceCreateInfo, device.allocator, &pFence); res != vk.Success {
		err := fmt.Errorf("failed to create fence: %s", VulkanResultString(res, false))
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanFence{Handle: pFence, device: device}, nil
}

func (vf *VulkanFence) Wait(timeoutNs uint64) frame.Result {
	result := vk.WaitForFences(vf.device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	default:
		core.LogError("vk_fence_wait - %s", VulkanResultString(result, true))
	}
	return toResult(result)
}

func (vf *VulkanFence) Reset() frame.Result {
	result := vk.ResetFences(vf.device.LogicalDevice, 1, []vk.Fence{vf.Handle})
	if result != vk.Success {
		core.LogError("vk_fence_reset - %s", VulkanResultString(result, true))
	}
	return toResult(result)
}

func (vf *VulkanFence) Destroy() {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(vf.device.LogicalDevice, vf.Handle, vf.device.allocator)
		vf.Handle = vk.NullFence
	}
}

type VulkanSemaphore struct {
	Handle vk.Semaphore
	device *VulkanDevice
}

func NewSemaphore(device *VulkanDevice) (*VulkanSemaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var pSemaphore vk.Semaphore
	if res := vk.CreateSemaphore(device.LogicalDevice, &semaphoreCreateInfo, device.allocator, &pSemaphore); res != vk.Success {
		err := fmt.Errorf("failed to create semaphore: %s", VulkanResultString(res, false))
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanSemaphore{Handle: pSemaphore, device: device}, nil
}

func (vs *VulkanSemaphore) Destroy() {
	if vs.Handle != vk.NullSemaphore {
		vk.DestroySemaphore(vs.device.LogicalDevice, vs.Handle, vs.device.allocator)
		vs.Handle = vk.NullSemaphore
	}
}
