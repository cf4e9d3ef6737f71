package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkclear/engine/core"
	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// VulkanCommandBuffer owns a dedicated command pool holding a single primary
// buffer. Resetting the pool resets the buffer.
type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	Pool   vk.CommandPool
	// Command buffer state.
	State VulkanCommandBufferState

	device *VulkanDevice
}

func NewVulkanCommandBuffer(device *VulkanDevice) (*VulkanCommandBuffer, error) {
	vCommandBuffer := &VulkanCommandBuffer{
		State:  COMMAND_BUFFER_STATE_NOT_ALLOCATED,
		device: device,
	}

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.QueueFamilyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, device.allocator, &vCommandBuffer.Pool); res != vk.Success {
		err := fmt.Errorf("failed to create command pool: %s", VulkanResultString(res, false))
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        vCommandBuffer.Pool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(device.LogicalDevice, &allocateInfo, buffers); res != vk.Success {
		vk.DestroyCommandPool(device.LogicalDevice, vCommandBuffer.Pool, device.allocator)
		err := fmt.Errorf("failed to allocate command buffer: %s", VulkanResultString(res, false))
		core.LogError(err.Error())
		return nil, err
	}
	vCommandBuffer.Handle = buffers[0]
	vCommandBuffer.State = COMMAND_BUFFER_STATE_READY

	return vCommandBuffer, nil
}

func (v *VulkanCommandBuffer) Reset() frame.Result {
	res := vk.ResetCommandPool(v.device.LogicalDevice, v.Pool, 0)
	if res != vk.Success {
		core.LogError("failed to reset command pool: %s", VulkanResultString(res, true))
		return toResult(res)
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return frame.Success
}

func (v *VulkanCommandBuffer) Begin() frame.Result {
	vBeginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(v.Handle, vBeginInfo); res != vk.Success {
		core.LogError("failed to begin command buffer: %s", VulkanResultString(res, true))
		return toResult(res)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return frame.Success
}

func (v *VulkanCommandBuffer) BeginRenderPass(target frame.RenderTarget, clear frame.ClearValue) {
	fb := target.(*VulkanFramebuffer)
	fb.Renderpass.Begin(v, fb, clear)
}

func (v *VulkanCommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(v.Handle)
	v.State = COMMAND_BUFFER_STATE_RECORDING
}

func (v *VulkanCommandBuffer) End() frame.Result {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		core.LogError("failed to end command buffer: %s", VulkanResultString(res, true))
		return toResult(res)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return frame.Success
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// Destroy frees the buffer together with its pool.
func (v *VulkanCommandBuffer) Destroy() {
	if v.Handle != nil {
		vk.FreeCommandBuffers(v.device.LogicalDevice, v.Pool, 1, []vk.CommandBuffer{v.Handle})
		v.Handle = nil
	}
	if v.Pool != vk.NullCommandPool {
		vk.DestroyCommandPool(v.device.LogicalDevice, v.Pool, v.device.allocator)
		v.Pool = vk.NullCommandPool
	}
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}
