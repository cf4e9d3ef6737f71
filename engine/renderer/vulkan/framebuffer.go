package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkclear/engine/core"
)

// VulkanFramebuffer binds one presentable image view to the main render pass.
type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
	Width       uint32
	Height      uint32

	device *VulkanDevice
}

func FramebufferCreate(device *VulkanDevice, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	outFramebuffer := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
		Width:       width,
		Height:      height,
		device:      device,
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var pFramebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(device.LogicalDevice, &framebufferCreateInfo, device.allocator, &pFramebuffer); res != vk.Success {
		err := fmt.Errorf("failed to create framebuffer: %s", VulkanResultString(res, false))
		core.LogError(err.Error())
		return nil, err
	}
	outFramebuffer.Handle = pFramebuffer
	return outFramebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy() {
	if vfb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(vfb.device.LogicalDevice, vfb.Handle, vfb.device.allocator)
		vfb.Handle = vk.NullFramebuffer
	}
	vfb.Attachments = nil
	vfb.Renderpass = nil
}
