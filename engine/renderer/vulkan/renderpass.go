package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkclear/engine/core"
	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

// VulkanRenderpass has a single color attachment that is cleared on load,
// stored, and left ready for presentation.
type VulkanRenderpass struct {
	Handle vk.RenderPass
	Format vk.Format

	device *VulkanDevice
}

func RenderpassCreate(device *VulkanDevice, format vk.Format) (*VulkanRenderpass, error) {
	outRenderpass := &VulkanRenderpass{
		Format: format,
		device: device,
	}

	colorAttachment := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,  // Do not expect any particular layout before render pass starts.
		FinalLayout:    vk.ImageLayoutPresentSrc, // Transitioned to after the render pass
	}

	colorAttachmentReference := []vk.AttachmentReference{
		{
			Attachment: 0, // Attachment description array index
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		},
	}

	// Main subpass
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachmentReference,
	}

	// The attachment write waits for the acquire semaphore, which the submission
	// waits on at the color attachment output stage.
	dependency := vk.SubpassDependency{
		SrcSubpass:      vk.SubpassExternal,
		DstSubpass:      0,
		SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask:   0,
		DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var pRenderPass vk.RenderPass
	if res := vk.CreateRenderPass(device.LogicalDevice, &renderpassCreateInfo, device.allocator, &pRenderPass); res != vk.Success {
		err := fmt.Errorf("failed to create render pass: %s", VulkanResultString(res, false))
		core.LogError(err.Error())
		return nil, err
	}
	outRenderpass.Handle = pRenderPass
	return outRenderpass, nil
}

func (vr *VulkanRenderpass) Destroy() {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(vr.device.LogicalDevice, vr.Handle, vr.device.allocator)
		vr.Handle = vk.NullRenderPass
	}
}

// Begin starts the pass over the whole framebuffer, clearing it to clear.
func (vr *VulkanRenderpass) Begin(commandBuffer *VulkanCommandBuffer, framebuffer *VulkanFramebuffer, clear frame.ClearValue) {
	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(clear[:])

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{
				Width:  framebuffer.Width,
				Height: framebuffer.Height,
			},
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}
